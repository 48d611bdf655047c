package repositories

import (
	"time"

	"github.com/clubcore/evaluation-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type EvaluationFilters struct {
	Status    *models.EvaluationStatus `json:"status"`
	Result    *models.EvaluationResult `json:"result"`
	CoachID   *string                  `json:"coach_id"`
	MemberID  *uint                    `json:"member_id"`
	DateFrom  *time.Time               `json:"date_from"`
	DateTo    *time.Time               `json:"date_to"`
	Limit     int                      `json:"limit"`
	Offset    int                      `json:"offset"`
	SortBy    string                   `json:"sort_by"`    // "scheduled_date", "nominated_at", "updated_at"
	SortOrder string                   `json:"sort_order"` // "asc", "desc"
}

type MemberFilters struct {
	CoachID   *string `json:"coach_id"`
	LevelID   *uint   `json:"level_id"`
	Code      *string `json:"code"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
}

type QuizFilters struct {
	Visible   *bool   `json:"visible"`
	CreatedBy *string `json:"created_by"`
	Limit     int     `json:"limit"`
	Offset    int     `json:"offset"`
	SortBy    string  `json:"sort_by"`
	SortOrder string  `json:"sort_order"`
}

type AttemptFilters struct {
	QuizID     *uint                    `json:"quiz_id"`
	MemberCode *string                  `json:"member_code"`
	Result     *models.EvaluationResult `json:"result"`
	DateFrom   *time.Time               `json:"date_from"`
	DateTo     *time.Time               `json:"date_to"`
	Limit      int                      `json:"limit"`
	Offset     int                      `json:"offset"`
	SortBy     string                   `json:"sort_by"`
	SortOrder  string                   `json:"sort_order"`
}

// ===== SHARED HELPER STRUCTS =====

// PublicLookupKey identifies the unauthenticated most-recent-result query.
// All three fields must match the stored member/evaluation row.
type PublicLookupKey struct {
	FullName   string `json:"full_name"`
	MemberCode string `json:"member_code"`
	CoachID    string `json:"coach_id"`
}

// ===== SHARED STATISTICS STRUCTS =====

type EvaluationStats struct {
	Total        int     `json:"total"`
	Pending      int     `json:"pending"`
	Approved     int     `json:"approved"`
	Disapproved  int     `json:"disapproved"`
	Recorded     int     `json:"recorded"`
	Passed       int     `json:"passed"`
	NotReady     int     `json:"not_ready"`
	PassRate     float64 `json:"pass_rate"`
	WithDocument int     `json:"with_document"`
}

type QuizStats struct {
	TotalAttempts  int     `json:"total_attempts"`
	PassedAttempts int     `json:"passed_attempts"`
	PassRate       float64 `json:"pass_rate"`
	AverageScore   float64 `json:"average_score"`
	HighestScore   int     `json:"highest_score"`
}
