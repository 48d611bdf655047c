package services

import (
	"context"
	"time"

	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
	"github.com/clubcore/evaluation-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type NominateRequest = validator.NominateRequest
type NominateBulkRequest = validator.NominateBulkRequest
type DisapproveRequest = validator.DisapproveRequest
type RecordResultRequest = validator.RecordResultRequest
type RecordResultsBulkRequest = validator.RecordResultsBulkRequest
type PublicLookupRequest = validator.PublicLookupRequest
type SubmitQuizRequest = validator.SubmitQuizRequest
type EvaluationListRequest = validator.EvaluationListRequest
type DocumentUpload = validator.DocumentUpload

type EvaluationResponse struct {
	*models.Evaluation
	CanApprove    bool `json:"can_approve"`
	CanDisapprove bool `json:"can_disapprove"`
	CanRecord     bool `json:"can_record"`
	CanDelete     bool `json:"can_delete"`
}

type EvaluationListResponse struct {
	Evaluations []*EvaluationResponse `json:"evaluations"`
	Total       int64                 `json:"total"`
	Page        int                   `json:"page"`
	Size        int                   `json:"size"`
}

// NominateBulkResponse reports a bulk nomination. Members that already held a
// Pending evaluation are listed as skipped, not failed.
type NominateBulkResponse struct {
	Created          []*EvaluationResponse `json:"created"`
	CreatedCount     int                   `json:"created_count"`
	SkippedMemberIDs []uint                `json:"skipped_member_ids"`
}

type RecordResultsBulkResponse struct {
	RecordedCount int64  `json:"recorded_count"`
	SkippedIDs    []uint `json:"skipped_ids"`
}

// PublicEvaluationResponse is the restricted view served to unauthenticated
// result lookups. No workflow metadata leaks through it.
type PublicEvaluationResponse struct {
	MemberName    string                  `json:"member_name"`
	MemberCode    string                  `json:"member_code"`
	LevelName     *string                 `json:"level_name,omitempty"`
	Result        models.EvaluationResult `json:"result"`
	ScheduledDate time.Time               `json:"scheduled_date"`
	RecordedAt    time.Time               `json:"recorded_at"`
}

// ===== QUIZ DTOs =====

// QuizView is the taker-facing quiz shape. Correct-answer flags are stripped.
type QuizView struct {
	ID                uint           `json:"id"`
	Title             string         `json:"title"`
	Description       *string        `json:"description,omitempty"`
	PassingPercentage float64        `json:"passing_percentage"`
	Questions         []QuestionView `json:"questions"`
}

type QuestionView struct {
	ID      uint         `json:"id"`
	Text    string       `json:"text"`
	Points  int          `json:"points"`
	Order   int          `json:"order"`
	Answers []AnswerView `json:"answers"`
}

type AnswerView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

type QuizListResponse struct {
	Quizzes []*QuizView `json:"quizzes"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Size    int         `json:"size"`
}

// QuestionResult is the per-question scoring breakdown.
type QuestionResult struct {
	QuestionID       uint  `json:"question_id"`
	SelectedAnswerID *uint `json:"selected_answer_id,omitempty"`
	Correct          bool  `json:"correct"`
	PointsAwarded    int   `json:"points_awarded"`
	PointsPossible   int   `json:"points_possible"`
}

// QuizResult is the outcome of scoring one submission.
type QuizResult struct {
	QuizID      uint                    `json:"quiz_id"`
	Score       int                     `json:"score"`
	TotalPoints int                     `json:"total_points"`
	Percentage  float64                 `json:"percentage"`
	Passed      bool                    `json:"passed"`
	Result      models.EvaluationResult `json:"result"`
	Breakdown   []QuestionResult        `json:"breakdown"`
	AttemptID   *uint                   `json:"attempt_id,omitempty"`
	SubmittedAt time.Time               `json:"submitted_at"`
}

type AttemptListResponse struct {
	Attempts []*models.QuizAttempt `json:"attempts"`
	Total    int64                 `json:"total"`
	Page     int                   `json:"page"`
	Size     int                   `json:"size"`
}

// ===== SERVICE INTERFACES =====

// EvaluationService is the lifecycle engine. The acting Principal is passed
// explicitly into every call; ownership and privilege checks happen here, not
// in the transport layer.
type EvaluationService interface {
	// Nomination
	Nominate(ctx context.Context, principal models.Principal, req *NominateRequest) (*EvaluationResponse, error)
	NominateBulk(ctx context.Context, principal models.Principal, req *NominateBulkRequest) (*NominateBulkResponse, error)

	// Approval transitions
	Approve(ctx context.Context, principal models.Principal, id uint) (*EvaluationResponse, error)
	Disapprove(ctx context.Context, principal models.Principal, id uint, req *DisapproveRequest) (*EvaluationResponse, error)

	// Result recording
	RecordResult(ctx context.Context, principal models.Principal, id uint, req *RecordResultRequest) (*EvaluationResponse, error)
	RecordResultsBulk(ctx context.Context, principal models.Principal, req *RecordResultsBulkRequest) (*RecordResultsBulkResponse, error)

	// Administration
	Delete(ctx context.Context, principal models.Principal, ids ...uint) (int64, error)

	// Queries
	GetByID(ctx context.Context, principal models.Principal, id uint) (*EvaluationResponse, error)
	List(ctx context.Context, principal models.Principal, req *EvaluationListRequest) (*EvaluationListResponse, error)
	GetStats(ctx context.Context, principal models.Principal) (*repositories.EvaluationStats, error)

	// PublicLookup is the only unauthenticated read. It returns the most
	// recent Recorded evaluation matching all three key fields, or NotFound.
	PublicLookup(ctx context.Context, req *PublicLookupRequest) (*PublicEvaluationResponse, error)
}

// ScoringService is the quiz scoring engine.
type ScoringService interface {
	// Score is the pure scoring function over the quiz's visible questions.
	// It performs no I/O.
	Score(quiz *models.Quiz, answers map[uint]uint) *QuizResult

	// Submit scores a submission and appends the attempt log best-effort: a
	// failed log write never loses the computed result.
	Submit(ctx context.Context, quizID uint, req *SubmitQuizRequest) (*QuizResult, error)

	// Taker-facing reads
	GetQuiz(ctx context.Context, quizID uint) (*QuizView, error)
	ListQuizzes(ctx context.Context, filters repositories.QuizFilters) (*QuizListResponse, error)

	// Attempt history
	ListAttempts(ctx context.Context, principal models.Principal, filters repositories.AttemptFilters) (*AttemptListResponse, error)
	GetQuizStats(ctx context.Context, principal models.Principal, quizID uint) (*repositories.QuizStats, error)
}

// ExportService produces XLSX reports for privileged users.
type ExportService interface {
	ExportEvaluations(ctx context.Context, principal models.Principal, filters repositories.EvaluationFilters) ([]byte, string, error)
	ExportAttempts(ctx context.Context, principal models.Principal, quizID uint) ([]byte, string, error)
}

// ===== SERVICE MANAGER =====

// ServiceManager provides access to all services
type ServiceManager interface {
	Evaluation() EvaluationService
	Scoring() ScoringService
	Export() ExportService

	// Lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
