package models

import (
	"time"

	"gorm.io/datatypes"
)

// QuizAttempt is the append-only log of one quiz submission. It is created
// once per submission and never mutated. Persistence is best-effort: a failed
// write does not invalidate the result already shown to the taker.
type QuizAttempt struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	QuizID uint `json:"quiz_id" gorm:"not null;index"`

	// Taker identity. Members supply their membership code; visitors only a
	// display name.
	MemberCode  string `json:"member_code" gorm:"size:50;index"`
	VisitorName string `json:"visitor_name" gorm:"size:100"`

	// Scoring output
	Score       int              `json:"score" gorm:"not null"`
	TotalPoints int              `json:"total_points" gorm:"not null"`
	Percentage  float64          `json:"percentage" gorm:"not null"`
	Result      EvaluationResult `json:"result" gorm:"not null;size:20"`

	// Snapshot of the submitted answers (question id -> answer id).
	Answers datatypes.JSON `json:"answers" gorm:"type:jsonb"`

	SubmittedAt time.Time `json:"submitted_at" gorm:"not null;index"`
	CreatedAt   time.Time `json:"created_at"`

	// Relations
	Quiz Quiz `json:"quiz" gorm:"foreignKey:QuizID"`
}

func (QuizAttempt) TableName() string {
	return "quiz_attempts"
}
