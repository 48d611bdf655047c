package models

import (
	"time"
)

type EvaluationStatus string

const (
	EvaluationPending     EvaluationStatus = "Pending"
	EvaluationApproved    EvaluationStatus = "Approved"
	EvaluationDisapproved EvaluationStatus = "Disapproved"
	EvaluationRecorded    EvaluationStatus = "Recorded"
)

type EvaluationResult string

const (
	ResultPassed   EvaluationResult = "Passed"
	ResultNotReady EvaluationResult = "NotReady"
)

// Evaluation is the central workflow entity. It is created by a nomination,
// moved through the coach approval states, and closed once a result is
// recorded. The engine never hard-deletes; deletion is a separate admin-only
// operation with no state precondition.
type Evaluation struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	MemberID uint   `json:"member_id" gorm:"not null;index"`
	CoachID  string `json:"coach_id" gorm:"not null;index;size:255"`

	Status        EvaluationStatus `json:"status" gorm:"not null;default:Pending;index"`
	NominatedAt   time.Time        `json:"nominated_at" gorm:"not null"`
	ScheduledDate time.Time        `json:"scheduled_date" gorm:"not null;index;type:date"`

	// Result fields, set only once the evaluation is Recorded.
	Result      *EvaluationResult `json:"result" gorm:"size:20"`
	DocumentRef *string           `json:"document_ref" gorm:"size:500"`

	// Transition metadata
	ApprovedAt        *time.Time `json:"approved_at"`
	DisapprovedAt     *time.Time `json:"disapproved_at"`
	DisapprovalReason *string    `json:"disapproval_reason" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Member Member `json:"member" gorm:"foreignKey:MemberID"`
	Coach  User   `json:"coach" gorm:"foreignKey:CoachID"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

// IsTerminal reports whether the status admits no further workflow
// transitions. Disapproved and Recorded evaluations can only be removed by an
// administrative delete.
func (s EvaluationStatus) IsTerminal() bool {
	return s == EvaluationDisapproved || s == EvaluationRecorded
}

// CanRecord reports whether a result may be recorded from this status.
func (s EvaluationStatus) CanRecord() bool {
	return s == EvaluationPending || s == EvaluationApproved
}
