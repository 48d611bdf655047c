package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types published on evaluation lifecycle transitions
const (
	EvaluationNominated   = "evaluation.nominated"
	EvaluationApproved    = "evaluation.approved"
	EvaluationDisapproved = "evaluation.disapproved"
	EvaluationRecorded    = "evaluation.result_recorded"
	EvaluationDeleted     = "evaluation.deleted"
	QuizAttempted         = "quiz.attempted"
)

// Event is one lifecycle notification. Publishing is best-effort: a failed
// publish is logged and never rolls back the transition that produced it.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`

	// Acting user (empty for anonymous operations)
	ActorID string `json:"actor_id,omitempty"`

	// Subject references
	EvaluationID uint `json:"evaluation_id,omitempty"`
	MemberID     uint `json:"member_id,omitempty"`
	QuizID       uint `json:"quiz_id,omitempty"`

	// Additional event data
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent creates an event with a fresh ID and timestamp
func NewEvent(eventType string, actorID string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now(),
		ActorID:    actorID,
		Payload:    make(map[string]interface{}),
	}
}

// Publisher delivers lifecycle events to interested consumers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
