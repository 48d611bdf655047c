package services

import (
	"context"
	"fmt"
	"time"

	"github.com/clubcore/evaluation-service/internal/documents"
	"github.com/clubcore/evaluation-service/internal/events"
	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
	"github.com/clubcore/evaluation-service/internal/validator"
)

// toValidationErrors converts validator-layer field errors into the service
// error type handlers know how to map.
func toValidationErrors(verrs validator.ValidationErrors) ValidationErrors {
	out := make(ValidationErrors, len(verrs))
	for i, e := range verrs {
		out[i] = ValidationError{Field: e.Field, Message: e.Message, Value: e.Value}
	}
	return out
}

// getOwnedEvaluation loads an evaluation and enforces the ownership rule:
// coaches may only act on their own evaluations, admins bypass.
func (s *evaluationService) getOwnedEvaluation(ctx context.Context, principal models.Principal, id uint, action string) (*models.Evaluation, error) {
	evaluation, err := s.repo.Evaluation().GetByID(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	if err := s.checkOwnership(principal, evaluation, action); err != nil {
		return nil, err
	}
	return evaluation, nil
}

func (s *evaluationService) getOwnedEvaluationWithDetails(ctx context.Context, principal models.Principal, id uint, action string) (*models.Evaluation, error) {
	evaluation, err := s.repo.Evaluation().GetByIDWithDetails(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}
	if err := s.checkOwnership(principal, evaluation, action); err != nil {
		return nil, err
	}
	return evaluation, nil
}

func (s *evaluationService) checkOwnership(principal models.Principal, evaluation *models.Evaluation, action string) error {
	if principal.IsAdmin() {
		return nil
	}
	if principal.IsCoach() && evaluation.CoachID == principal.ID {
		return nil
	}
	return NewPermissionError(principal.ID, evaluation.ID, "evaluation", action, "not owner or insufficient permissions")
}

func (s *evaluationService) canAccess(principal models.Principal, evaluation *models.Evaluation) bool {
	if principal.IsAdmin() {
		return true
	}
	return principal.IsCoach() && evaluation.CoachID == principal.ID
}

func (s *evaluationService) transitionError(evaluation *models.Evaluation, target models.EvaluationStatus) error {
	return NewBusinessRuleError(
		"EV-INVALID-STATUS-TRANSITION",
		fmt.Sprintf("cannot transition from %s to %s", evaluation.Status, target),
		map[string]interface{}{
			"evaluation_id":  evaluation.ID,
			"current_status": evaluation.Status,
			"new_status":     target,
		},
	)
}

// buildResponse decorates an evaluation with the actions the caller may take
// on it.
func (s *evaluationService) buildResponse(principal models.Principal, evaluation *models.Evaluation) *EvaluationResponse {
	owns := principal.IsAdmin() || (principal.IsCoach() && evaluation.CoachID == principal.ID)

	return &EvaluationResponse{
		Evaluation:    evaluation,
		CanApprove:    owns && evaluation.Status == models.EvaluationPending,
		CanDisapprove: owns && evaluation.Status == models.EvaluationPending,
		CanRecord:     owns && evaluation.Status.CanRecord(),
		CanDelete:     principal.IsAdmin(),
	}
}

// storeDocument writes the uploaded evidence file and returns the generated
// reference. The ref name is always derived server-side, never taken from the
// client.
func (s *evaluationService) storeDocument(ctx context.Context, evaluation *models.Evaluation, doc *DocumentUpload) (string, error) {
	ref := documents.DocumentRef(evaluation.Member.Code, evaluation.ScheduledDate, time.Now(), doc.Filename)
	if err := s.store.Save(ctx, ref, doc.Data); err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	s.logger.Info("Evaluation document stored", "evaluation_id", evaluation.ID, "document_ref", ref)
	return ref, nil
}

// publishEvent emits a lifecycle event. Publishing is best-effort: failures
// are logged and never fail the operation that produced them.
func (s *evaluationService) publishEvent(ctx context.Context, eventType, actorID string, evaluation *models.Evaluation, payload map[string]interface{}) {
	if s.publisher == nil {
		return
	}

	event := events.NewEvent(eventType, actorID)
	event.EvaluationID = evaluation.ID
	event.MemberID = evaluation.MemberID
	for k, v := range payload {
		event.Payload[k] = v
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish lifecycle event",
			"event_type", eventType,
			"evaluation_id", evaluation.ID,
			"error", err)
	}
}
