package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/clubcore/evaluation-service/internal/documents"
	"github.com/clubcore/evaluation-service/internal/events"
	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
	"github.com/clubcore/evaluation-service/internal/validator"
)

type evaluationService struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
	store     documents.FileStore
}

func NewEvaluationService(
	db *gorm.DB,
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.Publisher,
	store documents.FileStore,
) EvaluationService {
	return &evaluationService{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
		store:     store,
	}
}

// ===== NOMINATION =====

func (s *evaluationService) Nominate(ctx context.Context, principal models.Principal, req *NominateRequest) (*EvaluationResponse, error) {
	s.logger.Info("Nominating member for evaluation", "member_id", req.MemberID, "principal_id", principal.ID)

	if verrs := s.validator.Validate(req); len(verrs) > 0 {
		return nil, toValidationErrors(verrs)
	}

	if !principal.IsCoach() && !principal.IsAdmin() {
		return nil, NewPermissionError(principal.ID, req.MemberID, "evaluation", "nominate", "insufficient role permissions")
	}

	member, err := s.repo.Member().GetByID(ctx, nil, req.MemberID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	// Coaches may only nominate members they own
	if principal.IsCoach() && member.CoachID != principal.ID {
		return nil, NewPermissionError(principal.ID, member.ID, "member", "nominate", "member belongs to another coach")
	}

	evaluation := &models.Evaluation{
		MemberID:      member.ID,
		CoachID:       member.CoachID,
		Status:        models.EvaluationPending,
		NominatedAt:   time.Now(),
		ScheduledDate: req.ScheduledDate,
	}

	created, err := s.repo.Evaluation().CreateIfNoPending(ctx, nil, evaluation)
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluation: %w", err)
	}
	if !created {
		return nil, ErrEvaluationConflict
	}

	s.publishEvent(ctx, events.EvaluationNominated, principal.ID, evaluation, map[string]interface{}{
		"scheduled_date": evaluation.ScheduledDate,
	})

	s.logger.Info("Member nominated", "evaluation_id", evaluation.ID, "member_id", member.ID)

	return s.buildResponse(principal, evaluation), nil
}

func (s *evaluationService) NominateBulk(ctx context.Context, principal models.Principal, req *NominateBulkRequest) (*NominateBulkResponse, error) {
	s.logger.Info("Bulk nominating members", "count", len(req.MemberIDs), "principal_id", principal.ID)

	if verrs := s.validator.Validate(req); len(verrs) > 0 {
		return nil, toValidationErrors(verrs)
	}

	if !principal.IsCoach() && !principal.IsAdmin() {
		return nil, NewPermissionError(principal.ID, 0, "evaluation", "nominate_bulk", "insufficient role permissions")
	}

	members, err := s.repo.Member().GetByIDs(ctx, nil, req.MemberIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}

	memberByID := make(map[uint]*models.Member, len(members))
	for _, m := range members {
		memberByID[m.ID] = m
	}

	var errs ValidationErrors
	for _, id := range req.MemberIDs {
		member, ok := memberByID[id]
		if !ok {
			errs = append(errs, *NewValidationError("member_ids", "member not found", id))
			continue
		}
		if principal.IsCoach() && member.CoachID != principal.ID {
			return nil, NewPermissionError(principal.ID, id, "member", "nominate", "member belongs to another coach")
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	resp := &NominateBulkResponse{
		Created:          make([]*EvaluationResponse, 0, len(req.MemberIDs)),
		SkippedMemberIDs: make([]uint, 0),
	}

	// Each insert carries its own no-Pending precondition, so a member picked
	// up by a concurrent nomination is skipped rather than duplicated.
	for _, id := range req.MemberIDs {
		member := memberByID[id]
		evaluation := &models.Evaluation{
			MemberID:      member.ID,
			CoachID:       member.CoachID,
			Status:        models.EvaluationPending,
			NominatedAt:   time.Now(),
			ScheduledDate: req.ScheduledDate,
		}

		created, err := s.repo.Evaluation().CreateIfNoPending(ctx, nil, evaluation)
		if err != nil {
			return nil, fmt.Errorf("failed to create evaluation for member %d: %w", id, err)
		}
		if !created {
			resp.SkippedMemberIDs = append(resp.SkippedMemberIDs, id)
			continue
		}

		s.publishEvent(ctx, events.EvaluationNominated, principal.ID, evaluation, map[string]interface{}{
			"scheduled_date": evaluation.ScheduledDate,
			"bulk":           true,
		})
		resp.Created = append(resp.Created, s.buildResponse(principal, evaluation))
	}
	resp.CreatedCount = len(resp.Created)

	s.logger.Info("Bulk nomination completed", "created", resp.CreatedCount, "skipped", len(resp.SkippedMemberIDs))

	return resp, nil
}

// ===== APPROVAL TRANSITIONS =====

func (s *evaluationService) Approve(ctx context.Context, principal models.Principal, id uint) (*EvaluationResponse, error) {
	s.logger.Info("Approving evaluation", "evaluation_id", id, "principal_id", principal.ID)

	evaluation, err := s.getOwnedEvaluation(ctx, principal, id, "approve")
	if err != nil {
		return nil, err
	}

	if verrs := s.validator.ValidateStatusTransition(evaluation.Status, models.EvaluationApproved); len(verrs) > 0 {
		return nil, s.transitionError(evaluation, models.EvaluationApproved)
	}

	now := time.Now()
	evaluation.Status = models.EvaluationApproved
	evaluation.ApprovedAt = timePtr(now)

	if err := s.repo.Evaluation().Update(ctx, nil, evaluation); err != nil {
		return nil, fmt.Errorf("failed to update evaluation: %w", err)
	}

	s.publishEvent(ctx, events.EvaluationApproved, principal.ID, evaluation, nil)

	return s.buildResponse(principal, evaluation), nil
}

func (s *evaluationService) Disapprove(ctx context.Context, principal models.Principal, id uint, req *DisapproveRequest) (*EvaluationResponse, error) {
	s.logger.Info("Disapproving evaluation", "evaluation_id", id, "principal_id", principal.ID)

	if verrs := s.validator.Validate(req); len(verrs) > 0 {
		return nil, toValidationErrors(verrs)
	}

	evaluation, err := s.getOwnedEvaluation(ctx, principal, id, "disapprove")
	if err != nil {
		return nil, err
	}

	if verrs := s.validator.ValidateStatusTransition(evaluation.Status, models.EvaluationDisapproved); len(verrs) > 0 {
		return nil, s.transitionError(evaluation, models.EvaluationDisapproved)
	}

	now := time.Now()
	evaluation.Status = models.EvaluationDisapproved
	evaluation.DisapprovedAt = timePtr(now)
	evaluation.DisapprovalReason = &req.Reason

	if err := s.repo.Evaluation().Update(ctx, nil, evaluation); err != nil {
		return nil, fmt.Errorf("failed to update evaluation: %w", err)
	}

	s.publishEvent(ctx, events.EvaluationDisapproved, principal.ID, evaluation, map[string]interface{}{
		"reason": req.Reason,
	})

	return s.buildResponse(principal, evaluation), nil
}

// ===== RESULT RECORDING =====

func (s *evaluationService) RecordResult(ctx context.Context, principal models.Principal, id uint, req *RecordResultRequest) (*EvaluationResponse, error) {
	s.logger.Info("Recording evaluation result", "evaluation_id", id, "result", req.Result, "principal_id", principal.ID)

	if verrs := s.validator.Validate(req); len(verrs) > 0 {
		return nil, toValidationErrors(verrs)
	}

	evaluation, err := s.getOwnedEvaluationWithDetails(ctx, principal, id, "record_result")
	if err != nil {
		return nil, err
	}

	// A Recorded evaluation is closed; its result cannot be flipped.
	if evaluation.Status == models.EvaluationRecorded {
		return nil, NewBusinessRuleError(
			"EV-ALREADY-RECORDED",
			"evaluation result has already been recorded",
			map[string]interface{}{"evaluation_id": evaluation.ID},
		)
	}
	if !evaluation.Status.CanRecord() {
		return nil, s.transitionError(evaluation, models.EvaluationRecorded)
	}

	// NotReady needs documentary evidence, either uploaded now or already
	// attached to the record.
	if req.Result == models.ResultNotReady && req.Document == nil && evaluation.DocumentRef == nil {
		return nil, toValidationErrors(validator.ValidationErrors{{
			Field:   "document",
			Message: "a document is required for a NotReady result",
			Rule:    "required",
		}})
	}

	if req.Document != nil {
		ref, err := s.storeDocument(ctx, evaluation, req.Document)
		if err != nil {
			return nil, err
		}
		evaluation.DocumentRef = &ref
	}

	now := time.Now()
	result := req.Result
	evaluation.Status = models.EvaluationRecorded
	evaluation.Result = &result
	evaluation.UpdatedAt = now

	if err := s.repo.Evaluation().Update(ctx, nil, evaluation); err != nil {
		return nil, fmt.Errorf("failed to update evaluation: %w", err)
	}

	s.publishEvent(ctx, events.EvaluationRecorded, principal.ID, evaluation, map[string]interface{}{
		"result": result,
	})

	s.logger.Info("Evaluation result recorded", "evaluation_id", evaluation.ID, "result", result)

	return s.buildResponse(principal, evaluation), nil
}

func (s *evaluationService) RecordResultsBulk(ctx context.Context, principal models.Principal, req *RecordResultsBulkRequest) (*RecordResultsBulkResponse, error) {
	s.logger.Info("Bulk recording evaluation results", "count", len(req.EvaluationIDs), "principal_id", principal.ID)

	if verrs := s.validator.ValidateRecordResultsBulk(req); len(verrs) > 0 {
		return nil, toValidationErrors(verrs)
	}

	if !principal.IsCoach() && !principal.IsAdmin() {
		return nil, NewPermissionError(principal.ID, 0, "evaluation", "record_results_bulk", "insufficient role permissions")
	}

	evaluations, err := s.repo.Evaluation().GetByIDs(ctx, nil, req.EvaluationIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluations: %w", err)
	}

	evalByID := make(map[uint]*models.Evaluation, len(evaluations))
	for _, e := range evaluations {
		if principal.IsCoach() && e.CoachID != principal.ID {
			return nil, NewPermissionError(principal.ID, e.ID, "evaluation", "record_result", "evaluation belongs to another coach")
		}
		evalByID[e.ID] = e
	}

	eligible := make([]uint, 0, len(req.EvaluationIDs))
	skipped := make([]uint, 0)
	for _, id := range req.EvaluationIDs {
		if e, ok := evalByID[id]; ok && e.Status.CanRecord() {
			eligible = append(eligible, id)
		} else {
			skipped = append(skipped, id)
		}
	}

	resp := &RecordResultsBulkResponse{SkippedIDs: skipped}
	if len(eligible) == 0 {
		return resp, nil
	}

	now := time.Now()
	recorded, err := s.repo.Evaluation().RecordResultsBulk(ctx, nil, eligible, models.ResultPassed, now)
	if err != nil {
		return nil, fmt.Errorf("failed to record results: %w", err)
	}
	resp.RecordedCount = recorded

	for _, id := range eligible {
		s.publishEvent(ctx, events.EvaluationRecorded, principal.ID, evalByID[id], map[string]interface{}{
			"result": models.ResultPassed,
			"bulk":   true,
		})
	}

	s.logger.Info("Bulk recording completed", "recorded", recorded, "skipped", len(skipped))

	return resp, nil
}

// ===== ADMINISTRATION =====

func (s *evaluationService) Delete(ctx context.Context, principal models.Principal, ids ...uint) (int64, error) {
	s.logger.Info("Deleting evaluations", "count", len(ids), "principal_id", principal.ID)

	if !principal.IsAdmin() {
		return 0, NewPermissionError(principal.ID, 0, "evaluation", "delete", "admin role required")
	}
	if len(ids) == 0 {
		return 0, nil
	}

	// Deleted rows are fetched first so the events carry member references.
	evaluations, err := s.repo.Evaluation().GetByIDs(ctx, nil, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to get evaluations: %w", err)
	}

	deleted, err := s.repo.Evaluation().DeleteBatch(ctx, nil, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete evaluations: %w", err)
	}

	for _, e := range evaluations {
		s.publishEvent(ctx, events.EvaluationDeleted, principal.ID, e, nil)
	}

	s.logger.Info("Evaluations deleted", "deleted", deleted)

	return deleted, nil
}

// ===== QUERIES =====

func (s *evaluationService) GetByID(ctx context.Context, principal models.Principal, id uint) (*EvaluationResponse, error) {
	evaluation, err := s.repo.Evaluation().GetByIDWithDetails(ctx, nil, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to get evaluation: %w", err)
	}

	if !s.canAccess(principal, evaluation) {
		return nil, NewPermissionError(principal.ID, id, "evaluation", "read", "not owner or insufficient permissions")
	}

	return s.buildResponse(principal, evaluation), nil
}

func (s *evaluationService) List(ctx context.Context, principal models.Principal, req *EvaluationListRequest) (*EvaluationListResponse, error) {
	if verrs := s.validator.Validate(req); len(verrs) > 0 {
		return nil, toValidationErrors(verrs)
	}

	filters := repositories.EvaluationFilters{
		Status:    req.Status,
		Result:    req.Result,
		MemberID:  req.MemberID,
		DateFrom:  req.DateFrom,
		DateTo:    req.DateTo,
		Limit:     req.Limit,
		Offset:    req.Offset,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if filters.Limit <= 0 {
		filters.Limit = 20
	}

	var (
		evaluations []*models.Evaluation
		total       int64
		err         error
	)
	switch {
	case principal.IsAdmin():
		evaluations, total, err = s.repo.Evaluation().List(ctx, nil, filters)
	case principal.IsCoach():
		evaluations, total, err = s.repo.Evaluation().GetByCoach(ctx, nil, principal.ID, filters)
	default:
		return nil, NewPermissionError(principal.ID, 0, "evaluation", "list", "insufficient role permissions")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}

	responses := make([]*EvaluationResponse, len(evaluations))
	for i, e := range evaluations {
		responses[i] = s.buildResponse(principal, e)
	}

	return &EvaluationListResponse{
		Evaluations: responses,
		Total:       total,
		Page:        filters.Offset/filters.Limit + 1,
		Size:        filters.Limit,
	}, nil
}

func (s *evaluationService) GetStats(ctx context.Context, principal models.Principal) (*repositories.EvaluationStats, error) {
	var coachID *string
	switch {
	case principal.IsAdmin():
		// Global stats
	case principal.IsCoach():
		id := principal.ID
		coachID = &id
	default:
		return nil, NewPermissionError(principal.ID, 0, "evaluation", "stats", "insufficient role permissions")
	}

	stats, err := s.repo.Evaluation().GetStats(ctx, nil, coachID)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}
	return stats, nil
}

func (s *evaluationService) PublicLookup(ctx context.Context, req *PublicLookupRequest) (*PublicEvaluationResponse, error) {
	if verrs := s.validator.Validate(req); len(verrs) > 0 {
		return nil, toValidationErrors(verrs)
	}

	evaluation, err := s.repo.Evaluation().LatestRecorded(ctx, nil, repositories.PublicLookupKey{
		FullName:   req.FullName,
		MemberCode: req.MemberCode,
		CoachID:    req.CoachID,
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrEvaluationNotFound
		}
		return nil, fmt.Errorf("failed to look up evaluation: %w", err)
	}
	if evaluation.Result == nil {
		return nil, ErrEvaluationNotFound
	}

	resp := &PublicEvaluationResponse{
		MemberName:    evaluation.Member.FullName,
		MemberCode:    evaluation.Member.Code,
		Result:        *evaluation.Result,
		ScheduledDate: evaluation.ScheduledDate,
		RecordedAt:    evaluation.UpdatedAt,
	}
	if evaluation.Member.Level != nil {
		resp.LevelName = &evaluation.Member.Level.Name
	}
	return resp, nil
}
