package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/clubcore/evaluation-service/internal/events"
	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/validator"
)

func newTestEvaluationService(repo *mockRepository) (EvaluationService, *events.MemoryPublisher, *mockFileStore) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	publisher := events.NewMemoryPublisher()
	store := newMockFileStore()
	svc := NewEvaluationService(nil, repo, logger, validator.New(), publisher, store)
	return svc, publisher, store
}

func seedMember(repo *mockRepository, id uint, code, name, coachID string) *models.Member {
	member := &models.Member{ID: id, Code: code, FullName: name, CoachID: coachID}
	repo.member.members[id] = member
	return member
}

func seedEvaluation(repo *mockRepository, member *models.Member, status models.EvaluationStatus) *models.Evaluation {
	repo.evaluation.nextID++
	e := &models.Evaluation{
		ID:            repo.evaluation.nextID,
		MemberID:      member.ID,
		CoachID:       member.CoachID,
		Status:        status,
		NominatedAt:   time.Now().Add(-24 * time.Hour),
		ScheduledDate: time.Now().Add(24 * time.Hour),
		Member:        *member,
	}
	repo.evaluation.evaluations[e.ID] = e
	return e
}

var (
	coachPrincipal = models.Principal{ID: "coach-9", Role: models.RoleCoach}
	adminPrincipal = models.Principal{ID: "admin-1", Role: models.RoleAdmin}
)

func TestNominate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending evaluation", func(t *testing.T) {
		repo := newMockRepository()
		svc, publisher, _ := newTestEvaluationService(repo)
		seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)

		resp, err := svc.Nominate(ctx, coachPrincipal, &NominateRequest{
			MemberID:      1,
			ScheduledDate: time.Now().Add(48 * time.Hour),
		})
		if err != nil {
			t.Fatalf("Nominate failed: %v", err)
		}
		if resp.Status != models.EvaluationPending {
			t.Errorf("Expected status Pending, got %s", resp.Status)
		}
		if resp.CoachID != coachPrincipal.ID {
			t.Errorf("Expected coach %s, got %s", coachPrincipal.ID, resp.CoachID)
		}
		if !resp.CanApprove || !resp.CanDisapprove {
			t.Error("Owning coach should be able to approve and disapprove")
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EvaluationNominated {
			t.Errorf("Expected one %s event, got %v", events.EvaluationNominated, published)
		}
	})

	t.Run("rejects duplicate pending nomination", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		seedEvaluation(repo, member, models.EvaluationPending)

		_, err := svc.Nominate(ctx, coachPrincipal, &NominateRequest{
			MemberID:      1,
			ScheduledDate: time.Now().Add(48 * time.Hour),
		})
		if !errors.Is(err, ErrEvaluationConflict) {
			t.Errorf("Expected ErrEvaluationConflict, got %v", err)
		}
	})

	t.Run("allows renomination after disapproval", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		seedEvaluation(repo, member, models.EvaluationDisapproved)

		_, err := svc.Nominate(ctx, coachPrincipal, &NominateRequest{
			MemberID:      1,
			ScheduledDate: time.Now().Add(48 * time.Hour),
		})
		if err != nil {
			t.Fatalf("Nominate after disapproval failed: %v", err)
		}
	})

	t.Run("coach cannot nominate another coach's member", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		seedMember(repo, 1, "M-001", "Ada Lovelace", "other-coach")

		_, err := svc.Nominate(ctx, coachPrincipal, &NominateRequest{
			MemberID:      1,
			ScheduledDate: time.Now().Add(48 * time.Hour),
		})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected forbidden error, got %v", err)
		}
	})

	t.Run("unknown member", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)

		_, err := svc.Nominate(ctx, coachPrincipal, &NominateRequest{
			MemberID:      42,
			ScheduledDate: time.Now().Add(48 * time.Hour),
		})
		if !errors.Is(err, ErrMemberNotFound) {
			t.Errorf("Expected ErrMemberNotFound, got %v", err)
		}
	})

	t.Run("anonymous principal is rejected", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)

		_, err := svc.Nominate(ctx, models.AnonymousPrincipal, &NominateRequest{
			MemberID:      1,
			ScheduledDate: time.Now().Add(48 * time.Hour),
		})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected forbidden error, got %v", err)
		}
	})
}

func TestNominateBulk_SkipsMembersWithPendingEvaluation(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	svc, _, _ := newTestEvaluationService(repo)

	seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
	two := seedMember(repo, 2, "M-002", "Grace Hopper", coachPrincipal.ID)
	seedMember(repo, 3, "M-003", "Alan Turing", coachPrincipal.ID)
	seedEvaluation(repo, two, models.EvaluationPending)

	resp, err := svc.NominateBulk(ctx, coachPrincipal, &NominateBulkRequest{
		MemberIDs:     []uint{1, 2, 3},
		ScheduledDate: time.Now().Add(48 * time.Hour),
	})
	if err != nil {
		t.Fatalf("NominateBulk failed: %v", err)
	}
	if resp.CreatedCount != 2 {
		t.Errorf("Expected 2 created, got %d", resp.CreatedCount)
	}
	if len(resp.SkippedMemberIDs) != 1 || resp.SkippedMemberIDs[0] != 2 {
		t.Errorf("Expected member 2 skipped, got %v", resp.SkippedMemberIDs)
	}
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("pending moves to approved", func(t *testing.T) {
		repo := newMockRepository()
		svc, publisher, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationPending)

		resp, err := svc.Approve(ctx, coachPrincipal, e.ID)
		if err != nil {
			t.Fatalf("Approve failed: %v", err)
		}
		if resp.Status != models.EvaluationApproved {
			t.Errorf("Expected Approved, got %s", resp.Status)
		}
		if resp.ApprovedAt == nil {
			t.Error("ApprovedAt should be set")
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EvaluationApproved {
			t.Errorf("Expected one %s event, got %v", events.EvaluationApproved, published)
		}
	})

	t.Run("non-owner coach is rejected", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", "other-coach")
		e := seedEvaluation(repo, member, models.EvaluationPending)

		_, err := svc.Approve(ctx, coachPrincipal, e.ID)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected forbidden error, got %v", err)
		}
	})

	t.Run("admin bypasses ownership", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationPending)

		if _, err := svc.Approve(ctx, adminPrincipal, e.ID); err != nil {
			t.Fatalf("Admin approve failed: %v", err)
		}
	})

	t.Run("non-pending status is rejected", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationDisapproved)

		_, err := svc.Approve(ctx, coachPrincipal, e.ID)
		var bre *BusinessRuleError
		if !errors.As(err, &bre) {
			t.Fatalf("Expected BusinessRuleError, got %v", err)
		}
	})
}

func TestDisapprove(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a non-blank reason", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationPending)

		for _, reason := range []string{"", "   "} {
			_, err := svc.Disapprove(ctx, coachPrincipal, e.ID, &DisapproveRequest{Reason: reason})
			if !errors.Is(err, ErrValidationFailed) {
				t.Errorf("Reason %q: expected validation error, got %v", reason, err)
			}
		}
	})

	t.Run("records reason and timestamp", func(t *testing.T) {
		repo := newMockRepository()
		svc, publisher, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationPending)

		resp, err := svc.Disapprove(ctx, coachPrincipal, e.ID, &DisapproveRequest{Reason: "missed too many classes"})
		if err != nil {
			t.Fatalf("Disapprove failed: %v", err)
		}
		if resp.Status != models.EvaluationDisapproved {
			t.Errorf("Expected Disapproved, got %s", resp.Status)
		}
		if resp.DisapprovalReason == nil || *resp.DisapprovalReason != "missed too many classes" {
			t.Errorf("Reason not recorded: %v", resp.DisapprovalReason)
		}
		if resp.DisapprovedAt == nil {
			t.Error("DisapprovedAt should be set")
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EvaluationDisapproved {
			t.Errorf("Expected one %s event, got %v", events.EvaluationDisapproved, published)
		}
	})
}

func TestRecordResult(t *testing.T) {
	ctx := context.Background()

	t.Run("passed needs no document", func(t *testing.T) {
		repo := newMockRepository()
		svc, publisher, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationApproved)

		resp, err := svc.RecordResult(ctx, coachPrincipal, e.ID, &RecordResultRequest{Result: models.ResultPassed})
		if err != nil {
			t.Fatalf("RecordResult failed: %v", err)
		}
		if resp.Status != models.EvaluationRecorded {
			t.Errorf("Expected Recorded, got %s", resp.Status)
		}
		if resp.Result == nil || *resp.Result != models.ResultPassed {
			t.Errorf("Expected Passed result, got %v", resp.Result)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.EvaluationRecorded {
			t.Errorf("Expected one %s event, got %v", events.EvaluationRecorded, published)
		}
	})

	t.Run("not ready without document fails", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationApproved)

		_, err := svc.RecordResult(ctx, coachPrincipal, e.ID, &RecordResultRequest{Result: models.ResultNotReady})
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("not ready with document succeeds and stores file", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, store := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationApproved)

		resp, err := svc.RecordResult(ctx, coachPrincipal, e.ID, &RecordResultRequest{
			Result: models.ResultNotReady,
			Document: &DocumentUpload{
				Filename: "progress-notes.PDF",
				Data:     []byte("notes"),
			},
		})
		if err != nil {
			t.Fatalf("RecordResult failed: %v", err)
		}
		if resp.DocumentRef == nil {
			t.Fatal("DocumentRef should be set")
		}
		ref := *resp.DocumentRef
		if !strings.HasPrefix(ref, "M-001_") || !strings.HasSuffix(ref, ".pdf") {
			t.Errorf("Unexpected document ref %q", ref)
		}
		if _, err := store.Read(ctx, ref); err != nil {
			t.Errorf("Stored document not readable: %v", err)
		}
	})

	t.Run("recording from pending is allowed", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationPending)

		if _, err := svc.RecordResult(ctx, coachPrincipal, e.ID, &RecordResultRequest{Result: models.ResultPassed}); err != nil {
			t.Fatalf("RecordResult from Pending failed: %v", err)
		}
	})

	t.Run("recorded evaluation cannot be re-recorded", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationRecorded)
		passed := models.ResultPassed
		e.Result = &passed

		_, err := svc.RecordResult(ctx, coachPrincipal, e.ID, &RecordResultRequest{Result: models.ResultNotReady})
		if !errors.Is(err, ErrConflict) {
			t.Errorf("Expected conflict error, got %v", err)
		}
		if got, _ := repo.evaluation.GetByID(ctx, nil, e.ID); *got.Result != models.ResultPassed {
			t.Errorf("Result was flipped to %v", *got.Result)
		}
	})

	t.Run("disapproved evaluation cannot be recorded", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationDisapproved)

		_, err := svc.RecordResult(ctx, coachPrincipal, e.ID, &RecordResultRequest{Result: models.ResultPassed})
		var bre *BusinessRuleError
		if !errors.As(err, &bre) {
			t.Errorf("Expected BusinessRuleError, got %v", err)
		}
	})
}

func TestRecordResultsBulk(t *testing.T) {
	ctx := context.Background()

	t.Run("only passed is accepted", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)

		_, err := svc.RecordResultsBulk(ctx, coachPrincipal, &RecordResultsBulkRequest{
			EvaluationIDs: []uint{1},
			Result:        models.ResultNotReady,
		})
		if !errors.Is(err, ErrValidationFailed) {
			t.Errorf("Expected validation error, got %v", err)
		}
	})

	t.Run("records eligible rows and skips the rest", func(t *testing.T) {
		repo := newMockRepository()
		svc, publisher, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		pending := seedEvaluation(repo, member, models.EvaluationPending)
		approved := seedEvaluation(repo, member, models.EvaluationApproved)
		recorded := seedEvaluation(repo, member, models.EvaluationRecorded)

		resp, err := svc.RecordResultsBulk(ctx, coachPrincipal, &RecordResultsBulkRequest{
			EvaluationIDs: []uint{pending.ID, approved.ID, recorded.ID},
			Result:        models.ResultPassed,
		})
		if err != nil {
			t.Fatalf("RecordResultsBulk failed: %v", err)
		}
		if resp.RecordedCount != 2 {
			t.Errorf("Expected 2 recorded, got %d", resp.RecordedCount)
		}
		if len(resp.SkippedIDs) != 1 || resp.SkippedIDs[0] != recorded.ID {
			t.Errorf("Expected evaluation %d skipped, got %v", recorded.ID, resp.SkippedIDs)
		}
		if len(publisher.GetPublishedEvents()) != 2 {
			t.Errorf("Expected 2 events, got %d", len(publisher.GetPublishedEvents()))
		}
	})

	t.Run("coach cannot bulk record another coach's rows", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", "other-coach")
		e := seedEvaluation(repo, member, models.EvaluationPending)

		_, err := svc.RecordResultsBulk(ctx, coachPrincipal, &RecordResultsBulkRequest{
			EvaluationIDs: []uint{e.ID},
			Result:        models.ResultPassed,
		})
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected forbidden error, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("coach cannot delete", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		e := seedEvaluation(repo, member, models.EvaluationPending)

		_, err := svc.Delete(ctx, coachPrincipal, e.ID)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("Expected forbidden error, got %v", err)
		}
	})

	t.Run("admin deletes regardless of status", func(t *testing.T) {
		repo := newMockRepository()
		svc, publisher, _ := newTestEvaluationService(repo)
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
		a := seedEvaluation(repo, member, models.EvaluationRecorded)
		b := seedEvaluation(repo, member, models.EvaluationPending)

		deleted, err := svc.Delete(ctx, adminPrincipal, a.ID, b.ID)
		if err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
		if deleted != 2 {
			t.Errorf("Expected 2 deleted, got %d", deleted)
		}
		if len(publisher.GetPublishedEvents()) != 2 {
			t.Errorf("Expected 2 delete events, got %d", len(publisher.GetPublishedEvents()))
		}
	})
}

func TestPublicLookup(t *testing.T) {
	ctx := context.Background()

	seed := func(repo *mockRepository) {
		member := seedMember(repo, 1, "M-001", "Ada Lovelace", "coach-9")
		e := seedEvaluation(repo, member, models.EvaluationRecorded)
		passed := models.ResultPassed
		e.Result = &passed
		e.UpdatedAt = time.Now()
	}

	t.Run("exact match returns restricted view", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		seed(repo)

		resp, err := svc.PublicLookup(ctx, &PublicLookupRequest{
			FullName:   "Ada Lovelace",
			MemberCode: "M-001",
			CoachID:    "coach-9",
		})
		if err != nil {
			t.Fatalf("PublicLookup failed: %v", err)
		}
		if resp.Result != models.ResultPassed {
			t.Errorf("Expected Passed, got %s", resp.Result)
		}
		if resp.MemberCode != "M-001" {
			t.Errorf("Unexpected member code %s", resp.MemberCode)
		}
	})

	t.Run("partial match misses", func(t *testing.T) {
		repo := newMockRepository()
		svc, _, _ := newTestEvaluationService(repo)
		seed(repo)

		_, err := svc.PublicLookup(ctx, &PublicLookupRequest{
			FullName:   "Ada Lovelace",
			MemberCode: "M-001",
			CoachID:    "coach-7",
		})
		if !errors.Is(err, ErrEvaluationNotFound) {
			t.Errorf("Expected ErrEvaluationNotFound, got %v", err)
		}
	})
}

func TestPublishFailureDoesNotFailTransition(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	svc, publisher, _ := newTestEvaluationService(repo)
	member := seedMember(repo, 1, "M-001", "Ada Lovelace", coachPrincipal.ID)
	e := seedEvaluation(repo, member, models.EvaluationPending)

	// A closed publisher rejects every publish.
	publisher.Close()

	resp, err := svc.Approve(ctx, coachPrincipal, e.ID)
	if err != nil {
		t.Fatalf("Approve failed despite publish being best-effort: %v", err)
	}
	if resp.Status != models.EvaluationApproved {
		t.Errorf("Expected Approved, got %s", resp.Status)
	}
}
