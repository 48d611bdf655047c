package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/clubcore/evaluation-service/internal/cache"
	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
)

type EvaluationPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewEvaluationPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.EvaluationRepository {
	return &EvaluationPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

// getDB returns the transaction DB if provided, otherwise returns the default DB
func (e *EvaluationPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return e.db
}

// Create inserts an evaluation without the pending-uniqueness guard. Used by
// flows that have already taken the guard, e.g. seeding and tests.
func (e *EvaluationPostgreSQL) Create(ctx context.Context, tx *gorm.DB, evaluation *models.Evaluation) error {
	db := e.getDB(tx)
	if err := db.WithContext(ctx).Create(evaluation).Error; err != nil {
		return fmt.Errorf("failed to create evaluation: %w", err)
	}

	cache.InvalidateEvaluationCache(ctx, e.cacheManager, evaluation.ID, evaluation.MemberID, evaluation.CoachID)

	return nil
}

// CreateIfNoPending inserts the evaluation only when the member has no
// Pending evaluation. The precondition check and the insert run as a single
// conditional statement so concurrent nominations cannot both succeed.
func (e *EvaluationPostgreSQL) CreateIfNoPending(ctx context.Context, tx *gorm.DB, evaluation *models.Evaluation) (bool, error) {
	db := e.getDB(tx)
	now := time.Now()

	result := db.WithContext(ctx).Raw(`
		INSERT INTO evaluations (member_id, coach_id, status, nominated_at, scheduled_date, created_at, updated_at)
		SELECT ?, ?, ?, ?, ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM evaluations WHERE member_id = ? AND status = ?
		)
		RETURNING id`,
		evaluation.MemberID, evaluation.CoachID, models.EvaluationPending,
		evaluation.NominatedAt, evaluation.ScheduledDate, now, now,
		evaluation.MemberID, models.EvaluationPending,
	).Scan(&evaluation.ID)

	if result.Error != nil {
		return false, fmt.Errorf("failed to create evaluation: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	evaluation.Status = models.EvaluationPending
	evaluation.CreatedAt = now
	evaluation.UpdatedAt = now

	cache.InvalidateEvaluationCache(ctx, e.cacheManager, evaluation.ID, evaluation.MemberID, evaluation.CoachID)

	return true, nil
}

// GetByID retrieves an evaluation by ID with caching
func (e *EvaluationPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var evaluation models.Evaluation

	err := e.cacheManager.Evaluation.CacheOrExecute(ctx, cacheKey, &evaluation, cache.EvaluationCacheConfig.TTL, func() (interface{}, error) {
		var dbEvaluation models.Evaluation
		err := e.getDB(tx).WithContext(ctx).First(&dbEvaluation, id).Error
		if err != nil {
			return nil, err
		}
		return &dbEvaluation, nil
	})

	if err != nil {
		return nil, err
	}

	return &evaluation, nil
}

// GetByIDWithDetails retrieves an evaluation with member and coach loaded
func (e *EvaluationPostgreSQL) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error) {
	cacheKey := fmt.Sprintf("details:%d", id)
	var evaluation models.Evaluation

	err := e.cacheManager.Evaluation.CacheOrExecute(ctx, cacheKey, &evaluation, cache.EvaluationCacheConfig.TTL, func() (interface{}, error) {
		var dbEvaluation models.Evaluation
		err := e.getDB(tx).WithContext(ctx).
			Preload("Member").
			Preload("Member.Level").
			First(&dbEvaluation, id).Error
		if err != nil {
			return nil, err
		}
		return &dbEvaluation, nil
	})

	return &evaluation, err
}

// Update persists the full evaluation row and invalidates cache
func (e *EvaluationPostgreSQL) Update(ctx context.Context, tx *gorm.DB, evaluation *models.Evaluation) error {
	db := e.getDB(tx)
	evaluation.UpdatedAt = time.Now()

	if err := db.WithContext(ctx).Model(&models.Evaluation{}).Where("id = ?", evaluation.ID).Updates(map[string]interface{}{
		"status":             evaluation.Status,
		"scheduled_date":     evaluation.ScheduledDate,
		"result":             evaluation.Result,
		"document_ref":       evaluation.DocumentRef,
		"approved_at":        evaluation.ApprovedAt,
		"disapproved_at":     evaluation.DisapprovedAt,
		"disapproval_reason": evaluation.DisapprovalReason,
		"updated_at":         evaluation.UpdatedAt,
	}).Error; err != nil {
		return fmt.Errorf("failed to update evaluation: %w", err)
	}

	cache.InvalidateEvaluationCache(ctx, e.cacheManager, evaluation.ID, evaluation.MemberID, evaluation.CoachID)

	return nil
}

// Delete hard deletes an evaluation. No state precondition; the service layer
// restricts the operation to administrators.
func (e *EvaluationPostgreSQL) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	db := e.getDB(tx)

	// Get evaluation info before deleting for cache invalidation
	var evaluation models.Evaluation
	if err := db.WithContext(ctx).Select("id, member_id, coach_id").First(&evaluation, id).Error; err != nil {
		return err
	}

	if err := db.WithContext(ctx).Unscoped().Delete(&models.Evaluation{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete evaluation: %w", err)
	}

	cache.InvalidateEvaluationCache(ctx, e.cacheManager, id, evaluation.MemberID, evaluation.CoachID)

	return nil
}

// DeleteBatch hard deletes multiple evaluations and reports how many rows
// were actually removed. Missing IDs are not an error.
func (e *EvaluationPostgreSQL) DeleteBatch(ctx context.Context, tx *gorm.DB, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := e.getDB(tx)

	result := db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Delete(&models.Evaluation{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete evaluations: %w", result.Error)
	}

	cache.SafeInvalidatePattern(ctx, e.cacheManager.Evaluation, "*")
	cache.SafeInvalidatePattern(ctx, e.cacheManager.Stats, "evaluation:*")
	cache.SafeInvalidatePattern(ctx, e.cacheManager.Exists, "pending:*")

	return result.RowsAffected, nil
}

// HasPending reports whether a member currently has a Pending evaluation
func (e *EvaluationPostgreSQL) HasPending(ctx context.Context, tx *gorm.DB, memberID uint) (bool, error) {
	db := e.getDB(tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("member_id = ? AND status = ?", memberID, models.EvaluationPending).
		Count(&count).Error

	return count > 0, err
}

// PendingMemberIDs returns the subset of the given member IDs that currently
// hold a Pending evaluation
func (e *EvaluationPostgreSQL) PendingMemberIDs(ctx context.Context, tx *gorm.DB, memberIDs []uint) ([]uint, error) {
	if len(memberIDs) == 0 {
		return nil, nil
	}
	db := e.getDB(tx)

	var ids []uint
	err := db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("member_id IN ? AND status = ?", memberIDs, models.EvaluationPending).
		Distinct().
		Pluck("member_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query pending members: %w", err)
	}

	return ids, nil
}

// RecordResultsBulk moves the given evaluations to Recorded with the supplied
// result. Rows already in a terminal state are skipped by the status guard;
// the caller decides whether a partial update is acceptable.
func (e *EvaluationPostgreSQL) RecordResultsBulk(ctx context.Context, tx *gorm.DB, ids []uint, result models.EvaluationResult, recordedAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := e.getDB(tx)

	res := db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("id IN ? AND status IN ?", ids, []models.EvaluationStatus{models.EvaluationPending, models.EvaluationApproved}).
		Updates(map[string]interface{}{
			"status":     models.EvaluationRecorded,
			"result":     result,
			"updated_at": recordedAt,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to record results: %w", res.Error)
	}

	cache.SafeInvalidatePattern(ctx, e.cacheManager.Evaluation, "*")
	cache.SafeInvalidatePattern(ctx, e.cacheManager.Stats, "evaluation:*")

	return res.RowsAffected, nil
}

// List retrieves evaluations with filters and pagination
func (e *EvaluationPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.EvaluationFilters) ([]*models.Evaluation, int64, error) {
	query := e.getDB(tx).WithContext(ctx).Model(&models.Evaluation{})

	// Apply filters
	query = e.helpers.ApplyEvaluationFilters(query, filters)

	// Count total
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination and ordering
	query = e.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	// Execute query
	var evaluations []*models.Evaluation
	err := query.Preload("Member").Find(&evaluations).Error
	if err != nil {
		return nil, 0, err
	}

	return evaluations, total, nil
}

// GetByCoach retrieves evaluations nominated by a specific coach
func (e *EvaluationPostgreSQL) GetByCoach(ctx context.Context, tx *gorm.DB, coachID string, filters repositories.EvaluationFilters) ([]*models.Evaluation, int64, error) {
	filters.CoachID = &coachID
	return e.List(ctx, tx, filters)
}

// GetByMember retrieves a member's evaluation history
func (e *EvaluationPostgreSQL) GetByMember(ctx context.Context, tx *gorm.DB, memberID uint, filters repositories.EvaluationFilters) ([]*models.Evaluation, int64, error) {
	filters.MemberID = &memberID
	return e.List(ctx, tx, filters)
}

// GetByIDs retrieves multiple evaluations by ID
func (e *EvaluationPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Evaluation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db := e.getDB(tx)

	var evaluations []*models.Evaluation
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Preload("Member").
		Find(&evaluations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get evaluations: %w", err)
	}

	return evaluations, nil
}

// LatestRecorded retrieves the most recent Recorded evaluation matching the
// public lookup key. All three fields must match or the query returns
// gorm.ErrRecordNotFound.
func (e *EvaluationPostgreSQL) LatestRecorded(ctx context.Context, tx *gorm.DB, key repositories.PublicLookupKey) (*models.Evaluation, error) {
	cacheKey := fmt.Sprintf("lookup:%s:%s:%s", key.MemberCode, key.CoachID, key.FullName)
	var evaluation models.Evaluation

	err := e.cacheManager.Evaluation.CacheOrExecute(ctx, cacheKey, &evaluation, cache.EvaluationCacheConfig.TTL, func() (interface{}, error) {
		var dbEvaluation models.Evaluation
		err := e.getDB(tx).WithContext(ctx).
			Joins("JOIN members ON members.id = evaluations.member_id").
			Where("members.full_name = ? AND members.code = ? AND evaluations.coach_id = ? AND evaluations.status = ?",
				key.FullName, key.MemberCode, key.CoachID, models.EvaluationRecorded).
			Order("evaluations.scheduled_date DESC, evaluations.updated_at DESC").
			Preload("Member").
			First(&dbEvaluation).Error
		if err != nil {
			return nil, err
		}
		return &dbEvaluation, nil
	})

	if err != nil {
		return nil, err
	}

	return &evaluation, nil
}

// GetStats retrieves aggregate counts, optionally scoped to one coach
func (e *EvaluationPostgreSQL) GetStats(ctx context.Context, tx *gorm.DB, coachID *string) (*repositories.EvaluationStats, error) {
	cacheKey := "evaluation:all"
	if coachID != nil {
		cacheKey = fmt.Sprintf("evaluation:coach:%s", *coachID)
	}

	var stats repositories.EvaluationStats
	err := e.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		db := e.getDB(tx).WithContext(ctx).Model(&models.Evaluation{})
		if coachID != nil {
			db = db.Where("coach_id = ?", *coachID)
		}

		var row struct {
			Total        int64
			Pending      int64
			Approved     int64
			Disapproved  int64
			Recorded     int64
			Passed       int64
			NotReady     int64
			WithDocument int64
		}

		err := db.Select(`
			COUNT(*) AS total,
			SUM(CASE WHEN status = 'Pending' THEN 1 ELSE 0 END) AS pending,
			SUM(CASE WHEN status = 'Approved' THEN 1 ELSE 0 END) AS approved,
			SUM(CASE WHEN status = 'Disapproved' THEN 1 ELSE 0 END) AS disapproved,
			SUM(CASE WHEN status = 'Recorded' THEN 1 ELSE 0 END) AS recorded,
			SUM(CASE WHEN result = 'Passed' THEN 1 ELSE 0 END) AS passed,
			SUM(CASE WHEN result = 'NotReady' THEN 1 ELSE 0 END) AS not_ready,
			SUM(CASE WHEN document_ref IS NOT NULL THEN 1 ELSE 0 END) AS with_document`).
			Scan(&row).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get evaluation stats: %w", err)
		}

		result := &repositories.EvaluationStats{
			Total:        int(row.Total),
			Pending:      int(row.Pending),
			Approved:     int(row.Approved),
			Disapproved:  int(row.Disapproved),
			Recorded:     int(row.Recorded),
			Passed:       int(row.Passed),
			NotReady:     int(row.NotReady),
			WithDocument: int(row.WithDocument),
		}
		if row.Recorded > 0 {
			result.PassRate = float64(row.Passed) / float64(row.Recorded) * 100
		}

		return result, nil
	})

	if err != nil {
		return nil, err
	}

	return &stats, nil
}
