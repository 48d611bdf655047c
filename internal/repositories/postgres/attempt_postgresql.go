package postgres

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/clubcore/evaluation-service/internal/cache"
	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
)

type AttemptPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewAttemptPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.QuizAttemptRepository {
	return &AttemptPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (a *AttemptPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return a.db
}

// Create appends one attempt to the log
func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	db := a.getDB(tx)
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		return fmt.Errorf("failed to create quiz attempt: %w", err)
	}

	cache.SafeInvalidatePattern(ctx, a.cacheManager.Stats, fmt.Sprintf("quiz:%d:*", attempt.QuizID))

	return nil
}

// List retrieves attempts with filters and pagination
func (a *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	query := a.getDB(tx).WithContext(ctx).Model(&models.QuizAttempt{})

	// Apply filters
	query = a.helpers.ApplyAttemptFilters(query, filters)

	// Count total
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// Apply pagination and ordering
	sortBy := filters.SortBy
	if sortBy == "" {
		sortBy = "submitted_at"
	}
	query = a.helpers.ApplyPaginationAndSort(query, sortBy, filters.SortOrder, filters.Limit, filters.Offset)

	// Execute query
	var attempts []*models.QuizAttempt
	err := query.Find(&attempts).Error
	if err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

// GetByQuiz retrieves attempts for one quiz
func (a *AttemptPostgreSQL) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	filters.QuizID = &quizID
	return a.List(ctx, tx, filters)
}

// GetByMemberCode retrieves attempts submitted under one membership code
func (a *AttemptPostgreSQL) GetByMemberCode(ctx context.Context, tx *gorm.DB, memberCode string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	filters.MemberCode = &memberCode
	return a.List(ctx, tx, filters)
}

// GetQuizStats retrieves aggregate attempt statistics for a quiz
func (a *AttemptPostgreSQL) GetQuizStats(ctx context.Context, tx *gorm.DB, quizID uint) (*repositories.QuizStats, error) {
	cacheKey := fmt.Sprintf("quiz:%d:attempts", quizID)

	var stats repositories.QuizStats
	err := a.cacheManager.Stats.CacheOrExecute(ctx, cacheKey, &stats, cache.StatsCacheConfig.TTL, func() (interface{}, error) {
		var row struct {
			Total   int64
			Passed  int64
			Avg     float64
			Highest int64
		}

		err := a.getDB(tx).WithContext(ctx).
			Model(&models.QuizAttempt{}).
			Select(`
				COUNT(*) AS total,
				SUM(CASE WHEN result = 'Passed' THEN 1 ELSE 0 END) AS passed,
				COALESCE(AVG(percentage), 0) AS avg,
				COALESCE(MAX(score), 0) AS highest`).
			Where("quiz_id = ?", quizID).
			Scan(&row).Error
		if err != nil {
			return nil, fmt.Errorf("failed to get quiz stats: %w", err)
		}

		result := &repositories.QuizStats{
			TotalAttempts:  int(row.Total),
			PassedAttempts: int(row.Passed),
			AverageScore:   row.Avg,
			HighestScore:   int(row.Highest),
		}
		if row.Total > 0 {
			result.PassRate = float64(row.Passed) / float64(row.Total) * 100
		}

		return result, nil
	})

	if err != nil {
		return nil, err
	}

	return &stats, nil
}
