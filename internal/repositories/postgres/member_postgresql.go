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

type MemberPostgreSQL struct {
	db           *gorm.DB
	helpers      *SharedHelpers
	cacheManager *cache.CacheManager
}

func NewMemberPostgreSQL(db *gorm.DB, redisClient *redis.Client) repositories.MemberRepository {
	return &MemberPostgreSQL{
		db:           db,
		helpers:      NewSharedHelpers(db),
		cacheManager: cache.NewCacheManager(redisClient),
	}
}

func (m *MemberPostgreSQL) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return m.db
}

// GetByID retrieves a member by ID with caching
func (m *MemberPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Member, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var member models.Member

	err := m.cacheManager.Member.CacheOrExecute(ctx, cacheKey, &member, cache.MemberCacheConfig.TTL, func() (interface{}, error) {
		var dbMember models.Member
		err := m.getDB(tx).WithContext(ctx).
			Preload("Level").
			First(&dbMember, id).Error
		if err != nil {
			return nil, err
		}
		return &dbMember, nil
	})

	if err != nil {
		return nil, err
	}

	return &member, nil
}

// GetByCode retrieves a member by membership code
func (m *MemberPostgreSQL) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Member, error) {
	cacheKey := fmt.Sprintf("code:%s", code)
	var member models.Member

	err := m.cacheManager.Member.CacheOrExecute(ctx, cacheKey, &member, cache.MemberCacheConfig.TTL, func() (interface{}, error) {
		var dbMember models.Member
		err := m.getDB(tx).WithContext(ctx).
			Where("code = ?", code).
			Preload("Level").
			First(&dbMember).Error
		if err != nil {
			return nil, err
		}
		return &dbMember, nil
	})

	if err != nil {
		return nil, err
	}

	return &member, nil
}

// GetByIDs retrieves multiple members by ID
func (m *MemberPostgreSQL) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db := m.getDB(tx)

	var members []*models.Member
	err := db.WithContext(ctx).
		Where("id IN ?", ids).
		Preload("Level").
		Find(&members).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get members: %w", err)
	}

	return members, nil
}

// List retrieves members with filters and pagination
func (m *MemberPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.MemberFilters) ([]*models.Member, int64, error) {
	query := m.getDB(tx).WithContext(ctx).Model(&models.Member{})

	if filters.CoachID != nil {
		query = query.Where("coach_id = ?", *filters.CoachID)
	}
	if filters.LevelID != nil {
		query = query.Where("level_id = ?", *filters.LevelID)
	}
	if filters.Code != nil {
		query = query.Where("code = ?", *filters.Code)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = m.helpers.ApplyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var members []*models.Member
	err := query.Preload("Level").Find(&members).Error
	if err != nil {
		return nil, 0, err
	}

	return members, total, nil
}

// Exists checks whether a member exists, with a short-lived cache
func (m *MemberPostgreSQL) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	cacheKey := fmt.Sprintf("member:%d", id)

	cached, err := m.cacheManager.Exists.GetString(ctx, cacheKey)
	if err == nil {
		return cached == "1", nil
	}

	db := m.getDB(tx)
	var count int64
	err = db.WithContext(ctx).
		Model(&models.Member{}).
		Where("id = ?", id).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	value := "0"
	if count > 0 {
		value = "1"
	}
	_ = m.cacheManager.Exists.SetString(ctx, cacheKey, value, cache.ExistsCacheConfig.TTL)

	return count > 0, nil
}
