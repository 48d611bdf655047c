package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
)

// SharedHelpers contains common database operations
type SharedHelpers struct {
	db *gorm.DB
}

func NewSharedHelpers(db *gorm.DB) *SharedHelpers {
	return &SharedHelpers{db: db}
}

// CountEvaluationsByStatus counts evaluations in a given status
func (h *SharedHelpers) CountEvaluationsByStatus(ctx context.Context, status models.EvaluationStatus) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

// CountEvaluationsByMember counts evaluations belonging to a member
func (h *SharedHelpers) CountEvaluationsByMember(ctx context.Context, memberID uint) (int64, error) {
	var count int64
	err := h.db.WithContext(ctx).
		Model(&models.Evaluation{}).
		Where("member_id = ?", memberID).
		Count(&count).Error
	return count, err
}

// ApplyEvaluationFilters applies common filters to evaluation queries
func (h *SharedHelpers) ApplyEvaluationFilters(query *gorm.DB, filters repositories.EvaluationFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Result != nil {
		query = query.Where("result = ?", *filters.Result)
	}
	if filters.CoachID != nil {
		query = query.Where("coach_id = ?", *filters.CoachID)
	}
	if filters.MemberID != nil {
		query = query.Where("member_id = ?", *filters.MemberID)
	}
	if filters.DateFrom != nil {
		query = query.Where("scheduled_date >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("scheduled_date <= ?", *filters.DateTo)
	}
	return query
}

// ApplyAttemptFilters applies common filters to quiz attempt queries
func (h *SharedHelpers) ApplyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.MemberCode != nil {
		query = query.Where("member_code = ?", *filters.MemberCode)
	}
	if filters.Result != nil {
		query = query.Where("result = ?", *filters.Result)
	}
	if filters.DateFrom != nil {
		query = query.Where("submitted_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("submitted_at <= ?", *filters.DateTo)
	}
	return query
}

// ApplyPaginationAndSort applies pagination and sorting with SQL injection protection
func (h *SharedHelpers) ApplyPaginationAndSort(query *gorm.DB, sortBy, sortOrder string, limit, offset int) *gorm.DB {
	// Whitelist allowed sort columns
	allowedSortColumns := map[string]bool{
		"created_at":     true,
		"updated_at":     true,
		"id":             true,
		"status":         true,
		"scheduled_date": true,
		"nominated_at":   true,
		"submitted_at":   true,
		"full_name":      true,
		"code":           true,
		"title":          true,
	}

	// Validate and set sort column
	if sortBy == "" || !allowedSortColumns[sortBy] {
		sortBy = "created_at"
	}

	// Validate and set sort order
	if sortOrder != "asc" && sortOrder != "ASC" {
		sortOrder = "DESC"
	} else {
		sortOrder = "ASC"
	}

	query = query.Order(sortBy + " " + sortOrder)

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	return query
}
