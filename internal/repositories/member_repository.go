package repositories

import (
	"context"

	"github.com/clubcore/evaluation-service/internal/models"
	"gorm.io/gorm"
)

// MemberRepository reads club members. The evaluation core references members
// but never mutates them; admin tooling owns writes.
type MemberRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Member, error)
	GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Member, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Member, error)
	List(ctx context.Context, tx *gorm.DB, filters MemberFilters) ([]*models.Member, int64, error)
	Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

// QuizRepository reads quiz definitions for the scoring engine.
type QuizRepository interface {
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	// GetByIDWithQuestions loads the quiz with its visible questions and their
	// answers, ordered for presentation. Hidden questions are excluded.
	GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	List(ctx context.Context, tx *gorm.DB, filters QuizFilters) ([]*models.Quiz, int64, error)
}

// QuizAttemptRepository appends and reads the attempt log. Attempts are never
// updated or deleted.
type QuizAttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error
	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
	GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
	GetByMemberCode(ctx context.Context, tx *gorm.DB, memberCode string, filters AttemptFilters) ([]*models.QuizAttempt, int64, error)
	GetQuizStats(ctx context.Context, tx *gorm.DB, quizID uint) (*QuizStats, error)
}
