package repositories

import (
	"context"
	"time"

	"github.com/clubcore/evaluation-service/internal/models"
	"gorm.io/gorm"
)

// EvaluationRepository persists the evaluation workflow entity. All writes use
// parameterized queries; caller-supplied values are never interpolated into
// query text.
type EvaluationRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, tx *gorm.DB, evaluation *models.Evaluation) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error)
	GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error) // Include member, coach
	Update(ctx context.Context, tx *gorm.DB, evaluation *models.Evaluation) error
	Delete(ctx context.Context, tx *gorm.DB, id uint) error
	DeleteBatch(ctx context.Context, tx *gorm.DB, ids []uint) (int64, error)

	// Nomination support. CreateIfNoPending performs the no-Pending
	// precondition check and the insert as one conditional statement and
	// reports whether a row was created.
	CreateIfNoPending(ctx context.Context, tx *gorm.DB, evaluation *models.Evaluation) (bool, error)
	HasPending(ctx context.Context, tx *gorm.DB, memberID uint) (bool, error)
	PendingMemberIDs(ctx context.Context, tx *gorm.DB, memberIDs []uint) ([]uint, error)

	// Bulk result recording; restricted by the service layer to the Passed
	// outcome. Returns the number of rows actually moved to Recorded.
	RecordResultsBulk(ctx context.Context, tx *gorm.DB, ids []uint, result models.EvaluationResult, recordedAt time.Time) (int64, error)

	// Query operations
	List(ctx context.Context, tx *gorm.DB, filters EvaluationFilters) ([]*models.Evaluation, int64, error)
	GetByCoach(ctx context.Context, tx *gorm.DB, coachID string, filters EvaluationFilters) ([]*models.Evaluation, int64, error)
	GetByMember(ctx context.Context, tx *gorm.DB, memberID uint, filters EvaluationFilters) ([]*models.Evaluation, int64, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Evaluation, error)

	// Public read-only lookup: the most recent Recorded evaluation matching
	// the supplied member name, code and coach. At most one row.
	LatestRecorded(ctx context.Context, tx *gorm.DB, key PublicLookupKey) (*models.Evaluation, error)

	// Statistics
	GetStats(ctx context.Context, tx *gorm.DB, coachID *string) (*EvaluationStats, error)
}
