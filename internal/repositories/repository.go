package repositories

import "context"

// Repository aggregates all entity repositories behind one access point.
type Repository interface {
	// Evaluation workflow domain
	Evaluation() EvaluationRepository

	// Member domain (read-only for the evaluation core)
	Member() MemberRepository

	// Quiz domain (read-only for the scoring engine) and its attempt log
	Quiz() QuizRepository
	QuizAttempt() QuizAttemptRepository

	// User domain (resolved externally, read-only)
	User() UserRepository

	// Transaction support
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager manages repository lifecycle.
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
