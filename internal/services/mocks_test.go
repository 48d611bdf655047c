package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
)

// In-memory repository doubles for service tests.

type mockRepository struct {
	evaluation *mockEvaluationRepo
	member     *mockMemberRepo
	quiz       *mockQuizRepo
	attempt    *mockAttemptRepo
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		evaluation: &mockEvaluationRepo{evaluations: make(map[uint]*models.Evaluation)},
		member:     &mockMemberRepo{members: make(map[uint]*models.Member)},
		quiz:       &mockQuizRepo{quizzes: make(map[uint]*models.Quiz)},
		attempt:    &mockAttemptRepo{},
	}
}

func (m *mockRepository) Evaluation() repositories.EvaluationRepository   { return m.evaluation }
func (m *mockRepository) Member() repositories.MemberRepository           { return m.member }
func (m *mockRepository) Quiz() repositories.QuizRepository               { return m.quiz }
func (m *mockRepository) QuizAttempt() repositories.QuizAttemptRepository { return m.attempt }
func (m *mockRepository) User() repositories.UserRepository               { return nil }
func (m *mockRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(m)
}
func (m *mockRepository) Ping(ctx context.Context) error { return nil }
func (m *mockRepository) Close() error                   { return nil }

// ===== EVALUATIONS =====

type mockEvaluationRepo struct {
	evaluations map[uint]*models.Evaluation
	nextID      uint
	createErr   error
}

func (m *mockEvaluationRepo) Create(ctx context.Context, tx *gorm.DB, evaluation *models.Evaluation) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	evaluation.ID = m.nextID
	m.evaluations[evaluation.ID] = evaluation
	return nil
}

func (m *mockEvaluationRepo) CreateIfNoPending(ctx context.Context, tx *gorm.DB, evaluation *models.Evaluation) (bool, error) {
	if m.createErr != nil {
		return false, m.createErr
	}
	for _, e := range m.evaluations {
		if e.MemberID == evaluation.MemberID && e.Status == models.EvaluationPending {
			return false, nil
		}
	}
	m.nextID++
	evaluation.ID = m.nextID
	m.evaluations[evaluation.ID] = evaluation
	return true, nil
}

func (m *mockEvaluationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error) {
	e, ok := m.evaluations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return e, nil
}

func (m *mockEvaluationRepo) GetByIDWithDetails(ctx context.Context, tx *gorm.DB, id uint) (*models.Evaluation, error) {
	return m.GetByID(ctx, tx, id)
}

func (m *mockEvaluationRepo) Update(ctx context.Context, tx *gorm.DB, evaluation *models.Evaluation) error {
	if _, ok := m.evaluations[evaluation.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	m.evaluations[evaluation.ID] = evaluation
	return nil
}

func (m *mockEvaluationRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	if _, ok := m.evaluations[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.evaluations, id)
	return nil
}

func (m *mockEvaluationRepo) DeleteBatch(ctx context.Context, tx *gorm.DB, ids []uint) (int64, error) {
	var deleted int64
	for _, id := range ids {
		if _, ok := m.evaluations[id]; ok {
			delete(m.evaluations, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *mockEvaluationRepo) HasPending(ctx context.Context, tx *gorm.DB, memberID uint) (bool, error) {
	for _, e := range m.evaluations {
		if e.MemberID == memberID && e.Status == models.EvaluationPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEvaluationRepo) PendingMemberIDs(ctx context.Context, tx *gorm.DB, memberIDs []uint) ([]uint, error) {
	var out []uint
	for _, id := range memberIDs {
		if pending, _ := m.HasPending(ctx, tx, id); pending {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *mockEvaluationRepo) RecordResultsBulk(ctx context.Context, tx *gorm.DB, ids []uint, result models.EvaluationResult, recordedAt time.Time) (int64, error) {
	var affected int64
	for _, id := range ids {
		e, ok := m.evaluations[id]
		if !ok || !e.Status.CanRecord() {
			continue
		}
		r := result
		e.Status = models.EvaluationRecorded
		e.Result = &r
		e.UpdatedAt = recordedAt
		affected++
	}
	return affected, nil
}

func (m *mockEvaluationRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.EvaluationFilters) ([]*models.Evaluation, int64, error) {
	var out []*models.Evaluation
	for _, e := range m.evaluations {
		if filters.Status != nil && e.Status != *filters.Status {
			continue
		}
		if filters.CoachID != nil && e.CoachID != *filters.CoachID {
			continue
		}
		if filters.MemberID != nil && e.MemberID != *filters.MemberID {
			continue
		}
		out = append(out, e)
	}
	return out, int64(len(out)), nil
}

func (m *mockEvaluationRepo) GetByCoach(ctx context.Context, tx *gorm.DB, coachID string, filters repositories.EvaluationFilters) ([]*models.Evaluation, int64, error) {
	filters.CoachID = &coachID
	return m.List(ctx, tx, filters)
}

func (m *mockEvaluationRepo) GetByMember(ctx context.Context, tx *gorm.DB, memberID uint, filters repositories.EvaluationFilters) ([]*models.Evaluation, int64, error) {
	filters.MemberID = &memberID
	return m.List(ctx, tx, filters)
}

func (m *mockEvaluationRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Evaluation, error) {
	var out []*models.Evaluation
	for _, id := range ids {
		if e, ok := m.evaluations[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEvaluationRepo) LatestRecorded(ctx context.Context, tx *gorm.DB, key repositories.PublicLookupKey) (*models.Evaluation, error) {
	var latest *models.Evaluation
	for _, e := range m.evaluations {
		if e.Status != models.EvaluationRecorded {
			continue
		}
		if e.Member.FullName != key.FullName || e.Member.Code != key.MemberCode || e.CoachID != key.CoachID {
			continue
		}
		if latest == nil || e.ScheduledDate.After(latest.ScheduledDate) {
			latest = e
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

func (m *mockEvaluationRepo) GetStats(ctx context.Context, tx *gorm.DB, coachID *string) (*repositories.EvaluationStats, error) {
	stats := &repositories.EvaluationStats{}
	for _, e := range m.evaluations {
		if coachID != nil && e.CoachID != *coachID {
			continue
		}
		stats.Total++
		switch e.Status {
		case models.EvaluationPending:
			stats.Pending++
		case models.EvaluationApproved:
			stats.Approved++
		case models.EvaluationDisapproved:
			stats.Disapproved++
		case models.EvaluationRecorded:
			stats.Recorded++
		}
	}
	return stats, nil
}

// ===== MEMBERS =====

type mockMemberRepo struct {
	members map[uint]*models.Member
}

func (m *mockMemberRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Member, error) {
	member, ok := m.members[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return member, nil
}

func (m *mockMemberRepo) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Member, error) {
	for _, member := range m.members {
		if member.Code == code {
			return member, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockMemberRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uint) ([]*models.Member, error) {
	var out []*models.Member
	for _, id := range ids {
		if member, ok := m.members[id]; ok {
			out = append(out, member)
		}
	}
	return out, nil
}

func (m *mockMemberRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.MemberFilters) ([]*models.Member, int64, error) {
	var out []*models.Member
	for _, member := range m.members {
		out = append(out, member)
	}
	return out, int64(len(out)), nil
}

func (m *mockMemberRepo) Exists(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	_, ok := m.members[id]
	return ok, nil
}

// ===== QUIZZES =====

type mockQuizRepo struct {
	quizzes map[uint]*models.Quiz
}

func (m *mockQuizRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	quiz, ok := m.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return quiz, nil
}

func (m *mockQuizRepo) GetByIDWithQuestions(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error) {
	quiz, ok := m.quizzes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	// Mirror the store contract: hidden questions are not loaded.
	visible := *quiz
	visible.Questions = nil
	for _, q := range quiz.Questions {
		if q.Visible {
			visible.Questions = append(visible.Questions, q)
		}
	}
	return &visible, nil
}

func (m *mockQuizRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.QuizFilters) ([]*models.Quiz, int64, error) {
	var out []*models.Quiz
	for _, quiz := range m.quizzes {
		if filters.Visible != nil && quiz.Visible != *filters.Visible {
			continue
		}
		out = append(out, quiz)
	}
	return out, int64(len(out)), nil
}

// ===== ATTEMPTS =====

var errAttemptStoreDown = errors.New("attempt store unavailable")

type mockAttemptRepo struct {
	attempts  []*models.QuizAttempt
	nextID    uint
	createErr error
}

func (m *mockAttemptRepo) Create(ctx context.Context, tx *gorm.DB, attempt *models.QuizAttempt) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	attempt.ID = m.nextID
	m.attempts = append(m.attempts, attempt)
	return nil
}

func (m *mockAttemptRepo) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	return m.attempts, int64(len(m.attempts)), nil
}

func (m *mockAttemptRepo) GetByQuiz(ctx context.Context, tx *gorm.DB, quizID uint, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	var out []*models.QuizAttempt
	for _, a := range m.attempts {
		if a.QuizID == quizID {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockAttemptRepo) GetByMemberCode(ctx context.Context, tx *gorm.DB, memberCode string, filters repositories.AttemptFilters) ([]*models.QuizAttempt, int64, error) {
	var out []*models.QuizAttempt
	for _, a := range m.attempts {
		if a.MemberCode == memberCode {
			out = append(out, a)
		}
	}
	return out, int64(len(out)), nil
}

func (m *mockAttemptRepo) GetQuizStats(ctx context.Context, tx *gorm.DB, quizID uint) (*repositories.QuizStats, error) {
	stats := &repositories.QuizStats{}
	for _, a := range m.attempts {
		if a.QuizID != quizID {
			continue
		}
		stats.TotalAttempts++
		if a.Result == models.ResultPassed {
			stats.PassedAttempts++
		}
	}
	return stats, nil
}

// ===== DOCUMENT STORE =====

type mockFileStore struct {
	files   map[string][]byte
	saveErr error
}

func newMockFileStore() *mockFileStore {
	return &mockFileStore{files: make(map[string][]byte)}
}

func (s *mockFileStore) Save(ctx context.Context, ref string, data []byte) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.files[ref] = data
	return nil
}

func (s *mockFileStore) Read(ctx context.Context, ref string) ([]byte, error) {
	data, ok := s.files[ref]
	if !ok {
		return nil, errors.New("document not found")
	}
	return data, nil
}

func (s *mockFileStore) Delete(ctx context.Context, ref string) error {
	delete(s.files, ref)
	return nil
}
