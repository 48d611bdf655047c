package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gorm.io/gorm"

	"github.com/clubcore/evaluation-service/internal/events"
	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
	"github.com/clubcore/evaluation-service/internal/validator"
)

type scoringService struct {
	db        *gorm.DB
	repo      repositories.Repository
	logger    *slog.Logger
	validator *validator.Validator
	publisher events.Publisher
}

func NewScoringService(
	db *gorm.DB,
	repo repositories.Repository,
	logger *slog.Logger,
	validator *validator.Validator,
	publisher events.Publisher,
) ScoringService {
	return &scoringService{
		db:        db,
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

// ===== PURE SCORING =====

// Score grades a submission against the quiz's visible questions. Hidden
// questions neither score nor count toward the total. An unanswered question
// counts as wrong but still contributes its points to the total.
func (s *scoringService) Score(quiz *models.Quiz, answers map[uint]uint) *QuizResult {
	result := &QuizResult{
		QuizID:      quiz.ID,
		Breakdown:   make([]QuestionResult, 0, len(quiz.Questions)),
		SubmittedAt: time.Now(),
	}

	for _, question := range quiz.Questions {
		if !question.Visible {
			continue
		}

		qr := QuestionResult{
			QuestionID:     question.ID,
			PointsPossible: question.Points,
		}
		result.TotalPoints += question.Points

		if selected, answered := answers[question.ID]; answered {
			sel := selected
			qr.SelectedAnswerID = &sel
			qr.Correct = isCorrectAnswer(question, selected)
		}
		if qr.Correct {
			qr.PointsAwarded = question.Points
			result.Score += question.Points
		}

		result.Breakdown = append(result.Breakdown, qr)
	}

	if result.TotalPoints > 0 {
		result.Percentage = round2(float64(result.Score) / float64(result.TotalPoints) * 100)
	}
	result.Passed = result.Percentage >= quiz.PassingPercentage
	if result.Passed {
		result.Result = models.ResultPassed
	} else {
		result.Result = models.ResultNotReady
	}

	return result
}

func isCorrectAnswer(question models.Question, answerID uint) bool {
	for _, answer := range question.Answers {
		if answer.ID == answerID {
			return answer.IsCorrect
		}
	}
	return false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ===== SUBMISSION =====

func (s *scoringService) Submit(ctx context.Context, quizID uint, req *SubmitQuizRequest) (*QuizResult, error) {
	s.logger.Info("Scoring quiz submission", "quiz_id", quizID)

	if verrs := s.validator.ValidateSubmitQuiz(req); len(verrs) > 0 {
		return nil, toValidationErrors(verrs)
	}

	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if !quiz.Visible {
		return nil, ErrQuizNotVisible
	}

	result := s.Score(quiz, req.Answers)

	// The attempt log is best-effort. The taker already has their result;
	// a failed write must not take it away.
	if err := s.logAttempt(ctx, quiz, req, result); err != nil {
		s.logger.Warn("Failed to log quiz attempt", "quiz_id", quiz.ID, "error", err)
	}

	s.logger.Info("Quiz submission scored",
		"quiz_id", quiz.ID,
		"score", result.Score,
		"total", result.TotalPoints,
		"percentage", result.Percentage,
		"passed", result.Passed)

	return result, nil
}

func (s *scoringService) logAttempt(ctx context.Context, quiz *models.Quiz, req *SubmitQuizRequest, result *QuizResult) error {
	snapshot, err := json.Marshal(req.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answer snapshot: %w", err)
	}

	attempt := &models.QuizAttempt{
		QuizID:      quiz.ID,
		Score:       result.Score,
		TotalPoints: result.TotalPoints,
		Percentage:  result.Percentage,
		Result:      result.Result,
		Answers:     snapshot,
		SubmittedAt: result.SubmittedAt,
	}
	if req.MemberCode != nil {
		attempt.MemberCode = *req.MemberCode
	}
	if req.VisitorName != nil {
		attempt.VisitorName = *req.VisitorName
	}

	if err := s.repo.QuizAttempt().Create(ctx, nil, attempt); err != nil {
		return err
	}
	id := attempt.ID
	result.AttemptID = &id

	s.publishAttemptEvent(ctx, quiz, attempt)

	return nil
}

func (s *scoringService) publishAttemptEvent(ctx context.Context, quiz *models.Quiz, attempt *models.QuizAttempt) {
	if s.publisher == nil {
		return
	}

	event := events.NewEvent(events.QuizAttempted, "")
	event.QuizID = quiz.ID
	event.Payload["attempt_id"] = attempt.ID
	event.Payload["percentage"] = attempt.Percentage
	event.Payload["result"] = attempt.Result

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish attempt event", "quiz_id", quiz.ID, "error", err)
	}
}

// ===== TAKER-FACING READS =====

func (s *scoringService) GetQuiz(ctx context.Context, quizID uint) (*QuizView, error) {
	quiz, err := s.repo.Quiz().GetByIDWithQuestions(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}
	if !quiz.Visible {
		return nil, ErrQuizNotVisible
	}

	return buildQuizView(quiz, true), nil
}

func (s *scoringService) ListQuizzes(ctx context.Context, filters repositories.QuizFilters) (*QuizListResponse, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	visible := true
	filters.Visible = &visible

	quizzes, total, err := s.repo.Quiz().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list quizzes: %w", err)
	}

	views := make([]*QuizView, len(quizzes))
	for i, q := range quizzes {
		views[i] = buildQuizView(q, false)
	}

	return &QuizListResponse{
		Quizzes: views,
		Total:   total,
		Page:    filters.Offset/filters.Limit + 1,
		Size:    filters.Limit,
	}, nil
}

// buildQuizView strips correct-answer flags from the taker-facing shape.
func buildQuizView(quiz *models.Quiz, includeQuestions bool) *QuizView {
	view := &QuizView{
		ID:                quiz.ID,
		Title:             quiz.Title,
		Description:       quiz.Description,
		PassingPercentage: quiz.PassingPercentage,
		Questions:         make([]QuestionView, 0),
	}
	if !includeQuestions {
		return view
	}

	for _, question := range quiz.Questions {
		if !question.Visible {
			continue
		}
		qv := QuestionView{
			ID:      question.ID,
			Text:    question.Text,
			Points:  question.Points,
			Order:   question.Order,
			Answers: make([]AnswerView, len(question.Answers)),
		}
		for i, answer := range question.Answers {
			qv.Answers[i] = AnswerView{ID: answer.ID, Text: answer.Text}
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}

// ===== ATTEMPT HISTORY =====

func (s *scoringService) ListAttempts(ctx context.Context, principal models.Principal, filters repositories.AttemptFilters) (*AttemptListResponse, error) {
	if !principal.IsCoach() && !principal.IsAdmin() {
		return nil, NewPermissionError(principal.ID, 0, "quiz_attempt", "list", "insufficient role permissions")
	}
	if filters.Limit <= 0 {
		filters.Limit = 20
	}

	attempts, total, err := s.repo.QuizAttempt().List(ctx, nil, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}

	return &AttemptListResponse{
		Attempts: attempts,
		Total:    total,
		Page:     filters.Offset/filters.Limit + 1,
		Size:     filters.Limit,
	}, nil
}

func (s *scoringService) GetQuizStats(ctx context.Context, principal models.Principal, quizID uint) (*repositories.QuizStats, error) {
	if !principal.IsCoach() && !principal.IsAdmin() {
		return nil, NewPermissionError(principal.ID, quizID, "quiz", "stats", "insufficient role permissions")
	}

	if _, err := s.repo.Quiz().GetByID(ctx, nil, quizID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, fmt.Errorf("failed to get quiz: %w", err)
	}

	stats, err := s.repo.QuizAttempt().GetQuizStats(ctx, nil, quizID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quiz stats: %w", err)
	}
	return stats, nil
}
