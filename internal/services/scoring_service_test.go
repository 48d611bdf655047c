package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/clubcore/evaluation-service/internal/events"
	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/validator"
)

func newTestScoringService(repo *mockRepository) (ScoringService, *events.MemoryPublisher) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	publisher := events.NewMemoryPublisher()
	svc := NewScoringService(nil, repo, logger, validator.New(), publisher)
	return svc, publisher
}

// quizFixture builds a quiz where every question has answer ID pattern
// questionID*10+n, with the first answer correct.
func quizFixture(passingPercentage float64, questions ...models.Question) *models.Quiz {
	return &models.Quiz{
		ID:                1,
		Title:             "Club Rules",
		PassingPercentage: passingPercentage,
		Visible:           true,
		Questions:         questions,
	}
}

func question(id uint, points int, visible bool) models.Question {
	return models.Question{
		ID:      id,
		QuizID:  1,
		Points:  points,
		Visible: visible,
		Answers: []models.Answer{
			{ID: id*10 + 1, QuestionID: id, IsCorrect: true},
			{ID: id*10 + 2, QuestionID: id, IsCorrect: false},
			{ID: id*10 + 3, QuestionID: id, IsCorrect: false},
		},
	}
}

func correct(id uint) uint { return id*10 + 1 }
func wrong(id uint) uint   { return id*10 + 2 }

func TestScore(t *testing.T) {
	svc := &scoringService{}

	t.Run("exact passing boundary passes", func(t *testing.T) {
		// 100 points visible, 70 scored, threshold 70.
		quiz := quizFixture(70,
			question(1, 40, true),
			question(2, 30, true),
			question(3, 30, true),
		)
		result := svc.Score(quiz, map[uint]uint{
			1: correct(1),
			2: correct(2),
			3: wrong(3),
		})

		if result.Score != 70 || result.TotalPoints != 100 {
			t.Errorf("Expected 70/100, got %d/%d", result.Score, result.TotalPoints)
		}
		if result.Percentage != 70.00 {
			t.Errorf("Expected percentage 70.00, got %v", result.Percentage)
		}
		if !result.Passed || result.Result != models.ResultPassed {
			t.Errorf("Expected pass at the boundary, got passed=%v result=%s", result.Passed, result.Result)
		}
	})

	t.Run("just below the boundary fails", func(t *testing.T) {
		quiz := quizFixture(70,
			question(1, 69, true),
			question(2, 31, true),
		)
		result := svc.Score(quiz, map[uint]uint{1: correct(1), 2: wrong(2)})

		if result.Percentage != 69.00 {
			t.Errorf("Expected 69.00, got %v", result.Percentage)
		}
		if result.Passed || result.Result != models.ResultNotReady {
			t.Errorf("Expected NotReady below the boundary, got %s", result.Result)
		}
	})

	t.Run("hidden questions neither score nor count", func(t *testing.T) {
		quiz := quizFixture(50,
			question(1, 10, true),
			question(2, 90, false),
		)
		// Answering the hidden question correctly must not help.
		result := svc.Score(quiz, map[uint]uint{1: correct(1), 2: correct(2)})

		if result.TotalPoints != 10 {
			t.Errorf("Expected total 10, got %d", result.TotalPoints)
		}
		if result.Score != 10 || result.Percentage != 100.00 {
			t.Errorf("Expected 10/10 = 100.00, got %d -> %v", result.Score, result.Percentage)
		}
		if len(result.Breakdown) != 1 {
			t.Errorf("Expected 1 breakdown entry, got %d", len(result.Breakdown))
		}
	})

	t.Run("unanswered counts wrong but contributes to total", func(t *testing.T) {
		quiz := quizFixture(50,
			question(1, 10, true),
			question(2, 10, true),
		)
		result := svc.Score(quiz, map[uint]uint{1: correct(1)})

		if result.Score != 10 || result.TotalPoints != 20 {
			t.Errorf("Expected 10/20, got %d/%d", result.Score, result.TotalPoints)
		}
		if result.Percentage != 50.00 {
			t.Errorf("Expected 50.00, got %v", result.Percentage)
		}
		if result.Breakdown[1].SelectedAnswerID != nil {
			t.Error("Unanswered question should carry no selected answer")
		}
	})

	t.Run("answer id from another question is wrong", func(t *testing.T) {
		quiz := quizFixture(50,
			question(1, 10, true),
			question(2, 10, true),
		)
		result := svc.Score(quiz, map[uint]uint{1: correct(2), 2: correct(2)})

		if result.Score != 10 {
			t.Errorf("Expected 10, got %d", result.Score)
		}
	})

	t.Run("percentage rounds to two places", func(t *testing.T) {
		quiz := quizFixture(50,
			question(1, 10, true),
			question(2, 10, true),
			question(3, 10, true),
		)
		result := svc.Score(quiz, map[uint]uint{1: correct(1)})

		if result.Percentage != 33.33 {
			t.Errorf("Expected 33.33, got %v", result.Percentage)
		}

		result = svc.Score(quiz, map[uint]uint{1: correct(1), 2: correct(2)})
		if result.Percentage != 66.67 {
			t.Errorf("Expected 66.67, got %v", result.Percentage)
		}
	})

	t.Run("quiz with no visible questions", func(t *testing.T) {
		quiz := quizFixture(70, question(1, 10, false))
		result := svc.Score(quiz, map[uint]uint{})

		if result.TotalPoints != 0 || result.Percentage != 0 {
			t.Errorf("Expected 0 total and 0 percent, got %d / %v", result.TotalPoints, result.Percentage)
		}
		if result.Passed {
			t.Error("Empty quiz should not pass a positive threshold")
		}
	})
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	memberCode := "M-001"
	visitorName := "Walk-in Guest"

	t.Run("logs attempt and publishes event", func(t *testing.T) {
		repo := newMockRepository()
		svc, publisher := newTestScoringService(repo)
		repo.quiz.quizzes[1] = quizFixture(50, question(1, 10, true), question(2, 10, true))

		answers := map[uint]uint{1: correct(1), 2: wrong(2)}
		result, err := svc.Submit(ctx, 1, &SubmitQuizRequest{MemberCode: &memberCode, Answers: answers})
		if err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
		if result.Percentage != 50.00 || !result.Passed {
			t.Errorf("Expected 50.00 pass, got %v passed=%v", result.Percentage, result.Passed)
		}
		if result.AttemptID == nil {
			t.Fatal("AttemptID should be set when the log write succeeds")
		}

		if len(repo.attempt.attempts) != 1 {
			t.Fatalf("Expected 1 logged attempt, got %d", len(repo.attempt.attempts))
		}
		attempt := repo.attempt.attempts[0]
		if attempt.MemberCode != memberCode {
			t.Errorf("Expected member code %s, got %s", memberCode, attempt.MemberCode)
		}
		var snapshot map[uint]uint
		if err := json.Unmarshal(attempt.Answers, &snapshot); err != nil {
			t.Fatalf("Answer snapshot not valid JSON: %v", err)
		}
		if snapshot[1] != correct(1) || snapshot[2] != wrong(2) {
			t.Errorf("Snapshot mismatch: %v", snapshot)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.QuizAttempted {
			t.Errorf("Expected one %s event, got %v", events.QuizAttempted, published)
		}
	})

	t.Run("failed attempt log still returns the result", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestScoringService(repo)
		repo.quiz.quizzes[1] = quizFixture(50, question(1, 10, true))
		repo.attempt.createErr = errAttemptStoreDown

		result, err := svc.Submit(ctx, 1, &SubmitQuizRequest{VisitorName: &visitorName, Answers: map[uint]uint{1: correct(1)}})
		if err != nil {
			t.Fatalf("Submit should survive a failed log write, got %v", err)
		}
		if result.Percentage != 100.00 {
			t.Errorf("Expected 100.00, got %v", result.Percentage)
		}
		if result.AttemptID != nil {
			t.Error("AttemptID should be empty when the log write fails")
		}
	})

	t.Run("requires exactly one taker identity", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestScoringService(repo)
		repo.quiz.quizzes[1] = quizFixture(50, question(1, 10, true))

		cases := []*SubmitQuizRequest{
			{Answers: map[uint]uint{}},
			{MemberCode: &memberCode, VisitorName: &visitorName, Answers: map[uint]uint{}},
		}
		for _, req := range cases {
			if _, err := svc.Submit(ctx, 1, req); !errors.Is(err, ErrValidationFailed) {
				t.Errorf("Expected validation error for %+v, got %v", req, err)
			}
		}
	})

	t.Run("unknown quiz", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestScoringService(repo)

		_, err := svc.Submit(ctx, 99, &SubmitQuizRequest{MemberCode: &memberCode, Answers: map[uint]uint{}})
		if !errors.Is(err, ErrQuizNotFound) {
			t.Errorf("Expected ErrQuizNotFound, got %v", err)
		}
	})

	t.Run("hidden quiz is not submittable", func(t *testing.T) {
		repo := newMockRepository()
		svc, _ := newTestScoringService(repo)
		quiz := quizFixture(50, question(1, 10, true))
		quiz.Visible = false
		repo.quiz.quizzes[1] = quiz

		_, err := svc.Submit(ctx, 1, &SubmitQuizRequest{MemberCode: &memberCode, Answers: map[uint]uint{}})
		if !errors.Is(err, ErrQuizNotVisible) {
			t.Errorf("Expected ErrQuizNotVisible, got %v", err)
		}
	})
}

func TestGetQuiz_TakerView(t *testing.T) {
	ctx := context.Background()
	repo := newMockRepository()
	svc, _ := newTestScoringService(repo)

	quiz := quizFixture(60, question(1, 10, true), question(2, 10, false))
	quiz.Questions[0].Text = "How many players per side?"
	repo.quiz.quizzes[1] = quiz

	view, err := svc.GetQuiz(ctx, 1)
	if err != nil {
		t.Fatalf("GetQuiz failed: %v", err)
	}
	if len(view.Questions) != 1 {
		t.Fatalf("Hidden question leaked: %d questions", len(view.Questions))
	}
	if len(view.Questions[0].Answers) != 3 {
		t.Errorf("Expected 3 answers, got %d", len(view.Questions[0].Answers))
	}
	if view.PassingPercentage != 60 {
		t.Errorf("Expected passing percentage 60, got %v", view.PassingPercentage)
	}
}
