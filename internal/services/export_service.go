package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
)

// exportBatchSize bounds one export query page.
const exportBatchSize = 500

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
	}
}

func (s *exportService) ExportEvaluations(ctx context.Context, principal models.Principal, filters repositories.EvaluationFilters) ([]byte, string, error) {
	s.logger.Info("Exporting evaluations", "principal_id", principal.ID)

	switch {
	case principal.IsAdmin():
		// Full export
	case principal.IsCoach():
		id := principal.ID
		filters.CoachID = &id
	default:
		return nil, "", NewPermissionError(principal.ID, 0, "evaluation", "export", "insufficient role permissions")
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Evaluations"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"ID", "Member Code", "Member Name", "Coach", "Status", "Scheduled Date", "Nominated At", "Result", "Document", "Disapproval Reason"}
	if err := writeHeaderRow(f, sheet, headers); err != nil {
		return nil, "", err
	}

	row := 2
	filters.Limit = exportBatchSize
	filters.Offset = 0
	for {
		evaluations, _, err := s.repo.Evaluation().List(ctx, nil, filters)
		if err != nil {
			return nil, "", fmt.Errorf("failed to list evaluations: %w", err)
		}
		if len(evaluations) == 0 {
			break
		}

		for _, e := range evaluations {
			values := []interface{}{
				e.ID,
				e.Member.Code,
				e.Member.FullName,
				e.CoachID,
				string(e.Status),
				e.ScheduledDate.Format("2006-01-02"),
				e.NominatedAt.Format(time.RFC3339),
				stringOrEmpty((*string)(e.Result)),
				stringOrEmpty(e.DocumentRef),
				stringOrEmpty(e.DisapprovalReason),
			}
			if err := writeRow(f, sheet, row, values); err != nil {
				return nil, "", err
			}
			row++
		}

		if len(evaluations) < exportBatchSize {
			break
		}
		filters.Offset += exportBatchSize
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("evaluations_%s.xlsx", time.Now().Format("2006-01-02"))
	s.logger.Info("Evaluations exported", "rows", row-2, "filename", filename)

	return buf.Bytes(), filename, nil
}

func (s *exportService) ExportAttempts(ctx context.Context, principal models.Principal, quizID uint) ([]byte, string, error) {
	s.logger.Info("Exporting quiz attempts", "quiz_id", quizID, "principal_id", principal.ID)

	if !principal.IsCoach() && !principal.IsAdmin() {
		return nil, "", NewPermissionError(principal.ID, quizID, "quiz_attempt", "export", "insufficient role permissions")
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, "", ErrQuizNotFound
		}
		return nil, "", fmt.Errorf("failed to get quiz: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Attempts"
	f.SetSheetName(f.GetSheetName(0), sheet)

	headers := []string{"ID", "Member Code", "Visitor Name", "Score", "Total Points", "Percentage", "Result", "Submitted At"}
	if err := writeHeaderRow(f, sheet, headers); err != nil {
		return nil, "", err
	}

	row := 2
	filters := repositories.AttemptFilters{Limit: exportBatchSize}
	for {
		attempts, _, err := s.repo.QuizAttempt().GetByQuiz(ctx, nil, quizID, filters)
		if err != nil {
			return nil, "", fmt.Errorf("failed to list attempts: %w", err)
		}
		if len(attempts) == 0 {
			break
		}

		for _, a := range attempts {
			values := []interface{}{
				a.ID,
				a.MemberCode,
				a.VisitorName,
				a.Score,
				a.TotalPoints,
				a.Percentage,
				string(a.Result),
				a.SubmittedAt.Format(time.RFC3339),
			}
			if err := writeRow(f, sheet, row, values); err != nil {
				return nil, "", err
			}
			row++
		}

		if len(attempts) < exportBatchSize {
			break
		}
		filters.Offset += exportBatchSize
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("quiz_%d_attempts_%s.xlsx", quiz.ID, time.Now().Format("2006-01-02"))
	s.logger.Info("Attempts exported", "rows", row-2, "filename", filename)

	return buf.Bytes(), filename, nil
}

func writeHeaderRow(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to build header cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("failed to set header cell: %w", err)
		}
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("failed to build cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("failed to set cell: %w", err)
		}
	}
	return nil
}

func stringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
