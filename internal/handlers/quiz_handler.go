package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
	"github.com/clubcore/evaluation-service/internal/services"
	"github.com/clubcore/evaluation-service/internal/utils"
	"github.com/clubcore/evaluation-service/internal/validator"
)

type QuizHandler struct {
	BaseHandler
	scoringService services.ScoringService
	exportService  services.ExportService
	validator      *validator.Validator
}

func NewQuizHandler(
	scoringService services.ScoringService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *QuizHandler {
	return &QuizHandler{
		BaseHandler:    NewBaseHandler(logger),
		scoringService: scoringService,
		exportService:  exportService,
		validator:      validator,
	}
}

// ListQuizzes lists visible quizzes for takers
// @Summary List quizzes
// @Tags quizzes
// @Produce json
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} services.QuizListResponse
// @Router /quizzes [get]
func (h *QuizHandler) ListQuizzes(c *gin.Context) {
	h.LogRequest(c, "Listing quizzes")

	filters := repositories.QuizFilters{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}

	resp, err := h.scoringService.ListQuizzes(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetQuiz returns a quiz with its visible questions, correct flags stripped
// @Summary Get quiz
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} services.QuizView
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id} [get]
func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Getting quiz", "quiz_id", id)

	view, err := h.scoringService.GetQuiz(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SubmitQuiz scores a submission and returns the result with breakdown
// @Summary Submit quiz answers
// @Tags quizzes
// @Accept json
// @Produce json
// @Param id path uint true "Quiz ID"
// @Param submission body services.SubmitQuizRequest true "Answers"
// @Success 200 {object} services.QuizResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /quizzes/{id}/submit [post]
func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Submitting quiz", "quiz_id", id)

	result, err := h.scoringService.Submit(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListAttempts lists quiz attempts with filters (coach/admin)
// @Summary List quiz attempts
// @Tags quizzes
// @Produce json
// @Param quiz_id query uint false "Filter by quiz"
// @Param member_code query string false "Filter by member code"
// @Success 200 {object} services.AttemptListResponse
// @Router /attempts [get]
func (h *QuizHandler) ListAttempts(c *gin.Context) {
	h.LogRequest(c, "Listing quiz attempts")

	filters := repositories.AttemptFilters{
		Limit:  parseIntQuery(c, "limit", 20),
		Offset: parseIntQuery(c, "offset", 0),
	}
	if raw := c.Query("quiz_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			quizID := uint(id)
			filters.QuizID = &quizID
		}
	}
	if code := c.Query("member_code"); code != "" {
		filters.MemberCode = &code
	}
	if raw := c.Query("result"); raw != "" {
		result := models.EvaluationResult(raw)
		filters.Result = &result
	}

	resp, err := h.scoringService.ListAttempts(c.Request.Context(), principalFromContext(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetQuizStats returns aggregate attempt statistics for one quiz
// @Summary Quiz statistics
// @Tags quizzes
// @Produce json
// @Param id path uint true "Quiz ID"
// @Success 200 {object} repositories.QuizStats
// @Router /quizzes/{id}/stats [get]
func (h *QuizHandler) GetQuizStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Getting quiz stats", "quiz_id", id)

	stats, err := h.scoringService.GetQuizStats(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportAttempts streams an XLSX report of one quiz's attempts
// @Summary Export quiz attempts
// @Tags quizzes
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Quiz ID"
// @Success 200 {file} binary
// @Router /quizzes/{id}/attempts/export [get]
func (h *QuizHandler) ExportAttempts(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Exporting quiz attempts", "quiz_id", id)

	data, filename, err := h.exportService.ExportAttempts(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
