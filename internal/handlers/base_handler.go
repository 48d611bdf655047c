package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/services"
	"github.com/clubcore/evaluation-service/internal/utils"
)

// BaseHandler carries the shared handler plumbing: logging helpers, response
// shapes and the service-error to HTTP-status mapping.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c.Request.Context()).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.LoggerFromContext(c.Request.Context()).Error(msg, args...)
}

// parseIDParam parses a numeric path parameter and writes the 400 response
// itself; a zero return means the response is already sent.
func (h *BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	raw := c.Param(param)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param + " parameter",
			Details: raw,
		})
		return 0
	}
	return uint(id)
}

// principalFromContext returns the acting principal set by the auth
// middleware, or the anonymous principal when none is present.
func principalFromContext(c *gin.Context) models.Principal {
	value, exists := c.Get("principal")
	if !exists {
		return models.AnonymousPrincipal
	}
	principal, ok := value.(models.Principal)
	if !ok {
		return models.AnonymousPrincipal
	}
	return principal
}

// handleServiceError maps service errors to HTTP responses
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var verrs services.ValidationErrors
	if errors.As(err, &verrs) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: verrs,
		})
		return
	}

	var bre *services.BusinessRuleError
	if errors.As(err, &bre) {
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: bre.Message,
			Details: bre.Context,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrEvaluationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Evaluation not found",
		})
	case errors.Is(err, services.ErrMemberNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Member not found",
		})
	case errors.Is(err, services.ErrQuizNotFound), errors.Is(err, services.ErrQuizNotVisible):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Quiz not found",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	case errors.Is(err, services.ErrEvaluationConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Member already has a pending evaluation",
		})
	case errors.Is(err, services.ErrValidationFailed):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: err.Error(),
		})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "Unauthorized access",
		})
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrInsufficientPermissions):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Forbidden - insufficient permissions",
		})
	case errors.Is(err, services.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Resource conflict",
		})
	case errors.Is(err, services.ErrBadRequest):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Bad request",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
