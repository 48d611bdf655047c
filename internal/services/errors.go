package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ===== SENTINEL ERRORS =====

var (
	// Evaluation errors
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrEvaluationTerminal = errors.New("evaluation is in a terminal status")
	ErrEvaluationConflict = errors.New("member already has a pending evaluation")
	ErrDocumentRequired   = errors.New("a document is required for a NotReady result")
	ErrInvalidTransition  = errors.New("invalid evaluation status transition")

	// Member errors
	ErrMemberNotFound = errors.New("member not found")

	// Quiz errors
	ErrQuizNotFound    = errors.New("quiz not found")
	ErrQuizNotVisible  = errors.New("quiz is not visible")
	ErrAttemptNotFound = errors.New("quiz attempt not found")

	// Generic errors
	ErrValidationFailed        = errors.New("validation failed")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrBadRequest              = errors.New("bad request")
	ErrConflict                = errors.New("resource conflict")
	ErrUserNotFound            = errors.New("user not found")
)

// ===== STRUCTURED ERROR TYPES =====

// ValidationError describes a single field-level validation failure.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

// ValidationErrors aggregates field-level failures from one request.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(ve))
	for i, e := range ve {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

func (ve ValidationErrors) Unwrap() error {
	return ErrValidationFailed
}

// BusinessRuleError is a domain rule violation with a stable code and context
// for clients and logs.
type BusinessRuleError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *BusinessRuleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessRuleError) Unwrap() error {
	return ErrConflict
}

func NewBusinessRuleError(code, message string, context map[string]interface{}) *BusinessRuleError {
	return &BusinessRuleError{Code: code, Message: message, Context: context}
}

// PermissionError records who was denied what, for audit logging.
type PermissionError struct {
	UserID     string `json:"user_id"`
	ResourceID uint   `json:"resource_id"`
	Resource   string `json:"resource"`
	Action     string `json:"action"`
	Reason     string `json:"reason"`
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// ===== HELPERS =====

func timePtr(t time.Time) *time.Time {
	return &t
}
