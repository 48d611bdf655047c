package validator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/clubcore/evaluation-service/internal/models"
)

var memberCodePattern = regexp.MustCompile(`^[A-Za-z0-9-]{1,50}$`)

// registerDomainRules registers custom rule validators
func registerDomainRules(validate *validator.Validate) {
	// Evaluation result must be one of the two known outcomes
	validate.RegisterValidation("evaluation_result", func(fl validator.FieldLevel) bool {
		result := models.EvaluationResult(fl.Field().String())
		return result == models.ResultPassed || result == models.ResultNotReady
	})

	// Whitespace-only strings do not satisfy required
	validate.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	// Membership codes are short alphanumeric identifiers
	validate.RegisterValidation("member_code", func(fl validator.FieldLevel) bool {
		return memberCodePattern.MatchString(fl.Field().String())
	})

	// Quiz passing threshold (0-100)
	validate.RegisterValidation("passing_percentage", func(fl validator.FieldLevel) bool {
		pct := fl.Field().Float()
		return pct >= 0 && pct <= 100
	})
}

// ValidateRecordResultsBulk validates bulk recording; only Passed is accepted
// since NotReady needs a per-member document.
func (v *Validator) ValidateRecordResultsBulk(req *RecordResultsBulkRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, v.Validate(req)...)

	if req.Result != models.ResultPassed {
		errors = append(errors, ValidationError{
			Field:   "result",
			Message: "only the Passed result may be recorded in bulk",
			Value:   req.Result,
			Rule:    "bulk_result",
		})
	}

	return errors
}

// ValidateSubmitQuiz validates a quiz submission. The taker must identify as
// either a member or a named visitor, not both and not neither.
func (v *Validator) ValidateSubmitQuiz(req *SubmitQuizRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, v.Validate(req)...)

	hasCode := req.MemberCode != nil && strings.TrimSpace(*req.MemberCode) != ""
	hasName := req.VisitorName != nil && strings.TrimSpace(*req.VisitorName) != ""

	if !hasCode && !hasName {
		errors = append(errors, ValidationError{
			Field:   "member_code",
			Message: "either member_code or visitor_name must be provided",
			Rule:    "business_logic",
		})
	}
	if hasCode && hasName {
		errors = append(errors, ValidationError{
			Field:   "visitor_name",
			Message: "cannot be combined with member_code",
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateStatusTransition validates evaluation workflow transitions
func (v *Validator) ValidateStatusTransition(currentStatus, newStatus models.EvaluationStatus) ValidationErrors {
	var errors ValidationErrors

	allowedTransitions := map[models.EvaluationStatus][]models.EvaluationStatus{
		models.EvaluationPending:     {models.EvaluationApproved, models.EvaluationDisapproved, models.EvaluationRecorded},
		models.EvaluationApproved:    {models.EvaluationRecorded},
		models.EvaluationDisapproved: {}, // Terminal
		models.EvaluationRecorded:    {}, // Terminal
	}

	allowed := false
	for _, allowedStatus := range allowedTransitions[currentStatus] {
		if newStatus == allowedStatus {
			allowed = true
			break
		}
	}

	if !allowed {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", currentStatus, newStatus),
			Value:   newStatus,
			Rule:    "status_transition",
		})
	}

	return errors
}
