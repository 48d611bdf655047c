package validator

import (
	"time"

	"github.com/clubcore/evaluation-service/internal/models"
)

// NominateRequest represents the request structure for nominating a member
type NominateRequest struct {
	MemberID      uint      `json:"member_id" validate:"required"`
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
}

// NominateBulkRequest nominates several members for the same evaluation date.
// Members that already hold a Pending evaluation are reported back as skipped,
// not failed.
type NominateBulkRequest struct {
	MemberIDs     []uint    `json:"member_ids" validate:"required,min=1,max=100,dive,required"`
	ScheduledDate time.Time `json:"scheduled_date" validate:"required"`
}

// DisapproveRequest carries the mandatory disapproval reason
type DisapproveRequest struct {
	Reason string `json:"reason" validate:"required,nonblank,max=1000"`
}

// DocumentUpload is the raw uploaded evaluation document. The stored reference
// name is generated by the service, never taken from the client.
type DocumentUpload struct {
	Filename string `json:"filename" validate:"required,max=255"`
	Data     []byte `json:"-" validate:"required"`
}

// RecordResultRequest represents recording a single evaluation result
type RecordResultRequest struct {
	Result   models.EvaluationResult `json:"result" validate:"required,evaluation_result"`
	Document *DocumentUpload         `json:"document"`
}

// RecordResultsBulkRequest records the same outcome for many evaluations at
// once. Only the Passed outcome is accepted in bulk since NotReady requires a
// per-member document.
type RecordResultsBulkRequest struct {
	EvaluationIDs []uint                  `json:"evaluation_ids" validate:"required,min=1,max=200,dive,required"`
	Result        models.EvaluationResult `json:"result" validate:"required,evaluation_result"`
}

// PublicLookupRequest is the unauthenticated result lookup. All three fields
// must match for a row to be returned.
type PublicLookupRequest struct {
	FullName   string `json:"full_name" validate:"required,nonblank,max=100"`
	MemberCode string `json:"member_code" validate:"required,member_code"`
	CoachID    string `json:"coach_id" validate:"required,max=255"`
}

// SubmitQuizRequest represents one quiz submission. Answers map question IDs
// to the selected answer ID; unanswered questions are simply absent, so an
// empty map is a legal (all-wrong) submission.
type SubmitQuizRequest struct {
	MemberCode  *string       `json:"member_code" validate:"omitempty,member_code"`
	VisitorName *string       `json:"visitor_name" validate:"omitempty,nonblank,max=100"`
	Answers     map[uint]uint `json:"answers"`
}

// EvaluationListRequest represents list/filter query parameters
type EvaluationListRequest struct {
	Status    *models.EvaluationStatus `json:"status" form:"status"`
	Result    *models.EvaluationResult `json:"result" form:"result"`
	MemberID  *uint                    `json:"member_id" form:"member_id"`
	DateFrom  *time.Time               `json:"date_from" form:"date_from"`
	DateTo    *time.Time               `json:"date_to" form:"date_to"`
	Limit     int                      `json:"limit" form:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int                      `json:"offset" form:"offset" validate:"omitempty,min=0"`
	SortBy    string                   `json:"sort_by" form:"sort_by"`
	SortOrder string                   `json:"sort_order" form:"sort_order" validate:"omitempty,oneof=asc desc ASC DESC"`
}
