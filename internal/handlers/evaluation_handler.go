package handlers

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/clubcore/evaluation-service/internal/models"
	"github.com/clubcore/evaluation-service/internal/repositories"
	"github.com/clubcore/evaluation-service/internal/services"
	"github.com/clubcore/evaluation-service/internal/utils"
	"github.com/clubcore/evaluation-service/internal/validator"
)

// maxDocumentSize caps one evidence-file upload.
const maxDocumentSize = 10 << 20

type EvaluationHandler struct {
	BaseHandler
	evaluationService services.EvaluationService
	exportService     services.ExportService
	validator         *validator.Validator
}

func NewEvaluationHandler(
	evaluationService services.EvaluationService,
	exportService services.ExportService,
	validator *validator.Validator,
	logger utils.Logger,
) *EvaluationHandler {
	return &EvaluationHandler{
		BaseHandler:       NewBaseHandler(logger),
		evaluationService: evaluationService,
		exportService:     exportService,
		validator:         validator,
	}
}

// Nominate creates a Pending evaluation for one member
// @Summary Nominate member
// @Tags evaluations
// @Accept json
// @Produce json
// @Param nomination body services.NominateRequest true "Nomination data"
// @Success 201 {object} services.EvaluationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /evaluations [post]
func (h *EvaluationHandler) Nominate(c *gin.Context) {
	var req services.NominateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Nominating member", "member_id", req.MemberID)

	resp, err := h.evaluationService.Nominate(c.Request.Context(), principalFromContext(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// NominateBulk nominates several members for the same date
// @Summary Bulk nominate members
// @Tags evaluations
// @Accept json
// @Produce json
// @Param nomination body services.NominateBulkRequest true "Bulk nomination data"
// @Success 201 {object} services.NominateBulkResponse
// @Router /evaluations/bulk [post]
func (h *EvaluationHandler) NominateBulk(c *gin.Context) {
	var req services.NominateBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Bulk nominating members", "count", len(req.MemberIDs))

	resp, err := h.evaluationService.NominateBulk(c.Request.Context(), principalFromContext(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetEvaluation retrieves an evaluation by ID
// @Summary Get evaluation
// @Tags evaluations
// @Produce json
// @Param id path uint true "Evaluation ID"
// @Success 200 {object} services.EvaluationResponse
// @Failure 404 {object} ErrorResponse
// @Router /evaluations/{id} [get]
func (h *EvaluationHandler) GetEvaluation(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Getting evaluation", "evaluation_id", id)

	resp, err := h.evaluationService.GetByID(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListEvaluations lists evaluations visible to the caller
// @Summary List evaluations
// @Tags evaluations
// @Produce json
// @Param status query string false "Filter by status"
// @Param member_id query uint false "Filter by member"
// @Success 200 {object} services.EvaluationListResponse
// @Router /evaluations [get]
func (h *EvaluationHandler) ListEvaluations(c *gin.Context) {
	var req services.EvaluationListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Listing evaluations")

	resp, err := h.evaluationService.List(c.Request.Context(), principalFromContext(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetStats returns evaluation statistics for the caller's scope
// @Summary Evaluation statistics
// @Tags evaluations
// @Produce json
// @Success 200 {object} repositories.EvaluationStats
// @Router /evaluations/stats [get]
func (h *EvaluationHandler) GetStats(c *gin.Context) {
	h.LogRequest(c, "Getting evaluation stats")

	stats, err := h.evaluationService.GetStats(c.Request.Context(), principalFromContext(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// Approve moves a Pending evaluation to Approved
// @Summary Approve evaluation
// @Tags evaluations
// @Produce json
// @Param id path uint true "Evaluation ID"
// @Success 200 {object} services.EvaluationResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /evaluations/{id}/approve [post]
func (h *EvaluationHandler) Approve(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Approving evaluation", "evaluation_id", id)

	resp, err := h.evaluationService.Approve(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Disapprove moves a Pending evaluation to Disapproved with a reason
// @Summary Disapprove evaluation
// @Tags evaluations
// @Accept json
// @Produce json
// @Param id path uint true "Evaluation ID"
// @Param disapproval body services.DisapproveRequest true "Disapproval reason"
// @Success 200 {object} services.EvaluationResponse
// @Router /evaluations/{id}/disapprove [post]
func (h *EvaluationHandler) Disapprove(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.DisapproveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Disapproving evaluation", "evaluation_id", id)

	resp, err := h.evaluationService.Disapprove(c.Request.Context(), principalFromContext(c), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RecordResult records a pass/fail result, optionally with an evidence
// document. Accepts multipart/form-data (result + document file) or plain
// JSON when no file is attached.
// @Summary Record evaluation result
// @Tags evaluations
// @Accept json,mpfd
// @Produce json
// @Param id path uint true "Evaluation ID"
// @Success 200 {object} services.EvaluationResponse
// @Router /evaluations/{id}/result [post]
func (h *EvaluationHandler) RecordResult(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	req, ok := h.bindRecordResultRequest(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Recording evaluation result", "evaluation_id", id, "result", req.Result)

	resp, err := h.evaluationService.RecordResult(c.Request.Context(), principalFromContext(c), id, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *EvaluationHandler) bindRecordResultRequest(c *gin.Context) (*services.RecordResultRequest, bool) {
	if !strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		var req services.RecordResultRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Message: "Invalid request payload",
				Details: err.Error(),
			})
			return nil, false
		}
		return &req, true
	}

	req := &services.RecordResultRequest{
		Result: models.EvaluationResult(c.PostForm("result")),
	}

	fileHeader, err := c.FormFile("document")
	if err != nil {
		// No file attached is fine for a Passed result.
		return req, true
	}
	if fileHeader.Size > maxDocumentSize {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Document exceeds the maximum upload size",
			Details: fmt.Sprintf("limit is %d bytes", maxDocumentSize),
		})
		return nil, false
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read uploaded document",
			Details: err.Error(),
		})
		return nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxDocumentSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Failed to read uploaded document",
			Details: err.Error(),
		})
		return nil, false
	}

	req.Document = &services.DocumentUpload{
		Filename: fileHeader.Filename,
		Data:     data,
	}
	return req, true
}

// RecordResultsBulk records the Passed outcome for many evaluations
// @Summary Bulk record results
// @Tags evaluations
// @Accept json
// @Produce json
// @Param request body services.RecordResultsBulkRequest true "Evaluation IDs"
// @Success 200 {object} services.RecordResultsBulkResponse
// @Router /evaluations/results/bulk [post]
func (h *EvaluationHandler) RecordResultsBulk(c *gin.Context) {
	var req services.RecordResultsBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Bulk recording results", "count", len(req.EvaluationIDs))

	resp, err := h.evaluationService.RecordResultsBulk(c.Request.Context(), principalFromContext(c), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteEvaluation hard-deletes one evaluation (admin only)
// @Summary Delete evaluation
// @Tags evaluations
// @Param id path uint true "Evaluation ID"
// @Success 204
// @Failure 403 {object} ErrorResponse
// @Router /evaluations/{id} [delete]
func (h *EvaluationHandler) DeleteEvaluation(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Deleting evaluation", "evaluation_id", id)

	deleted, err := h.evaluationService.Delete(c.Request.Context(), principalFromContext(c), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if deleted == 0 {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Evaluation not found",
		})
		return
	}

	c.Status(http.StatusNoContent)
}

// DeleteEvaluationsBatch hard-deletes several evaluations (admin only)
// @Summary Delete evaluations
// @Tags evaluations
// @Accept json
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /evaluations/batch [delete]
func (h *EvaluationHandler) DeleteEvaluationsBatch(c *gin.Context) {
	var req struct {
		IDs []uint `json:"ids" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Deleting evaluations", "count", len(req.IDs))

	deleted, err := h.evaluationService.Delete(c.Request.Context(), principalFromContext(c), req.IDs...)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Evaluations deleted",
		Data:    gin.H{"deleted": deleted},
	})
}

// PublicLookup is the unauthenticated result lookup. All three fields must
// match; at most the most recent Recorded evaluation is returned.
// @Summary Public result lookup
// @Tags public
// @Accept json
// @Produce json
// @Param lookup body services.PublicLookupRequest true "Lookup key"
// @Success 200 {object} services.PublicEvaluationResponse
// @Failure 404 {object} ErrorResponse
// @Router /public/results/lookup [post]
func (h *EvaluationHandler) PublicLookup(c *gin.Context) {
	var req services.PublicLookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Public result lookup", "member_code", req.MemberCode)

	resp, err := h.evaluationService.PublicLookup(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ExportEvaluations streams an XLSX report of evaluations
// @Summary Export evaluations
// @Tags evaluations
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /evaluations/export [get]
func (h *EvaluationHandler) ExportEvaluations(c *gin.Context) {
	h.LogRequest(c, "Exporting evaluations")

	filters := parseExportFilters(c)
	data, filename, err := h.exportService.ExportEvaluations(c.Request.Context(), principalFromContext(c), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func parseExportFilters(c *gin.Context) repositories.EvaluationFilters {
	var filters repositories.EvaluationFilters

	if raw := c.Query("status"); raw != "" {
		status := models.EvaluationStatus(raw)
		filters.Status = &status
	}
	if raw := c.Query("result"); raw != "" {
		result := models.EvaluationResult(raw)
		filters.Result = &result
	}
	if raw := c.Query("member_id"); raw != "" {
		if id, err := strconv.ParseUint(raw, 10, 32); err == nil {
			memberID := uint(id)
			filters.MemberID = &memberID
		}
	}

	return filters
}
