package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/tpa-claims/internal/application/service"
	"github.com/garyjia/tpa-claims/internal/domain/entity"
	"github.com/garyjia/tpa-claims/internal/domain/workflow"
	"github.com/garyjia/tpa-claims/internal/metrics"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ClaimHandlers serves the claim lifecycle endpoints
type ClaimHandlers struct {
	claims         service.ClaimService
	metrics        *metrics.Metrics
	maxUploadBytes int64
	logger         Logger
}

// NewClaimHandlers creates a new ClaimHandlers instance
func NewClaimHandlers(claims service.ClaimService, m *metrics.Metrics, maxUploadBytes int64, logger Logger) *ClaimHandlers {
	return &ClaimHandlers{
		claims:         claims,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

// CreateClaimRequest is the body of POST /api/claims
type CreateClaimRequest struct {
	EmployeeID  int64  `json:"employee_id" binding:"required"`
	InvoiceID   *int64 `json:"invoice_id"`
	TotalAmount int64  `json:"total_amount"`
	Description string `json:"description"`
}

// TransitionRequest is the body of POST /api/claims/:id/transition.
// Version, when given, is the claim version the caller decided on.
type TransitionRequest struct {
	Status  *int   `json:"status" binding:"required"`
	Note    string `json:"note"`
	Version *int64 `json:"version"`
}

// AddNoteRequest is the body of POST /api/claims/:id/notes
type AddNoteRequest struct {
	Body       string `json:"body" binding:"required"`
	NoteType   string `json:"note_type"`
	IsInternal bool   `json:"is_internal"`
}

// ClaimResponse is a claim with its status label and the statuses it may move to
type ClaimResponse struct {
	*entity.Claim
	StatusLabel  string                  `json:"status_label"`
	NextStatuses []workflow.StatusOption `json:"next_statuses"`
}

func (h *ClaimHandlers) toResponse(claim *entity.Claim) ClaimResponse {
	return ClaimResponse{
		Claim:        claim,
		StatusLabel:  claim.Status.Label(),
		NextStatuses: h.claims.NextStatuses(claim),
	}
}

// ListStatuses handles GET /api/claims/statuses
func (h *ClaimHandlers) ListStatuses(c *gin.Context) {
	respond(c, http.StatusOK, h.claims.Statuses())
}

// CreateClaim handles POST /api/claims
func (h *ClaimHandlers) CreateClaim(c *gin.Context) {
	var req CreateClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	claim, err := h.claims.CreateClaim(c.Request.Context(), actorID(c), service.CreateClaimInput{
		EmployeeID:  req.EmployeeID,
		InvoiceID:   req.InvoiceID,
		TotalAmount: req.TotalAmount,
		Description: req.Description,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, h.toResponse(claim))
}

// GetClaim handles GET /api/claims/:id
func (h *ClaimHandlers) GetClaim(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	claim, err := h.claims.GetClaim(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, h.toResponse(claim))
}

// ListNextStatuses handles GET /api/claims/:id/next-statuses
func (h *ClaimHandlers) ListNextStatuses(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	claim, err := h.claims.GetClaim(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, h.claims.NextStatuses(claim))
}

// TransitionClaim handles POST /api/claims/:id/transition
func (h *ClaimHandlers) TransitionClaim(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	claim, err := h.claims.GetClaim(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	if req.Version != nil {
		claim.Version = *req.Version
	}

	updated, err := h.claims.TransitionClaim(c.Request.Context(), actorID(c), claim, *req.Status, req.Note)
	if err != nil {
		h.metrics.RecordTransitionFailure(failureKind(err))
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusOK, h.toResponse(updated))
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, workflow.ErrInvalidStatusCode):
		return metrics.FailureInvalidStatus
	case errors.Is(err, workflow.ErrInvalidTransition):
		return metrics.FailureInvalidTransition
	case errors.Is(err, workflow.ErrConcurrentModification):
		return metrics.FailureConflict
	default:
		return metrics.FailureInternal
	}
}

// AddNote handles POST /api/claims/:id/notes
func (h *ClaimHandlers) AddNote(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req AddNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	note, err := h.claims.AddNote(c.Request.Context(), actorID(c), id, service.AddNoteInput{
		Body:       req.Body,
		NoteType:   req.NoteType,
		IsInternal: req.IsInternal,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, note)
}

// AddAttachment handles POST /api/claims/:id/attachments (multipart field
// "file", optional field "document_type_id")
func (h *ClaimHandlers) AddAttachment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, fmt.Sprintf("attachment exceeds %d bytes", h.maxUploadBytes))
			return
		}
		respondError(c, http.StatusBadRequest, "multipart field \"file\" is required")
		return
	}

	var docType *int64
	if raw := c.PostForm("document_type_id"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid document_type_id")
			return
		}
		docType = &v
	}

	f, err := fileHeader.Open()
	if err != nil {
		respondError(c, http.StatusBadRequest, "cannot read uploaded file")
		return
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		respondError(c, http.StatusBadRequest, "cannot read uploaded file")
		return
	}

	att, err := h.claims.AddAttachment(c.Request.Context(), actorID(c), id, service.AttachmentUpload{
		File: entity.AttachmentFile{
			Content:  content,
			FileName: fileHeader.Filename,
			MimeType: fileHeader.Header.Get("Content-Type"),
		},
		DocumentTypeID: docType,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, att)
}

// ExportSettlement handles GET /api/claims/:id/settlement
func (h *ClaimHandlers) ExportSettlement(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	data, err := h.claims.ExportSettlement(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="settlement-%d.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}
