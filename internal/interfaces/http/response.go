package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/tpa-claims/internal/application/service"
	"github.com/garyjia/tpa-claims/internal/domain/workflow"
)

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// TransitionDetails accompanies a rejected transition
type TransitionDetails struct {
	From    workflow.StatusOption   `json:"from"`
	To      workflow.StatusOption   `json:"to"`
	Allowed []workflow.StatusOption `json:"allowed"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, Response{Success: false, Error: message})
}

// respondServiceError maps service and domain errors to a status code.
// Unexpected errors are logged and reported without their internals.
func respondServiceError(c *gin.Context, logger Logger, err error) {
	status := statusForError(err)

	resp := Response{Success: false, Error: err.Error()}

	var terr *workflow.TransitionError
	if errors.As(err, &terr) {
		resp.Details = TransitionDetails{
			From:    terr.From.Option(),
			To:      terr.To.Option(),
			Allowed: workflow.Options(terr.Allowed),
		}
	}

	if status == http.StatusInternalServerError {
		logger.Error("Request failed", "path", c.FullPath(), "error", err)
		resp.Error = "internal server error"
	}

	c.AbortWithStatusJSON(status, resp)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, workflow.ErrInvalidStatusCode),
		errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, workflow.ErrConcurrentModification),
		errors.Is(err, service.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, service.ErrClaimNotFound),
		errors.Is(err, service.ErrEmployeeNotFound),
		errors.Is(err, service.ErrInvoiceNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrExportDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// parseID reads a positive int64 path parameter
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return id, true
}
