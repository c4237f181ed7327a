package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/recovery"
	"reality-studio-backend/internal/services"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, stages.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrRenderInFlight), errors.Is(err, models.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes an ErrorResponse. Server errors carry the classifier's
// user message and suggested action instead of the raw error.
func respondError(c *gin.Context, summary string, err error) {
	status := statusFor(err)
	resp := models.ErrorResponse{Error: summary, Message: err.Error()}

	var terminal *recovery.TerminalError
	switch {
	case errors.As(err, &terminal):
		resp.Message = terminal.Message
		resp.SuggestedAction = terminal.SuggestedAction
	case status == http.StatusInternalServerError:
		cl := recovery.Classify(err)
		resp.Message = cl.UserMessage
		resp.SuggestedAction = cl.SuggestedAction
		_ = c.Error(err)
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, summary, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: summary, Message: message})
}
