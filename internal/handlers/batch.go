package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reality-studio-backend/internal/batch"
	"reality-studio-backend/internal/models"
)

type BatchHandler struct {
	coordinator *batch.Coordinator
}

func NewBatchHandler(coordinator *batch.Coordinator) *BatchHandler {
	return &BatchHandler{coordinator: coordinator}
}

// BatchRender godoc
// @Summary     Batch video render
// @Description Renders many episode manifests in sequential batches. One failed episode never fails the batch.
// @Tags        render
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.BatchRenderRequest true "Manifests and settings"
// @Success     200 {object} models.BatchRenderResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /batch-video-renderer [post]
func (h *BatchHandler) BatchRender(c *gin.Context) {
	var req models.BatchRenderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request", err.Error())
		return
	}

	resp, err := h.coordinator.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, "failed to render batch", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
