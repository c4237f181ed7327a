package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reality-studio-backend/internal/middleware"
	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/pipeline"
)

type ProductionHandler struct {
	production *pipeline.Production
}

func NewProductionHandler(production *pipeline.Production) *ProductionHandler {
	return &ProductionHandler{production: production}
}

// PromptToProduction godoc
// @Summary     Prompt to production
// @Description Creates a project, its cast and every episode of every season from a single show prompt.
// @Tags        production
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.PromptToProductionRequest true "Show prompt"
// @Success     200 {object} models.PromptToProductionResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     500 {object} models.ErrorResponse
// @Router      /prompt-to-production [post]
func (h *ProductionHandler) PromptToProduction(c *gin.Context) {
	var req models.PromptToProductionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request", err.Error())
		return
	}

	resp, err := h.production.Run(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		respondError(c, "failed to create production", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
