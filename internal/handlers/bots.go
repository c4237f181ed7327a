package handlers

import (
	"encoding/json"
	"io"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"

	"reality-studio-backend/internal/stages"
)

// BotsHandler exposes every registered stage as POST /<kind>.
type BotsHandler struct {
	registry *stages.Registry
	logger   hclog.Logger
}

func NewBotsHandler(registry *stages.Registry, logger hclog.Logger) *BotsHandler {
	return &BotsHandler{registry: registry, logger: logger.Named("bots")}
}

// Register mounts one route per stage kind on r.
func (h *BotsHandler) Register(r gin.IRoutes) {
	for _, k := range h.registry.Kinds() {
		r.POST("/"+string(k), h.Run(k))
	}
}

// Run godoc
// @Summary     Run a single stage
// @Description Runs one pipeline stage. Replies {success:true, ...payload} or {success:false, error}.
// @Tags        bots
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Success     200 {object} map[string]interface{}
// @Failure     400 {object} map[string]interface{}
// @Failure     500 {object} map[string]interface{}
// @Router      /{kind} [post]
func (h *BotsHandler) Run(kind stages.Kind) gin.HandlerFunc {
	runner, ok := h.registry.Get(kind)
	return func(c *gin.Context) {
		if !ok {
			env := stages.Fail(nil)
			c.JSON(env.HTTPStatus(), env)
			return
		}
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			env := stages.Fail(err)
			c.JSON(env.HTTPStatus(), env)
			return
		}

		start := time.Now()
		env := runner.Run(c.Request.Context(), json.RawMessage(body))
		h.logger.Debug("stage ran", "kind", kind, "success", env.Success, "elapsed", time.Since(start))
		if !env.Success {
			h.logger.Warn("stage failed", "kind", kind, "error", env.Error)
		}
		c.JSON(env.HTTPStatus(), env)
	}
}
