package handlers

import (
	"github.com/gin-gonic/gin"

	"reality-studio-backend/internal/config"
	"reality-studio-backend/internal/middleware"
)

type Handlers struct {
	Episodes   *EpisodesHandler
	Production *ProductionHandler
	Batch      *BatchHandler
	Bots       *BotsHandler
	Jobs       *JobsHandler
}

// NewRouter mounts every route. Pipeline and bot endpoints accept the
// internal key for bot-to-bot calls; everything else needs a bearer token.
func NewRouter(cfg *config.Config, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())

	router.GET("/health", HealthHandler)

	bots := router.Group("/", middleware.InternalOrAuth(cfg))
	bots.POST("/episode-producer", h.Episodes.Produce)
	bots.POST("/batch-video-renderer", h.Batch.BatchRender)
	h.Bots.Register(bots)

	api := router.Group("/", middleware.AuthMiddleware(cfg))
	api.POST("/prompt-to-production", h.Production.PromptToProduction)
	api.GET("/episodes/:episode_id", h.Episodes.GetEpisode)
	api.POST("/episodes/:episode_id/render", h.Episodes.RenderEpisode)
	api.GET("/projects/:project_id/episodes", h.Episodes.ListEpisodes)
	api.GET("/jobs/:job_id", h.Jobs.GetJob)

	return router
}
