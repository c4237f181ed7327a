package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/pipeline"
	"reality-studio-backend/internal/store"
)

// Renderer re-dispatches Phase 4 for an episode.
type Renderer interface {
	Retry(ctx context.Context, episodeID uuid.UUID, settings models.RenderSettings) (*models.Job, error)
	RetryAttempts() int
}

type EpisodesHandler struct {
	orch     *pipeline.Orchestrator
	episodes store.EpisodeStore
	renderer Renderer
	logger   hclog.Logger
}

func NewEpisodesHandler(orch *pipeline.Orchestrator, episodes store.EpisodeStore, renderer Renderer, logger hclog.Logger) *EpisodesHandler {
	return &EpisodesHandler{
		orch:     orch,
		episodes: episodes,
		renderer: renderer,
		logger:   logger.Named("episodes"),
	}
}

// Produce godoc
// @Summary     Produce an episode
// @Description Runs casting, writing, enrichment and storyboard for one episode, then dispatches rendering in the background.
// @Tags        episodes
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       request body models.EpisodeProducerRequest true "Episode and project"
// @Success     200 {object} models.EpisodeProducerResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Failure     500 {object} models.EpisodeProducerResponse
// @Router      /episode-producer [post]
func (h *EpisodesHandler) Produce(c *gin.Context) {
	var req models.EpisodeProducerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request", "episodeId and projectId are required")
		return
	}
	episodeID, err := uuid.Parse(req.EpisodeID)
	if err != nil {
		badRequest(c, "invalid episode id", err.Error())
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		badRequest(c, "invalid project id", err.Error())
		return
	}

	resp, err := h.orch.Produce(c.Request.Context(), pipeline.ProduceRequest{
		ProjectID: projectID,
		EpisodeID: episodeID,
		Prompt:    req.Prompt,
	})
	if err != nil {
		respondError(c, "failed to produce episode", err)
		return
	}
	status := http.StatusOK
	if !resp.Success {
		status = http.StatusInternalServerError
	}
	c.JSON(status, resp)
}

// GetEpisode godoc
// @Summary     Get episode
// @Description Returns the episode record, including its status for polling.
// @Tags        episodes
// @Produce     json
// @Security    Bearer
// @Param       episode_id path string true "Episode ID"
// @Success     200 {object} models.Episode
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Router      /episodes/{episode_id} [get]
func (h *EpisodesHandler) GetEpisode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("episode_id"))
	if err != nil {
		badRequest(c, "invalid episode id", err.Error())
		return
	}
	e, err := h.episodes.GetEpisode(c.Request.Context(), id)
	if err != nil {
		respondError(c, "episode not found", err)
		return
	}
	c.JSON(http.StatusOK, e)
}

// ListEpisodes godoc
// @Summary     List episodes
// @Description Lists a project's episodes ordered by season and number.
// @Tags        episodes
// @Produce     json
// @Security    Bearer
// @Param       project_id path  string true  "Project ID"
// @Param       status     query string false "Episode status"
// @Param       season     query int    false "Season number"
// @Success     200 {object} models.EpisodeListResponse
// @Failure     400 {object} models.ErrorResponse
// @Router      /projects/{project_id}/episodes [get]
func (h *EpisodesHandler) ListEpisodes(c *gin.Context) {
	projectID, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		badRequest(c, "invalid project id", err.Error())
		return
	}

	var filter store.EpisodeFilter
	if s := c.Query("status"); s != "" {
		filter.Status = models.EpisodeStatus(s)
		if !filter.Status.Valid() {
			badRequest(c, "invalid status", s)
			return
		}
	}
	if s := c.Query("season"); s != "" {
		season, err := strconv.Atoi(s)
		if err != nil || season < 1 {
			badRequest(c, "invalid season", s)
			return
		}
		filter.Season = season
	}

	episodes, err := h.episodes.ListEpisodes(c.Request.Context(), projectID, filter)
	if err != nil {
		respondError(c, "failed to list episodes", err)
		return
	}
	if episodes == nil {
		episodes = []models.Episode{}
	}
	c.JSON(http.StatusOK, models.EpisodeListResponse{Episodes: episodes})
}

// RenderEpisode godoc
// @Summary     Retry rendering
// @Description Re-dispatches scene media, manifest and video for an episode with retries.
// @Tags        episodes
// @Accept      json
// @Produce     json
// @Security    Bearer
// @Param       episode_id path string               true  "Episode ID"
// @Param       request    body models.RenderRequest false "Render settings"
// @Success     202 {object} models.RenderDispatchResponse
// @Failure     400 {object} models.ErrorResponse
// @Failure     404 {object} models.ErrorResponse
// @Failure     409 {object} models.ErrorResponse
// @Router      /episodes/{episode_id}/render [post]
func (h *EpisodesHandler) RenderEpisode(c *gin.Context) {
	id, err := uuid.Parse(c.Param("episode_id"))
	if err != nil {
		badRequest(c, "invalid episode id", err.Error())
		return
	}

	var req models.RenderRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid request", err.Error())
			return
		}
	}
	var settings models.RenderSettings
	if req.Settings != nil {
		settings = *req.Settings
	}

	job, err := h.renderer.Retry(c.Request.Context(), id, settings)
	if err != nil {
		respondError(c, "failed to dispatch render", err)
		return
	}
	h.logger.Info("render retry dispatched", "episode_id", id, "job_id", job.ID)
	c.JSON(http.StatusAccepted, models.RenderDispatchResponse{
		EpisodeID: id.String(),
		JobID:     job.ID.String(),
		Status:    job.Status,
		Attempts:  h.renderer.RetryAttempts(),
	})
}
