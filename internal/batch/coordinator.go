// Package batch renders many episodes in fixed-size waves and reports one
// aggregate result.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/render"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

const DefaultSize = 3

const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
)

// Coordinator runs batches strictly one after another; items inside a
// batch run concurrently and never affect each other.
type Coordinator struct {
	episodes store.EpisodeStore
	video    render.VideoBackend
	size     int
	logger   hclog.Logger
}

func NewCoordinator(episodes store.EpisodeStore, video render.VideoBackend, size int, logger hclog.Logger) *Coordinator {
	if size < 1 {
		size = DefaultSize
	}
	return &Coordinator{episodes: episodes, video: video, size: size, logger: logger.Named("batch")}
}

// Batches splits n item indexes into consecutive groups of size.
func Batches(n, size int) [][]int {
	if size < 1 {
		size = DefaultSize
	}
	var out [][]int
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		group := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			group = append(group, i)
		}
		out = append(out, group)
	}
	return out
}

func (c *Coordinator) Run(ctx context.Context, req models.BatchRenderRequest) (*models.BatchRenderResponse, error) {
	if len(req.EpisodeManifests) == 0 {
		return nil, fmt.Errorf("%w: episode_manifests is required", stages.ErrValidation)
	}
	settings := req.Settings.WithDefaults()
	start := time.Now()
	results := make([]models.BatchResult, len(req.EpisodeManifests))

	batches := Batches(len(req.EpisodeManifests), c.size)
	for n, group := range batches {
		c.logger.Info("batch started", "batch", n+1, "of", len(batches), "items", len(group))
		var g errgroup.Group
		for _, i := range group {
			item := req.EpisodeManifests[i]
			itemSettings := settings
			if i < len(req.OutputPaths) && req.OutputPaths[i] != "" {
				itemSettings.OutputPath = req.OutputPaths[i]
			}
			g.Go(func() error {
				results[i] = c.renderOne(ctx, item, itemSettings)
				return nil
			})
		}
		_ = g.Wait()
	}

	resp := &models.BatchRenderResponse{
		Success:             true,
		TotalEpisodes:       len(results),
		TotalProcessingTime: time.Since(start).Milliseconds(),
		Results:             results,
	}
	for _, r := range results {
		if r.Status == ResultCompleted {
			resp.SuccessCount++
		} else {
			resp.FailCount++
		}
	}
	c.logger.Info("batch render finished", "total", resp.TotalEpisodes, "succeeded", resp.SuccessCount, "failed", resp.FailCount)
	return resp, nil
}

func (c *Coordinator) renderOne(ctx context.Context, item models.EpisodeManifestInput, settings models.RenderSettings) (res models.BatchResult) {
	start := time.Now()
	res = models.BatchResult{EpisodeNumber: item.EpisodeNumber, Title: item.Title}

	id, err := uuid.Parse(item.EpisodeID)
	if err != nil {
		return c.failed(ctx, res, start, fmt.Errorf("invalid episode id %q", item.EpisodeID))
	}
	res.EpisodeID = id

	defer func() {
		if r := recover(); r != nil {
			res = c.failed(ctx, res, start, fmt.Errorf("render panicked: %v", r))
		}
	}()

	e, err := c.episodes.GetEpisode(ctx, id)
	if err != nil {
		return c.failed(ctx, res, start, err)
	}
	if res.EpisodeNumber == 0 {
		res.EpisodeNumber = e.EpisodeNumber
	}
	if res.Title == "" {
		res.Title = e.Title
	}

	manifest := item.Manifest
	if manifest == nil {
		manifest = e.Manifest
	}
	if manifest == nil {
		return c.failed(ctx, res, start, models.ErrEmptyManifest)
	}
	if manifest.EpisodeID == uuid.Nil {
		manifest.EpisodeID = id
	}
	if err := manifest.Validate(); err != nil {
		return c.failed(ctx, res, start, err)
	}

	now := time.Now().UTC()
	rendering := models.StatusRendering
	if _, err := c.episodes.UpdateEpisode(ctx, id, models.EpisodeUpdate{Status: &rendering, RenderStartedAt: &now}); err != nil {
		return c.failed(ctx, res, start, err)
	}

	url, err := c.video.Render(ctx, manifest, settings)
	if err != nil {
		return c.failed(ctx, res, start, err)
	}

	completed, done := models.StatusCompleted, time.Now().UTC()
	if _, err := c.episodes.UpdateEpisode(ctx, id, models.EpisodeUpdate{
		Status:            &completed,
		VideoURL:          &url,
		RenderCompletedAt: &done,
	}); err != nil {
		return c.failed(ctx, res, start, err)
	}
	res.Status = ResultCompleted
	res.VideoURL = url
	res.ProcessingTimeMs = time.Since(start).Milliseconds()
	return res
}

// failed records the failure on the episode, when there is one, before the
// coordinator moves on.
func (c *Coordinator) failed(ctx context.Context, res models.BatchResult, start time.Time, err error) models.BatchResult {
	res.Status = ResultFailed
	res.Error = err.Error()
	res.ProcessingTimeMs = time.Since(start).Milliseconds()
	if res.EpisodeID != uuid.Nil {
		if _, uerr := c.episodes.UpdateEpisode(ctx, res.EpisodeID, models.FailureUpdate(res.Error)); uerr != nil {
			c.logger.Warn("failed to mark episode failed", "episode_id", res.EpisodeID, "error", uerr)
		}
	}
	c.logger.Warn("episode render failed", "episode_id", res.EpisodeID, "episode_number", res.EpisodeNumber, "error", err)
	return res
}
