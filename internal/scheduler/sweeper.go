package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/store"
)

const (
	SweeperServiceName = "render-service"
	sweepTimeout       = time.Minute
)

// Sweeper fails render jobs that stopped reporting, so an episode never
// stays rendering forever after a crash.
type Sweeper struct {
	store     store.Store
	telemetry store.Telemetry
	after     time.Duration
	logger    hclog.Logger
	now       func() time.Time
}

func NewSweeper(st store.Store, telemetry store.Telemetry, after time.Duration, logger hclog.Logger) *Sweeper {
	if after <= 0 {
		after = 30 * time.Minute
	}
	return &Sweeper{store: st, telemetry: telemetry, after: after, logger: logger.Named("sweeper"), now: time.Now}
}

// Run implements cron.Job.
func (s *Sweeper) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("sweep failed", "error", err)
	}
}

// Sweep fails every job started before the staleness cutoff and returns
// how many were swept.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.after)
	stale, err := s.store.ListStaleJobs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list stale jobs: %w", err)
	}

	swept := 0
	for _, j := range stale {
		msg := fmt.Sprintf("render job orphaned: no result since %s", j.StartedAt.Format(time.RFC3339))
		if err := s.store.FinishJob(ctx, j.ID, models.JobFailed, msg); err != nil {
			s.logger.Warn("failed to fail stale job", "job_id", j.ID, "error", err)
			continue
		}
		swept++
		s.failEpisode(ctx, j, msg)
	}

	h := models.SystemHealth{Service: SweeperServiceName, Status: models.HealthHealthy, LastChecked: s.now().UTC()}
	if swept > 0 {
		h.Status = models.HealthDegraded
		h.ErrorCount = swept
		h.LastError = fmt.Sprintf("%d orphaned render job(s) swept", swept)
		s.logger.Warn("swept orphaned jobs", "count", swept)
	}
	if err := s.telemetry.UpsertHealth(ctx, h); err != nil {
		s.logger.Warn("failed to upsert health", "error", err)
	}
	return swept, nil
}

func (s *Sweeper) failEpisode(ctx context.Context, j models.Job, msg string) {
	e, err := s.store.GetEpisode(ctx, j.EpisodeID)
	if err != nil {
		s.logger.Warn("stale job episode missing", "job_id", j.ID, "episode_id", j.EpisodeID, "error", err)
		return
	}
	if e.Status != models.StatusRendering && e.Status != models.StatusProcessing {
		return
	}
	if _, err := s.store.UpdateEpisode(ctx, e.ID, models.FailureUpdate(msg)); err != nil {
		s.logger.Warn("failed to fail orphaned episode", "episode_id", e.ID, "error", err)
	}
}
