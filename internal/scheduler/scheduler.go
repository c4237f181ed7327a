// Package scheduler runs periodic maintenance on a cron schedule.
package scheduler

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/robfig/cron/v3"
)

type Scheduler struct {
	cron   *cron.Cron
	logger hclog.Logger
}

// New registers the sweeper under spec, a six-field cron expression with
// seconds. An empty spec leaves the sweeper unscheduled.
func New(spec string, sweeper cron.Job, logger hclog.Logger) (*Scheduler, error) {
	logger = logger.Named("scheduler")
	c := cron.New(cron.WithSeconds())
	if spec == "" {
		logger.Warn("no sweep schedule configured, orphaned jobs will not be swept")
	} else {
		if _, err := c.AddJob(spec, sweeper); err != nil {
			return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
		}
		logger.Info("sweeper registered", "spec", spec)
	}
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start is non-blocking.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		s.logger.Info("scheduler stopped")
	case <-time.After(10 * time.Second):
		s.logger.Warn("scheduler stop timed out, jobs may still be running")
	}
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
