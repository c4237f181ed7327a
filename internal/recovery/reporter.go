package recovery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/store"
)

// Reporter is the reporting sink: every failure becomes an error_logs row
// and moves the service's system_health row.
type Reporter struct {
	telemetry store.Telemetry
	logger    hclog.Logger

	mu     sync.Mutex
	counts map[string]int
}

func NewReporter(telemetry store.Telemetry, logger hclog.Logger) *Reporter {
	return &Reporter{
		telemetry: telemetry,
		logger:    logger.Named("recovery"),
		counts:    make(map[string]int),
	}
}

// Report records err against service and returns the stored entry.
// Telemetry write failures are logged, never returned.
func (r *Reporter) Report(ctx context.Context, service string, attempt int, err error) *models.ErrorLog {
	c := Classify(err)
	entry := &models.ErrorLog{
		ID:              uuid.New(),
		Service:         service,
		Category:        string(c.Category),
		Severity:        string(c.Severity),
		Message:         err.Error(),
		SuggestedAction: c.SuggestedAction,
		Attempt:         attempt,
		CreatedAt:       time.Now().UTC(),
	}
	r.logger.Error("operation failed", "service", service, "attempt", attempt,
		"category", c.Category, "severity", c.Severity, "error", err)

	if werr := r.telemetry.LogError(ctx, entry); werr != nil {
		r.logger.Warn("failed to write error log", "service", service, "error", werr)
	}

	r.mu.Lock()
	r.counts[service]++
	count := r.counts[service]
	r.mu.Unlock()

	status := models.HealthDegraded
	if c.Severity == SeverityCritical {
		status = models.HealthDown
	}
	r.upsert(ctx, models.SystemHealth{
		Service:     service,
		Status:      status,
		LastError:   err.Error(),
		ErrorCount:  count,
		LastChecked: time.Now().UTC(),
	})
	return entry
}

// Resolve marks earlier entries resolved and the service healthy.
func (r *Reporter) Resolve(ctx context.Context, service string, entries ...*models.ErrorLog) {
	for _, e := range entries {
		if err := r.telemetry.ResolveError(ctx, e.ID); err != nil {
			r.logger.Warn("failed to resolve error log", "id", e.ID, "error", err)
		}
	}
	r.Healthy(ctx, service)
}

// Healthy resets the failure count of service.
func (r *Reporter) Healthy(ctx context.Context, service string) {
	r.mu.Lock()
	delete(r.counts, service)
	r.mu.Unlock()
	r.upsert(ctx, models.SystemHealth{
		Service:     service,
		Status:      models.HealthHealthy,
		LastChecked: time.Now().UTC(),
	})
}

func (r *Reporter) upsert(ctx context.Context, h models.SystemHealth) {
	if err := r.telemetry.UpsertHealth(ctx, h); err != nil {
		r.logger.Warn("failed to upsert system health", "service", h.Service, "error", err)
	}
}
