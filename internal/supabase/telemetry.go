package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/store"
)

const (
	tableStats     = "bot_execution_stats"
	tableErrorLogs = "error_logs"
	tableHealth    = "system_health"
)

// TelemetryClient writes observability rows through PostgREST. Writes are
// append-only except for health, which is upserted on service_name.
type TelemetryClient struct {
	client *Client
}

func NewTelemetryClient(client *Client) *TelemetryClient {
	return &TelemetryClient{client: client}
}

var _ store.Telemetry = (*TelemetryClient)(nil)

type statRow struct {
	ID            uuid.UUID       `json:"id"`
	BotType       string          `json:"bot_type"`
	EpisodeID     *uuid.UUID      `json:"episode_id"`
	ExecutionTime int64           `json:"execution_time_ms"`
	QualityScore  float64         `json:"quality_score"`
	Success       bool            `json:"success"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (t *TelemetryClient) RecordStat(_ context.Context, stat models.BotExecutionStat) error {
	if stat.ID == uuid.Nil {
		stat.ID = uuid.New()
	}
	if stat.CreatedAt.IsZero() {
		stat.CreatedAt = time.Now().UTC()
	}
	row := statRow(stat)
	_, _, err := t.client.Supabase.From(tableStats).Insert(row, false, "", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to record %s stat: %w", stat.BotType, err)
	}
	return nil
}

func (t *TelemetryClient) LogError(_ context.Context, entry *models.ErrorLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, _, err := t.client.Supabase.From(tableErrorLogs).Insert(entry, false, "", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to log %s error: %w", entry.Service, err)
	}
	return nil
}

func (t *TelemetryClient) ResolveError(_ context.Context, id uuid.UUID) error {
	patch := map[string]any{"resolved": true, "resolved_at": time.Now().UTC()}
	_, _, err := t.client.Supabase.From(tableErrorLogs).
		Update(patch, "minimal", "").
		Eq("id", id.String()).
		Execute()
	if err != nil {
		return fmt.Errorf("failed to resolve error log %s: %w", id, err)
	}
	return nil
}

func (t *TelemetryClient) UpsertHealth(_ context.Context, h models.SystemHealth) error {
	if h.LastChecked.IsZero() {
		h.LastChecked = time.Now().UTC()
	}
	_, _, err := t.client.Supabase.From(tableHealth).Upsert(h, "service_name", "minimal", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to upsert %s health: %w", h.Service, err)
	}
	return nil
}
