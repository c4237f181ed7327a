package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

const JobKindRender = "render"

// Job tracks one detached background task. It is written before the task is
// dispatched so orphaned work stays visible.
type Job struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	EpisodeID  uuid.UUID  `json:"episode_id"`
	Status     JobStatus  `json:"status"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// BotExecutionStat is an append-only audit row for one stage run.
type BotExecutionStat struct {
	ID            uuid.UUID       `json:"id"`
	BotType       string          `json:"bot_type"`
	EpisodeID     *uuid.UUID      `json:"episode_id,omitempty"`
	ExecutionTime int64           `json:"execution_time_ms"`
	QualityScore  float64         `json:"quality_score"`
	Success       bool            `json:"success"`
	Metadata      json.RawMessage `json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ErrorLog struct {
	ID              uuid.UUID  `json:"id"`
	Service         string     `json:"service"`
	Category        string     `json:"category"`
	Severity        string     `json:"severity"`
	Message         string     `json:"message"`
	SuggestedAction string     `json:"suggested_action,omitempty"`
	Attempt         int        `json:"attempt"`
	Resolved        bool       `json:"resolved"`
	ResolvedAt      *time.Time `json:"resolved_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
	HealthDown     = "down"
)

// SystemHealth rows are upserted keyed by service name.
type SystemHealth struct {
	Service     string    `json:"service_name"`
	Status      string    `json:"status"`
	LastError   string    `json:"last_error,omitempty"`
	ErrorCount  int       `json:"error_count"`
	LastChecked time.Time `json:"last_checked"`
}
