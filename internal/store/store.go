// Package store declares the persistence collaborators of the production
// pipeline and ships an in-memory implementation of each.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"reality-studio-backend/internal/models"
)

var ErrNotFound = errors.New("record not found")

type ProjectStore interface {
	CreateProject(ctx context.Context, p *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
}

type CharacterStore interface {
	CreateCharacters(ctx context.Context, chars []models.Character) error
	ListCharacters(ctx context.Context, projectID uuid.UUID) ([]models.Character, error)
}

// EpisodeFilter narrows ListEpisodes. Zero values match everything.
type EpisodeFilter struct {
	Status models.EpisodeStatus
	Season int
}

func (f EpisodeFilter) Match(e *models.Episode) bool {
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.Season > 0 && e.Season != f.Season {
		return false
	}
	return true
}

// EpisodeStore is last-write-wins. UpdateEpisode validates status
// transitions and bumps StatusVersion on every status write.
type EpisodeStore interface {
	GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error)
	ListEpisodes(ctx context.Context, projectID uuid.UUID, filter EpisodeFilter) ([]models.Episode, error)
	CreateEpisode(ctx context.Context, e *models.Episode) error
	UpdateEpisode(ctx context.Context, id uuid.UUID, upd models.EpisodeUpdate) (*models.Episode, error)
	DeleteEpisode(ctx context.Context, id uuid.UUID) error
}

type JobStore interface {
	CreateJob(ctx context.Context, j *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	FinishJob(ctx context.Context, id uuid.UUID, status models.JobStatus, errMsg string) error
	MarkJobRunning(ctx context.Context, id uuid.UUID) error
	ListStaleJobs(ctx context.Context, startedBefore time.Time) ([]models.Job, error)
}

type Store interface {
	ProjectStore
	CharacterStore
	EpisodeStore
	JobStore
}

// Telemetry receives append-only observability rows.
type Telemetry interface {
	RecordStat(ctx context.Context, stat models.BotExecutionStat) error
	LogError(ctx context.Context, entry *models.ErrorLog) error
	ResolveError(ctx context.Context, id uuid.UUID) error
	UpsertHealth(ctx context.Context, h models.SystemHealth) error
}

// MediaStore uploads generated assets and returns their public URL. Paths
// are chosen by the caller; there is no dedup.
type MediaStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
}

// NextEpisodeNumber returns one past the highest episode number of a season.
func NextEpisodeNumber(episodes []models.Episode, season int) int {
	next := 1
	for _, e := range episodes {
		if e.Season == season && e.EpisodeNumber >= next {
			next = e.EpisodeNumber + 1
		}
	}
	return next
}
