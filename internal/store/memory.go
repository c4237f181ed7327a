package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"reality-studio-backend/internal/models"
)

// Memory implements Store, Telemetry and MediaStore in process. It backs
// development runs without DATABASE_URL and the test suites.
type Memory struct {
	mu         sync.RWMutex
	projects   map[uuid.UUID]models.Project
	characters map[uuid.UUID][]models.Character
	episodes   map[uuid.UUID]models.Episode
	jobs       map[uuid.UUID]models.Job
	stats      []models.BotExecutionStat
	errorLogs  map[uuid.UUID]models.ErrorLog
	health     map[string]models.SystemHealth
	objects    map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{
		projects:   make(map[uuid.UUID]models.Project),
		characters: make(map[uuid.UUID][]models.Character),
		episodes:   make(map[uuid.UUID]models.Episode),
		jobs:       make(map[uuid.UUID]models.Job),
		errorLogs:  make(map[uuid.UUID]models.ErrorLog),
		health:     make(map[string]models.SystemHealth),
		objects:    make(map[string][]byte),
	}
}

func (m *Memory) CreateProject(_ context.Context, p *models.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	m.projects[p.ID] = *p
	return nil
}

func (m *Memory) GetProject(_ context.Context, id uuid.UUID) (*models.Project, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return &p, nil
}

func (m *Memory) CreateCharacters(_ context.Context, chars []models.Character) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now().UTC()
	for i := range chars {
		if chars[i].ID == uuid.Nil {
			chars[i].ID = uuid.New()
		}
		chars[i].CreatedAt = now
		m.characters[chars[i].ProjectID] = append(m.characters[chars[i].ProjectID], chars[i])
	}
	return nil
}

func (m *Memory) ListCharacters(_ context.Context, projectID uuid.UUID) ([]models.Character, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Character{}, m.characters[projectID]...), nil
}

func (m *Memory) GetEpisode(_ context.Context, id uuid.UUID) (*models.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, ErrNotFound)
	}
	return cloneEpisode(e), nil
}

func (m *Memory) ListEpisodes(_ context.Context, projectID uuid.UUID, filter EpisodeFilter) ([]models.Episode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Episode
	for _, e := range m.episodes {
		if e.ProjectID != projectID || !filter.Match(&e) {
			continue
		}
		out = append(out, *cloneEpisode(e))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].EpisodeNumber < out[j].EpisodeNumber
	})
	return out, nil
}

func (m *Memory) CreateEpisode(_ context.Context, e *models.Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = models.StatusNotStarted
	}
	if e.Season == 0 {
		e.Season = 1
	}
	now := time.Now().UTC()
	e.CreatedAt, e.UpdatedAt = now, now
	m.episodes[e.ID] = *cloneEpisode(*e)
	return nil
}

func (m *Memory) UpdateEpisode(_ context.Context, id uuid.UUID, upd models.EpisodeUpdate) (*models.Episode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.episodes[id]
	if !ok {
		return nil, fmt.Errorf("episode %s: %w", id, ErrNotFound)
	}
	if upd.Status != nil {
		if err := models.CheckTransition(e.Status, *upd.Status); err != nil {
			return nil, err
		}
	}
	upd.Apply(&e)
	e.UpdatedAt = time.Now().UTC()
	m.episodes[id] = e
	return cloneEpisode(e), nil
}

func (m *Memory) DeleteEpisode(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.episodes, id)
	return nil
}

func (m *Memory) CreateJob(_ context.Context, j *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.StartedAt.IsZero() {
		j.StartedAt = time.Now().UTC()
	}
	m.jobs[j.ID] = *j
	return nil
}

func (m *Memory) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	j, ok := m.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return &j, nil
}

func (m *Memory) MarkJobRunning(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	j.Status = models.JobRunning
	m.jobs[id] = j
	return nil
}

func (m *Memory) FinishJob(_ context.Context, id uuid.UUID, status models.JobStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	now := time.Now().UTC()
	j.Status = status
	j.Error = errMsg
	j.FinishedAt = &now
	m.jobs[id] = j
	return nil
}

func (m *Memory) ListStaleJobs(_ context.Context, startedBefore time.Time) ([]models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Job
	for _, j := range m.jobs {
		if (j.Status == models.JobRunning || j.Status == models.JobQueued) && j.StartedAt.Before(startedBefore) {
			out = append(out, j)
		}
	}
	return out, nil
}

func (m *Memory) RecordStat(_ context.Context, stat models.BotExecutionStat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if stat.ID == uuid.Nil {
		stat.ID = uuid.New()
	}
	if stat.CreatedAt.IsZero() {
		stat.CreatedAt = time.Now().UTC()
	}
	m.stats = append(m.stats, stat)
	return nil
}

// Stats returns a copy of every recorded stat in insertion order.
func (m *Memory) Stats() []models.BotExecutionStat {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.BotExecutionStat{}, m.stats...)
}

func (m *Memory) LogError(_ context.Context, entry *models.ErrorLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	m.errorLogs[entry.ID] = *entry
	return nil
}

func (m *Memory) ResolveError(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.errorLogs[id]
	if !ok {
		return fmt.Errorf("error log %s: %w", id, ErrNotFound)
	}
	if e.Resolved {
		return nil
	}
	now := time.Now().UTC()
	e.Resolved = true
	e.ResolvedAt = &now
	m.errorLogs[id] = e
	return nil
}

// ErrorLogs returns every logged error sorted by creation time.
func (m *Memory) ErrorLogs() []models.ErrorLog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.ErrorLog, 0, len(m.errorLogs))
	for _, e := range m.errorLogs {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func (m *Memory) UpsertHealth(_ context.Context, h models.SystemHealth) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health[h.Service] = h
	return nil
}

func (m *Memory) Health(service string) (models.SystemHealth, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.health[service]
	return h, ok
}

func (m *Memory) Put(_ context.Context, path string, data []byte, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = append([]byte(nil), data...)
	return "memory://" + path, nil
}

// Object returns the bytes stored under path.
func (m *Memory) Object(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.objects[path]
	return b, ok
}

// cloneEpisode deep-copies the slices and pointers an update could alias.
func cloneEpisode(e models.Episode) *models.Episode {
	out := e
	out.Storyboard = append([]models.Scene(nil), e.Storyboard...)
	if e.Manifest != nil {
		raw, _ := json.Marshal(e.Manifest)
		var m models.VideoManifest
		_ = json.Unmarshal(raw, &m)
		out.Manifest = &m
	}
	return &out
}
