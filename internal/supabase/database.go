package supabase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/store"
)

// DatabaseClient is the Postgres implementation of store.Store.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

var _ store.Store = (*DatabaseClient)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func notFound(kind string, id uuid.UUID, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, store.ErrNotFound)
	}
	return fmt.Errorf("failed to get %s: %w", kind, err)
}

// nullJSON marshals v, mapping nil slices and pointers to SQL NULL.
func nullJSON(v any, isNil bool) (any, error) {
	if isNil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (d *DatabaseClient) CreateProject(ctx context.Context, p *models.Project) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := d.db.QueryRowContext(ctx, `
		INSERT INTO projects (id, owner_id, title, genre, mood, theme, prompt)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, p.ID, p.OwnerID, p.Title, p.Genre, p.Mood, p.Theme, p.Prompt).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

func (d *DatabaseClient) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var p models.Project
	err := d.db.QueryRowContext(ctx, `
		SELECT id, owner_id, title, genre, mood, theme, prompt, created_at, updated_at
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.OwnerID, &p.Title, &p.Genre, &p.Mood, &p.Theme, &p.Prompt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound("project", id, err)
	}
	return &p, nil
}

func (d *DatabaseClient) CreateCharacters(ctx context.Context, chars []models.Character) error {
	if len(chars) == 0 {
		return nil
	}
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	for i := range chars {
		c := &chars[i]
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		var metadata any
		if len(c.Metadata) > 0 {
			metadata = []byte(c.Metadata)
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO characters (id, project_id, name, role, personality, background, goals, metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING created_at
		`, c.ID, c.ProjectID, c.Name, c.Role, c.Personality, c.Background, c.Goals, metadata).Scan(&c.CreatedAt)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to create character %q: %w", c.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit characters: %w", err)
	}
	return nil
}

func (d *DatabaseClient) ListCharacters(ctx context.Context, projectID uuid.UUID) ([]models.Character, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, project_id, name, role, personality, background, goals, metadata, created_at
		FROM characters
		WHERE project_id = $1
		ORDER BY created_at ASC, ordinal ASC
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	var chars []models.Character
	for rows.Next() {
		var c models.Character
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.Role, &c.Personality,
			&c.Background, &c.Goals, &metadata, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		if len(metadata) > 0 {
			c.Metadata = json.RawMessage(metadata)
		}
		chars = append(chars, c)
	}
	return chars, rows.Err()
}

const episodeColumns = `id, project_id, episode_number, season, title, synopsis, script, storyboard,
	status, status_version, video_url, video_render_error, manifest,
	render_started_at, render_completed_at, created_at, updated_at`

func scanEpisode(row rowScanner) (*models.Episode, error) {
	var e models.Episode
	var storyboard, manifest []byte
	err := row.Scan(&e.ID, &e.ProjectID, &e.EpisodeNumber, &e.Season, &e.Title, &e.Synopsis, &e.Script,
		&storyboard, &e.Status, &e.StatusVersion, &e.VideoURL, &e.VideoRenderError, &manifest,
		&e.RenderStartedAt, &e.RenderCompletedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(storyboard) > 0 {
		if err := json.Unmarshal(storyboard, &e.Storyboard); err != nil {
			return nil, fmt.Errorf("failed to decode storyboard: %w", err)
		}
	}
	if len(manifest) > 0 && string(manifest) != "null" {
		e.Manifest = &models.VideoManifest{}
		if err := json.Unmarshal(manifest, e.Manifest); err != nil {
			return nil, fmt.Errorf("failed to decode manifest: %w", err)
		}
	}
	return &e, nil
}

func (d *DatabaseClient) GetEpisode(ctx context.Context, id uuid.UUID) (*models.Episode, error) {
	e, err := scanEpisode(d.db.QueryRowContext(ctx,
		"SELECT "+episodeColumns+" FROM episodes WHERE id = $1", id))
	if err != nil {
		return nil, notFound("episode", id, err)
	}
	return e, nil
}

func (d *DatabaseClient) ListEpisodes(ctx context.Context, projectID uuid.UUID, filter store.EpisodeFilter) ([]models.Episode, error) {
	where := []string{"project_id = $1"}
	args := []any{projectID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Season > 0 {
		args = append(args, filter.Season)
		where = append(where, fmt.Sprintf("season = $%d", len(args)))
	}

	rows, err := d.db.QueryContext(ctx,
		"SELECT "+episodeColumns+" FROM episodes WHERE "+strings.Join(where, " AND ")+
			" ORDER BY season ASC, episode_number ASC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	defer rows.Close()

	var episodes []models.Episode
	for rows.Next() {
		e, err := scanEpisode(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		episodes = append(episodes, *e)
	}
	return episodes, rows.Err()
}

func (d *DatabaseClient) CreateEpisode(ctx context.Context, e *models.Episode) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = models.StatusNotStarted
	}
	if e.Season == 0 {
		e.Season = 1
	}
	storyboard, err := nullJSON(e.Storyboard, e.Storyboard == nil)
	if err != nil {
		return fmt.Errorf("failed to encode storyboard: %w", err)
	}
	err = d.db.QueryRowContext(ctx, `
		INSERT INTO episodes (id, project_id, episode_number, season, title, synopsis, script, storyboard, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, e.ID, e.ProjectID, e.EpisodeNumber, e.Season, e.Title, e.Synopsis, e.Script, storyboard, string(e.Status),
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create episode: %w", err)
	}
	return nil
}

// UpdateEpisode locks the row, checks the status transition against the
// stored status, then writes every column back.
func (d *DatabaseClient) UpdateEpisode(ctx context.Context, id uuid.UUID, upd models.EpisodeUpdate) (*models.Episode, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	e, err := scanEpisode(tx.QueryRowContext(ctx,
		"SELECT "+episodeColumns+" FROM episodes WHERE id = $1 FOR UPDATE", id))
	if err != nil {
		return nil, notFound("episode", id, err)
	}
	if upd.Status != nil {
		if err := models.CheckTransition(e.Status, *upd.Status); err != nil {
			return nil, err
		}
	}
	upd.Apply(e)
	e.UpdatedAt = time.Now().UTC()

	storyboard, err := nullJSON(e.Storyboard, e.Storyboard == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode storyboard: %w", err)
	}
	manifest, err := nullJSON(e.Manifest, e.Manifest == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encode manifest: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE episodes
		SET title = $2, synopsis = $3, script = $4, storyboard = $5, status = $6, status_version = $7,
			video_url = $8, video_render_error = $9, manifest = $10,
			render_started_at = $11, render_completed_at = $12, updated_at = $13
		WHERE id = $1
	`, e.ID, e.Title, e.Synopsis, e.Script, storyboard, string(e.Status), e.StatusVersion,
		e.VideoURL, e.VideoRenderError, manifest, e.RenderStartedAt, e.RenderCompletedAt, e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update episode: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit episode update: %w", err)
	}
	return e, nil
}

func (d *DatabaseClient) DeleteEpisode(ctx context.Context, id uuid.UUID) error {
	_, err := d.db.ExecContext(ctx, "DELETE FROM episodes WHERE id = $1", id)
	return err
}

func (d *DatabaseClient) CreateJob(ctx context.Context, j *models.Job) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.StartedAt.IsZero() {
		j.StartedAt = time.Now().UTC()
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO background_jobs (id, kind, episode_id, status, error, started_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, j.ID, j.Kind, j.EpisodeID, string(j.Status), j.Error, j.StartedAt)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

const jobColumns = "id, kind, episode_id, status, error, started_at, finished_at"

func scanJob(row rowScanner) (*models.Job, error) {
	var j models.Job
	if err := row.Scan(&j.ID, &j.Kind, &j.EpisodeID, &j.Status, &j.Error, &j.StartedAt, &j.FinishedAt); err != nil {
		return nil, err
	}
	return &j, nil
}

func (d *DatabaseClient) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := scanJob(d.db.QueryRowContext(ctx,
		"SELECT "+jobColumns+" FROM background_jobs WHERE id = $1", id))
	if err != nil {
		return nil, notFound("job", id, err)
	}
	return j, nil
}

func (d *DatabaseClient) MarkJobRunning(ctx context.Context, id uuid.UUID) error {
	return d.updateJob(ctx, id, "UPDATE background_jobs SET status = $2 WHERE id = $1", id, string(models.JobRunning))
}

func (d *DatabaseClient) FinishJob(ctx context.Context, id uuid.UUID, status models.JobStatus, errMsg string) error {
	return d.updateJob(ctx, id,
		"UPDATE background_jobs SET status = $2, error = $3, finished_at = NOW() WHERE id = $1",
		id, string(status), errMsg)
}

func (d *DatabaseClient) updateJob(ctx context.Context, id uuid.UUID, query string, args ...any) error {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("job %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (d *DatabaseClient) ListStaleJobs(ctx context.Context, startedBefore time.Time) ([]models.Job, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM background_jobs
		WHERE status IN ('queued', 'running') AND started_at < $1
		ORDER BY started_at ASC
	`, startedBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		jobs = append(jobs, *j)
	}
	return jobs, rows.Err()
}
