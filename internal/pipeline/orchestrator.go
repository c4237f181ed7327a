// Package pipeline drives an episode from prompt to manifest_ready and
// builds whole productions from a single prompt.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

var (
	errSkipped         = errors.New("skipped")
	ErrProjectMismatch = fmt.Errorf("%w: episode belongs to another project", stages.ErrValidation)
)

// Dispatcher hands a manifest_ready episode to the background renderer.
type Dispatcher interface {
	Dispatch(ctx context.Context, episodeID uuid.UUID, settings models.RenderSettings) (*models.Job, error)
}

type Orchestrator struct {
	store      store.Store
	telemetry  store.Telemetry
	stages     *stages.Set
	dispatcher Dispatcher
	logger     hclog.Logger
	now        func() time.Time
}

func NewOrchestrator(st store.Store, telemetry store.Telemetry, set *stages.Set, dispatcher Dispatcher, logger hclog.Logger) *Orchestrator {
	return &Orchestrator{
		store:      st,
		telemetry:  telemetry,
		stages:     set,
		dispatcher: dispatcher,
		logger:     logger.Named("orchestrator"),
		now:        time.Now,
	}
}

type ProduceRequest struct {
	ProjectID uuid.UUID
	// EpisodeID selects an existing episode. Nil creates the next one.
	EpisodeID     uuid.UUID
	Season        int
	EpisodeNumber int
	Prompt        string
	// SkipRender stops after the storyboard phase.
	SkipRender bool
	Settings   models.RenderSettings
}

// run is the mutable state of one production.
type run struct {
	project    *models.Project
	episode    *models.Episode
	characters []models.Character
	prompt     string
	steps      []models.ProductionStep
	jobID      string

	script   stages.ScriptResult
	title    string
	enriched string
	guidance string
}

// Produce executes every phase for one episode. Validation and lookup
// errors are returned; stage failures are reflected in the response.
func (o *Orchestrator) Produce(ctx context.Context, req ProduceRequest) (*models.EpisodeProducerResponse, error) {
	start := o.now()
	r, err := o.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	log := o.logger.With("episode_id", r.episode.ID, "project_id", r.project.ID)
	log.Info("production started", "episode_number", r.episode.EpisodeNumber, "season", r.episode.Season)

	if err := o.enter(ctx, r); err != nil {
		return nil, err
	}

	o.cast(ctx, r)

	if err := o.write(ctx, r); err != nil {
		return o.fail(ctx, r, start, err), nil
	}
	o.enrich(ctx, r)
	if err := o.storyboard(ctx, r); err != nil {
		log.Error("storyboard phase aborted", "error", err)
		return o.fail(ctx, r, start, err), nil
	}
	if !req.SkipRender {
		o.dispatch(ctx, r, req.Settings)
	}

	resp := o.report(r, start)
	log.Info("production finished", "status", resp.Status, "success_rate", resp.SuccessRate, "total_ms", resp.TotalTimeMs)
	return resp, nil
}

func (o *Orchestrator) prepare(ctx context.Context, req ProduceRequest) (*run, error) {
	project, err := o.store.GetProject(ctx, req.ProjectID)
	if err != nil {
		return nil, err
	}

	var episode *models.Episode
	if req.EpisodeID != uuid.Nil {
		episode, err = o.store.GetEpisode(ctx, req.EpisodeID)
		if err != nil {
			return nil, err
		}
		if episode.ProjectID != project.ID {
			return nil, ErrProjectMismatch
		}
	} else {
		episode, err = o.createEpisode(ctx, project.ID, req.Season, req.EpisodeNumber)
		if err != nil {
			return nil, err
		}
	}

	prompt := firstNonEmpty(req.Prompt, episode.Synopsis, project.Prompt, episode.Title)
	if prompt == "" {
		return nil, fmt.Errorf("%w: no prompt available for episode", stages.ErrValidation)
	}

	chars, err := o.store.ListCharacters(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	return &run{project: project, episode: episode, characters: chars, prompt: prompt}, nil
}

func (o *Orchestrator) createEpisode(ctx context.Context, projectID uuid.UUID, season, number int) (*models.Episode, error) {
	if season <= 0 {
		season = 1
	}
	if number <= 0 {
		existing, err := o.store.ListEpisodes(ctx, projectID, store.EpisodeFilter{Season: season})
		if err != nil {
			return nil, fmt.Errorf("failed to list episodes: %w", err)
		}
		number = store.NextEpisodeNumber(existing, season)
	}
	e := &models.Episode{
		ProjectID:     projectID,
		Season:        season,
		EpisodeNumber: number,
		Title:         fmt.Sprintf("Episode %d", number),
		Status:        models.StatusNotStarted,
	}
	if err := o.store.CreateEpisode(ctx, e); err != nil {
		return nil, fmt.Errorf("failed to create episode: %w", err)
	}
	return e, nil
}

// enter moves the episode to draft. Terminal episodes re-enter through
// not_started; in-flight renders are rejected as a transition error.
func (o *Orchestrator) enter(ctx context.Context, r *run) error {
	if r.episode.Status.Terminal() {
		if err := o.setStatus(ctx, r, models.StatusNotStarted); err != nil {
			return err
		}
	}
	return o.setStatus(ctx, r, models.StatusDraft)
}

func (o *Orchestrator) setStatus(ctx context.Context, r *run, s models.EpisodeStatus) error {
	return o.update(ctx, r, models.StatusUpdate(s))
}

func (o *Orchestrator) update(ctx context.Context, r *run, upd models.EpisodeUpdate) error {
	e, err := o.store.UpdateEpisode(ctx, r.episode.ID, upd)
	if err != nil {
		return fmt.Errorf("failed to update episode: %w", err)
	}
	r.episode = e
	return nil
}

func (o *Orchestrator) cast(ctx context.Context, r *run) {
	if len(r.characters) > 0 {
		r.steps = append(r.steps, models.ProductionStep{
			Step: string(stages.KindCharacter), Phase: PhaseCasting.Number, Status: models.StepSkipped,
		})
		return
	}
	ctxProject := projectContext(r.project)
	outcomes := PhaseCasting.execute(ctx, map[string]stepFunc{
		string(stages.KindCharacter): func(ctx context.Context) (any, error) {
			return o.stages.Characters.Generate(ctx, stages.CharacterRequest{Prompt: r.prompt, Project: ctxProject})
		},
	})
	o.record(ctx, r, PhaseCasting, outcomes)

	drafts := []stages.CharacterDraft{stages.HostCharacter(ctxProject)}
	if res, ok := outcomes[0].result.(*stages.CharacterResult); ok && outcomes[0].err == nil {
		drafts = res.Characters
	}
	chars := make([]models.Character, 0, len(drafts))
	for _, d := range drafts {
		c := d.ToModel()
		c.ProjectID = r.project.ID
		chars = append(chars, c)
	}
	if err := o.store.CreateCharacters(ctx, chars); err != nil {
		o.logger.Warn("failed to store characters", "project_id", r.project.ID, "error", err)
		return
	}
	r.characters = chars
}

func (o *Orchestrator) write(ctx context.Context, r *run) error {
	ctxProject := projectContext(r.project)
	outcomes := PhaseWriting.execute(ctx, map[string]stepFunc{
		string(stages.KindScript): func(ctx context.Context) (any, error) {
			return o.stages.Script.Generate(ctx, stages.ScriptRequest{
				Prompt:        r.prompt,
				Project:       ctxProject,
				Characters:    stages.Briefs(r.characters),
				EpisodeNumber: r.episode.EpisodeNumber,
				Season:        r.episode.Season,
			})
		},
		string(stages.KindHook): func(ctx context.Context) (any, error) {
			return o.stages.Hook.Optimize(ctx, stages.HookRequest{
				Prompt: r.prompt, Project: ctxProject, EpisodeNumber: r.episode.EpisodeNumber,
			})
		},
	})
	o.record(ctx, r, PhaseWriting, outcomes)

	if res, ok := outcomes[0].result.(*stages.ScriptResult); ok && outcomes[0].err == nil {
		r.script = *res
	} else {
		r.script = stages.ScriptResult{
			Title:    r.episode.Title,
			Synopsis: firstNonEmpty(r.episode.Synopsis, r.prompt),
			Script:   firstNonEmpty(r.episode.Script, r.prompt),
		}
	}
	r.title = firstNonEmpty(r.script.Title, r.episode.Title, fmt.Sprintf("Episode %d", r.episode.EpisodeNumber))
	if res, ok := outcomes[1].result.(*stages.HookResult); ok && outcomes[1].err == nil {
		r.title = firstNonEmpty(res.Title, r.title)
	}

	status := models.StatusScriptReady
	return o.update(ctx, r, models.EpisodeUpdate{
		Title:    &r.title,
		Synopsis: &r.script.Synopsis,
		Script:   &r.script.Script,
		Status:   &status,
	})
}

func (o *Orchestrator) enrich(ctx context.Context, r *run) {
	ctxProject := projectContext(r.project)
	outcomes := PhaseEnrichment.execute(ctx, map[string]stepFunc{
		string(stages.KindCultural): func(ctx context.Context) (any, error) {
			return o.stages.Cultural.Inject(ctx, stages.CulturalRequest{Script: r.script.Script, Project: ctxProject})
		},
		string(stages.KindDirector): func(ctx context.Context) (any, error) {
			return o.stages.Director.Guide(ctx, stages.DirectorRequest{Script: r.script.Script, Title: r.title, Project: ctxProject})
		},
	})
	o.record(ctx, r, PhaseEnrichment, outcomes)

	r.enriched = r.script.Script
	if res, ok := outcomes[0].result.(*stages.CulturalResult); ok && outcomes[0].err == nil {
		r.enriched = res.Script
	}
	if res, ok := outcomes[1].result.(*stages.DirectorResult); ok && outcomes[1].err == nil {
		r.guidance = res.String()
	}
}

func (o *Orchestrator) storyboard(ctx context.Context, r *run) error {
	outcomes := PhaseStoryboard.execute(ctx, map[string]stepFunc{
		string(stages.KindScene): func(ctx context.Context) (any, error) {
			return o.stages.Scenes.Orchestrate(ctx, stages.SceneRequest{
				Script:     r.enriched,
				Title:      r.title,
				Style:      r.project.Mood,
				Characters: stages.Briefs(r.characters),
				Guidance:   r.guidance,
			})
		},
	})
	o.record(ctx, r, PhaseStoryboard, outcomes)
	if err := PhaseStoryboard.abortError(outcomes); err != nil {
		return err
	}

	res := outcomes[0].result.(*stages.SceneResult)
	if err := models.ValidateStoryboard(res.Scenes); err != nil {
		return fmt.Errorf("storyboard rejected: %w", err)
	}
	manifest := o.preliminaryManifest(r, res.Scenes)
	status := models.StatusManifestReady
	return o.update(ctx, r, models.EpisodeUpdate{
		Storyboard: res.Scenes,
		Manifest:   manifest,
		Status:     &status,
	})
}

// preliminaryManifest describes the storyboard before media exists. The
// render job replaces it with resolved frames.
func (o *Orchestrator) preliminaryManifest(r *run, scenes []models.Scene) *models.VideoManifest {
	frames := make([]models.Frame, 0, len(scenes))
	var total float64
	for _, sc := range scenes {
		frames = append(frames, models.NewFrame(sc, "", ""))
		total += sc.Duration
	}
	names := make([]string, 0, len(r.characters))
	for _, c := range r.characters {
		names = append(names, c.Name)
	}
	return &models.VideoManifest{
		EpisodeID:     r.episode.ID,
		TotalDuration: total,
		Frames:        frames,
		Metadata: models.ManifestMetadata{
			Style:          firstNonEmpty(r.project.Mood, "reality"),
			Prompt:         r.prompt,
			GeneratedAt:    o.now().UTC(),
			CharactersUsed: names,
		},
	}
}

func (o *Orchestrator) dispatch(ctx context.Context, r *run, settings models.RenderSettings) {
	if o.dispatcher == nil {
		r.steps = append(r.steps, models.ProductionStep{Step: StepDispatch, Phase: PhaseRender.Number, Status: models.StepSkipped})
		return
	}
	outcomes := PhaseRender.execute(ctx, map[string]stepFunc{
		StepDispatch: func(ctx context.Context) (any, error) {
			job, err := o.dispatcher.Dispatch(ctx, r.episode.ID, settings)
			if err != nil {
				return nil, err
			}
			r.jobID = job.ID.String()
			return map[string]string{"jobId": r.jobID, "status": string(job.Status)}, nil
		},
	})
	o.record(ctx, r, PhaseRender, outcomes)
}

// record appends the phase outcomes to the step log and writes one stat
// row per executed step.
func (o *Orchestrator) record(ctx context.Context, r *run, p Phase, outcomes []outcome) {
	for _, oc := range outcomes {
		step := models.ProductionStep{Step: oc.step, Phase: p.Number}
		switch {
		case oc.err == errSkipped:
			step.Status = models.StepSkipped
			r.steps = append(r.steps, step)
			continue
		case oc.err != nil:
			step.Status = models.StepFailed
			step.Error = oc.err.Error()
			o.logger.Warn("stage failed", "episode_id", r.episode.ID, "stage", oc.step, "policy", p.OnFailure, "error", oc.err)
		default:
			step.Status = models.StepCompleted
			step.Result = oc.result
		}
		r.steps = append(r.steps, step)
		o.stat(ctx, r.episode.ID, p, oc)
	}
}

func (o *Orchestrator) stat(ctx context.Context, episodeID uuid.UUID, p Phase, oc outcome) {
	score := 1.0
	if oc.err != nil {
		score = 0
	}
	meta, _ := json.Marshal(map[string]any{"phase": p.Number, "policy": p.OnFailure, "error": errString(oc.err)})
	id := episodeID
	err := o.telemetry.RecordStat(ctx, models.BotExecutionStat{
		ID:            uuid.New(),
		BotType:       oc.step,
		EpisodeID:     &id,
		ExecutionTime: oc.elapsed.Milliseconds(),
		QualityScore:  score,
		Success:       oc.err == nil,
		Metadata:      meta,
		CreatedAt:     o.now().UTC(),
	})
	if err != nil {
		o.logger.Warn("failed to record bot stat", "stage", oc.step, "error", err)
	}
}

func (o *Orchestrator) fail(ctx context.Context, r *run, start time.Time, cause error) *models.EpisodeProducerResponse {
	if err := o.update(ctx, r, models.FailureUpdate(cause.Error())); err != nil {
		o.logger.Error("failed to mark episode failed", "episode_id", r.episode.ID, "error", err)
	}
	resp := o.report(r, start)
	resp.Success = false
	resp.Error = cause.Error()
	return resp
}

func (o *Orchestrator) report(r *run, start time.Time) *models.EpisodeProducerResponse {
	var done, failed int
	for _, s := range r.steps {
		switch s.Status {
		case models.StepCompleted:
			done++
		case models.StepFailed:
			failed++
		}
	}
	rate := 0.0
	if done+failed > 0 {
		rate = math.Round(float64(done)/float64(done+failed)*10000) / 100
	}
	e := r.episode
	return &models.EpisodeProducerResponse{
		Success:         e.Status != models.StatusFailed,
		EpisodeID:       e.ID.String(),
		Status:          e.Status,
		ProductionSteps: r.steps,
		SuccessRate:     rate,
		TotalTimeMs:     o.now().Sub(start).Milliseconds(),
		ReadyForVideo:   e.Status == models.StatusManifestReady && len(e.Storyboard) > 0,
		JobID:           r.jobID,
	}
}

func projectContext(p *models.Project) stages.ProjectContext {
	return stages.ProjectContext{Title: p.Title, Genre: p.Genre, Mood: p.Mood, Theme: p.Theme}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
