package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"reality-studio-backend/internal/cache"
	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/recovery"
	"reality-studio-backend/internal/render"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

const (
	RenderServiceName = "render-service"
	sceneMediaLimit   = 3
)

var (
	ErrRenderInFlight  = errors.New("render already in flight")
	ErrNothingToRender = fmt.Errorf("%w: episode has no storyboard", stages.ErrValidation)
	errNoImages        = errors.New("no scene images could be generated")
)

// RenderService runs Phase 4: scene media, manifest and video, detached
// from the request that started it. Every dispatch writes a job row first
// and holds a per-episode claim until the job settles.
type RenderService struct {
	store    store.Store
	stages   *stages.Set
	video    render.VideoBackend
	claims   *cache.TTL
	reporter *recovery.Reporter
	logger   hclog.Logger

	retryAttempts int
	retryDelay    time.Duration

	wg  sync.WaitGroup
	now func() time.Time
}

type RenderServiceOptions struct {
	RetryAttempts int
	RetryDelay    time.Duration
}

func NewRenderService(
	st store.Store,
	set *stages.Set,
	video render.VideoBackend,
	claims *cache.TTL,
	reporter *recovery.Reporter,
	logger hclog.Logger,
	opts RenderServiceOptions,
) *RenderService {
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 3
	}
	return &RenderService{
		store:         st,
		stages:        set,
		video:         video,
		claims:        claims,
		reporter:      reporter,
		logger:        logger.Named("render"),
		retryAttempts: opts.RetryAttempts,
		retryDelay:    opts.RetryDelay,
		now:           time.Now,
	}
}

func claimKey(episodeID uuid.UUID) string {
	return "render:" + episodeID.String()
}

// Dispatch starts a single-attempt render in the background.
func (s *RenderService) Dispatch(ctx context.Context, episodeID uuid.UUID, settings models.RenderSettings) (*models.Job, error) {
	return s.dispatch(ctx, episodeID, settings, 1)
}

// Retry re-dispatches a render that retries with classified reporting.
func (s *RenderService) Retry(ctx context.Context, episodeID uuid.UUID, settings models.RenderSettings) (*models.Job, error) {
	return s.dispatch(ctx, episodeID, settings, s.retryAttempts)
}

func (s *RenderService) RetryAttempts() int {
	return s.retryAttempts
}

func (s *RenderService) dispatch(ctx context.Context, episodeID uuid.UUID, settings models.RenderSettings, attempts int) (*models.Job, error) {
	e, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return nil, err
	}
	if len(e.Storyboard) == 0 {
		return nil, ErrNothingToRender
	}

	job := &models.Job{
		ID:        uuid.New(),
		Kind:      models.JobKindRender,
		EpisodeID: episodeID,
		Status:    models.JobQueued,
		StartedAt: s.now().UTC(),
	}
	key := claimKey(episodeID)
	if holder, ok := s.claims.Claim(key, job.ID); !ok {
		return nil, fmt.Errorf("%w: job %v", ErrRenderInFlight, holder)
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		s.claims.ReleaseIf(key, job.ID)
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("render dispatched", "episode_id", episodeID, "job_id", job.ID, "attempts", attempts)
	bg := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.claims.ReleaseIf(key, job.ID)
		s.run(bg, job, settings, attempts)
	}()
	return job, nil
}

// Wait blocks until every dispatched render has settled.
func (s *RenderService) Wait() {
	s.wg.Wait()
}

func (s *RenderService) run(ctx context.Context, job *models.Job, settings models.RenderSettings, attempts int) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("render panicked: %v", r)
			s.logger.Error("render job panicked", "job_id", job.ID, "error", err)
			s.finish(ctx, job, err)
		}
	}()

	if err := s.store.MarkJobRunning(ctx, job.ID); err != nil {
		s.logger.Warn("failed to mark job running", "job_id", job.ID, "error", err)
	}

	var err error
	if attempts > 1 {
		err = recovery.Retry(ctx, func(ctx context.Context) error {
			_, err := s.Render(ctx, job.EpisodeID, settings)
			return err
		}, recovery.Options{
			MaxAttempts: attempts,
			BaseDelay:   s.retryDelay,
			Service:     RenderServiceName,
			Reporter:    s.reporter,
		})
	} else {
		_, err = s.Render(ctx, job.EpisodeID, settings)
		if err != nil {
			s.reporter.Report(ctx, RenderServiceName, 1, err)
		}
	}
	s.finish(ctx, job, err)
}

func (s *RenderService) finish(ctx context.Context, job *models.Job, err error) {
	status, msg := models.JobSucceeded, ""
	if err != nil {
		status, msg = models.JobFailed, err.Error()
	}
	if ferr := s.store.FinishJob(ctx, job.ID, status, msg); ferr != nil {
		s.logger.Error("failed to finish job", "job_id", job.ID, "error", ferr)
	}
	s.logger.Info("render job settled", "job_id", job.ID, "episode_id", job.EpisodeID, "status", status)
}

// Render regenerates scene media, rebuilds the manifest and produces the
// video synchronously. The episode ends completed or failed.
func (s *RenderService) Render(ctx context.Context, episodeID uuid.UUID, settings models.RenderSettings) (string, error) {
	e, err := s.store.GetEpisode(ctx, episodeID)
	if err != nil {
		return "", err
	}
	if len(e.Storyboard) == 0 {
		return "", ErrNothingToRender
	}
	settings = settings.WithDefaults()
	if _, err := stages.PresetFor(settings.Quality); err != nil {
		s.logger.Warn("unknown quality, using broadcast", "episode_id", episodeID, "quality", settings.Quality)
		settings.Quality = stages.QualityBroadcast
	}

	started := s.now().UTC()
	rendering, noError := models.StatusRendering, ""
	if _, err := s.store.UpdateEpisode(ctx, episodeID, models.EpisodeUpdate{
		Status:           &rendering,
		RenderStartedAt:  &started,
		VideoRenderError: &noError,
	}); err != nil {
		return "", fmt.Errorf("failed to mark episode rendering: %w", err)
	}

	url, err := s.produce(ctx, e, settings)
	if err != nil {
		if _, uerr := s.store.UpdateEpisode(ctx, episodeID, models.FailureUpdate(err.Error())); uerr != nil {
			s.logger.Error("failed to mark episode failed", "episode_id", episodeID, "error", uerr)
		}
		return "", err
	}

	completed, finished := models.StatusCompleted, s.now().UTC()
	if _, err := s.store.UpdateEpisode(ctx, episodeID, models.EpisodeUpdate{
		Status:            &completed,
		VideoURL:          &url,
		RenderCompletedAt: &finished,
	}); err != nil {
		return "", fmt.Errorf("failed to mark episode completed: %w", err)
	}
	s.logger.Info("episode rendered", "episode_id", episodeID, "video_url", url, "elapsed", finished.Sub(started))
	return url, nil
}

func (s *RenderService) produce(ctx context.Context, e *models.Episode, settings models.RenderSettings) (string, error) {
	scenes, voiceovers, err := s.sceneMedia(ctx, e)
	if err != nil {
		return "", err
	}

	processing := models.StatusProcessing
	if _, err := s.store.UpdateEpisode(ctx, e.ID, models.EpisodeUpdate{Storyboard: scenes, Status: &processing}); err != nil {
		return "", fmt.Errorf("failed to store scene media: %w", err)
	}

	audioURL, audioSeconds := s.narration(ctx, e, settings)

	optimized, err := s.stages.Frames.Optimize(stages.FrameRequest{Scenes: scenes})
	if err != nil {
		return "", err
	}
	frames := make([]models.Frame, 0, len(optimized.Scenes))
	for _, sc := range optimized.Scenes {
		frames = append(frames, models.NewFrame(sc, sc.ImageURL, voiceovers[sc.SceneNumber]))
	}
	if audioSeconds > 0 {
		synced, err := s.stages.AudioSync.Sync(stages.AudioSyncRequest{Frames: frames, AudioDuration: audioSeconds})
		if err == nil {
			for i := range frames {
				frames[i].Duration = synced.Frames[i].Duration
			}
		}
	}

	style, prompt, names := "reality", "", []string(nil)
	if e.Manifest != nil {
		style, prompt, names = e.Manifest.Metadata.Style, e.Manifest.Metadata.Prompt, e.Manifest.Metadata.CharactersUsed
	}
	composed, err := s.stages.Composer.Compose(stages.ComposeRequest{
		EpisodeID:  e.ID,
		Frames:     frames,
		AudioURL:   audioURL,
		Style:      style,
		Prompt:     prompt,
		Characters: names,
	})
	if err != nil {
		return "", err
	}
	if _, err := s.store.UpdateEpisode(ctx, e.ID, models.EpisodeUpdate{Manifest: composed.Manifest}); err != nil {
		return "", fmt.Errorf("failed to store manifest: %w", err)
	}

	return s.video.Render(ctx, composed.Manifest, settings)
}

// sceneMedia generates an image and a voiceover per scene. Individual
// failures degrade to the scene's previous image or no voiceover.
func (s *RenderService) sceneMedia(ctx context.Context, e *models.Episode) ([]models.Scene, map[int]string, error) {
	scenes := append([]models.Scene(nil), e.Storyboard...)
	voiceovers := make(map[int]string, len(scenes))
	style := ""
	if e.Manifest != nil {
		style = e.Manifest.Metadata.Style
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sceneMediaLimit)
	for i := range scenes {
		sc := scenes[i]
		g.Go(func() error {
			img, err := s.stages.Images.Generate(gctx, stages.ImageRequest{EpisodeID: e.ID, Scene: sc, Style: style})
			if err != nil {
				s.logger.Warn("scene image failed", "episode_id", e.ID, "scene", sc.SceneNumber, "error", err)
			} else {
				mu.Lock()
				scenes[i].ImageURL = img.ImageURL
				mu.Unlock()
			}
			if strings.TrimSpace(sc.Dialogue) == "" {
				return nil
			}
			vo, err := s.stages.Voice.Generate(gctx, stages.VoiceRequest{EpisodeID: e.ID, SceneNumber: sc.SceneNumber, Text: sc.Dialogue})
			if err != nil {
				s.logger.Warn("scene voiceover failed", "episode_id", e.ID, "scene", sc.SceneNumber, "error", err)
				return nil
			}
			mu.Lock()
			voiceovers[sc.SceneNumber] = vo.AudioURL
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, sc := range scenes {
		if sc.ImageURL != "" {
			return scenes, voiceovers, nil
		}
	}
	return nil, nil, errNoImages
}

// narration voices the whole episode. Failure falls back to the audio
// file from the render settings.
func (s *RenderService) narration(ctx context.Context, e *models.Episode, settings models.RenderSettings) (string, float64) {
	var lines []string
	for _, sc := range e.Storyboard {
		if strings.TrimSpace(sc.Dialogue) != "" {
			lines = append(lines, sc.Dialogue)
		}
	}
	if len(lines) == 0 {
		return settings.AudioFile, 0
	}
	vo, err := s.stages.Voice.Generate(ctx, stages.VoiceRequest{EpisodeID: e.ID, Text: strings.Join(lines, " ")})
	if err != nil {
		s.logger.Warn("narration failed", "episode_id", e.ID, "error", err)
		return settings.AudioFile, 0
	}
	return vo.AudioURL, vo.Duration
}
