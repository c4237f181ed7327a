package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reality-studio-backend/internal/cache"
	"reality-studio-backend/internal/generator/fakegen"
	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/recovery"
	"reality-studio-backend/internal/render"
	"reality-studio-backend/internal/services"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

type fakeVideo struct {
	mu      sync.Mutex
	calls   int
	fail    int
	block   chan struct{}
	entered chan struct{}
	last    *models.VideoManifest
}

func (v *fakeVideo) Name() string { return "fake" }

func (v *fakeVideo) Render(ctx context.Context, m *models.VideoManifest, _ models.RenderSettings) (string, error) {
	if v.entered != nil {
		v.entered <- struct{}{}
	}
	if v.block != nil {
		<-v.block
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	v.last = m
	if v.calls <= v.fail {
		return "", render.ErrEngineUnreachable
	}
	return "https://cdn.example.com/" + m.EpisodeID.String() + ".mp4", nil
}

type fixture struct {
	mem     *store.Memory
	images  *fakegen.Images
	video   *fakeVideo
	service *services.RenderService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	images := &fakegen.Images{}
	set := stages.NewSet(fakegen.NewText(), images, &fakegen.Speech{}, mem, "narrator")
	video := &fakeVideo{}
	svc := services.NewRenderService(mem, set, video, cache.New(time.Minute),
		recovery.NewReporter(mem, hclog.NewNullLogger()), hclog.NewNullLogger(),
		services.RenderServiceOptions{RetryAttempts: 3, RetryDelay: time.Millisecond})
	return &fixture{mem: mem, images: images, video: video, service: svc}
}

func (f *fixture) episode(t *testing.T) *models.Episode {
	t.Helper()
	ctx := context.Background()
	e := &models.Episode{
		ProjectID:     uuid.New(),
		EpisodeNumber: 1,
		Storyboard: []models.Scene{
			{SceneNumber: 1, Location: "Villa", Action: "Arrival", Duration: 4, Dialogue: "Hello villa", SceneType: stages.SceneEntrance, Characters: []string{"Jade"}},
			{SceneNumber: 2, Location: "Pool", Action: "Argument", Duration: 6, SceneType: stages.SceneConfrontation},
		},
		Manifest: &models.VideoManifest{Metadata: models.ManifestMetadata{Style: "dramatic", CharactersUsed: []string{"Jade"}}},
	}
	require.NoError(t, f.mem.CreateEpisode(ctx, e))
	s := models.StatusManifestReady
	_, err := f.mem.UpdateEpisode(ctx, e.ID, models.EpisodeUpdate{Status: &s})
	require.NoError(t, err)
	return e
}

func TestDispatch_CompletesEpisode(t *testing.T) {
	f := newFixture(t)
	e := f.episode(t)
	ctx := context.Background()

	job, err := f.service.Dispatch(ctx, e.ID, models.RenderSettings{Quality: "cinema"})
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, job.Status)
	f.service.Wait()

	got, err := f.mem.GetEpisode(ctx, e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, "https://cdn.example.com/"+e.ID.String()+".mp4", got.VideoURL)
	assert.NotNil(t, got.RenderStartedAt)
	assert.NotNil(t, got.RenderCompletedAt)
	for _, sc := range got.Storyboard {
		assert.NotEmpty(t, sc.ImageURL)
	}

	require.NotNil(t, got.Manifest)
	assert.NoError(t, got.Manifest.Validate())
	assert.NotEmpty(t, got.Manifest.AudioURL)
	assert.Equal(t, "dramatic", got.Manifest.Metadata.Style)
	assert.NotEmpty(t, got.Manifest.Frames[0].VoiceoverURL)
	for _, fr := range got.Manifest.Frames {
		assert.GreaterOrEqual(t, fr.Duration, stages.MinFrameSeconds)
		assert.LessOrEqual(t, fr.Duration, stages.MaxFrameSeconds)
	}

	stored, err := f.mem.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, stored.Status)
	assert.NotNil(t, stored.FinishedAt)
}

func TestDispatch_RejectsConcurrentRender(t *testing.T) {
	f := newFixture(t)
	f.video.block = make(chan struct{})
	f.video.entered = make(chan struct{}, 1)
	e := f.episode(t)
	ctx := context.Background()

	first, err := f.service.Dispatch(ctx, e.ID, models.RenderSettings{})
	require.NoError(t, err)
	<-f.video.entered

	_, err = f.service.Dispatch(ctx, e.ID, models.RenderSettings{})
	assert.True(t, errors.Is(err, services.ErrRenderInFlight))
	assert.Contains(t, err.Error(), first.ID.String())

	close(f.video.block)
	f.service.Wait()

	f.video.entered = nil
	_, err = f.service.Dispatch(ctx, e.ID, models.RenderSettings{})
	require.NoError(t, err, "claim is released once the job settles")
	f.service.Wait()
}

func TestDispatch_NothingToRender(t *testing.T) {
	f := newFixture(t)
	e := &models.Episode{ProjectID: uuid.New()}
	require.NoError(t, f.mem.CreateEpisode(context.Background(), e))

	_, err := f.service.Dispatch(context.Background(), e.ID, models.RenderSettings{})
	assert.True(t, errors.Is(err, services.ErrNothingToRender))
	assert.True(t, errors.Is(err, stages.ErrValidation))

	_, err = f.service.Dispatch(context.Background(), uuid.New(), models.RenderSettings{})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestDispatch_VideoFailureMarksEpisodeFailed(t *testing.T) {
	f := newFixture(t)
	f.video.fail = 1
	e := f.episode(t)
	ctx := context.Background()

	job, err := f.service.Dispatch(ctx, e.ID, models.RenderSettings{})
	require.NoError(t, err)
	f.service.Wait()

	got, _ := f.mem.GetEpisode(ctx, e.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Contains(t, got.VideoRenderError, "video engine unreachable")
	assert.Empty(t, got.VideoURL)

	stored, _ := f.mem.GetJob(ctx, job.ID)
	assert.Equal(t, models.JobFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)

	require.Len(t, f.mem.ErrorLogs(), 1)
	h, ok := f.mem.Health(services.RenderServiceName)
	require.True(t, ok)
	assert.Equal(t, models.HealthDegraded, h.Status)
}

func TestRetry_RecoversFromTransientFailure(t *testing.T) {
	f := newFixture(t)
	f.video.fail = 1
	e := f.episode(t)
	ctx := context.Background()
	_, err := f.mem.UpdateEpisode(ctx, e.ID, models.FailureUpdate("previous attempt"))
	require.NoError(t, err)

	job, err := f.service.Retry(ctx, e.ID, models.RenderSettings{})
	require.NoError(t, err)
	f.service.Wait()

	got, _ := f.mem.GetEpisode(ctx, e.ID)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Empty(t, got.VideoRenderError)
	assert.Equal(t, 2, f.video.calls)

	stored, _ := f.mem.GetJob(ctx, job.ID)
	assert.Equal(t, models.JobSucceeded, stored.Status)
	for _, l := range f.mem.ErrorLogs() {
		assert.True(t, l.Resolved)
	}
	assert.Equal(t, 3, f.service.RetryAttempts())
}

func TestRender_NoImagesFails(t *testing.T) {
	f := newFixture(t)
	f.images.Err = errors.New("content policy")
	e := f.episode(t)

	_, err := f.service.Render(context.Background(), e.ID, models.RenderSettings{})
	require.Error(t, err)

	got, _ := f.mem.GetEpisode(context.Background(), e.ID)
	assert.Equal(t, models.StatusFailed, got.Status)
	assert.Equal(t, 0, f.video.calls)
}
