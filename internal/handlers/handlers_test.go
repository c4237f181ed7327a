package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reality-studio-backend/internal/batch"
	"reality-studio-backend/internal/cache"
	"reality-studio-backend/internal/config"
	"reality-studio-backend/internal/generator/fakegen"
	"reality-studio-backend/internal/handlers"
	"reality-studio-backend/internal/middleware"
	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/pipeline"
	"reality-studio-backend/internal/recovery"
	"reality-studio-backend/internal/render"
	"reality-studio-backend/internal/services"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

const jwtSecret = "test-secret-key-for-jwt-signing-must-be-long-enough"

type fixture struct {
	mem    *store.Memory
	text   *fakegen.Text
	render *services.RenderService
	router *gin.Engine
	token  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := hclog.NewNullLogger()
	cfg := &config.Config{SupabaseJWTSecret: jwtSecret, InternalAPIKey: "bot-key"}

	mem := store.NewMemory()
	text := fakegen.NewText()
	set := stages.NewSet(text, &fakegen.Images{}, &fakegen.Speech{}, mem, "narrator")
	registry, err := set.Registry()
	require.NoError(t, err)

	video := render.NewChain(logger, render.NewComposeBackend(mem))
	renderSvc := services.NewRenderService(mem, set, video, cache.New(time.Minute),
		recovery.NewReporter(mem, logger), logger,
		services.RenderServiceOptions{RetryAttempts: 2, RetryDelay: time.Millisecond})
	orch := pipeline.NewOrchestrator(mem, mem, set, renderSvc, logger)

	router := handlers.NewRouter(cfg, handlers.Handlers{
		Episodes:   handlers.NewEpisodesHandler(orch, mem, renderSvc, logger),
		Production: handlers.NewProductionHandler(pipeline.NewProduction(orch, mem, set, logger, 3)),
		Batch:      handlers.NewBatchHandler(batch.NewCoordinator(mem, video, batch.DefaultSize, logger)),
		Bots:       handlers.NewBotsHandler(registry, logger),
		Jobs:       handlers.NewJobsHandler(mem),
	})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"}).SignedString([]byte(jwtSecret))
	require.NoError(t, err)

	f := &fixture{mem: mem, text: text, render: renderSvc, router: router, token: token}
	t.Cleanup(renderSvc.Wait)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) bearer() map[string]string {
	return map[string]string{"Authorization": "Bearer " + f.token}
}

func (f *fixture) project(t *testing.T) *models.Project {
	t.Helper()
	p := &models.Project{Title: "Villa of Secrets", Genre: "dating", Mood: "dramatic", Prompt: "Singles share a villa"}
	require.NoError(t, f.mem.CreateProject(context.Background(), p))
	return p
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHealthHandler(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodOptions, "/episode-producer", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestEpisodeProducer_EndToEnd(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	e := &models.Episode{ProjectID: p.ID, EpisodeNumber: 1, Synopsis: "The singles arrive"}
	require.NoError(t, f.mem.CreateEpisode(context.Background(), e))

	w := f.do(t, http.MethodPost, "/episode-producer",
		models.EpisodeProducerRequest{EpisodeID: e.ID.String(), ProjectID: p.ID.String()},
		map[string]string{middleware.InternalKeyHeader: "bot-key"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decode[models.EpisodeProducerResponse](t, w)
	assert.True(t, resp.Success)
	assert.True(t, resp.ReadyForVideo)
	assert.Equal(t, e.ID.String(), resp.EpisodeID)
	assert.NotEmpty(t, resp.JobID)
	assert.NotEmpty(t, resp.ProductionSteps)

	f.render.Wait()
	w = f.do(t, http.MethodGet, "/episodes/"+e.ID.String(), nil, f.bearer())
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[models.Episode](t, w)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Contains(t, got.VideoURL, "video-manifest-")

	w = f.do(t, http.MethodGet, "/jobs/"+resp.JobID, nil, f.bearer())
	require.Equal(t, http.StatusOK, w.Code)
	job := decode[models.Job](t, w)
	assert.Equal(t, models.JobSucceeded, job.Status)
}

func TestEpisodeProducer_Errors(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	internal := map[string]string{middleware.InternalKeyHeader: "bot-key"}

	w := f.do(t, http.MethodPost, "/episode-producer", map[string]string{"projectId": p.ID.String()}, internal)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/episode-producer",
		models.EpisodeProducerRequest{EpisodeID: "not-a-uuid", ProjectID: p.ID.String()}, internal)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/episode-producer",
		models.EpisodeProducerRequest{EpisodeID: uuid.NewString(), ProjectID: p.ID.String()}, internal)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/episode-producer",
		models.EpisodeProducerRequest{EpisodeID: uuid.NewString(), ProjectID: p.ID.String()}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestEpisodeProducer_StoryboardFailure(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	e := &models.Episode{ProjectID: p.ID, EpisodeNumber: 1}
	require.NoError(t, f.mem.CreateEpisode(context.Background(), e))
	f.text.Respond("storyboard", `{"scenes": []}`)

	w := f.do(t, http.MethodPost, "/episode-producer",
		models.EpisodeProducerRequest{EpisodeID: e.ID.String(), ProjectID: p.ID.String()}, f.bearer())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decode[models.EpisodeProducerResponse](t, w)
	assert.False(t, resp.Success)
	assert.Equal(t, models.StatusFailed, resp.Status)
	assert.NotEmpty(t, resp.Error)
}

func TestPromptToProduction(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/prompt-to-production",
		models.PromptToProductionRequest{Prompt: "short"}, f.bearer())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/prompt-to-production",
		models.PromptToProductionRequest{Prompt: "Rival chefs share a houseboat for a summer", SeasonCount: 1, EpisodesPerSeason: 2},
		f.bearer())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.PromptToProductionResponse](t, w)
	require.NotNil(t, resp.Project)
	assert.Equal(t, "user-1", resp.Project.OwnerID)
	assert.Len(t, resp.Episodes, 2)
	assert.NotEmpty(t, resp.Characters)

	f.render.Wait()
	w = f.do(t, http.MethodGet, "/projects/"+resp.Project.ID.String()+"/episodes?season=1", nil, f.bearer())
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[models.EpisodeListResponse](t, w)
	assert.Len(t, list.Episodes, 2)

	w = f.do(t, http.MethodGet, "/projects/"+resp.Project.ID.String()+"/episodes?status=bogus", nil, f.bearer())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/prompt-to-production",
		models.PromptToProductionRequest{Prompt: "Rival chefs share a houseboat"},
		map[string]string{middleware.InternalKeyHeader: "bot-key"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRenderEpisode(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	e := &models.Episode{
		ProjectID: p.ID, EpisodeNumber: 1, Status: models.StatusFailed,
		Storyboard: []models.Scene{{SceneNumber: 1, Action: "Arrival", Duration: 5, Dialogue: "Hi"}},
	}
	require.NoError(t, f.mem.CreateEpisode(context.Background(), e))

	w := f.do(t, http.MethodPost, "/episodes/"+e.ID.String()+"/render",
		models.RenderRequest{Settings: &models.RenderSettings{Quality: "premium"}}, f.bearer())
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	resp := decode[models.RenderDispatchResponse](t, w)
	assert.Equal(t, e.ID.String(), resp.EpisodeID)
	assert.Equal(t, 2, resp.Attempts)
	assert.Equal(t, models.JobQueued, resp.Status)

	f.render.Wait()
	got, err := f.mem.GetEpisode(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)

	empty := &models.Episode{ProjectID: p.ID, EpisodeNumber: 2}
	require.NoError(t, f.mem.CreateEpisode(context.Background(), empty))
	w = f.do(t, http.MethodPost, "/episodes/"+empty.ID.String()+"/render", nil, f.bearer())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/episodes/"+uuid.NewString()+"/render", nil, f.bearer())
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchRender(t *testing.T) {
	f := newFixture(t)
	p := f.project(t)
	e := &models.Episode{ProjectID: p.ID, EpisodeNumber: 1, Title: "Arrivals"}
	require.NoError(t, f.mem.CreateEpisode(context.Background(), e))
	manifest := &models.VideoManifest{
		EpisodeID:     e.ID,
		TotalDuration: 5,
		Frames:        []models.Frame{{SceneNumber: 1, Image: "memory://a.png", Duration: 5}},
	}

	w := f.do(t, http.MethodPost, "/batch-video-renderer", models.BatchRenderRequest{}, f.bearer())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/batch-video-renderer", models.BatchRenderRequest{
		EpisodeManifests: []models.EpisodeManifestInput{
			{EpisodeID: e.ID.String(), EpisodeNumber: 1, Title: "Arrivals", Manifest: manifest},
			{EpisodeID: "broken", EpisodeNumber: 2},
		},
	}, map[string]string{middleware.InternalKeyHeader: "bot-key"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[models.BatchRenderResponse](t, w)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.TotalEpisodes)
	assert.Equal(t, 1, resp.SuccessCount)
	assert.Equal(t, 1, resp.FailCount)
	assert.Equal(t, batch.ResultCompleted, resp.Results[0].Status)
	assert.Equal(t, batch.ResultFailed, resp.Results[1].Status)
	assert.Contains(t, resp.Results[1].Error, "broken")
}

func TestBots(t *testing.T) {
	f := newFixture(t)
	internal := map[string]string{middleware.InternalKeyHeader: "bot-key"}

	w := f.do(t, http.MethodPost, "/"+string(stages.KindQuality), map[string]string{"quality": "premium"}, internal)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[map[string]any](t, w)
	assert.Equal(t, true, body["success"])

	w = f.do(t, http.MethodPost, "/"+string(stages.KindQuality), map[string]string{"quality": "ultra"}, internal)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body = decode[map[string]any](t, w)
	assert.Equal(t, true, body["success"])

	w = f.do(t, http.MethodPost, "/"+string(stages.KindQuality), map[string]string{"quality": "cinema"}, internal)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body = decode[map[string]any](t, w)
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["error"])

	f.text.Fail("episode_script", assert.AnError)
	w = f.do(t, http.MethodPost, "/"+string(stages.KindScript), map[string]string{"prompt": "Arrivals"}, f.bearer())
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = f.do(t, http.MethodPost, "/"+string(stages.KindColorGrade), map[string]string{"mood": "noir"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(t, http.MethodPost, "/not-a-bot", nil, internal)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetJob_Errors(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/jobs/nope", nil, f.bearer())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(t, http.MethodGet, "/jobs/"+uuid.NewString(), nil, f.bearer())
	assert.Equal(t, http.StatusNotFound, w.Code)
	body := decode[models.ErrorResponse](t, w)
	assert.Equal(t, "job not found", body.Error)
}
