package render_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/render"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

func manifest() *models.VideoManifest {
	return &models.VideoManifest{
		EpisodeID:     uuid.New(),
		TotalDuration: 9,
		Frames: []models.Frame{
			{SceneNumber: 1, Image: "a.png", Duration: 4},
			{SceneNumber: 2, Image: "b.png", Duration: 5},
		},
	}
}

func TestEngineClient_Render(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/render", r.URL.Path)
		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body, "manifest")
		assert.Contains(t, body, "settings")
		assert.JSONEq(t, `{"quality":"broadcast","crf":23,"bitrate_kbps":4000,"max_bitrate_kbps":4000,"preset":"fast"}`, string(body["encoding"]))
		w.Write([]byte(`{"success":true,"videoUrl":"https://cdn/ep.mp4"}`))
	}))
	defer server.Close()

	url, err := render.NewEngineClient(server.URL, time.Second).Render(context.Background(), manifest(), models.RenderSettings{}.WithDefaults())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/ep.mp4", url)
}

func TestEngineClient_SendsGradeAndTransitions(t *testing.T) {
	m := manifest()
	m.Metadata.Style = "noir"
	m.Frames[0].SceneType = stages.SceneConfrontation
	m.Frames[1].SceneType = stages.SceneConfessional

	var got struct {
		Grade       stages.ColorGrade   `json:"grade"`
		Transitions []stages.Transition `json:"transitions"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"success":true,"videoUrl":"https://cdn/ep.mp4"}`))
	}))
	defer server.Close()

	_, err := render.NewEngineClient(server.URL, time.Second).Render(context.Background(), m, models.RenderSettings{}.WithDefaults())
	require.NoError(t, err)

	assert.Equal(t, stages.GradeFor("noir"), got.Grade)
	require.Len(t, got.Transitions, 1)
	assert.Equal(t, 1, got.Transitions[0].FromScene)
	assert.Equal(t, 2, got.Transitions[0].ToScene)
	assert.Equal(t, "quick-cut", got.Transitions[0].Type)
}

func TestEngineClient_Errors(t *testing.T) {
	t.Run("server error is unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()
		_, err := render.NewEngineClient(server.URL, time.Second).Render(context.Background(), manifest(), models.RenderSettings{})
		assert.True(t, errors.Is(err, render.ErrEngineUnreachable))
	})

	t.Run("timeout is unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()
		_, err := render.NewEngineClient(server.URL, 20*time.Millisecond).Render(context.Background(), manifest(), models.RenderSettings{})
		assert.True(t, errors.Is(err, render.ErrEngineUnreachable))
	})

	t.Run("rejected render", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"success":false,"error":"bad frames"}`))
		}))
		defer server.Close()
		_, err := render.NewEngineClient(server.URL, time.Second).Render(context.Background(), manifest(), models.RenderSettings{})
		assert.True(t, errors.Is(err, render.ErrEngineRejected))
	})

	t.Run("empty manifest never dispatched", func(t *testing.T) {
		_, err := render.NewEngineClient("http://127.0.0.1:1", time.Second).Render(context.Background(), &models.VideoManifest{}, models.RenderSettings{})
		assert.True(t, errors.Is(err, models.ErrEmptyManifest))
	})
}

func TestChain_FallsBackToCompose(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	mem := store.NewMemory()
	chain := render.NewChain(hclog.NewNullLogger(),
		render.NewEngineClient(server.URL, time.Second),
		render.NewComposeBackend(mem),
	)
	m := manifest()
	url, err := chain.Render(context.Background(), m, models.RenderSettings{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "memory://episodes/"+m.EpisodeID.String()+"/video-manifest-"))

	data, ok := mem.Object(strings.TrimPrefix(url, "memory://"))
	require.True(t, ok)
	var stored models.VideoManifest
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Len(t, stored.Frames, 2)
}

func TestChain_NoBackends(t *testing.T) {
	_, err := render.NewChain(hclog.NewNullLogger()).Render(context.Background(), manifest(), models.RenderSettings{})
	assert.True(t, errors.Is(err, render.ErrNoBackend))
}
