// Package render turns a video manifest into a playable artifact. The
// primary backend is the external video engine; ComposeBackend is the
// manifest-only fallback.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

var (
	// ErrEngineUnreachable covers timeouts and transport errors talking to
	// the video engine.
	ErrEngineUnreachable = errors.New("video engine unreachable")
	ErrEngineRejected    = errors.New("video engine rejected render")
	ErrNoBackend         = errors.New("no video backend configured")
)

type VideoBackend interface {
	Name() string
	Render(ctx context.Context, manifest *models.VideoManifest, settings models.RenderSettings) (string, error)
}

type EngineClient struct {
	baseURL    string
	httpClient *http.Client
}

type engineRequest struct {
	Manifest    *models.VideoManifest `json:"manifest"`
	Settings    models.RenderSettings `json:"settings"`
	Encoding    stages.EncodingPreset `json:"encoding"`
	Mastering   stages.MasteringChain `json:"mastering"`
	Grade       stages.ColorGrade     `json:"grade"`
	Transitions []stages.Transition   `json:"transitions"`
}

// frameTransitions derives the cuts between consecutive frames from their
// scene types.
func frameTransitions(frames []models.Frame) []stages.Transition {
	scenes := make([]models.Scene, len(frames))
	for i, f := range frames {
		scenes[i] = models.Scene{SceneNumber: f.SceneNumber, SceneType: f.SceneType, Duration: f.Duration}
	}
	return stages.Transitions(scenes)
}

// encodingFor falls back to broadcast for unknown qualities.
func encodingFor(quality string) stages.EncodingPreset {
	if p, err := stages.PresetFor(quality); err == nil {
		return p
	}
	p, _ := stages.PresetFor(stages.QualityBroadcast)
	return p
}

type engineResponse struct {
	Success  bool   `json:"success"`
	VideoURL string `json:"videoUrl"`
	Error    string `json:"error"`
}

func NewEngineClient(baseURL string, timeout time.Duration) *EngineClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &EngineClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *EngineClient) Name() string { return "video-engine" }

func (c *EngineClient) Render(ctx context.Context, manifest *models.VideoManifest, settings models.RenderSettings) (string, error) {
	if err := manifest.Validate(); err != nil {
		return "", err
	}
	jsonData, err := json.Marshal(engineRequest{
		Manifest:    manifest,
		Settings:    settings,
		Encoding:    encodingFor(settings.Quality),
		Mastering:   stages.Mastering(),
		Grade:       stages.GradeFor(manifest.Metadata.Style),
		Transitions: frameTransitions(manifest.Frames),
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/render", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEngineUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response body: %v", ErrEngineUnreachable, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("%w: status %d, body: %s", ErrEngineUnreachable, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d, body: %s", ErrEngineRejected, resp.StatusCode, string(body))
	}

	var result engineResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrEngineRejected, err)
	}
	if !result.Success || result.VideoURL == "" {
		return "", fmt.Errorf("%w: %s", ErrEngineRejected, result.Error)
	}
	return result.VideoURL, nil
}

// ComposeBackend publishes the manifest itself; the player assembles the
// frames client-side.
type ComposeBackend struct {
	media store.MediaStore
}

func NewComposeBackend(media store.MediaStore) *ComposeBackend {
	return &ComposeBackend{media: media}
}

func (b *ComposeBackend) Name() string { return "compose" }

func (b *ComposeBackend) Render(ctx context.Context, manifest *models.VideoManifest, _ models.RenderSettings) (string, error) {
	if err := manifest.Validate(); err != nil {
		return "", err
	}
	raw, err := json.Marshal(manifest)
	if err != nil {
		return "", fmt.Errorf("failed to marshal manifest: %w", err)
	}
	path := fmt.Sprintf("episodes/%s/video-manifest-%d.json", manifest.EpisodeID, time.Now().UnixMilli())
	return b.media.Put(ctx, path, raw, "application/json")
}

// Chain tries each backend in order and returns the first URL.
type Chain struct {
	backends []VideoBackend
	logger   hclog.Logger
}

func NewChain(logger hclog.Logger, backends ...VideoBackend) *Chain {
	return &Chain{backends: backends, logger: logger.Named("render")}
}

func (c *Chain) Name() string { return "chain" }

func (c *Chain) Render(ctx context.Context, manifest *models.VideoManifest, settings models.RenderSettings) (string, error) {
	if len(c.backends) == 0 {
		return "", ErrNoBackend
	}
	var errs []error
	for _, b := range c.backends {
		url, err := b.Render(ctx, manifest, settings)
		if err == nil {
			return url, nil
		}
		if errors.Is(err, models.ErrEmptyManifest) {
			return "", err
		}
		c.logger.Warn("video backend failed", "backend", b.Name(), "error", err)
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		if ctx.Err() != nil {
			break
		}
	}
	return "", errors.Join(errs...)
}
