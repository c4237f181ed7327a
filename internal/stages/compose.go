package stages

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"reality-studio-backend/internal/models"
)

// Composer assembles frames into a validated video manifest.
type Composer struct {
	now func() time.Time
}

type ComposeRequest struct {
	EpisodeID  uuid.UUID      `json:"episode_id"`
	Frames     []models.Frame `json:"frames"`
	AudioURL   string         `json:"audio_url,omitempty"`
	Style      string         `json:"style,omitempty"`
	Prompt     string         `json:"prompt,omitempty"`
	Characters []string       `json:"characters,omitempty"`
}

type ComposeResult struct {
	Manifest *models.VideoManifest `json:"manifest"`
}

func NewComposer() *Composer {
	return &Composer{now: time.Now}
}

func (c *Composer) Kind() Kind { return KindCompose }

func (c *Composer) Compose(req ComposeRequest) (*ComposeResult, error) {
	if req.EpisodeID == uuid.Nil {
		return nil, invalid("episode_id is required")
	}
	if len(req.Frames) == 0 {
		return nil, invalid("frames are required")
	}
	frames := append([]models.Frame(nil), req.Frames...)
	var total float64
	for _, f := range frames {
		if f.Duration <= 0 {
			return nil, invalid("frame %d has non-positive duration", f.SceneNumber)
		}
		total += f.Duration
	}

	chars := req.Characters
	if chars == nil {
		chars = charactersIn(frames)
	}
	m := &models.VideoManifest{
		EpisodeID:     req.EpisodeID,
		TotalDuration: round2(total),
		Frames:        frames,
		AudioURL:      req.AudioURL,
		Metadata: models.ManifestMetadata{
			Style:          orDefault(req.Style, "reality"),
			Prompt:         req.Prompt,
			GeneratedAt:    c.now().UTC(),
			CharactersUsed: chars,
		},
	}
	if err := m.Validate(); err != nil {
		return nil, invalid("%v", err)
	}
	return &ComposeResult{Manifest: m}, nil
}

func (c *Composer) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, func(_ context.Context, req ComposeRequest) (*ComposeResult, error) {
		return c.Compose(req)
	})
}

func charactersIn(frames []models.Frame) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, f := range frames {
		for _, name := range f.Characters {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
