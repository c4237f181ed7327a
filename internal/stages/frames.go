package stages

import (
	"context"
	"encoding/json"
	"math"
	"math/rand"
	"time"

	"reality-studio-backend/internal/models"
)

const (
	MinFrameSeconds = 3.0
	MaxFrameSeconds = 8.0
	frameJitter     = 0.25
)

// Transition joins two consecutive scenes.
type Transition struct {
	FromScene int     `json:"from_scene"`
	ToScene   int     `json:"to_scene"`
	Type      string  `json:"type"`
	Duration  float64 `json:"duration"`
}

type transitionKey struct{ from, to string }

var transitionTable = map[transitionKey]Transition{
	{SceneConfrontation, SceneConfessional}: {Type: "quick-cut", Duration: 0.1},
	{SceneConfessional, SceneGroupDrama}:    {Type: "dissolve", Duration: 0.7},
	{SceneWalkOff, SceneEntrance}:           {Type: "fade-black", Duration: 1.0},
	{SceneGroupDrama, SceneConfrontation}:   {Type: "smash-cut", Duration: 0.05},
}

var defaultTransition = Transition{Type: "fade", Duration: 0.5}

// TransitionFor looks up the cut between two scene types.
func TransitionFor(from, to string) Transition {
	if t, ok := transitionTable[transitionKey{normalizeSceneType(from), normalizeSceneType(to)}]; ok {
		return t
	}
	return defaultTransition
}

// Transitions returns the cut between every consecutive pair of scenes.
func Transitions(scenes []models.Scene) []Transition {
	if len(scenes) < 2 {
		return []Transition{}
	}
	out := make([]Transition, 0, len(scenes)-1)
	for i := 1; i < len(scenes); i++ {
		t := TransitionFor(scenes[i-1].SceneType, scenes[i].SceneType)
		t.FromScene = scenes[i-1].SceneNumber
		t.ToScene = scenes[i].SceneNumber
		out = append(out, t)
	}
	return out
}

func clampFrame(d float64) float64 {
	return math.Min(MaxFrameSeconds, math.Max(MinFrameSeconds, d))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// FrameOptimizer fits scene durations into the on-screen band.
type FrameOptimizer struct{}

type FrameRequest struct {
	Scenes []models.Scene `json:"scenes"`
	// Seed makes the jitter reproducible. A nil seed is drawn from the clock
	// and echoed back in the result.
	Seed *int64 `json:"seed,omitempty"`
}

type FrameResult struct {
	Scenes        []models.Scene `json:"scenes"`
	Transitions   []Transition   `json:"transitions"`
	TotalDuration float64        `json:"total_duration"`
	Seed          int64          `json:"seed"`
}

func (FrameOptimizer) Kind() Kind { return KindFrameOptimizer }

func (FrameOptimizer) Optimize(req FrameRequest) (*FrameResult, error) {
	if len(req.Scenes) == 0 {
		return nil, invalid("scenes are required")
	}
	seed := time.Now().UnixNano()
	if req.Seed != nil {
		seed = *req.Seed
	}
	rng := rand.New(rand.NewSource(seed))

	out := make([]models.Scene, len(req.Scenes))
	var total float64
	for i, sc := range req.Scenes {
		d := clampFrame(sc.Duration)
		d += (rng.Float64()*2 - 1) * frameJitter
		sc.Duration = round2(clampFrame(d))
		if sc.Characters != nil {
			sc.Characters = append([]string{}, sc.Characters...)
		}
		out[i] = sc
		total += sc.Duration
	}
	return &FrameResult{
		Scenes:        out,
		Transitions:   Transitions(out),
		TotalDuration: round2(total),
		Seed:          seed,
	}, nil
}

func (o FrameOptimizer) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, func(_ context.Context, req FrameRequest) (*FrameResult, error) {
		return o.Optimize(req)
	})
}

// AudioSync stretches frame durations so the cut matches a narration track.
type AudioSync struct{}

type AudioSyncRequest struct {
	Frames        []models.Frame `json:"frames"`
	AudioDuration float64        `json:"audio_duration"`
}

type SyncedFrame struct {
	models.Frame
	Start float64 `json:"start"`
}

type AudioSyncResult struct {
	Frames        []SyncedFrame `json:"frames"`
	TotalDuration float64       `json:"total_duration"`
	Drift         float64       `json:"drift"`
}

func (AudioSync) Kind() Kind { return KindAudioSync }

func (AudioSync) Sync(req AudioSyncRequest) (*AudioSyncResult, error) {
	if len(req.Frames) == 0 {
		return nil, invalid("frames are required")
	}
	if req.AudioDuration <= 0 {
		return nil, invalid("audio_duration must be positive")
	}
	var sum float64
	for _, f := range req.Frames {
		sum += f.Duration
	}
	scale := 1.0
	if sum > 0 {
		scale = req.AudioDuration / sum
	}

	out := make([]SyncedFrame, len(req.Frames))
	var cursor float64
	for i, f := range req.Frames {
		f.Duration = round2(clampFrame(f.Duration * scale))
		out[i] = SyncedFrame{Frame: f, Start: round2(cursor)}
		cursor += f.Duration
	}
	return &AudioSyncResult{
		Frames:        out,
		TotalDuration: round2(cursor),
		Drift:         round2(cursor - req.AudioDuration),
	}, nil
}

func (a AudioSync) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, func(_ context.Context, req AudioSyncRequest) (*AudioSyncResult, error) {
		return a.Sync(req)
	})
}
