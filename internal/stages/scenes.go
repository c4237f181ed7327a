package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reality-studio-backend/internal/generator"
	"reality-studio-backend/internal/models"
)

// Scene types recognised by the transition and effects tables.
const (
	SceneConfrontation = "confrontation"
	SceneConfessional  = "confessional"
	SceneGroupDrama    = "group-drama"
	SceneWalkOff       = "walk-off"
	SceneEntrance      = "entrance"
	SceneGeneral       = "general"
)

const (
	defaultSceneDuration = 5.0
	defaultTargetScenes  = 8
)

// SceneStage splits a script into an ordered storyboard.
type SceneStage struct {
	gen generator.TextGenerator
}

type SceneRequest struct {
	Script       string           `json:"script"`
	Title        string           `json:"title,omitempty"`
	Style        string           `json:"style,omitempty"`
	Characters   []CharacterBrief `json:"characters"`
	Guidance     string           `json:"guidance,omitempty"`
	TargetScenes int              `json:"target_scenes,omitempty"`
}

type SceneResult struct {
	Scenes        []models.Scene `json:"scenes"`
	TotalDuration float64        `json:"total_duration"`
}

var sceneSchema = schema("storyboard", "Ordered scene list", object(map[string]any{
	"scenes": list(object(map[string]any{
		"scene_number": integer("1-based order"),
		"location":     str("Where the scene happens"),
		"characters":   list(str("Character name")),
		"action":       str("What happens, written as a visual description"),
		"emotion":      str("Dominant emotion"),
		"music_cue":    str("Music cue"),
		"scene_type":   str("confrontation, confessional, group-drama, walk-off, entrance or general"),
		"duration":     num("Seconds on screen, 3 to 8"),
		"dialogue":     str("Key line spoken in the scene"),
	}, "scene_number", "location", "characters", "action", "duration")),
}, "scenes"))

func NewSceneStage(gen generator.TextGenerator) *SceneStage {
	return &SceneStage{gen: gen}
}

func (s *SceneStage) Kind() Kind { return KindScene }

func (s *SceneStage) Orchestrate(ctx context.Context, req SceneRequest) (*SceneResult, error) {
	if strings.TrimSpace(req.Script) == "" {
		return nil, invalid("script is required")
	}
	if req.TargetScenes <= 0 {
		req.TargetScenes = defaultTargetScenes
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Episode: %s\nVisual style: %s\n%s\n", req.Title, orDefault(req.Style, "glossy reality TV"), describeCast(req.Characters))
	if req.Guidance != "" {
		fmt.Fprintf(&b, "Director guidance:\n%s\n", req.Guidance)
	}
	fmt.Fprintf(&b, "\nBreak this script into about %d scenes:\n%s", req.TargetScenes, req.Script)

	res, err := complete[SceneResult](ctx, s.gen,
		"You storyboard reality TV episodes. Every scene must be filmable as a single image with narration.",
		b.String(), sceneSchema)
	if err != nil {
		return nil, err
	}
	scenes := NormalizeScenes(res.Scenes)
	if len(scenes) == 0 {
		return nil, fmt.Errorf("%w: storyboard has no scenes", generator.ErrMalformed)
	}
	return &SceneResult{Scenes: scenes, TotalDuration: totalDuration(scenes)}, nil
}

func (s *SceneStage) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, s.Orchestrate)
}

// NormalizeScenes renumbers scenes 1..n in their given order and repairs
// fields the storyboard invariants depend on.
func NormalizeScenes(in []models.Scene) []models.Scene {
	out := make([]models.Scene, 0, len(in))
	for _, sc := range in {
		if strings.TrimSpace(sc.Action) == "" && strings.TrimSpace(sc.Dialogue) == "" {
			continue
		}
		sc.SceneNumber = len(out) + 1
		if sc.Duration <= 0 {
			sc.Duration = defaultSceneDuration
		}
		if sc.Characters == nil {
			sc.Characters = []string{}
		}
		sc.SceneType = normalizeSceneType(sc.SceneType)
		out = append(out, sc)
	}
	return out
}

func normalizeSceneType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.ReplaceAll(t, " ", "-")
	t = strings.ReplaceAll(t, "_", "-")
	switch t {
	case SceneConfrontation, SceneConfessional, SceneGroupDrama, SceneWalkOff, SceneEntrance:
		return t
	case "walkoff":
		return SceneWalkOff
	case "group":
		return SceneGroupDrama
	}
	return SceneGeneral
}

func totalDuration(scenes []models.Scene) float64 {
	var sum float64
	for _, s := range scenes {
		sum += s.Duration
	}
	return sum
}
