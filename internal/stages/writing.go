package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reality-studio-backend/internal/generator"
)

type ProjectContext struct {
	Title string `json:"title"`
	Genre string `json:"genre"`
	Mood  string `json:"mood"`
	Theme string `json:"theme"`
}

func (p ProjectContext) describe() string {
	return fmt.Sprintf("Show: %s\nGenre: %s\nMood: %s\nTheme: %s",
		orDefault(p.Title, "untitled"), orDefault(p.Genre, "reality"),
		orDefault(p.Mood, "dramatic"), orDefault(p.Theme, "open"))
}

type CharacterBrief struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Personality string `json:"personality,omitempty"`
}

func describeCast(chars []CharacterBrief) string {
	if len(chars) == 0 {
		return "No cast defined yet; invent participants as needed."
	}
	lines := make([]string, 0, len(chars))
	for _, c := range chars {
		lines = append(lines, fmt.Sprintf("- %s (%s): %s", c.Name, orDefault(c.Role, "cast"), c.Personality))
	}
	return "Cast:\n" + strings.Join(lines, "\n")
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func complete[T any](ctx context.Context, gen generator.TextGenerator, system, user string, s *generator.Schema) (T, error) {
	var zero T
	resp, err := gen.Complete(ctx, generator.Request{
		Messages:    generator.Prompt(system, user),
		Schema:      s,
		Temperature: 0.8,
	})
	if err != nil {
		return zero, err
	}
	return generator.Decode[T](resp)
}

// ConceptStage turns a free-text pitch into show metadata.
type ConceptStage struct {
	gen generator.TextGenerator
}

type ConceptRequest struct {
	Prompt string `json:"prompt"`
}

type ConceptResult struct {
	Title   string `json:"title"`
	Genre   string `json:"genre"`
	Mood    string `json:"mood"`
	Theme   string `json:"theme"`
	Logline string `json:"logline"`
}

var conceptSchema = schema("show_concept", "Reality show concept", object(map[string]any{
	"title":   str("Show title"),
	"genre":   str("Reality sub-genre"),
	"mood":    str("Overall tone"),
	"theme":   str("Central theme"),
	"logline": str("One sentence pitch"),
}, "title", "genre", "mood", "theme", "logline"))

func NewConceptStage(gen generator.TextGenerator) *ConceptStage {
	return &ConceptStage{gen: gen}
}

func (s *ConceptStage) Kind() Kind { return KindConcept }

func (s *ConceptStage) Generate(ctx context.Context, req ConceptRequest) (*ConceptResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, invalid("prompt is required")
	}
	res, err := complete[ConceptResult](ctx, s.gen,
		"You develop reality television formats. Answer in JSON.",
		"Develop a show concept from this pitch:\n"+req.Prompt, conceptSchema)
	if err != nil {
		return nil, err
	}
	if res.Title == "" {
		return nil, fmt.Errorf("%w: concept has no title", generator.ErrMalformed)
	}
	return &res, nil
}

func (s *ConceptStage) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, s.Generate)
}

// ScriptStage writes the episode script.
type ScriptStage struct {
	gen generator.TextGenerator
}

type ScriptRequest struct {
	Prompt        string           `json:"prompt"`
	Project       ProjectContext   `json:"project"`
	Characters    []CharacterBrief `json:"characters"`
	EpisodeNumber int              `json:"episode_number"`
	Season        int              `json:"season"`
}

type ScriptResult struct {
	Title    string `json:"title"`
	Synopsis string `json:"synopsis"`
	Script   string `json:"script"`
}

var scriptSchema = schema("episode_script", "Episode script", object(map[string]any{
	"title":    str("Episode title"),
	"synopsis": str("Two or three sentence synopsis"),
	"script":   str("Full script with scene headings and dialogue"),
}, "title", "synopsis", "script"))

func NewScriptStage(gen generator.TextGenerator) *ScriptStage {
	return &ScriptStage{gen: gen}
}

func (s *ScriptStage) Kind() Kind { return KindScript }

func (s *ScriptStage) Generate(ctx context.Context, req ScriptRequest) (*ScriptResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, invalid("prompt is required")
	}
	if req.EpisodeNumber <= 0 {
		req.EpisodeNumber = 1
	}
	if req.Season <= 0 {
		req.Season = 1
	}
	user := fmt.Sprintf("%s\n%s\n\nWrite season %d episode %d.\nEpisode idea: %s",
		req.Project.describe(), describeCast(req.Characters), req.Season, req.EpisodeNumber, req.Prompt)
	res, err := complete[ScriptResult](ctx, s.gen,
		"You are a reality TV story producer writing tight, character-driven episode scripts.",
		user, scriptSchema)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Script) == "" {
		return nil, fmt.Errorf("%w: script is empty", generator.ErrMalformed)
	}
	return &res, nil
}

func (s *ScriptStage) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, s.Generate)
}

// HookStage optimises the episode title and cold-open hook.
type HookStage struct {
	gen generator.TextGenerator
}

type HookRequest struct {
	Prompt        string         `json:"prompt"`
	Project       ProjectContext `json:"project"`
	EpisodeNumber int            `json:"episode_number"`
}

type HookResult struct {
	Title        string   `json:"title"`
	Hook         string   `json:"hook"`
	Alternatives []string `json:"alternatives"`
}

var hookSchema = schema("episode_hook", "Title and hook", object(map[string]any{
	"title":        str("Click-worthy episode title"),
	"hook":         str("Cold-open hook line"),
	"alternatives": list(str("Alternative title")),
}, "title", "hook"))

func NewHookStage(gen generator.TextGenerator) *HookStage {
	return &HookStage{gen: gen}
}

func (s *HookStage) Kind() Kind { return KindHook }

func (s *HookStage) Optimize(ctx context.Context, req HookRequest) (*HookResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, invalid("prompt is required")
	}
	res, err := complete[HookResult](ctx, s.gen,
		"You title reality TV episodes for maximum retention.",
		fmt.Sprintf("%s\nEpisode %d idea: %s", req.Project.describe(), req.EpisodeNumber, req.Prompt), hookSchema)
	if err != nil {
		return nil, err
	}
	if res.Title == "" {
		return nil, fmt.Errorf("%w: hook has no title", generator.ErrMalformed)
	}
	if res.Alternatives == nil {
		res.Alternatives = []string{}
	}
	return &res, nil
}

func (s *HookStage) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, s.Optimize)
}

// CulturalStage rewrites a script with local colour and style references.
type CulturalStage struct {
	gen generator.TextGenerator
}

type CulturalRequest struct {
	Script  string         `json:"script"`
	Project ProjectContext `json:"project"`
	Locale  string         `json:"locale,omitempty"`
}

type CulturalResult struct {
	Script     string   `json:"script"`
	References []string `json:"references"`
}

var culturalSchema = schema("cultural_injection", "Script with cultural detail", object(map[string]any{
	"script":     str("Rewritten script"),
	"references": list(str("Cultural reference used")),
}, "script"))

func NewCulturalStage(gen generator.TextGenerator) *CulturalStage {
	return &CulturalStage{gen: gen}
}

func (s *CulturalStage) Kind() Kind { return KindCultural }

func (s *CulturalStage) Inject(ctx context.Context, req CulturalRequest) (*CulturalResult, error) {
	if strings.TrimSpace(req.Script) == "" {
		return nil, invalid("script is required")
	}
	user := fmt.Sprintf("%s\nLocale: %s\n\nScript:\n%s", req.Project.describe(), orDefault(req.Locale, "inferred from script"), req.Script)
	res, err := complete[CulturalResult](ctx, s.gen,
		"Rewrite the script with authentic cultural detail, slang and style references. Keep structure and characters.",
		user, culturalSchema)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(res.Script) == "" {
		return nil, fmt.Errorf("%w: cultural rewrite is empty", generator.ErrMalformed)
	}
	if res.References == nil {
		res.References = []string{}
	}
	return &res, nil
}

func (s *CulturalStage) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, s.Inject)
}

// DirectorStage produces shooting guidance for scene orchestration.
type DirectorStage struct {
	gen generator.TextGenerator
}

type DirectorRequest struct {
	Script  string         `json:"script"`
	Title   string         `json:"title,omitempty"`
	Project ProjectContext `json:"project"`
}

type DirectorResult struct {
	Guidance  string   `json:"guidance"`
	Pacing    string   `json:"pacing"`
	ShotStyle string   `json:"shot_style"`
	Notes     []string `json:"notes"`
}

var directorSchema = schema("director_guidance", "Director guidance", object(map[string]any{
	"guidance":   str("Overall direction"),
	"pacing":     str("Pacing notes"),
	"shot_style": str("Visual shot style"),
	"notes":      list(str("Specific note")),
}, "guidance"))

func NewDirectorStage(gen generator.TextGenerator) *DirectorStage {
	return &DirectorStage{gen: gen}
}

func (s *DirectorStage) Kind() Kind { return KindDirector }

func (s *DirectorStage) Guide(ctx context.Context, req DirectorRequest) (*DirectorResult, error) {
	if strings.TrimSpace(req.Script) == "" {
		return nil, invalid("script is required")
	}
	res, err := complete[DirectorResult](ctx, s.gen,
		"You are a reality TV director. Give concise, actionable guidance.",
		fmt.Sprintf("%s\nEpisode: %s\n\nScript:\n%s", req.Project.describe(), req.Title, req.Script), directorSchema)
	if err != nil {
		return nil, err
	}
	if res.Notes == nil {
		res.Notes = []string{}
	}
	return &res, nil
}

func (s *DirectorStage) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, s.Guide)
}

// String flattens the guidance into prompt text.
func (d *DirectorResult) String() string {
	if d == nil {
		return ""
	}
	parts := []string{d.Guidance}
	if d.Pacing != "" {
		parts = append(parts, "Pacing: "+d.Pacing)
	}
	if d.ShotStyle != "" {
		parts = append(parts, "Shot style: "+d.ShotStyle)
	}
	parts = append(parts, d.Notes...)
	return strings.Join(parts, "\n")
}
