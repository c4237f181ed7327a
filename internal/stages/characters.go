package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reality-studio-backend/internal/generator"
	"reality-studio-backend/internal/models"
)

const (
	defaultCastSize = 4
	maxCastSize     = 8
)

// CharacterStage casts participants for a show.
type CharacterStage struct {
	gen generator.TextGenerator
}

type CharacterRequest struct {
	Prompt  string         `json:"prompt"`
	Project ProjectContext `json:"project"`
	Count   int            `json:"count"`
}

type CharacterDraft struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Personality string `json:"personality"`
	Background  string `json:"background"`
	Goals       string `json:"goals"`
	Voice       string `json:"voice,omitempty"`
	Visual      string `json:"visual,omitempty"`
}

type CharacterResult struct {
	Characters []CharacterDraft `json:"characters"`
}

var characterSchema = schema("cast", "Reality show cast", object(map[string]any{
	"characters": list(object(map[string]any{
		"name":        str("Display name"),
		"role":        str("protagonist, antagonist, wildcard or host"),
		"personality": str("Personality in one line"),
		"background":  str("Short backstory"),
		"goals":       str("What they want this season"),
		"voice":       str("Voice description for narration"),
		"visual":      str("Visual description for image prompts"),
	}, "name", "role", "personality")),
}, "characters"))

func NewCharacterStage(gen generator.TextGenerator) *CharacterStage {
	return &CharacterStage{gen: gen}
}

func (s *CharacterStage) Kind() Kind { return KindCharacter }

func (s *CharacterStage) Generate(ctx context.Context, req CharacterRequest) (*CharacterResult, error) {
	if strings.TrimSpace(req.Prompt) == "" && req.Project.Title == "" {
		return nil, invalid("prompt or project is required")
	}
	switch {
	case req.Count <= 0:
		req.Count = defaultCastSize
	case req.Count > maxCastSize:
		return nil, invalid("count must be at most %d", maxCastSize)
	}
	user := fmt.Sprintf("%s\nPitch: %s\n\nCast exactly %d participants. Include at least one protagonist and one antagonist.",
		req.Project.describe(), req.Prompt, req.Count)
	res, err := complete[CharacterResult](ctx, s.gen,
		"You cast reality television shows with memorable, conflicting personalities.",
		user, characterSchema)
	if err != nil {
		return nil, err
	}
	out := res.Characters[:0]
	for _, c := range res.Characters {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		c.Role = normalizeRole(c.Role)
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable characters", generator.ErrMalformed)
	}
	if len(out) > req.Count {
		out = out[:req.Count]
	}
	return &CharacterResult{Characters: out}, nil
}

func (s *CharacterStage) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, s.Generate)
}

func normalizeRole(role string) string {
	r := strings.ToLower(strings.TrimSpace(role))
	switch r {
	case models.RoleProtagonist, models.RoleAntagonist, models.RoleWildcard, models.RoleHost:
		return r
	case "":
		return models.RoleWildcard
	}
	return role
}

// HostCharacter is the stand-in cast member used when casting fails.
func HostCharacter(project ProjectContext) CharacterDraft {
	return CharacterDraft{
		Name:        "The Host",
		Role:        models.RoleHost,
		Personality: "Warm, quick-witted and always one step ahead of the drama",
		Background:  fmt.Sprintf("Long-time presenter of %s", orDefault(project.Title, "the show")),
		Goals:       "Keep the contestants honest and the audience hooked",
	}
}

// ToModel converts a draft into a storable character. Voice and visual
// notes are kept in the metadata column.
func (d CharacterDraft) ToModel() models.Character {
	c := models.Character{
		Name:        d.Name,
		Role:        d.Role,
		Personality: d.Personality,
		Background:  d.Background,
		Goals:       d.Goals,
	}
	if d.Voice != "" || d.Visual != "" {
		c.Metadata, _ = json.Marshal(map[string]string{"voice": d.Voice, "visual": d.Visual})
	}
	return c
}

// Briefs reduces stored characters to what prompts need.
func Briefs(chars []models.Character) []CharacterBrief {
	out := make([]CharacterBrief, 0, len(chars))
	for _, c := range chars {
		out = append(out, CharacterBrief{Name: c.Name, Role: c.Role, Personality: c.Personality})
	}
	return out
}
