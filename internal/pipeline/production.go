package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

const (
	minPromptLength          = 10
	maxSeasons               = 5
	maxEpisodesPerSeason     = 15
	defaultSeasons           = 1
	defaultEpisodesPerSeason = 3
	defaultProduceLimit      = 3
)

// Production builds a whole show (project, cast and episodes) from one
// prompt.
type Production struct {
	orch   *Orchestrator
	store  store.Store
	stages *stages.Set
	logger hclog.Logger
	limit  int
}

func NewProduction(orch *Orchestrator, st store.Store, set *stages.Set, logger hclog.Logger, limit int) *Production {
	if limit < 1 {
		limit = defaultProduceLimit
	}
	return &Production{orch: orch, store: st, stages: set, logger: logger.Named("production"), limit: limit}
}

// Normalize applies defaults and bounds to a production request.
func Normalize(req models.PromptToProductionRequest) (models.PromptToProductionRequest, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if len([]rune(req.Prompt)) < minPromptLength {
		return req, fmt.Errorf("%w: prompt must be at least %d characters", stages.ErrValidation, minPromptLength)
	}
	if req.SeasonCount == 0 {
		req.SeasonCount = defaultSeasons
	}
	if req.EpisodesPerSeason == 0 {
		req.EpisodesPerSeason = defaultEpisodesPerSeason
	}
	if req.SeasonCount < 1 || req.SeasonCount > maxSeasons {
		return req, fmt.Errorf("%w: seasonCount must be between 1 and %d", stages.ErrValidation, maxSeasons)
	}
	if req.EpisodesPerSeason < 1 || req.EpisodesPerSeason > maxEpisodesPerSeason {
		return req, fmt.Errorf("%w: episodesPerSeason must be between 1 and %d", stages.ErrValidation, maxEpisodesPerSeason)
	}
	return req, nil
}

func (p *Production) Run(ctx context.Context, ownerID string, req models.PromptToProductionRequest) (*models.PromptToProductionResponse, error) {
	req, err := Normalize(req)
	if err != nil {
		return nil, err
	}

	project, err := p.createProject(ctx, ownerID, req.Prompt)
	if err != nil {
		return nil, err
	}
	log := p.logger.With("project_id", project.ID)
	log.Info("production started", "seasons", req.SeasonCount, "episodes_per_season", req.EpisodesPerSeason)

	chars, err := p.createCast(ctx, project)
	if err != nil {
		return nil, err
	}

	var episodes []*models.Episode
	for season := 1; season <= req.SeasonCount; season++ {
		for n := 1; n <= req.EpisodesPerSeason; n++ {
			e := &models.Episode{
				ProjectID:     project.ID,
				Season:        season,
				EpisodeNumber: n,
				Title:         fmt.Sprintf("Episode %d", n),
				Synopsis:      fmt.Sprintf("%s (season %d, episode %d)", req.Prompt, season, n),
				Status:        models.StatusNotStarted,
			}
			if err := p.store.CreateEpisode(ctx, e); err != nil {
				return nil, fmt.Errorf("failed to create episode: %w", err)
			}
			episodes = append(episodes, e)
		}
	}

	reports := make([]models.EpisodeProducerResponse, len(episodes))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i, e := range episodes {
		g.Go(func() error {
			resp, err := p.orch.Produce(gctx, ProduceRequest{ProjectID: project.ID, EpisodeID: e.ID})
			if err != nil {
				log.Error("episode production failed", "episode_id", e.ID, "error", err)
				resp = &models.EpisodeProducerResponse{EpisodeID: e.ID.String(), Status: models.StatusFailed, Error: err.Error()}
			}
			mu.Lock()
			reports[i] = *resp
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	stored, err := p.store.ListEpisodes(ctx, project.ID, store.EpisodeFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list episodes: %w", err)
	}
	log.Info("production finished", "episodes", len(stored))
	return &models.PromptToProductionResponse{
		Success:    true,
		Project:    project,
		Characters: chars,
		Episodes:   stored,
		Reports:    reports,
	}, nil
}

func (p *Production) createProject(ctx context.Context, ownerID, prompt string) (*models.Project, error) {
	concept, err := p.stages.Concept.Generate(ctx, stages.ConceptRequest{Prompt: prompt})
	if err != nil {
		p.logger.Warn("show concept failed, deriving from prompt", "error", err)
		concept = FallbackConcept(prompt)
	}
	project := &models.Project{
		OwnerID: ownerID,
		Title:   concept.Title,
		Genre:   concept.Genre,
		Mood:    concept.Mood,
		Theme:   concept.Theme,
		Prompt:  prompt,
	}
	if err := p.store.CreateProject(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return project, nil
}

func (p *Production) createCast(ctx context.Context, project *models.Project) ([]models.Character, error) {
	ctxProject := projectContext(project)
	drafts := []stages.CharacterDraft{stages.HostCharacter(ctxProject)}
	res, err := p.stages.Characters.Generate(ctx, stages.CharacterRequest{Prompt: project.Prompt, Project: ctxProject})
	if err != nil {
		p.logger.Warn("casting failed, using host only", "project_id", project.ID, "error", err)
	} else {
		drafts = res.Characters
	}
	chars := make([]models.Character, 0, len(drafts))
	for _, d := range drafts {
		c := d.ToModel()
		c.ProjectID = project.ID
		chars = append(chars, c)
	}
	if err := p.store.CreateCharacters(ctx, chars); err != nil {
		return nil, fmt.Errorf("failed to create characters: %w", err)
	}
	return chars, nil
}

// FallbackConcept derives show metadata from the prompt text alone.
func FallbackConcept(prompt string) *stages.ConceptResult {
	words := strings.Fields(prompt)
	if len(words) > 6 {
		words = words[:6]
	}
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return &stages.ConceptResult{
		Title:   strings.Join(words, " "),
		Genre:   "reality",
		Mood:    "dramatic",
		Theme:   prompt,
		Logline: prompt,
	}
}
