package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"reality-studio-backend/internal/generator"
	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/store"
)

const (
	defaultImageSize = "1792x1024"
	wordsPerSecond   = 2.5
)

// ImageStage renders one still per scene and uploads it.
type ImageStage struct {
	gen   generator.ImageGenerator
	media store.MediaStore
}

type ImageRequest struct {
	EpisodeID uuid.UUID    `json:"episode_id"`
	Scene     models.Scene `json:"scene"`
	Style     string       `json:"style,omitempty"`
	Size      string       `json:"size,omitempty"`
}

type ImageResult struct {
	SceneNumber int    `json:"scene_number"`
	ImageURL    string `json:"image_url"`
	Prompt      string `json:"prompt"`
}

func NewImageStage(gen generator.ImageGenerator, media store.MediaStore) *ImageStage {
	return &ImageStage{gen: gen, media: media}
}

func (s *ImageStage) Kind() Kind { return KindImage }

func (s *ImageStage) Generate(ctx context.Context, req ImageRequest) (*ImageResult, error) {
	if req.EpisodeID == uuid.Nil {
		return nil, invalid("episode_id is required")
	}
	if strings.TrimSpace(req.Scene.Action) == "" && req.Scene.Location == "" {
		return nil, invalid("scene needs an action or location")
	}
	size := req.Size
	if size == "" {
		size = defaultImageSize
	}
	prompt := ScenePrompt(req.Scene, req.Style)
	data, contentType, err := s.gen.GenerateImage(ctx, prompt, size)
	if err != nil {
		return nil, err
	}
	path := fmt.Sprintf("episodes/%s/scenes/%d/image-%s%s",
		req.EpisodeID, req.Scene.SceneNumber, uuid.NewString()[:8], extensionFor(contentType))
	url, err := s.media.Put(ctx, path, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload scene image: %w", err)
	}
	return &ImageResult{SceneNumber: req.Scene.SceneNumber, ImageURL: url, Prompt: prompt}, nil
}

func (s *ImageStage) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, s.Generate)
}

// ScenePrompt describes a scene as an image prompt.
func ScenePrompt(sc models.Scene, style string) string {
	parts := []string{
		"Reality TV still, " + orDefault(style, "cinematic, high production value"),
		"Location: " + orDefault(sc.Location, "studio set"),
	}
	if sc.Action != "" {
		parts = append(parts, sc.Action)
	}
	if len(sc.Characters) > 0 {
		parts = append(parts, "Featuring "+strings.Join(sc.Characters, ", "))
	}
	if sc.Emotion != "" {
		parts = append(parts, "Mood: "+sc.Emotion)
	}
	return strings.Join(parts, ". ")
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/mpeg":
		return ".mp3"
	case "application/json":
		return ".json"
	}
	return ".png"
}

// VoiceStage narrates scene dialogue and uploads the audio.
type VoiceStage struct {
	gen          generator.SpeechGenerator
	media        store.MediaStore
	defaultVoice string
}

type VoiceRequest struct {
	EpisodeID   uuid.UUID `json:"episode_id"`
	SceneNumber int       `json:"scene_number"`
	Text        string    `json:"text"`
	Voice       string    `json:"voice,omitempty"`
	Speed       float64   `json:"speed,omitempty"`
}

type VoiceResult struct {
	SceneNumber int     `json:"scene_number"`
	AudioURL    string  `json:"audio_url"`
	Duration    float64 `json:"duration"`
}

func NewVoiceStage(gen generator.SpeechGenerator, media store.MediaStore, defaultVoice string) *VoiceStage {
	return &VoiceStage{gen: gen, media: media, defaultVoice: defaultVoice}
}

func (s *VoiceStage) Kind() Kind { return KindVoice }

func (s *VoiceStage) Generate(ctx context.Context, req VoiceRequest) (*VoiceResult, error) {
	if req.EpisodeID == uuid.Nil {
		return nil, invalid("episode_id is required")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, invalid("text is required")
	}
	if req.Speed <= 0 {
		req.Speed = 1
	}
	voice := orDefault(req.Voice, s.defaultVoice)
	data, err := s.gen.Synthesize(ctx, req.Text, voice, req.Speed)
	if err != nil {
		return nil, err
	}
	name := "narration"
	if req.SceneNumber > 0 {
		name = fmt.Sprintf("scenes/%d/voice", req.SceneNumber)
	}
	path := fmt.Sprintf("episodes/%s/%s-%s.mp3", req.EpisodeID, name, uuid.NewString()[:8])
	url, err := s.media.Put(ctx, path, data, "audio/mpeg")
	if err != nil {
		return nil, fmt.Errorf("failed to upload voiceover: %w", err)
	}
	return &VoiceResult{
		SceneNumber: req.SceneNumber,
		AudioURL:    url,
		Duration:    EstimateSpeechSeconds(req.Text, req.Speed),
	}, nil
}

func (s *VoiceStage) Run(ctx context.Context, raw json.RawMessage) Envelope {
	return run(ctx, raw, s.Generate)
}

// EstimateSpeechSeconds approximates narration length from word count.
func EstimateSpeechSeconds(text string, speed float64) float64 {
	if speed <= 0 {
		speed = 1
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return math.Round(float64(words)/wordsPerSecond/speed*100) / 100
}
