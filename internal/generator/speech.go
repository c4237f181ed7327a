package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SpeechClient talks to an ElevenLabs-compatible text-to-speech API.
type SpeechClient struct {
	baseURL      string
	apiKey       string
	defaultVoice string
	httpClient   *http.Client
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

func NewSpeechClient(baseURL, apiKey, defaultVoice string) *SpeechClient {
	return &SpeechClient{
		baseURL:      baseURL,
		apiKey:       apiKey,
		defaultVoice: defaultVoice,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (c *SpeechClient) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	if voice == "" {
		voice = c.defaultVoice
	}
	if speed <= 0 {
		speed = 1.0
	}

	jsonData, err := json.Marshal(speechRequest{
		Text:    text,
		ModelID: "eleven_multilingual_v2",
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
			Speed:           speed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/text-to-speech/" + voice
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: speech synthesis: status %d, body: %s", ErrUpstream, resp.StatusCode, string(body))
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: speech synthesis returned no audio", ErrMalformed)
	}

	return body, nil
}
