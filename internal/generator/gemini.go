package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiClient is the alternate text provider.
type GeminiClient struct {
	client *genai.Client
	model  string
}

func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key must not be empty")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, req Request) (*Response, error) {
	// GenerativeModel carries per-call config, so each call gets its own.
	model := c.client.GenerativeModel(c.model)
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}

	var system []string
	var turns []string
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		turns = append(turns, m.Content)
	}
	if req.Schema != nil {
		model.ResponseMIMEType = "application/json"
		system = append(system, schemaInstruction(req.Schema))
	}
	if len(system) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(system, "\n\n"))},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(strings.Join(turns, "\n\n")))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini generate content: %v", ErrUpstream, err)
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("%w: gemini returned no candidates", ErrMalformed)
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: gemini candidate empty (finish reason %s)", ErrMalformed, candidate.FinishReason.String())
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return finish(sb.String(), req.Schema)
}

func (c *GeminiClient) Close() error {
	return c.client.Close()
}

func schemaInstruction(s *Schema) string {
	raw, err := marshalIndent(s.Parameters)
	if err != nil {
		return "Respond with a single JSON object."
	}
	return fmt.Sprintf("Respond with a single JSON object named %q matching this JSON Schema:\n%s", s.Name, raw)
}
