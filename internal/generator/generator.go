// Package generator is the single boundary to the external generative
// backends. It turns a message list (and an optional output schema) into one
// upstream call and hands back text or a decoded structure. It never
// retries; callers own retry policy.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUpstream covers transport failures and non-2xx responses.
	ErrUpstream = errors.New("upstream generation failed")
	// ErrMalformed means the provider answered but the payload was unusable.
	ErrMalformed = errors.New("malformed generation response")
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema asks the provider for machine-parseable output. Parameters is a
// JSON Schema object.
type Schema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type Request struct {
	Messages    []Message `json:"messages"`
	Schema      *Schema   `json:"schema,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

type Response struct {
	Text       string
	Structured json.RawMessage
}

type TextGenerator interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, size string) ([]byte, string, error)
}

type SpeechGenerator interface {
	Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error)
}

// Prompt builds the common system+user message pair.
func Prompt(system, user string) []Message {
	msgs := make([]Message, 0, 2)
	if system != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: system})
	}
	return append(msgs, Message{Role: RoleUser, Content: user})
}

// Decode unmarshals the structured payload of resp into T, falling back to
// cleaning the raw text when no structured payload was produced.
func Decode[T any](resp *Response) (T, error) {
	var out T
	if resp == nil {
		return out, fmt.Errorf("%w: empty response", ErrMalformed)
	}
	raw := []byte(resp.Structured)
	if len(raw) == 0 {
		cleaned := CleanJSON(resp.Text)
		if cleaned == "" {
			return out, fmt.Errorf("%w: no JSON in response text", ErrMalformed)
		}
		raw = []byte(cleaned)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// finish normalises a provider reply into a Response, enforcing JSON when a
// schema was requested.
func finish(text string, schema *Schema) (*Response, error) {
	if schema == nil {
		return &Response{Text: text}, nil
	}
	cleaned := CleanJSON(text)
	if cleaned == "" || !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("%w: %s reply is not valid JSON", ErrMalformed, schema.Name)
	}
	return &Response{Text: text, Structured: json.RawMessage(cleaned)}, nil
}
