// Package fakegen provides scripted generator backends for tests and for
// running the server without provider credentials.
package fakegen

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"reality-studio-backend/internal/generator"
)

// Text answers each request with the fixture registered under its schema
// name. Requests without a schema are keyed as "text".
type Text struct {
	mu        sync.Mutex
	responses map[string]string
	failures  map[string]error
	calls     map[string]int
	// FailWhen, when set, is consulted before the fixtures.
	FailWhen func(req generator.Request) error
}

func NewText() *Text {
	t := &Text{
		responses: map[string]string{},
		failures:  map[string]error{},
		calls:     map[string]int{},
	}
	for k, v := range Fixtures {
		t.responses[k] = v
	}
	return t
}

func key(req generator.Request) string {
	if req.Schema == nil {
		return "text"
	}
	return req.Schema.Name
}

func (t *Text) Respond(schema, body string) *Text {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responses[schema] = body
	return t
}

func (t *Text) Fail(schema string, err error) *Text {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures[schema] = err
	return t
}

func (t *Text) Calls(schema string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls[schema]
}

func (t *Text) Complete(ctx context.Context, req generator.Request) (*generator.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.FailWhen != nil {
		if err := t.FailWhen(req); err != nil {
			return nil, err
		}
	}
	k := key(req)
	t.mu.Lock()
	t.calls[k]++
	err := t.failures[k]
	body, ok := t.responses[k]
	t.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: no fixture for %q", generator.ErrUpstream, k)
	}
	resp := &generator.Response{Text: body}
	if req.Schema != nil {
		resp.Structured = []byte(generator.CleanJSON(body))
	}
	return resp, nil
}

// Images returns a fixed PNG header for every prompt.
type Images struct {
	mu      sync.Mutex
	Err     error
	prompts []string
}

var pngStub = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func (i *Images) GenerateImage(ctx context.Context, prompt, size string) ([]byte, string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.prompts = append(i.prompts, prompt)
	if i.Err != nil {
		return nil, "", i.Err
	}
	return append([]byte(nil), pngStub...), "image/png", nil
}

func (i *Images) Prompts() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.prompts...)
}

// Speech returns the text itself as audio bytes.
type Speech struct {
	mu    sync.Mutex
	Err   error
	calls int
}

func (s *Speech) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.Err != nil {
		return nil, s.Err
	}
	return []byte(strings.ToUpper(text)), nil
}

func (s *Speech) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Fixtures are canned replies keyed by schema name.
var Fixtures = map[string]string{
	"show_concept": `{"title":"Villa of Secrets","genre":"dating","mood":"dramatic","theme":"trust","logline":"Ten singles, one villa, zero privacy."}`,
	"cast": `{"characters":[
		{"name":"Jade","role":"protagonist","personality":"Earnest and stubborn","background":"Nurse from Leeds","goals":"Find something real","voice":"warm alto","visual":"curly red hair"},
		{"name":"Marco","role":"antagonist","personality":"Charming schemer","background":"Club promoter","goals":"Win at any cost","voice":"smooth baritone","visual":"gold chain"},
		{"name":"Priya","role":"wildcard","personality":"Unpredictable","background":"Stand-up comic","goals":"Go viral"}]}`,
	"episode_script":     `{"title":"Arrivals","synopsis":"The islanders arrive and first loyalties form.","script":"INT. VILLA - DAY\nJade arrives. Marco sizes her up.\nEXT. POOL - NIGHT\nPriya stirs the pot."}`,
	"episode_hook":       `{"title":"Nobody Trusts Marco","hook":"Night one and the knives are already out.","alternatives":["Arrivals","Welcome to the Villa"]}`,
	"cultural_injection": `{"script":"INT. VILLA - DAY\nJade arrives, proper buzzing. Marco sizes her up.\nEXT. POOL - NIGHT\nPriya stirs the pot.","references":["British slang"]}`,
	"director_guidance":  `{"guidance":"Keep it tight and reactive","pacing":"fast","shot_style":"handheld close-ups","notes":["hold on Marco's smirk"]}`,
	"storyboard": `{"scenes":[
		{"scene_number":1,"location":"Villa entrance","characters":["Jade"],"action":"Jade walks in with her suitcase","scene_type":"entrance","duration":4,"dialogue":"I'm here to find love."},
		{"scene_number":2,"location":"Kitchen","characters":["Marco","Jade"],"action":"Marco corners Jade","scene_type":"confrontation","duration":6,"dialogue":"You don't know how this works."},
		{"scene_number":3,"location":"Beach hut","characters":["Jade"],"action":"Jade confides to camera","scene_type":"confessional","duration":5,"dialogue":"He's trouble."}]}`,
}
