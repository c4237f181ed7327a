package generator_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"reality-studio-backend/internal/cache"
	"reality-studio-backend/internal/generator"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Sure! Here it is: {\"a\":[1,2]} hope that helps", `{"a":[1,2]}`},
		{"array first", `[{"a":1}]`, `[{"a":1}]`},
		{"no json", "I cannot help with that", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, generator.CleanJSON(tt.in))
		})
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Title string `json:"title"`
	}

	got, err := generator.Decode[payload](&generator.Response{Text: "```json\n{\"title\":\"Rooftop\"}\n```"})
	require.NoError(t, err)
	assert.Equal(t, "Rooftop", got.Title)

	got, err = generator.Decode[payload](&generator.Response{Structured: []byte(`{"title":"Reunion"}`)})
	require.NoError(t, err)
	assert.Equal(t, "Reunion", got.Title)

	_, err = generator.Decode[payload](&generator.Response{Text: "no braces here"})
	assert.True(t, errors.Is(err, generator.ErrMalformed))

	_, err = generator.Decode[payload](nil)
	assert.True(t, errors.Is(err, generator.ErrMalformed))
}

func TestSpeechClient_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/text-to-speech/voice-1", r.URL.Path)
		assert.Equal(t, "tts-key", r.Header.Get("xi-api-key"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"text":"hello"`)
		w.Write([]byte("ID3audio"))
	}))
	defer server.Close()

	client := generator.NewSpeechClient(server.URL, "tts-key", "voice-1")
	audio, err := client.Synthesize(context.Background(), "hello", "", 1.1)

	require.NoError(t, err)
	assert.Equal(t, []byte("ID3audio"), audio)
}

func TestSpeechClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"detail":"quota"}`))
	}))
	defer server.Close()

	client := generator.NewSpeechClient(server.URL, "k", "v")
	_, err := client.Synthesize(context.Background(), "hello", "", 0)

	require.Error(t, err)
	assert.True(t, errors.Is(err, generator.ErrUpstream))
	assert.Contains(t, err.Error(), "429")
}

type countingGenerator struct {
	calls int
}

func (g *countingGenerator) Complete(_ context.Context, req generator.Request) (*generator.Response, error) {
	g.calls++
	return &generator.Response{Text: req.Messages[len(req.Messages)-1].Content}, nil
}

func TestCached_MemoisesByFingerprint(t *testing.T) {
	next := &countingGenerator{}
	cached := generator.NewCached(next, cache.New(time.Minute))
	ctx := context.Background()

	req := generator.Request{Messages: generator.Prompt("sys", "same prompt")}
	_, err := cached.Complete(ctx, req)
	require.NoError(t, err)
	resp, err := cached.Complete(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, "same prompt", resp.Text)

	_, err = cached.Complete(ctx, generator.Request{Messages: generator.Prompt("sys", "other")})
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}
