// Package stages holds the pipeline's stage runners. Every runner exposes a
// typed method used by the orchestrator and a generic Run used by the HTTP
// bot endpoints; Run always returns an Envelope, never a panic or raw error.
package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

type Kind string

const (
	KindConcept        Kind = "show-concept"
	KindCharacter      Kind = "character-generator"
	KindScript         Kind = "script-writer"
	KindHook           Kind = "hook-optimizer"
	KindCultural       Kind = "cultural-injector"
	KindDirector       Kind = "director"
	KindScene          Kind = "scene-orchestrator"
	KindImage          Kind = "image-generator"
	KindVoice          Kind = "voice-generator"
	KindAudioSync      Kind = "audio-sync"
	KindFrameOptimizer Kind = "frame-optimizer"
	KindColorGrade     Kind = "color-grader"
	KindEffects        Kind = "effects-bot"
	KindAudioMaster    Kind = "audio-master"
	KindQuality        Kind = "quality-enhancer"
	KindCompose        Kind = "video-composer"
)

var allKinds = []Kind{
	KindConcept, KindCharacter, KindScript, KindHook, KindCultural, KindDirector,
	KindScene, KindImage, KindVoice, KindAudioSync, KindFrameOptimizer,
	KindColorGrade, KindEffects, KindAudioMaster, KindQuality, KindCompose,
}

// ParseKind resolves a bot name against the closed set of stage kinds.
func ParseKind(name string) (Kind, error) {
	for _, k := range allKinds {
		if string(k) == name {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown stage kind %q", name)
}

var ErrValidation = errors.New("invalid stage request")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Envelope is the uniform stage reply: {success:true, ...payload} or
// {success:false, error}.
type Envelope struct {
	Success bool
	Error   string
	Payload any

	validation bool
}

func OK(payload any) Envelope {
	return Envelope{Success: true, Payload: payload}
}

func Fail(err error) Envelope {
	msg := "stage failed"
	if err != nil && err.Error() != "" {
		msg = err.Error()
	}
	return Envelope{Error: msg, validation: errors.Is(err, ErrValidation)}
}

// HTTPStatus maps the envelope onto the bot endpoint status codes.
func (e Envelope) HTTPStatus() int {
	switch {
	case e.Success:
		return http.StatusOK
	case e.validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (e Envelope) MarshalJSON() ([]byte, error) {
	out := map[string]any{}
	if e.Payload != nil {
		raw, err := json.Marshal(e.Payload)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &out); err != nil {
			out = map[string]any{"result": json.RawMessage(raw)}
		}
	}
	out["success"] = e.Success
	if !e.Success {
		out["error"] = e.Error
	}
	return json.Marshal(out)
}

type Runner interface {
	Kind() Kind
	Run(ctx context.Context, raw json.RawMessage) Envelope
}

// run decodes raw into Req, calls fn and wraps the outcome. Panics inside
// fn become failed envelopes.
func run[Req any, Res any](ctx context.Context, raw json.RawMessage, fn func(context.Context, Req) (Res, error)) (env Envelope) {
	defer func() {
		if r := recover(); r != nil {
			env = Fail(fmt.Errorf("stage panicked: %v", r))
		}
	}()

	var req Req
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			return Fail(invalid("invalid request body: %v", err))
		}
	}
	res, err := fn(ctx, req)
	if err != nil {
		return Fail(err)
	}
	return OK(res)
}

// Registry maps each stage kind to its runner. It is built once at start-up.
type Registry struct {
	runners map[Kind]Runner
}

func NewRegistry(runners ...Runner) (*Registry, error) {
	r := &Registry{runners: make(map[Kind]Runner, len(runners))}
	for _, runner := range runners {
		k := runner.Kind()
		if _, err := ParseKind(string(k)); err != nil {
			return nil, err
		}
		if _, dup := r.runners[k]; dup {
			return nil, fmt.Errorf("stage kind %q registered twice", k)
		}
		r.runners[k] = runner
	}
	return r, nil
}

func (r *Registry) Get(k Kind) (Runner, bool) {
	runner, ok := r.runners[k]
	return runner, ok
}

func (r *Registry) Kinds() []Kind {
	out := make([]Kind, 0, len(r.runners))
	for k := range r.runners {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
