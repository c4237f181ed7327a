package pipeline

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"reality-studio-backend/internal/stages"
)

// FailurePolicy decides what a failed step does to the run.
type FailurePolicy string

const (
	// Substitute replaces the failed output with the best known fallback
	// and continues.
	Substitute FailurePolicy = "substitute"
	// Abort fails the episode.
	Abort FailurePolicy = "abort"
)

// StepDispatch names the Phase-4 render hand-off.
const StepDispatch = "video-dispatch"

// Phase is one synchronisation barrier. All steps settle before the next
// phase starts.
type Phase struct {
	Number    int
	Name      string
	Parallel  bool
	OnFailure FailurePolicy
	Steps     []string
}

var (
	PhaseCasting    = Phase{0, "casting", false, Substitute, []string{string(stages.KindCharacter)}}
	PhaseWriting    = Phase{1, "writing", true, Substitute, []string{string(stages.KindScript), string(stages.KindHook)}}
	PhaseEnrichment = Phase{2, "enrichment", true, Substitute, []string{string(stages.KindCultural), string(stages.KindDirector)}}
	PhaseStoryboard = Phase{3, "storyboard", false, Abort, []string{string(stages.KindScene)}}
	PhaseRender     = Phase{4, "render", false, Substitute, []string{StepDispatch}}
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhaseCasting, PhaseWriting, PhaseEnrichment, PhaseStoryboard, PhaseRender}

type stepFunc func(ctx context.Context) (any, error)

type outcome struct {
	step    string
	result  any
	err     error
	elapsed time.Duration
}

// execute runs the phase's steps and returns their outcomes in declared
// order. Steps missing from fns are not run. A step failure never cancels
// its siblings.
func (p Phase) execute(ctx context.Context, fns map[string]stepFunc) []outcome {
	out := make([]outcome, len(p.Steps))
	call := func(i int) {
		name := p.Steps[i]
		fn, ok := fns[name]
		if !ok {
			out[i] = outcome{step: name, err: errSkipped}
			return
		}
		start := time.Now()
		res, err := safeCall(ctx, fn)
		out[i] = outcome{step: name, result: res, err: err, elapsed: time.Since(start)}
	}

	if !p.Parallel {
		for i := range p.Steps {
			call(i)
		}
		return out
	}
	var g errgroup.Group
	for i := range p.Steps {
		g.Go(func() error {
			call(i)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// abortError returns the first failure when the phase policy is Abort.
func (p Phase) abortError(outcomes []outcome) error {
	if p.OnFailure != Abort {
		return nil
	}
	for _, o := range outcomes {
		if o.err != nil && o.err != errSkipped {
			return fmt.Errorf("%s failed: %w", o.step, o.err)
		}
	}
	return nil
}

func safeCall(ctx context.Context, fn stepFunc) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step panicked: %v", r)
		}
	}()
	return fn(ctx)
}
