package recovery_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reality-studio-backend/internal/generator"
	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/recovery"
	"reality-studio-backend/internal/render"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		category  recovery.Category
		retryable bool
	}{
		{"validation", fmt.Errorf("wrap: %w", stages.ErrValidation), recovery.CategoryValidation, false},
		{"not found", fmt.Errorf("episode x: %w", store.ErrNotFound), recovery.CategoryNotFound, false},
		{"engine down", fmt.Errorf("%w: refused", render.ErrEngineUnreachable), recovery.CategoryNetwork, true},
		{"upstream", generator.ErrUpstream, recovery.CategoryUpstream, true},
		{"malformed", generator.ErrMalformed, recovery.CategoryMalformed, true},
		{"deadline", context.DeadlineExceeded, recovery.CategoryTimeout, true},
		{"canceled", context.Canceled, recovery.CategoryCanceled, false},
		{"transition", models.ErrInvalidTransition, recovery.CategoryConflict, false},
		{"unknown", errors.New("boom"), recovery.CategoryUnknown, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := recovery.Classify(tt.err)
			assert.Equal(t, tt.category, c.Category)
			assert.Equal(t, tt.retryable, c.Retryable)
			assert.NotEmpty(t, c.UserMessage)
			assert.NotContains(t, c.UserMessage, tt.err.Error())
		})
	}
}

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	mem := store.NewMemory()
	reporter := recovery.NewReporter(mem, hclog.NewNullLogger())

	calls := 0
	err := recovery.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return generator.ErrUpstream
		}
		return nil
	}, recovery.Options{MaxAttempts: 3, BaseDelay: time.Millisecond, Service: "render-retry", Reporter: reporter})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	logs := mem.ErrorLogs()
	require.Len(t, logs, 2)
	for _, l := range logs {
		assert.True(t, l.Resolved)
	}
	h, ok := mem.Health("render-retry")
	require.True(t, ok)
	assert.Equal(t, models.HealthHealthy, h.Status)
}

func TestRetry_Terminal(t *testing.T) {
	mem := store.NewMemory()
	reporter := recovery.NewReporter(mem, hclog.NewNullLogger())

	calls := 0
	err := recovery.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return render.ErrEngineUnreachable
	}, recovery.Options{MaxAttempts: 3, BaseDelay: time.Millisecond, Service: "render-retry", Reporter: reporter})

	var terminal *recovery.TerminalError
	require.ErrorAs(t, err, &terminal)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, terminal.Attempts)
	assert.Equal(t, "Retry render.", terminal.SuggestedAction)
	assert.True(t, errors.Is(err, render.ErrEngineUnreachable))

	assert.Len(t, mem.ErrorLogs(), 3)
	h, _ := mem.Health("render-retry")
	assert.Equal(t, models.HealthDegraded, h.Status)
	assert.Equal(t, 3, h.ErrorCount)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	calls := 0
	err := recovery.Retry(context.Background(), func(ctx context.Context) error {
		calls++
		return fmt.Errorf("bad: %w", stages.ErrValidation)
	}, recovery.Options{MaxAttempts: 5, BaseDelay: time.Millisecond})

	var terminal *recovery.TerminalError
	require.ErrorAs(t, err, &terminal)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, terminal.Attempts)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := recovery.Retry(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return generator.ErrUpstream
	}, recovery.Options{MaxAttempts: 3, BaseDelay: time.Hour})

	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, context.Canceled))
}
