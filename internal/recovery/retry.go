package recovery

import (
	"context"
	"fmt"
	"time"

	"reality-studio-backend/internal/models"
)

type Options struct {
	MaxAttempts int
	// BaseDelay grows linearly: attempt n waits BaseDelay*n before n+1.
	BaseDelay time.Duration
	Service   string
	Reporter  *Reporter
}

// TerminalError is returned once every attempt has failed or the failure is
// not retryable.
type TerminalError struct {
	Service         string
	Attempts        int
	Message         string
	SuggestedAction string
	Err             error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("%s failed after %d attempt(s): %v", e.Service, e.Attempts, e.Err)
}

func (e *TerminalError) Unwrap() error {
	return e.Err
}

// Retry runs op until it succeeds, fails with a non-retryable error or runs
// out of attempts. Each failure is reported; a success after failures
// resolves the earlier reports.
func Retry(ctx context.Context, op func(ctx context.Context) error, opts Options) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	if opts.Service == "" {
		opts.Service = "operation"
	}

	var reported []*models.ErrorLog
	var lastErr error
	attempt := 0
loop:
	for attempt < opts.MaxAttempts {
		attempt++
		err := op(ctx)
		if err == nil {
			if opts.Reporter != nil && len(reported) > 0 {
				opts.Reporter.Resolve(ctx, opts.Service, reported...)
			}
			return nil
		}
		lastErr = err
		if opts.Reporter != nil {
			reported = append(reported, opts.Reporter.Report(ctx, opts.Service, attempt, err))
		}
		if !Classify(err).Retryable || attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			lastErr = ctx.Err()
			break loop
		case <-time.After(opts.BaseDelay * time.Duration(attempt)):
		}
	}

	c := Classify(lastErr)
	return &TerminalError{
		Service:         opts.Service,
		Attempts:        attempt,
		Message:         c.UserMessage,
		SuggestedAction: c.SuggestedAction,
		Err:             lastErr,
	}
}
