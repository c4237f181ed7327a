// Package recovery classifies failures, reports them to telemetry and
// wraps user-initiated operations in a bounded retry.
package recovery

import (
	"context"
	"errors"
	"net"

	"reality-studio-backend/internal/generator"
	"reality-studio-backend/internal/models"
	"reality-studio-backend/internal/render"
	"reality-studio-backend/internal/stages"
	"reality-studio-backend/internal/store"
)

type Category string

const (
	CategoryNetwork    Category = "network"
	CategoryTimeout    Category = "timeout"
	CategoryValidation Category = "validation"
	CategoryNotFound   Category = "not_found"
	CategoryConflict   Category = "conflict"
	CategoryUpstream   Category = "upstream"
	CategoryMalformed  Category = "malformed_output"
	CategoryCanceled   Category = "canceled"
	CategoryUnknown    Category = "unknown"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type Classification struct {
	Category        Category `json:"category"`
	Severity        Severity `json:"severity"`
	Retryable       bool     `json:"retryable"`
	UserMessage     string   `json:"user_message"`
	SuggestedAction string   `json:"suggested_action"`
}

// Classify maps an error onto a category and the message shown to users.
// It never exposes the raw error text.
func Classify(err error) Classification {
	var netErr net.Error
	switch {
	case err == nil:
		return Classification{Category: CategoryUnknown, Severity: SeverityLow}
	case errors.Is(err, context.Canceled):
		return Classification{CategoryCanceled, SeverityLow, false,
			"The operation was cancelled.", "Start the operation again when ready."}
	case errors.Is(err, context.DeadlineExceeded):
		return Classification{CategoryTimeout, SeverityMedium, true,
			"The operation took too long to finish.", "Retry in a moment."}
	case errors.Is(err, stages.ErrValidation):
		return Classification{CategoryValidation, SeverityLow, false,
			"The request was missing or had invalid fields.", "Check the input and try again."}
	case errors.Is(err, store.ErrNotFound):
		return Classification{CategoryNotFound, SeverityLow, false,
			"The requested item no longer exists.", "Refresh the page."}
	case errors.Is(err, models.ErrInvalidTransition):
		return Classification{CategoryConflict, SeverityMedium, false,
			"The episode changed while this operation was running.", "Refresh and retry render."}
	case errors.Is(err, models.ErrEmptyManifest):
		return Classification{CategoryValidation, SeverityMedium, false,
			"The episode has no frames to render yet.", "Regenerate the episode storyboard."}
	case errors.Is(err, render.ErrEngineUnreachable):
		return Classification{CategoryNetwork, SeverityHigh, true,
			"The video engine could not be reached.", "Retry render."}
	case errors.Is(err, render.ErrEngineRejected):
		return Classification{CategoryUpstream, SeverityHigh, false,
			"The video engine could not render this episode.", "Retry render with a different quality setting."}
	case errors.Is(err, generator.ErrMalformed):
		return Classification{CategoryMalformed, SeverityMedium, true,
			"The content generator returned an unusable answer.", "Retry the operation."}
	case errors.Is(err, generator.ErrUpstream):
		return Classification{CategoryUpstream, SeverityHigh, true,
			"The content generator is unavailable.", "Retry in a few minutes."}
	case errors.As(err, &netErr):
		if netErr.Timeout() {
			return Classification{CategoryTimeout, SeverityMedium, true,
				"The connection timed out.", "Check connection and retry."}
		}
		return Classification{CategoryNetwork, SeverityHigh, true,
			"A network error occurred.", "Check connection and retry."}
	}
	return Classification{CategoryUnknown, SeverityHigh, true,
		"Something went wrong.", "Retry the operation."}
}
