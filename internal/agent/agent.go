// Package agent holds the three model-backed steps of a reply run: the
// summarizer, the drafter and the refiner. Each formats one prompt embedding
// its inputs verbatim, issues a single completion, and returns the model's
// text unprocessed.
package agent

import (
	"context"
	"errors"

	"github.com/tjfontaine/replyloop/internal/domain"
)

// Stage names passed to the backend for logging and metrics.
const (
	StageSummarize = "summarize"
	StageDraft     = "draft"
	StageRefine    = "refine"
)

// Summarizer condenses a customer thread.
type Summarizer interface {
	Summarize(ctx context.Context, thread domain.Thread) (domain.Summary, error)
}

// Drafter writes the first reply from a thread and its summary.
type Drafter interface {
	Draft(ctx context.Context, thread domain.Thread, summary domain.Summary) (domain.Draft, error)
}

// Refiner rewrites a draft according to an approver's comment. The returned
// draft replaces the input and carries the next revision number.
type Refiner interface {
	Refine(ctx context.Context, draft domain.Draft, comment string) (domain.Draft, error)
}

// Option configures the LLM-backed agents.
type Option func(*options)

type options struct {
	focus      string
	structured bool
}

// WithFocus sets the extra guidance appended to the summarization request.
func WithFocus(focus string) Option {
	return func(o *options) {
		o.focus = focus
	}
}

// WithStructuredOutput declares response schemas for the summary and draft
// calls. The returned text is still passed through as-is.
func WithStructuredOutput(enabled bool) Option {
	return func(o *options) {
		o.structured = enabled
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var errNoBackend = errors.New("agent: completion backend is required")
