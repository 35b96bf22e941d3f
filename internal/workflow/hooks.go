package workflow

import (
	"context"
	"time"

	"github.com/tjfontaine/replyloop/internal/domain"
)

// TransitionEvent is emitted after every state change.
type TransitionEvent struct {
	RunID    string
	From     State
	To       State
	Revision int
}

// ModelCallEvent is emitted after each summarize, draft or refine call.
type ModelCallEvent struct {
	RunID    string
	Stage    string
	Revision int
	Duration time.Duration
	Err      error
}

// ApprovalEvent is emitted after each approval round trip.
type ApprovalEvent struct {
	RunID    string
	Revision int
	Feedback *domain.Feedback
	Duration time.Duration
	Err      error
}

// LifecycleHooks observe a run. Any field may be nil. Hooks run synchronously
// on the run's goroutine and must not block.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnModelCall  func(context.Context, *ModelCallEvent)
	OnApproval   func(context.Context, *ApprovalEvent)
}

func (h LifecycleHooks) transition(ctx context.Context, e *TransitionEvent) {
	if h.OnTransition != nil {
		h.OnTransition(ctx, e)
	}
}

func (h LifecycleHooks) modelCall(ctx context.Context, e *ModelCallEvent) {
	if h.OnModelCall != nil {
		h.OnModelCall(ctx, e)
	}
}

func (h LifecycleHooks) approval(ctx context.Context, e *ApprovalEvent) {
	if h.OnApproval != nil {
		h.OnApproval(ctx, e)
	}
}
