// Package workflow sequences a reply run: summarize the thread, draft a
// reply, then loop through approval and refinement until the approver signs
// off or the run fails.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tjfontaine/replyloop/internal/agent"
	"github.com/tjfontaine/replyloop/internal/approval"
	"github.com/tjfontaine/replyloop/internal/domain"
)

// DefaultMaxRevisions bounds the refinement loop when no limit is configured.
const DefaultMaxRevisions = 10

const tracerName = "github.com/tjfontaine/replyloop/internal/workflow"

// Agents bundles the model-backed steps of a run.
type Agents struct {
	Summarizer agent.Summarizer
	Drafter    agent.Drafter
	Refiner    agent.Refiner
}

// Request is the input of one run.
type Request struct {
	Thread domain.Thread
	// Sender is forwarded to the approver. Empty fields fall back to the
	// orchestrator's default sender.
	Sender domain.Sender
}

// Orchestrator runs the reply state machine. It holds no per-run state and
// may execute independent runs concurrently.
type Orchestrator struct {
	agents       Agents
	gate         approval.Gate
	maxRevisions int
	sender       domain.Sender
	logger       *slog.Logger
	hooks        LifecycleHooks
	metrics      *Metrics
	tracer       trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxRevisions sets how many refinements a run may go through. The next
// rejection after the limit fails the run; zero fails on the first rejection.
func WithMaxRevisions(n int) Option {
	return func(o *Orchestrator) {
		o.maxRevisions = n
	}
}

// WithDefaultSender sets the sender metadata used when a request omits it.
func WithDefaultSender(s domain.Sender) Option {
	return func(o *Orchestrator) {
		o.sender = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(h LifecycleHooks) Option {
	return func(o *Orchestrator) {
		o.hooks = h
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

// New creates an orchestrator.
func New(agents Agents, gate approval.Gate, opts ...Option) (*Orchestrator, error) {
	if agents.Summarizer == nil || agents.Drafter == nil || agents.Refiner == nil {
		return nil, errors.New("workflow: summarizer, drafter and refiner are required")
	}
	if gate == nil {
		return nil, errors.New("workflow: approval gate is required")
	}

	o := &Orchestrator{
		agents:       agents,
		gate:         gate,
		maxRevisions: DefaultMaxRevisions,
		logger:       slog.Default(),
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}

	if o.maxRevisions < 0 {
		return nil, fmt.Errorf("workflow: max revisions must be >= 0, got %d", o.maxRevisions)
	}
	return o, nil
}

// Execute performs one run. On success the returned run is DONE and
// Run.Email holds the approved reply. On failure no run is returned and the
// error is a *RunError naming the state the run died in.
func (o *Orchestrator) Execute(ctx context.Context, req Request) (*Run, error) {
	run := newRun()
	logger := o.logger.With(slog.String("run_id", run.ID))

	ctx, span := o.tracer.Start(ctx, "replyloop.run", trace.WithAttributes(
		attribute.String("replyloop.run_id", run.ID),
	))
	defer span.End()

	logger.Info("run started",
		slog.String("state", string(run.State)),
		slog.Int("thread_bytes", len(req.Thread.Text)))

	sender := req.Sender.WithDefaults(o.sender)
	if err := o.execute(ctx, run, req.Thread, sender, logger); err != nil {
		failedIn := run.State
		_ = o.transition(ctx, run, StateFailed, logger)

		o.metrics.runFinished(outcomeFailed, run.Revision)
		o.metrics.stageFailed(failedIn, domain.ErrorTypeOf(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		logger.Error("run failed",
			slog.String("state", string(failedIn)),
			slog.Int("revision", run.Revision),
			slog.String("error", err.Error()))

		return nil, &RunError{RunID: run.ID, State: failedIn, Revision: run.Revision, Err: err}
	}

	o.metrics.runFinished(outcomeApproved, run.Revision)
	span.SetAttributes(attribute.Int("replyloop.revisions", run.Revision))

	logger.Info("run finished",
		slog.String("state", string(run.State)),
		slog.Int("revision", run.Revision),
		slog.Duration("duration", run.EndedAt.Sub(run.StartedAt)))

	return run, nil
}

func (o *Orchestrator) execute(ctx context.Context, run *Run, thread domain.Thread, sender domain.Sender, logger *slog.Logger) error {
	if thread.IsEmpty() {
		return domain.ErrInvalidInput("email thread is empty")
	}

	var summary domain.Summary
	err := o.callModel(ctx, run, agent.StageSummarize, func(ctx context.Context) error {
		var err error
		summary, err = o.agents.Summarizer.Summarize(ctx, thread)
		return err
	})
	if err != nil {
		return err
	}
	run.Summary = summary.Text
	if err := o.transition(ctx, run, StateSummarized, logger); err != nil {
		return err
	}

	var draft domain.Draft
	err = o.callModel(ctx, run, agent.StageDraft, func(ctx context.Context) error {
		var err error
		draft, err = o.agents.Drafter.Draft(ctx, thread, summary)
		return err
	})
	if err != nil {
		return err
	}
	draft.Revision = 0
	run.Draft = draft
	if err := o.transition(ctx, run, StateDrafted, logger); err != nil {
		return err
	}

	for {
		if err := o.transition(ctx, run, StateAwaitingApproval, logger); err != nil {
			return err
		}

		fb, err := o.review(ctx, run, sender)
		if err != nil {
			return err
		}

		if fb.Approved() {
			if err := o.transition(ctx, run, StateApproved, logger); err != nil {
				return err
			}
			break
		}

		if run.Revision >= o.maxRevisions {
			return domain.ErrRevisionLimit(o.maxRevisions)
		}

		if err := o.transition(ctx, run, StateRevising, logger); err != nil {
			return err
		}
		logger.Info("revising draft",
			slog.Int("revision", run.Revision+1),
			slog.String("comment", fb.Comment))

		current := run.Draft
		var next domain.Draft
		err = o.callModel(ctx, run, agent.StageRefine, func(ctx context.Context) error {
			var err error
			next, err = o.agents.Refiner.Refine(ctx, current, fb.Comment)
			return err
		})
		if err != nil {
			return err
		}

		run.Revision++
		next.Revision = run.Revision
		run.Draft = next
	}

	return o.transition(ctx, run, StateDone, logger)
}

// callModel runs one model-backed step inside its own span.
func (o *Orchestrator) callModel(ctx context.Context, run *Run, stage string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}

	ctx, span := o.tracer.Start(ctx, "replyloop."+stage, trace.WithAttributes(
		attribute.Int("replyloop.revision", run.Revision),
	))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)

	o.metrics.modelCallObserved(stage, d)
	o.hooks.modelCall(ctx, &ModelCallEvent{
		RunID:    run.ID,
		Stage:    stage,
		Revision: run.Revision,
		Duration: d,
		Err:      err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (o *Orchestrator) review(ctx context.Context, run *Run, sender domain.Sender) (*domain.Feedback, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("approval: %w", err)
	}

	ctx, span := o.tracer.Start(ctx, "replyloop.approval", trace.WithAttributes(
		attribute.Int("replyloop.revision", run.Revision),
	))
	defer span.End()

	start := time.Now()
	fb, err := o.gate.Review(ctx, approval.Submission{
		RunID:  run.ID,
		Sender: sender,
		Draft:  run.Draft,
	})
	d := time.Since(start)

	o.metrics.approvalObserved(fb, d)
	o.hooks.approval(ctx, &ApprovalEvent{
		RunID:    run.ID,
		Revision: run.Revision,
		Feedback: fb,
		Duration: d,
		Err:      err,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if fb == nil {
		return nil, domain.ErrMalformedResponse("approval gate returned no decision", nil)
	}

	span.SetAttributes(attribute.String("replyloop.decision", string(fb.Decision)))
	return fb, nil
}

func (o *Orchestrator) transition(ctx context.Context, run *Run, to State, logger *slog.Logger) error {
	t, err := run.moveTo(to)
	if err != nil {
		return err
	}

	logger.Info("state transition",
		slog.String("from", string(t.From)),
		slog.String("state", string(t.To)),
		slog.Int("revision", t.Revision))

	o.hooks.transition(ctx, &TransitionEvent{
		RunID:    run.ID,
		From:     t.From,
		To:       t.To,
		Revision: t.Revision,
	})
	return nil
}
