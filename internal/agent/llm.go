package agent

import (
	"context"
	"fmt"

	"github.com/tjfontaine/replyloop/internal/backend"
	"github.com/tjfontaine/replyloop/internal/domain"
)

// LLMSummarizer implements Summarizer over a completion backend.
type LLMSummarizer struct {
	llm  backend.Completer
	opts options
}

// NewSummarizer creates a summarizer.
func NewSummarizer(llm backend.Completer, opts ...Option) (*LLMSummarizer, error) {
	if llm == nil {
		return nil, errNoBackend
	}
	return &LLMSummarizer{llm: llm, opts: buildOptions(opts)}, nil
}

func (s *LLMSummarizer) Summarize(ctx context.Context, thread domain.Thread) (domain.Summary, error) {
	p := &backend.Prompt{
		Stage:  StageSummarize,
		System: summarizerInstruction,
		User:   summarizePrompt(thread, s.opts.focus),
	}
	if s.opts.structured {
		p.Schema = summarySchema
	}

	out, err := s.llm.Complete(ctx, p)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("summarize: %w", err)
	}
	return domain.Summary{Text: out.Text}, nil
}

// LLMDrafter implements Drafter over a completion backend.
type LLMDrafter struct {
	llm  backend.Completer
	opts options
}

// NewDrafter creates a drafter.
func NewDrafter(llm backend.Completer, opts ...Option) (*LLMDrafter, error) {
	if llm == nil {
		return nil, errNoBackend
	}
	return &LLMDrafter{llm: llm, opts: buildOptions(opts)}, nil
}

func (d *LLMDrafter) Draft(ctx context.Context, thread domain.Thread, summary domain.Summary) (domain.Draft, error) {
	p := &backend.Prompt{
		Stage:  StageDraft,
		System: drafterInstruction,
		User:   draftPrompt(thread, summary),
	}
	if d.opts.structured {
		p.Schema = responseSchema
	}

	out, err := d.llm.Complete(ctx, p)
	if err != nil {
		return domain.Draft{}, fmt.Errorf("draft: %w", err)
	}
	return domain.Draft{Body: out.Text}, nil
}

// LLMRefiner implements Refiner over a completion backend. It never declares
// a schema.
type LLMRefiner struct {
	llm backend.Completer
}

// NewRefiner creates a refiner.
func NewRefiner(llm backend.Completer) (*LLMRefiner, error) {
	if llm == nil {
		return nil, errNoBackend
	}
	return &LLMRefiner{llm: llm}, nil
}

func (r *LLMRefiner) Refine(ctx context.Context, draft domain.Draft, comment string) (domain.Draft, error) {
	out, err := r.llm.Complete(ctx, &backend.Prompt{
		Stage:  StageRefine,
		System: refinerInstruction,
		User:   refinePrompt(draft, comment),
	})
	if err != nil {
		return domain.Draft{}, fmt.Errorf("refine revision %d: %w", draft.Revision+1, err)
	}
	return domain.Draft{Body: out.Text, Revision: draft.Revision + 1}, nil
}

var (
	_ Summarizer = (*LLMSummarizer)(nil)
	_ Drafter    = (*LLMDrafter)(nil)
	_ Refiner    = (*LLMRefiner)(nil)
)
