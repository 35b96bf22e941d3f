package backend

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tjfontaine/replyloop/internal/domain"
)

// TokenCounter counts the tokens of a chat exchange.
type TokenCounter interface {
	CountChat(model string, messages ...string) (int, error)
}

// Metered wraps a Completer with prompt token accounting, an optional prompt
// size guard, call logging and error normalization.
type Metered struct {
	next      Completer
	counter   TokenCounter
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewMetered wraps next. maxPromptTokens <= 0 disables the guard; a nil
// counter disables counting altogether.
func NewMetered(next Completer, counter TokenCounter, model string, maxPromptTokens int, logger *slog.Logger) *Metered {
	if logger == nil {
		logger = slog.Default()
	}
	return &Metered{
		next:      next,
		counter:   counter,
		model:     model,
		maxTokens: maxPromptTokens,
		logger:    logger,
	}
}

// Name returns the wrapped backend's name.
func (m *Metered) Name() string {
	return m.next.Name()
}

// Complete counts the prompt, enforces the guard, and delegates.
func (m *Metered) Complete(ctx context.Context, p *Prompt) (*Completion, error) {
	promptTokens := -1
	if m.counter != nil {
		n, err := m.counter.CountChat(m.model, p.System, p.User)
		if err != nil {
			m.logger.Warn("prompt token count failed",
				slog.String("stage", p.Stage),
				slog.String("error", err.Error()))
		} else {
			promptTokens = n
		}
	}

	if m.maxTokens > 0 && promptTokens > m.maxTokens {
		return nil, domain.ErrInvalidInput(fmt.Sprintf("%s prompt has %d tokens, limit is %d", p.Stage, promptTokens, m.maxTokens))
	}

	start := time.Now()
	out, err := m.next.Complete(ctx, p)
	if err != nil {
		m.logger.Error("completion failed",
			slog.String("backend", m.next.Name()),
			slog.String("stage", p.Stage),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		if domain.ErrorTypeOf(err) == "" {
			return nil, domain.ErrModel(m.next.Name(), err)
		}
		return nil, err
	}

	m.logger.Info("completion finished",
		slog.String("backend", m.next.Name()),
		slog.String("stage", p.Stage),
		slog.String("model", out.Model),
		slog.Int("prompt_tokens", promptTokens),
		slog.Int("completion_tokens", out.Usage.CompletionTokens),
		slog.Duration("duration", time.Since(start)))

	return out, nil
}

var _ Completer = (*Metered)(nil)
