// Package echo provides an offline backend that answers every prompt with a
// deterministic rendition of its input. It is intended for local dry runs of
// the approval loop and for tests.
package echo

import (
	"context"
	"fmt"
	"strings"

	"github.com/tjfontaine/replyloop/internal/backend"
)

// BackendType is the backend type identifier used in configuration.
const BackendType = "echo"

// RegisterFactory registers the echo backend factory.
func RegisterFactory() {
	if backend.IsRegistered(BackendType) {
		return
	}
	backend.RegisterFactory(backend.Factory{
		Type:        BackendType,
		Description: "Offline backend that echoes prompts back",
		Create:      New,
	})
}

// Backend never calls out to a model.
type Backend struct {
	model string
}

// New creates a new echo backend.
func New(s backend.Settings) (backend.Completer, error) {
	return &Backend{model: s.Model}, nil
}

func (b *Backend) Name() string {
	return BackendType
}

// Complete returns the stage name followed by the user message, quoted.
func (b *Backend) Complete(ctx context.Context, p *backend.Prompt) (*backend.Completion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s]\n", p.Stage)
	for _, line := range strings.Split(strings.TrimSpace(p.User), "\n") {
		sb.WriteString("> ")
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	text := sb.String()
	words := len(strings.Fields(p.System)) + len(strings.Fields(p.User))
	return &backend.Completion{
		Text:         text,
		Model:        b.model,
		FinishReason: "stop",
		Usage: backend.Usage{
			PromptTokens:     words,
			CompletionTokens: len(strings.Fields(text)),
			TotalTokens:      words + len(strings.Fields(text)),
		},
	}, nil
}

var _ backend.Completer = (*Backend)(nil)
