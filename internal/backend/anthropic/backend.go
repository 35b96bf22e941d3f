// Package anthropic implements the completion backend against the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tjfontaine/replyloop/internal/backend"
	"github.com/tjfontaine/replyloop/internal/domain"
)

// BackendType is the backend type identifier used in configuration.
const BackendType = "anthropic"

// defaultMaxTokens is sent when llm.max_tokens is unset; the API requires one.
const defaultMaxTokens = 4096

// RegisterFactory registers the Anthropic backend factory.
func RegisterFactory() {
	if backend.IsRegistered(BackendType) {
		return
	}
	backend.RegisterFactory(backend.Factory{
		Type:           BackendType,
		Description:    "Anthropic Messages API (Claude models)",
		RequiresAPIKey: true,
		Create:         New,
	})
}

// Backend implements backend.Completer using the Messages API.
type Backend struct {
	client      *Client
	model       string
	temperature float64
	maxTokens   int
}

// New creates a new Anthropic backend.
func New(s backend.Settings) (backend.Completer, error) {
	if s.APIKey == "" {
		return nil, errors.New("anthropic api key missing; provide llm.api_key")
	}

	var opts []ClientOption
	if s.BaseURL != "" {
		opts = append(opts, WithBaseURL(s.BaseURL))
	}
	if s.HTTPClient != nil {
		opts = append(opts, WithHTTPClient(s.HTTPClient))
	}

	maxTokens := s.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Backend{
		client:      NewClient(s.APIKey, opts...),
		model:       s.Model,
		temperature: s.Temperature,
		maxTokens:   maxTokens,
	}, nil
}

func (b *Backend) Name() string {
	return BackendType
}

func (b *Backend) Complete(ctx context.Context, p *backend.Prompt) (*backend.Completion, error) {
	req := &MessagesRequest{
		Model:     b.model,
		MaxTokens: b.maxTokens,
		System:    systemPrompt(p),
		Messages:  []Message{{Role: "user", Content: p.User}},
	}
	if b.temperature > 0 {
		t := b.temperature
		req.Temperature = &t
	}

	resp, err := b.client.CreateMessage(ctx, req)
	if err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) {
			return nil, domain.ErrModel(BackendType, err).WithStatusCode(statusErr.StatusCode)
		}
		return nil, domain.ErrModel(BackendType, err)
	}

	return &backend.Completion{
		Text:         resp.Text(),
		Model:        resp.Model,
		FinishReason: resp.StopReason,
		Usage: backend.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}, nil
}

// systemPrompt appends the response schema to the instruction, since the
// Messages API has no response_format.
func systemPrompt(p *backend.Prompt) string {
	if p.Schema == nil {
		return p.System
	}

	schema, err := json.Marshal(p.Schema.Definition)
	if err != nil {
		return p.System
	}

	var sb strings.Builder
	if p.System != "" {
		sb.WriteString(p.System)
		sb.WriteString("\n\n")
	}
	fmt.Fprintf(&sb, "Respond only with JSON (%s) matching this schema:\n%s", p.Schema.Name, schema)
	return sb.String()
}

var _ backend.Completer = (*Backend)(nil)
