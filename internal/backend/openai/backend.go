// Package openai implements the completion backend on top of the official
// openai-go SDK. Any OpenAI-compatible endpoint works via base_url.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/tjfontaine/replyloop/internal/backend"
	"github.com/tjfontaine/replyloop/internal/domain"
)

// BackendType is the backend type identifier used in configuration.
const BackendType = "openai"

// RegisterFactory registers the OpenAI backend factory.
func RegisterFactory() {
	if backend.IsRegistered(BackendType) {
		return
	}
	backend.RegisterFactory(backend.Factory{
		Type:           BackendType,
		Description:    "OpenAI chat completions (official SDK)",
		RequiresAPIKey: true,
		Create:         New,
	})
}

// Backend implements backend.Completer using chat completions.
type Backend struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int
}

// New creates a new OpenAI backend. The SDK's built-in retries are disabled:
// a failed call fails the run.
func New(s backend.Settings) (backend.Completer, error) {
	if s.APIKey == "" {
		return nil, errors.New("openai api key missing; provide llm.api_key")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(s.APIKey),
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	if s.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(s.HTTPClient))
	}

	return &Backend{
		client:      openai.NewClient(opts...),
		model:       s.Model,
		temperature: s.Temperature,
		maxTokens:   s.MaxTokens,
	}, nil
}

func (b *Backend) Name() string {
	return BackendType
}

func (b *Backend) Complete(ctx context.Context, p *backend.Prompt) (*backend.Completion, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(b.model),
		Messages: toMessages(p),
	}
	if b.temperature > 0 {
		params.Temperature = openai.Float(b.temperature)
	}
	if b.maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(b.maxTokens))
	}
	if p.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        p.Schema.Name,
					Description: openai.String(p.Schema.Description),
					Schema:      p.Schema.Definition,
					Strict:      openai.Bool(true),
				},
			},
		}
	}

	resp, err := b.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, toPipelineError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.ErrModel(BackendType, errors.New("empty choices"))
	}

	choice := resp.Choices[0]
	return &backend.Completion{
		Text:         choice.Message.Content,
		Model:        resp.Model,
		FinishReason: string(choice.FinishReason),
		Usage: backend.Usage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}, nil
}

func toMessages(p *backend.Prompt) []openai.ChatCompletionMessageParamUnion {
	var msgs []openai.ChatCompletionMessageParamUnion
	if p.System != "" {
		msgs = append(msgs, openai.SystemMessage(p.System))
	}
	return append(msgs, openai.UserMessage(p.User))
}

func toPipelineError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return domain.ErrModel(BackendType, fmt.Errorf("api error: %w", err)).
			WithStatusCode(apiErr.StatusCode)
	}
	return domain.ErrModel(BackendType, err)
}

var _ backend.Completer = (*Backend)(nil)
