package openai

import (
	"context"
	"net/http"
	"testing"

	"github.com/tjfontaine/replyloop/internal/backend"
	"github.com/tjfontaine/replyloop/internal/domain"
	"github.com/tjfontaine/replyloop/internal/testutil"
)

const (
	testBaseURL        = "https://api.openai.test/v1/"
	testCompletionsURL = "https://api.openai.test/v1/chat/completions"
)

func newTestBackend(t *testing.T, client *http.Client) backend.Completer {
	t.Helper()
	b, err := New(backend.Settings{
		Type:       BackendType,
		Model:      "gpt-4o-2024-08-06",
		APIKey:     "test-key",
		BaseURL:    testBaseURL,
		HTTPClient: client,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

func TestBackend_Complete(t *testing.T) {
	recorder, cleanup := testutil.NewReplayRecorder(t, "openai_complete", testutil.Interaction{
		Method: http.MethodPost,
		URL:    testCompletionsURL,
		Status: http.StatusOK,
		ResponseBody: `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1718000000,
			"model": "gpt-4o-2024-08-06",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Customer John asks when 5 blue widgets will arrive."},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 42, "completion_tokens": 12, "total_tokens": 54}
		}`,
	})
	defer cleanup()

	b := newTestBackend(t, testutil.VCRHTTPClient(recorder))

	resp, err := b.Complete(context.Background(), &backend.Prompt{
		Stage:  "summarize",
		System: "You are an expert email analyst.",
		User:   "Please analyze this email thread...",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if resp.Text != "Customer John asks when 5 blue widgets will arrive." {
		t.Errorf("unexpected text: %q", resp.Text)
	}
	if resp.Model != "gpt-4o-2024-08-06" {
		t.Errorf("unexpected model: %q", resp.Model)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("unexpected finish reason: %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 54 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}
}

func TestBackend_Complete_WithSchema(t *testing.T) {
	recorder, cleanup := testutil.NewReplayRecorder(t, "openai_schema", testutil.Interaction{
		Method: http.MethodPost,
		URL:    testCompletionsURL,
		Status: http.StatusOK,
		ResponseBody: `{
			"id": "chatcmpl-2",
			"object": "chat.completion",
			"created": 1718000000,
			"model": "gpt-4o-2024-08-06",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "{\"summary\":\"delivery question\",\"key_points\":[\"5 blue widgets\"]}"},
				"finish_reason": "stop"
			}],
			"usage": {"prompt_tokens": 40, "completion_tokens": 20, "total_tokens": 60}
		}`,
	})
	defer cleanup()

	b := newTestBackend(t, testutil.VCRHTTPClient(recorder))

	resp, err := b.Complete(context.Background(), &backend.Prompt{
		Stage: "summarize",
		User:  "summarize",
		Schema: &backend.Schema{
			Name:        "email_summary",
			Description: "Summary of an email thread",
			Definition: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"summary":    map[string]any{"type": "string"},
					"key_points": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
				"required":             []string{"summary", "key_points"},
				"additionalProperties": false,
			},
		},
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	// Structured output is passed through untouched.
	want := `{"summary":"delivery question","key_points":["5 blue widgets"]}`
	if resp.Text != want {
		t.Errorf("text = %q, want %q", resp.Text, want)
	}
}

func TestBackend_Complete_APIError(t *testing.T) {
	recorder, cleanup := testutil.NewReplayRecorder(t, "openai_error", testutil.Interaction{
		Method:       http.MethodPost,
		URL:          testCompletionsURL,
		Status:       http.StatusUnauthorized,
		ResponseBody: `{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error", "code": "invalid_api_key"}}`,
	})
	defer cleanup()

	b := newTestBackend(t, testutil.VCRHTTPClient(recorder))

	_, err := b.Complete(context.Background(), &backend.Prompt{Stage: "draft", User: "hello"})
	if err == nil {
		t.Fatal("expected error")
	}
	if got := domain.ErrorTypeOf(err); got != domain.ErrorTypeModel {
		t.Errorf("error type = %q, want %q", got, domain.ErrorTypeModel)
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	if _, err := New(backend.Settings{Model: "gpt-4o"}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestToMessages(t *testing.T) {
	msgs := toMessages(&backend.Prompt{User: "only user"})
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message without system prompt, got %d", len(msgs))
	}

	msgs = toMessages(&backend.Prompt{System: "sys", User: "user"})
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
}
