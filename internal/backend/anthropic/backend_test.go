package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tjfontaine/replyloop/internal/backend"
	"github.com/tjfontaine/replyloop/internal/domain"
)

func TestBackend_Complete(t *testing.T) {
	var got MessagesRequest
	var headers http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		headers = r.Header.Clone()
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-sonnet-4-5",
			"content": [{"type": "text", "text": "Dear John, "}, {"type": "text", "text": "your widgets ship Monday."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 30, "output_tokens": 9}
		}`))
	}))
	defer srv.Close()

	b, err := New(backend.Settings{
		Type:    BackendType,
		Model:   "claude-sonnet-4-5",
		APIKey:  "sk-ant-test",
		BaseURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := b.Complete(context.Background(), &backend.Prompt{
		Stage:  "draft",
		System: "You are a professional email writer.",
		User:   "Write the reply.",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if resp.Text != "Dear John, your widgets ship Monday." {
		t.Errorf("unexpected text %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 39 {
		t.Errorf("unexpected usage %+v", resp.Usage)
	}
	if headers.Get("x-api-key") != "sk-ant-test" {
		t.Errorf("missing api key header")
	}
	if headers.Get("anthropic-version") != defaultVersion {
		t.Errorf("unexpected version header %q", headers.Get("anthropic-version"))
	}
	if got.MaxTokens != defaultMaxTokens {
		t.Errorf("max_tokens = %d, want %d", got.MaxTokens, defaultMaxTokens)
	}
	if got.System != "You are a professional email writer." {
		t.Errorf("unexpected system %q", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "Write the reply." {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
}

func TestBackend_Complete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"type": "error", "error": {"type": "rate_limit_error", "message": "slow down"}}`))
	}))
	defer srv.Close()

	b, err := New(backend.Settings{Model: "claude-sonnet-4-5", APIKey: "k", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = b.Complete(context.Background(), &backend.Prompt{User: "hi"})
	if err == nil {
		t.Fatal("expected error")
	}
	if domain.ErrorTypeOf(err) != domain.ErrorTypeModel {
		t.Errorf("expected model error, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate_limit_error") {
		t.Errorf("expected parsed api error in message, got %v", err)
	}
}

func TestSystemPrompt_WithSchema(t *testing.T) {
	p := &backend.Prompt{
		System: "Be brief.",
		Schema: &backend.Schema{
			Name:       "email_response",
			Definition: map[string]any{"type": "object"},
		},
	}

	got := systemPrompt(p)
	if !strings.HasPrefix(got, "Be brief.\n\n") {
		t.Errorf("expected original instruction first, got %q", got)
	}
	if !strings.Contains(got, `{"type":"object"}`) {
		t.Errorf("expected schema in instruction, got %q", got)
	}
}

func TestParseErrorResponse(t *testing.T) {
	apiErr, err := ParseErrorResponse([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
	if err != nil {
		t.Fatalf("ParseErrorResponse() error = %v", err)
	}
	if apiErr == nil || apiErr.Type != "overloaded_error" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}

	apiErr, err = ParseErrorResponse([]byte(`{"type":"message"}`))
	if err != nil || apiErr != nil {
		t.Errorf("expected nil error envelope, got %v, %v", apiErr, err)
	}
}
