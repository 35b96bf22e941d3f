// Package backend defines the completion backends the reply agents delegate
// to and a registry of factories that build them from configuration.
//
// # Adding a New Backend
//
// Each backend package exposes a Register function called from
// internal/registration:
//
//	func RegisterFactory() {
//	    backend.RegisterFactory(backend.Factory{
//	        Type:        BackendType,
//	        Description: "Google Gemini API",
//	        Create:      New,
//	    })
//	}
package backend

import (
	"context"
	"net/http"
	"time"
)

// Prompt is one completion request: a system instruction and a single user
// message.
type Prompt struct {
	// Stage names the pipeline step issuing the call (summarize, draft, refine).
	Stage string
	// System is the role instruction given to the model.
	System string
	// User is the fully interpolated request text.
	User string
	// Schema optionally declares the shape of the response. Backends that
	// cannot enforce a schema describe it in the system instruction instead.
	Schema *Schema
}

// Schema is a named JSON schema for structured output.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Usage represents token usage.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completion is the raw model output. Text is returned to callers unprocessed.
type Completion struct {
	Text         string
	Model        string
	FinishReason string
	Usage        Usage
}

// Completer issues one prompt-completion request per call.
type Completer interface {
	// Name returns the backend identifier used in logs.
	Name() string
	// Complete sends the prompt and returns the model's text.
	Complete(ctx context.Context, p *Prompt) (*Completion, error)
}

// Settings is the backend-agnostic configuration handed to factories.
type Settings struct {
	Type        string
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	// Timeout bounds each completion call. Zero means no client-side limit.
	Timeout time.Duration
	// HTTPClient overrides the default instrumented client.
	HTTPClient *http.Client
}
