package tokens

import (
	"strings"
	"testing"

	"github.com/tiktoken-go/tokenizer"
)

func TestCounter_CountText(t *testing.T) {
	c := NewCounter()

	tests := []struct {
		name  string
		model string
	}{
		{name: "gpt-4o", model: "gpt-4o-2024-08-06"},
		{name: "gpt-4", model: "gpt-4"},
		{name: "unknown model falls back", model: "claude-sonnet-4-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := c.CountText(tt.model, "Hi, I placed an order for 5 blue widgets.")
			if err != nil {
				t.Fatalf("CountText() error = %v", err)
			}
			if n == 0 {
				t.Error("expected non-zero token count")
			}
		})
	}
}

func TestCounter_CountChat(t *testing.T) {
	c := NewCounter()

	text, err := c.CountText("gpt-4o", "hello world")
	if err != nil {
		t.Fatalf("CountText() error = %v", err)
	}

	chat, err := c.CountChat("gpt-4o", "", "hello world")
	if err != nil {
		t.Fatalf("CountChat() error = %v", err)
	}

	// one message of framing plus assistant priming
	want := text + tokensPerMessage + tokensPerRole + assistantPriming
	if chat != want {
		t.Errorf("CountChat() = %d, want %d", chat, want)
	}
}

func TestCounter_LongerTextCountsMore(t *testing.T) {
	c := NewCounter()

	short, _ := c.CountText("gpt-4o", "widget")
	long, _ := c.CountText("gpt-4o", strings.Repeat("widget delivery ", 200))
	if long <= short {
		t.Errorf("expected longer text to count more tokens: short=%d long=%d", short, long)
	}
}

func TestModelToEncoding(t *testing.T) {
	tests := []struct {
		model string
		want  tokenizer.Encoding
	}{
		{"gpt-4o-mini", tokenizer.O200kBase},
		{"gpt-5", tokenizer.O200kBase},
		{"gpt-4-turbo", tokenizer.Cl100kBase},
		{"gpt-3.5-turbo", tokenizer.Cl100kBase},
		{"claude-3-5-sonnet", tokenizer.O200kBase},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := modelToEncoding(tt.model); got != tt.want {
				t.Errorf("modelToEncoding(%q) = %v, want %v", tt.model, got, tt.want)
			}
		})
	}
}
