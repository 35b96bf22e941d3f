package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replyloop.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("defaults without file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.LLM.Provider != "openai" {
			t.Errorf("provider = %q, want openai", cfg.LLM.Provider)
		}
		if cfg.LLM.Model != "gpt-4o-2024-08-06" {
			t.Errorf("model = %q", cfg.LLM.Model)
		}
		if cfg.Approval.ApproveOption != "Approve" {
			t.Errorf("approve_option = %q, want Approve", cfg.Approval.ApproveOption)
		}
		if cfg.Workflow.MaxRevisions != 10 {
			t.Errorf("max_revisions = %d, want 10", cfg.Workflow.MaxRevisions)
		}
		if cfg.Server.Port != 8080 {
			t.Errorf("port = %d, want 8080", cfg.Server.Port)
		}
		if cfg.ApprovalTimeout() != 10*time.Minute {
			t.Errorf("approval timeout = %v, want 10m", cfg.ApprovalTimeout())
		}
	})

	t.Run("file values", func(t *testing.T) {
		path := writeConfig(t, `
llm:
  provider: anthropic
  model: claude-sonnet-4-5
  api_key: sk-file
approval:
  url: https://example.invalid/hook
  timeout: 90s
  headers:
    X-Workflow: replyloop
sender:
  name: Alex
  email: alex@example.com
  subject: Bulk Order Inquiry
workflow:
  max_revisions: 3
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.LLM.Provider != "anthropic" || cfg.LLM.APIKey != "sk-file" {
			t.Errorf("unexpected llm config: %+v", cfg.LLM)
		}
		if cfg.Approval.URL != "https://example.invalid/hook" {
			t.Errorf("approval url = %q", cfg.Approval.URL)
		}
		if cfg.ApprovalTimeout() != 90*time.Second {
			t.Errorf("approval timeout = %v, want 90s", cfg.ApprovalTimeout())
		}
		if cfg.Approval.Headers["x-workflow"] != "replyloop" && cfg.Approval.Headers["X-Workflow"] != "replyloop" {
			t.Errorf("expected header from file, got %v", cfg.Approval.Headers)
		}
		if cfg.Sender.Subject != "Bulk Order Inquiry" {
			t.Errorf("sender subject = %q", cfg.Sender.Subject)
		}
		if cfg.Workflow.MaxRevisions != 3 {
			t.Errorf("max_revisions = %d, want 3", cfg.Workflow.MaxRevisions)
		}
	})

	t.Run("env var override", func(t *testing.T) {
		path := writeConfig(t, "approval:\n  url: https://file.invalid/hook\n")
		t.Setenv("REPLYLOOP_APPROVAL__URL", "https://env.invalid/hook")
		t.Setenv("REPLYLOOP_WORKFLOW__MAX_REVISIONS", "5")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}

		if cfg.Approval.URL != "https://env.invalid/hook" {
			t.Errorf("approval url = %q, want env value", cfg.Approval.URL)
		}
		if cfg.Workflow.MaxRevisions != 5 {
			t.Errorf("max_revisions = %d, want 5", cfg.Workflow.MaxRevisions)
		}
	})

	t.Run("secret substitution", func(t *testing.T) {
		t.Setenv("TEST_OPENAI_KEY", "sk-from-env")
		path := writeConfig(t, "llm:\n  api_key: ${TEST_OPENAI_KEY}\n")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.LLM.APIKey != "sk-from-env" {
			t.Errorf("api key = %q, want sk-from-env", cfg.LLM.APIKey)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "llm: [unterminated\n")
		if _, err := Load(path); err == nil {
			t.Fatal("expected parse error")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LLM:      LLMConfig{Provider: "openai", APIKey: "sk-test", Timeout: "2m"},
			Approval: ApprovalConfig{URL: "https://example.invalid/hook", Timeout: "10m"},
			Workflow: WorkflowConfig{MaxRevisions: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "echo needs no key", mutate: func(c *Config) { c.LLM.Provider = "echo"; c.LLM.APIKey = "" }},
		{name: "missing api key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: "llm.api_key"},
		{name: "missing url", mutate: func(c *Config) { c.Approval.URL = "" }, wantErr: "approval.url"},
		{name: "negative revisions", mutate: func(c *Config) { c.Workflow.MaxRevisions = -1 }, wantErr: "max_revisions"},
		{name: "bad timeout", mutate: func(c *Config) { c.Approval.Timeout = "soon" }, wantErr: "approval.timeout"},
		{name: "negative timeout", mutate: func(c *Config) { c.LLM.Timeout = "-1s" }, wantErr: "llm.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR", "test-value")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "simple substitution", input: "${TEST_VAR}", want: "test-value"},
		{name: "substitution in string", input: "Bearer ${TEST_VAR}", want: "Bearer test-value"},
		{name: "no substitution", input: "plain-string", want: "plain-string"},
		{name: "undefined var", input: "${UNDEFINED_REPLYLOOP_VAR}", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := substituteEnvVars(tt.input); got != tt.want {
				t.Errorf("substituteEnvVars() = %v, want %v", got, tt.want)
			}
		})
	}
}
