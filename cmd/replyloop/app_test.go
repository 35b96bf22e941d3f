package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/tjfontaine/replyloop/internal/auth"
	"github.com/tjfontaine/replyloop/internal/config"
)

// newWebhook returns an approver that rejects the first `rejects` drafts and
// approves the next one.
func newWebhook(t *testing.T, rejects int) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode webhook body: %v", err)
		}
		if _, ok := body["thread_text"]; !ok {
			t.Errorf("webhook body missing thread_text: %v", body)
		}
		n := calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if int(n) <= rejects {
			_, _ = w.Write([]byte(`{"selected-option": "Reject", "comment": "Mention the tracking number."}`))
			return
		}
		_, _ = w.Write([]byte(`{"selected-option": "Approve"}`))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func writeConfig(t *testing.T, webhookURL string) string {
	t.Helper()
	cfg := `llm:
  provider: echo
  model: echo-1
approval:
  url: "` + webhookURL + `"
  timeout: 5s
log:
  level: error
`
	path := filepath.Join(t.TempDir(), "replyloop.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunCommand(t *testing.T) {
	const thread = "Hi, when will my 5 blue widgets arrive? - John"

	tests := []struct {
		name      string
		rejects   int
		args      []string
		stdin     string
		wantCalls int32
		wantInOut []string
	}{
		{
			name:      "approved first time",
			args:      []string{"--thread", thread},
			wantCalls: 1,
			wantInOut: []string{"[draft]", "blue widgets"},
		},
		{
			name:      "revised twice",
			rejects:   2,
			args:      []string{"--thread", thread, "--progress"},
			wantCalls: 3,
			wantInOut: []string{"[refine]", "Mention the tracking number."},
		},
		{
			name:      "thread from stdin",
			stdin:     thread,
			wantCalls: 1,
			wantInOut: []string{"blue widgets"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook, calls := newWebhook(t, tt.rejects)
			args := append([]string{"run", "--config", writeConfig(t, hook.URL)}, tt.args...)

			stdout, stderr, err := execute(t, tt.stdin, args...)
			if err != nil {
				t.Fatalf("run error = %v (stderr: %s)", err, stderr)
			}
			if got := calls.Load(); got != tt.wantCalls {
				t.Errorf("webhook calls = %d, want %d", got, tt.wantCalls)
			}
			for _, want := range tt.wantInOut {
				if !strings.Contains(stdout, want) {
					t.Errorf("stdout missing %q:\n%s", want, stdout)
				}
			}
		})
	}
}

func TestRunCommand_Progress(t *testing.T) {
	hook, _ := newWebhook(t, 1)
	_, stderr, err := execute(t, "", "run", "--config", writeConfig(t, hook.URL),
		"--thread", "Where is my order?", "--progress")
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	for _, want := range []string{"-> SUMMARIZED (revision 0)", "-> REVISING (revision 0)", "-> DONE (revision 1)"} {
		if !strings.Contains(stderr, want) {
			t.Errorf("stderr missing %q:\n%s", want, stderr)
		}
	}
}

func TestRunCommand_Errors(t *testing.T) {
	hook, _ := newWebhook(t, 0)
	cfgPath := writeConfig(t, hook.URL)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "no thread",
			args:    []string{"run", "--config", cfgPath},
			wantErr: "no thread given",
		},
		{
			name:    "bad format",
			args:    []string{"run", "--config", cfgPath, "--thread", "hi", "--format", "pdf"},
			wantErr: "pdf",
		},
		{
			name:    "missing thread file",
			args:    []string{"run", "--config", cfgPath, "--thread-file", filepath.Join(t.TempDir(), "nope.txt")},
			wantErr: "read thread file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, "", tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestProbeCommand(t *testing.T) {
	hook, calls := newWebhook(t, 0)
	stdout, _, err := execute(t, "", "probe", "--config", writeConfig(t, hook.URL))
	if err != nil {
		t.Fatalf("probe error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("webhook calls = %d, want 1", calls.Load())
	}
	if !strings.Contains(stdout, `"decision": "approve"`) {
		t.Errorf("unexpected probe output:\n%s", stdout)
	}
}

func TestKeygenCommand(t *testing.T) {
	stdout, _, err := execute(t, "", "keygen", "secret-key")
	if err != nil {
		t.Fatalf("keygen error = %v", err)
	}
	if !strings.Contains(stdout, auth.HashAPIKey("secret-key")) {
		t.Errorf("keygen output missing hash:\n%s", stdout)
	}
	if !strings.Contains(stdout, "api_keys:") {
		t.Errorf("keygen output missing config snippet:\n%s", stdout)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		level, format string
		wantErr       bool
	}{
		{"info", "json", false},
		{"debug", "text", false},
		{"", "", false},
		{"loud", "json", true},
		{"info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := newLogger(&buf, config.LogConfig{Level: tt.level, Format: tt.format})
			if (err != nil) != tt.wantErr {
				t.Errorf("newLogger() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
