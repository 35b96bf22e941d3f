package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides. Nested keys are
// separated by a double underscore: REPLYLOOP_APPROVAL__URL -> approval.url.
const EnvPrefix = "REPLYLOOP_"

// DefaultPath is the config file read when none is given.
const DefaultPath = "replyloop.yaml"

type Config struct {
	LLM       LLMConfig       `koanf:"llm"`
	Approval  ApprovalConfig  `koanf:"approval"`
	Sender    SenderConfig    `koanf:"sender"`
	Workflow  WorkflowConfig  `koanf:"workflow"`
	Server    ServerConfig    `koanf:"server"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type LLMConfig struct {
	Provider         string  `koanf:"provider"` // openai, anthropic, echo
	Model            string  `koanf:"model"`
	APIKey           string  `koanf:"api_key"`
	BaseURL          string  `koanf:"base_url"` // OpenAI-compatible or proxy endpoint
	Temperature      float64 `koanf:"temperature"`
	MaxTokens        int     `koanf:"max_tokens"`
	StructuredOutput bool    `koanf:"structured_output"` // Declare JSON schemas for summary/draft stages
	MaxPromptTokens  int     `koanf:"max_prompt_tokens"` // 0 disables the guard
	Timeout          string  `koanf:"timeout"`           // Per completion call
}

type ApprovalConfig struct {
	URL                 string            `koanf:"url"`
	Timeout             string            `koanf:"timeout"`        // Duration string like "10m"
	ApproveOption       string            `koanf:"approve_option"` // selected-option value meaning "approve"
	Headers             map[string]string `koanf:"headers"`
	DenyPrivateNetworks bool              `koanf:"deny_private_networks"`
}

// SenderConfig supplies defaults for the run metadata forwarded to the approver.
type SenderConfig struct {
	Name    string `koanf:"name"`
	Email   string `koanf:"email"`
	Subject string `koanf:"subject"`
}

type WorkflowConfig struct {
	MaxRevisions int    `koanf:"max_revisions"`
	Focus        string `koanf:"focus"` // Extra summarization guidance
}

type ServerConfig struct {
	Port    int            `koanf:"port"`
	APIKeys []APIKeyConfig `koanf:"api_keys"`
	Timeout string         `koanf:"timeout"` // Per trigger request
}

type APIKeyConfig struct {
	KeyHash     string `koanf:"key_hash"`
	Description string `koanf:"description"`
}

type LogConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var defaults = map[string]any{
	"llm.provider":            "openai",
	"llm.model":               "gpt-4o-2024-08-06",
	"llm.timeout":             "2m",
	"approval.timeout":        "10m",
	"approval.approve_option": "Approve",
	"workflow.max_revisions":  10,
	"workflow.focus":          "order details and customer expectations",
	"server.port":             8080,
	"server.timeout":          "30m",
	"log.level":               "info",
	"log.format":              "json",
	"telemetry.service_name":  "replyloop",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads path (when it exists) and then environment overrides.
// An empty path means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.LLM.APIKey = substituteEnvVars(cfg.LLM.APIKey)
	cfg.Approval.URL = substituteEnvVars(cfg.Approval.URL)
	for name, v := range cfg.Approval.Headers {
		cfg.Approval.Headers[name] = substituteEnvVars(v)
	}

	return &cfg, nil
}

// Validate checks the settings needed to execute a run.
func (c *Config) Validate() error {
	var errs []error

	if c.LLM.Provider == "" {
		errs = append(errs, errors.New("llm.provider is required"))
	}
	if c.LLM.Provider != "echo" && c.LLM.APIKey == "" {
		errs = append(errs, fmt.Errorf("llm.api_key is required for provider %q", c.LLM.Provider))
	}
	if c.LLM.MaxPromptTokens < 0 {
		errs = append(errs, errors.New("llm.max_prompt_tokens must not be negative"))
	}
	if c.Approval.URL == "" {
		errs = append(errs, errors.New("approval.url is required"))
	}
	if c.Workflow.MaxRevisions < 0 {
		errs = append(errs, errors.New("workflow.max_revisions must not be negative"))
	}
	for key, val := range map[string]string{
		"llm.timeout":      c.LLM.Timeout,
		"approval.timeout": c.Approval.Timeout,
		"server.timeout":   c.Server.Timeout,
	} {
		if _, err := parseDuration(val); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	return errors.Join(errs...)
}

// ApprovalTimeout returns the per-request approval deadline. Zero means none.
func (c *Config) ApprovalTimeout() time.Duration {
	d, _ := parseDuration(c.Approval.Timeout)
	return d
}

// LLMTimeout returns the per-call completion deadline. Zero means none.
func (c *Config) LLMTimeout() time.Duration {
	d, _ := parseDuration(c.LLM.Timeout)
	return d
}

// ServerTimeout returns the deadline applied to trigger requests.
func (c *Config) ServerTimeout() time.Duration {
	d, _ := parseDuration(c.Server.Timeout)
	return d
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid duration %q: must not be negative", s)
	}
	return d, nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
