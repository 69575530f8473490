// Package config resolves the agent configuration from the process
// environment, an optional .env settings file, and an optional agent.yaml
// tunables file. Process environment always wins.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Recognized environment variables.
const (
	EnvAPIKey = "OLLAMA_API_KEY"
	EnvModel  = "OLLAMA_MODEL"
	EnvHost   = "OLLAMA_HOST"
)

// Default file names, resolved relative to the working directory.
const (
	DefaultSettingsFile = ".env"
	DefaultTunablesFile = "agent.yaml"
)

const (
	DefaultModel           = "gpt-oss"
	DefaultHost            = "http://127.0.0.1:11434"
	DefaultSearchURL       = "https://ollama.com/api/web_search"
	DefaultMaxIterations   = 10
	DefaultToolResultLimit = 8000
	DefaultHTTPTimeout     = 60 * time.Second
)

// Config holds all runtime configuration for the agent. It is resolved
// once at startup and treated as immutable afterwards.
type Config struct {
	// APIKey authenticates web search requests. Empty disables the
	// web_search tool but not the agent.
	APIKey string
	// Model is the Ollama model name to chat with.
	Model string
	// Host is the Ollama base URL; the OpenAI-compatible API lives
	// under <Host>/v1.
	Host string
	// SearchURL is the hosted web search endpoint.
	SearchURL string
	// MaxIterations caps model invocations per user question.
	MaxIterations int
	// ToolResultLimit caps tool result text, in characters, before it
	// is re-injected into the conversation.
	ToolResultLimit int
	// ReasoningEffort, when non-empty, is forwarded on chat requests
	// (low, medium, high).
	ReasoningEffort string
	// HTTPTimeout bounds tool network calls.
	HTTPTimeout time.Duration
	Verbose     bool
}

// tunables mirrors the optional agent.yaml file.
type tunables struct {
	Model              string `yaml:"model"`
	Host               string `yaml:"host"`
	SearchURL          string `yaml:"search_url"`
	MaxIterations      int    `yaml:"max_iterations"`
	ToolResultLimit    int    `yaml:"tool_result_limit"`
	ReasoningEffort    string `yaml:"reasoning_effort"`
	HTTPTimeoutSeconds int    `yaml:"http_timeout_seconds"`
}

// DefaultConfig returns the baseline configuration without side effects.
func DefaultConfig() Config {
	return Config{
		Model:           DefaultModel,
		Host:            DefaultHost,
		SearchURL:       DefaultSearchURL,
		MaxIterations:   DefaultMaxIterations,
		ToolResultLimit: DefaultToolResultLimit,
		HTTPTimeout:     DefaultHTTPTimeout,
	}
}

// Load resolves configuration from the default file locations and the
// process environment.
func Load() (Config, error) {
	return load(DefaultSettingsFile, DefaultTunablesFile)
}

// load exists so tests can point at temporary files. Priority order:
// process environment, then settingsFile (merged into the environment
// without overwriting set variables), then tunablesFile, then defaults.
func load(settingsFile, tunablesFile string) (Config, error) {
	cfg := DefaultConfig()

	// godotenv never overwrites a variable already set in the process
	// environment, which is exactly the precedence we want. A missing
	// or unreadable settings file is not an error.
	_ = godotenv.Load(settingsFile)

	if err := applyTunablesFile(tunablesFile, &cfg); err != nil {
		return Config{}, err
	}
	applyEnv(&cfg)

	return Normalize(cfg), nil
}

// applyTunablesFile overlays agent.yaml values onto cfg. A missing file
// is fine; a malformed one is reported.
func applyTunablesFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	var t tunables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if t.Model != "" {
		cfg.Model = t.Model
	}
	if t.Host != "" {
		cfg.Host = t.Host
	}
	if t.SearchURL != "" {
		cfg.SearchURL = t.SearchURL
	}
	if t.MaxIterations > 0 {
		cfg.MaxIterations = t.MaxIterations
	}
	if t.ToolResultLimit > 0 {
		cfg.ToolResultLimit = t.ToolResultLimit
	}
	if t.ReasoningEffort != "" {
		cfg.ReasoningEffort = t.ReasoningEffort
	}
	if t.HTTPTimeoutSeconds > 0 {
		cfg.HTTPTimeout = time.Duration(t.HTTPTimeoutSeconds) * time.Second
	}
	return nil
}

// applyEnv overlays environment variables, which outrank file values.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIKey)); v != "" {
		cfg.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHost)); v != "" {
		cfg.Host = v
	}
}

// Normalize sanitizes configuration values and applies defaults.
func Normalize(cfg Config) Config {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Host = strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	cfg.SearchURL = strings.TrimSpace(cfg.SearchURL)
	cfg.ReasoningEffort = strings.TrimSpace(cfg.ReasoningEffort)

	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 1
	}
	if cfg.ToolResultLimit <= 0 {
		cfg.ToolResultLimit = DefaultToolResultLimit
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = DefaultHTTPTimeout
	}
	return cfg
}
