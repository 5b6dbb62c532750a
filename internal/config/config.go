package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Config represents the travel planner configuration
type Config struct {
	// Inference backend
	Inference InferenceConfig `json:"inference" mapstructure:"inference"`

	// HTTP server
	Server ServerConfig `json:"server" mapstructure:"server"`

	// Agent run limits
	Runner RunnerConfig `json:"runner" mapstructure:"runner"`

	// Input guardrails
	Guardrails GuardrailsConfig `json:"guardrails" mapstructure:"guardrails"`

	// Static lookup catalog
	Catalog CatalogConfig `json:"catalog" mapstructure:"catalog"`

	// Agent graph definitions
	Agents AgentsConfig `json:"agents" mapstructure:"agents"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`
}

// InferenceConfig holds the language model backend settings
type InferenceConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // openai, anthropic
	BaseURL     string  `json:"base_url" mapstructure:"base_url"`
	APIKey      string  `json:"api_key" mapstructure:"api_key"`
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host               string        `json:"host" mapstructure:"host"`
	Port               int           `json:"port" mapstructure:"port"`
	RequestTimeout     time.Duration `json:"request_timeout" mapstructure:"request_timeout"`
	ReadTimeout        time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout       time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
	RateLimitPerSecond float64       `json:"rate_limit_per_second" mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int           `json:"rate_limit_burst" mapstructure:"rate_limit_burst"`
	EnableStream       bool          `json:"enable_stream" mapstructure:"enable_stream"`
	TrustProxy         bool          `json:"trust_proxy" mapstructure:"trust_proxy"`
}

// RunnerConfig bounds a single agent run
type RunnerConfig struct {
	MaxTurns    int           `json:"max_turns" mapstructure:"max_turns"`
	MaxHandoffs int           `json:"max_handoffs" mapstructure:"max_handoffs"`
	ToolTimeout time.Duration `json:"tool_timeout" mapstructure:"tool_timeout"`
}

// GuardrailsConfig configures the input guardrails of the planner agent
type GuardrailsConfig struct {
	Budget          bool     `json:"budget" mapstructure:"budget"`
	BlockedKeywords []string `json:"blocked_keywords" mapstructure:"blocked_keywords"`
	BlockedPatterns []string `json:"blocked_patterns" mapstructure:"blocked_patterns"`
	MaxInputTokens  int      `json:"max_input_tokens" mapstructure:"max_input_tokens"`
}

// CatalogConfig points at an optional catalog override
type CatalogConfig struct {
	Path  string `json:"path" mapstructure:"path"`
	Watch bool   `json:"watch" mapstructure:"watch"`
}

// AgentsConfig points at an optional agent definitions override
type AgentsConfig struct {
	Path string `json:"path" mapstructure:"path"`

	// AllowCycles accepts handoff loops in the graph; runner limits still
	// bound every run
	AllowCycles bool `json:"allow_cycles" mapstructure:"allow_cycles"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	File      string `json:"file" mapstructure:"file"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// TracingConfig controls OpenTelemetry span export
type TracingConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	ServiceName string  `json:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `json:"sample_ratio" mapstructure:"sample_ratio"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Inference: InferenceConfig{
			Provider:    "openai",
			Temperature: 0,
			MaxTokens:   2048,
		},
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8000,
			RequestTimeout:     60 * time.Second,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       90 * time.Second,
			RateLimitPerSecond: 5,
			RateLimitBurst:     10,
			EnableStream:       true,
		},
		Runner: RunnerConfig{
			MaxTurns:    10,
			MaxHandoffs: 5,
			ToolTimeout: 30 * time.Second,
		},
		Guardrails: GuardrailsConfig{
			Budget:          true,
			BlockedKeywords: []string{},
			BlockedPatterns: []string{},
			MaxInputTokens:  2000,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Redaction: true,
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "travelplanner",
			SampleRatio: 1,
		},
	}
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// String returns a JSON representation of the config with the API key masked
func (c *Config) String() string {
	masked := *c
	if masked.Inference.APIKey != "" {
		masked.Inference.APIKey = "***"
	}
	data, _ := json.MarshalIndent(masked, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid. Missing backend settings are
// reported together so a single restart can fix all of them.
func (c *Config) Validate() error {
	var missing []string
	if c.Inference.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}
	if c.Inference.APIKey == "" {
		missing = append(missing, "API_KEY")
	}
	if c.Inference.Model == "" {
		missing = append(missing, "MODEL_NAME")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: please set %s", strings.Join(missing, ", "))
	}

	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, err := range errs {
			msgs = append(msgs, err.Error())
		}
		return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
	}

	return nil
}
