package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override except the backend triple
const EnvPrefix = "TRAVELPLANNER"

// backendEnv maps config keys to the plain environment names operators set
var backendEnv = map[string]string{
	"inference.base_url": "BASE_URL",
	"inference.api_key":  "API_KEY",
	"inference.model":    "MODEL_NAME",
}

// Loader handles configuration loading
type Loader struct {
	configPath string
	envFile    string
}

// NewLoader creates a new config loader. An empty configPath means defaults,
// the dotenv file and the environment only.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envFile:    ".env",
	}
}

// WithEnvFile overrides the dotenv file location
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load resolves the configuration. Precedence, highest first: environment,
// config file, dotenv file, defaults.
func (l *Loader) Load() (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	// Dotenv values sit just above the defaults
	if err := l.applyEnvFile(v); err != nil {
		return nil, err
	}

	if l.configPath != "" {
		if _, err := os.Stat(l.configPath); err != nil {
			return nil, fmt.Errorf("config file %s: %w", l.configPath, err)
		}
		v.SetConfigFile(l.configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Read environment variables
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range backendEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, env, prefixed); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	// Unmarshal into config struct
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// applyEnvFile reads KEY=VALUE pairs from the dotenv file, if present
func (l *Loader) applyEnvFile(v *viper.Viper) error {
	if l.envFile == "" {
		return nil
	}
	if _, err := os.Stat(l.envFile); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	dv := viper.New()
	dv.SetConfigFile(l.envFile)
	dv.SetConfigType("env")
	if err := dv.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read env file %s: %w", l.envFile, err)
	}

	for key, env := range backendEnv {
		name := strings.ToLower(env)
		if dv.IsSet(name) {
			v.SetDefault(key, dv.GetString(name))
		}
	}
	for _, key := range dv.AllKeys() {
		upper := strings.ToUpper(key)
		if !strings.HasPrefix(upper, EnvPrefix+"_") {
			continue
		}
		// TRAVELPLANNER_SERVER_PORT -> server.port
		if target := lookupKey(v, strings.TrimPrefix(upper, EnvPrefix+"_")); target != "" {
			v.SetDefault(target, dv.Get(key))
		}
	}

	return nil
}

// lookupKey maps SECTION_FIELD_NAME back to the registered dotted key
func lookupKey(v *viper.Viper, flat string) string {
	for _, key := range v.AllKeys() {
		if strings.ToUpper(strings.ReplaceAll(key, ".", "_")) == flat {
			return key
		}
	}
	return ""
}

// setDefaults registers every key so AutomaticEnv can resolve it on Unmarshal
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("inference.provider", d.Inference.Provider)
	v.SetDefault("inference.base_url", d.Inference.BaseURL)
	v.SetDefault("inference.api_key", d.Inference.APIKey)
	v.SetDefault("inference.model", d.Inference.Model)
	v.SetDefault("inference.temperature", d.Inference.Temperature)
	v.SetDefault("inference.max_tokens", d.Inference.MaxTokens)

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.rate_limit_per_second", d.Server.RateLimitPerSecond)
	v.SetDefault("server.rate_limit_burst", d.Server.RateLimitBurst)
	v.SetDefault("server.enable_stream", d.Server.EnableStream)
	v.SetDefault("server.trust_proxy", d.Server.TrustProxy)

	v.SetDefault("runner.max_turns", d.Runner.MaxTurns)
	v.SetDefault("runner.max_handoffs", d.Runner.MaxHandoffs)
	v.SetDefault("runner.tool_timeout", d.Runner.ToolTimeout)

	v.SetDefault("guardrails.budget", d.Guardrails.Budget)
	v.SetDefault("guardrails.blocked_keywords", d.Guardrails.BlockedKeywords)
	v.SetDefault("guardrails.blocked_patterns", d.Guardrails.BlockedPatterns)
	v.SetDefault("guardrails.max_input_tokens", d.Guardrails.MaxInputTokens)

	v.SetDefault("catalog.path", d.Catalog.Path)
	v.SetDefault("catalog.watch", d.Catalog.Watch)
	v.SetDefault("agents.path", d.Agents.Path)
	v.SetDefault("agents.allow_cycles", d.Agents.AllowCycles)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.pretty", d.Logging.Pretty)
	v.SetDefault("logging.file", d.Logging.File)
	v.SetDefault("logging.redaction", d.Logging.Redaction)

	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.service_name", d.Tracing.ServiceName)
	v.SetDefault("tracing.sample_ratio", d.Tracing.SampleRatio)
}

// Load is a convenience function that creates a loader and loads the config
func Load(configPath string) (*Config, error) {
	loader := NewLoader(configPath)
	return loader.Load()
}
