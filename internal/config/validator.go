package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateProvider validates the inference provider name
func (v *Validator) ValidateProvider(provider string) error {
	validProviders := []string{"openai", "anthropic"}
	for _, valid := range validProviders {
		if provider == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid provider: %s (must be one of: %s)", provider, strings.Join(validProviders, ", "))
}

// ValidateBaseURL validates the inference backend URL
func (v *Validator) ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base url %q: host is required", raw)
	}
	return nil
}

// ValidateTemperature validates temperature value
func (v *Validator) ValidateTemperature(temp float64) error {
	if temp < 0 || temp > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", temp)
	}
	return nil
}

// ValidateMaxTokens validates max tokens value
func (v *Validator) ValidateMaxTokens(tokens int) error {
	if tokens <= 0 {
		return fmt.Errorf("max tokens must be positive, got %d", tokens)
	}
	if tokens > 200000 {
		return fmt.Errorf("max tokens too large (max 200000), got %d", tokens)
	}
	return nil
}

// ValidatePort validates a TCP port
func (v *Validator) ValidatePort(port int) error {
	if port <= 0 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidatePatterns checks that every blocked pattern compiles
func (v *Validator) ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("invalid blocked pattern %q: %w", p, err)
		}
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateProvider(cfg.Inference.Provider); err != nil {
		errors = append(errors, err)
	}
	if cfg.Inference.BaseURL != "" {
		if err := v.ValidateBaseURL(cfg.Inference.BaseURL); err != nil {
			errors = append(errors, err)
		}
	}
	if err := v.ValidateTemperature(cfg.Inference.Temperature); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateMaxTokens(cfg.Inference.MaxTokens); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidatePort(cfg.Server.Port); err != nil {
		errors = append(errors, err)
	}
	if cfg.Server.RequestTimeout <= 0 {
		errors = append(errors, fmt.Errorf("server.request_timeout must be > 0"))
	}
	if cfg.Server.WriteTimeout > 0 && cfg.Server.WriteTimeout <= cfg.Server.RequestTimeout {
		// The planner's timeout response must be written before the connection is cut
		errors = append(errors, fmt.Errorf("server.write_timeout (%s) must be greater than server.request_timeout (%s)",
			cfg.Server.WriteTimeout, cfg.Server.RequestTimeout))
	}
	if cfg.Server.RateLimitPerSecond < 0 {
		errors = append(errors, fmt.Errorf("server.rate_limit_per_second must be >= 0"))
	}
	if cfg.Server.RateLimitPerSecond > 0 && cfg.Server.RateLimitBurst <= 0 {
		errors = append(errors, fmt.Errorf("server.rate_limit_burst must be > 0 when rate limiting is enabled"))
	}

	if cfg.Runner.MaxTurns <= 0 {
		errors = append(errors, fmt.Errorf("runner.max_turns must be > 0"))
	}
	if cfg.Runner.MaxHandoffs <= 0 {
		errors = append(errors, fmt.Errorf("runner.max_handoffs must be > 0"))
	}
	if cfg.Runner.ToolTimeout <= 0 {
		errors = append(errors, fmt.Errorf("runner.tool_timeout must be > 0"))
	}

	if cfg.Guardrails.MaxInputTokens < 0 {
		errors = append(errors, fmt.Errorf("guardrails.max_input_tokens must be >= 0"))
	}
	if err := v.ValidatePatterns(cfg.Guardrails.BlockedPatterns); err != nil {
		errors = append(errors, err)
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errors = append(errors, fmt.Errorf("tracing.sample_ratio must be between 0 and 1, got %g", cfg.Tracing.SampleRatio))
	}

	return errors
}
