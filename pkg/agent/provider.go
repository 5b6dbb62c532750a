package agent

import (
	"context"
	"fmt"

	"github.com/jsexpertdev/ostad-ai-agent/internal/config"
)

// Model is a chat-completion backend
type Model interface {
	// Call sends one turn to the model
	Call(ctx context.Context, request ModelRequest) (*ModelResponse, error)

	// Provider returns the provider name
	Provider() string
}

// ToolSpec describes a tool the model may call
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{}
}

// ModelRequest contains the request parameters for a model call
type ModelRequest struct {
	// Agent names the agent taking the turn
	Agent string

	Model        string
	SystemPrompt string
	Messages     []Message
	Tools        []ToolSpec

	// Output, when set, asks the model for a JSON answer of that type
	Output *OutputType

	Temperature float64
	MaxTokens   int
}

// ModelResponse contains the response from the model
type ModelResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// ProviderFactory creates models from inference settings
type ProviderFactory struct{}

// NewProvider creates a new model client based on the configured provider
func (f *ProviderFactory) NewProvider(cfg config.InferenceConfig) (Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}

	switch cfg.Provider {
	case "anthropic":
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL), nil
	case "openai", "":
		return NewOpenAIProvider(cfg.APIKey, cfg.BaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
