package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jsexpertdev/ostad-ai-agent/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	path   string
	header http.Header
}

// setupTestBackend serves body for every request and captures the last one
func setupTestBackend(t *testing.T, body string) (*httptest.Server, *capturedRequest, map[string]interface{}) {
	t.Helper()
	captured := &capturedRequest{}
	payload := map[string]interface{}{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.header = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, captured, payload
}

func weatherToolSpec() ToolSpec {
	return ToolSpec{
		Name:        "get_weather_forecast",
		Description: "Forecast for a city",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"city": map[string]interface{}{"type": "string", "description": "city"},
			},
			"required": []string{"city"},
		},
	}
}

func TestProviderFactory(t *testing.T) {
	factory := &ProviderFactory{}

	t.Run("should default to openai", func(t *testing.T) {
		model, err := factory.NewProvider(config.InferenceConfig{APIKey: "sk-test", BaseURL: "http://localhost:1/v1"})
		require.NoError(t, err)
		assert.Equal(t, "openai", model.Provider())
	})

	t.Run("should build anthropic", func(t *testing.T) {
		model, err := factory.NewProvider(config.InferenceConfig{Provider: "anthropic", APIKey: "sk-ant-test"})
		require.NoError(t, err)
		assert.Equal(t, "anthropic", model.Provider())
	})

	t.Run("should require an api key", func(t *testing.T) {
		_, err := factory.NewProvider(config.InferenceConfig{Provider: "openai"})
		assert.ErrorContains(t, err, "api key is required")
	})

	t.Run("should reject unknown providers", func(t *testing.T) {
		_, err := factory.NewProvider(config.InferenceConfig{Provider: "gemini", APIKey: "k"})
		assert.ErrorContains(t, err, "unsupported provider: gemini")
	})
}

func TestOpenAIProvider_Call(t *testing.T) {
	t.Run("should send tools and parse tool calls", func(t *testing.T) {
		srv, req, payload := setupTestBackend(t, `{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "test-model",
			"choices": [{
				"index": 0,
				"finish_reason": "tool_calls",
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "get_weather_forecast", "arguments": "{\"city\":\"Miami\"}"}
					}]
				}
			}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 7, "total_tokens": 19}
		}`)
		provider := NewOpenAIProvider("sk-test", srv.URL)

		response, err := provider.Call(context.Background(), ModelRequest{
			Model:        "test-model",
			SystemPrompt: "You are a travel planner.",
			Messages:     []Message{{Role: RoleUser, Content: "Weather in Miami?"}},
			Tools:        []ToolSpec{weatherToolSpec()},
		})
		require.NoError(t, err)

		assert.Equal(t, "/chat/completions", req.path)
		assert.Equal(t, "Bearer sk-test", req.header.Get("Authorization"))
		assert.Equal(t, "test-model", payload["model"])
		messages := payload["messages"].([]interface{})
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
		tools := payload["tools"].([]interface{})
		require.Len(t, tools, 1)
		assert.Equal(t, "get_weather_forecast", tools[0].(map[string]interface{})["function"].(map[string]interface{})["name"])
		assert.NotContains(t, payload, "response_format")

		require.Len(t, response.ToolCalls, 1)
		assert.Equal(t, "call_1", response.ToolCalls[0].ID)
		assert.Equal(t, map[string]interface{}{"city": "Miami"}, response.ToolCalls[0].Parameters)
		assert.Equal(t, 12, response.Usage.InputTokens)
		assert.Equal(t, 7, response.Usage.OutputTokens)
	})

	t.Run("should request a json schema response for typed output", func(t *testing.T) {
		srv, _, payload := setupTestBackend(t, `{
			"id": "chatcmpl-2",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "test-model",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"name\":\"x\"}"}}],
			"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
		}`)
		provider := NewOpenAIProvider("sk-test", srv.URL)

		response, err := provider.Call(context.Background(), ModelRequest{
			Model:    "test-model",
			Messages: []Message{{Role: RoleUser, Content: "hi"}},
			Output:   MustOutputType("Sample", sampleOutput{}),
		})
		require.NoError(t, err)

		format := payload["response_format"].(map[string]interface{})
		assert.Equal(t, "json_schema", format["type"])
		assert.Equal(t, "Sample", format["json_schema"].(map[string]interface{})["name"])
		assert.Equal(t, `{"name":"x"}`, response.Content)
		assert.Empty(t, response.ToolCalls)
	})
}

func TestAnthropicProvider_Call(t *testing.T) {
	t.Run("should send the system prompt and parse text and tool use", func(t *testing.T) {
		srv, req, payload := setupTestBackend(t, `{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "test-model",
			"content": [
				{"type": "text", "text": "Checking the forecast."},
				{"type": "tool_use", "id": "toolu_1", "name": "get_weather_forecast", "input": {"city": "Paris"}}
			],
			"stop_reason": "tool_use",
			"stop_sequence": null,
			"usage": {"input_tokens": 20, "output_tokens": 9}
		}`)
		provider := NewAnthropicProvider("sk-ant-test", srv.URL)

		response, err := provider.Call(context.Background(), ModelRequest{
			Model:        "test-model",
			SystemPrompt: "You are a travel planner.",
			Messages:     []Message{{Role: RoleUser, Content: "Weather in Paris?"}},
			Tools:        []ToolSpec{weatherToolSpec()},
			Output:       MustOutputType("Sample", sampleOutput{}),
		})
		require.NoError(t, err)

		assert.Equal(t, "/v1/messages", req.path)
		assert.Equal(t, "sk-ant-test", req.header.Get("X-Api-Key"))
		assert.EqualValues(t, defaultAnthropicMaxTokens, payload["max_tokens"])
		system := payload["system"].([]interface{})
		require.Len(t, system, 1)
		assert.Contains(t, system[0].(map[string]interface{})["text"], "You are a travel planner.")
		assert.Contains(t, system[0].(map[string]interface{})["text"], "JSON object named Sample")

		assert.Equal(t, "Checking the forecast.", response.Content)
		require.Len(t, response.ToolCalls, 1)
		assert.Equal(t, "toolu_1", response.ToolCalls[0].ID)
		assert.Equal(t, map[string]interface{}{"city": "Paris"}, response.ToolCalls[0].Parameters)
		assert.Equal(t, 20, response.Usage.InputTokens)
	})
}
