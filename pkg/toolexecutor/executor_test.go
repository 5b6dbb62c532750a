package toolexecutor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() ToolDefinition {
	return ToolDefinition{
		Name:        "echo",
		Description: "Echo the input",
		Parameters: []ToolParameter{
			{Name: "text", Type: "string", Description: "Text to echo", Required: true},
			{Name: "limit", Type: "number", Description: "Optional limit"},
		},
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return params["text"], nil
		},
	}
}

func TestToolExecutor_RegisterTool(t *testing.T) {
	te := New()

	require.NoError(t, te.RegisterTool(echoTool()))

	tool := te.GetTool("echo")
	require.NotNil(t, tool)
	assert.Equal(t, "echo", tool.Name)
	assert.True(t, te.HasTool("echo"))

	t.Run("should reject duplicate names", func(t *testing.T) {
		err := te.RegisterTool(echoTool())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already registered")
	})
}

func TestToolExecutor_RegisterTool_InvalidDefinition(t *testing.T) {
	te := New()
	noop := func(ctx context.Context, params map[string]interface{}) (interface{}, error) { return nil, nil }

	tests := []struct {
		name string
		def  ToolDefinition
	}{
		{name: "empty name", def: ToolDefinition{Description: "Test", Handler: noop}},
		{name: "empty description", def: ToolDefinition{Name: "test", Handler: noop}},
		{name: "nil handler", def: ToolDefinition{Name: "test", Description: "Test"}},
		{
			name: "bad parameter type",
			def: ToolDefinition{Name: "test", Description: "Test", Handler: noop, Parameters: []ToolParameter{
				{Name: "city", Type: "text", Description: "City"},
			}},
		},
		{
			name: "duplicate parameter",
			def: ToolDefinition{Name: "test", Description: "Test", Handler: noop, Parameters: []ToolParameter{
				{Name: "city", Type: "string", Description: "City"},
				{Name: "city", Type: "string", Description: "City again"},
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, te.RegisterTool(tt.def))
		})
	}
}

func TestToolExecutor_Execute(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(echoTool()))

	t.Run("should return string output as is", func(t *testing.T) {
		result := te.Execute(context.Background(), "echo", map[string]interface{}{"text": "hello"}, nil)

		assert.True(t, result.Success)
		assert.Equal(t, "hello", result.Output)
		assert.Equal(t, "hello", result.Content())
	})

	t.Run("should accept null for optional parameters", func(t *testing.T) {
		result := te.Execute(context.Background(), "echo", map[string]interface{}{"text": "hi", "limit": nil}, nil)

		assert.True(t, result.Success)
	})

	t.Run("should reject missing required parameters", func(t *testing.T) {
		result := te.Execute(context.Background(), "echo", map[string]interface{}{}, nil)

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "parameter validation failed")
		assert.True(t, strings.HasPrefix(result.Content(), "Error: "))
	})

	t.Run("should reject wrong types", func(t *testing.T) {
		result := te.Execute(context.Background(), "echo", map[string]interface{}{"text": 42}, nil)

		assert.False(t, result.Success)
	})

	t.Run("should reject unknown parameters", func(t *testing.T) {
		result := te.Execute(context.Background(), "echo", map[string]interface{}{"text": "x", "extra": true}, nil)

		assert.False(t, result.Success)
	})

	t.Run("should report unknown tools", func(t *testing.T) {
		result := te.Execute(context.Background(), "missing", nil, nil)

		assert.False(t, result.Success)
		assert.Contains(t, result.Error, "tool not found")
	})
}

func TestToolExecutor_Execute_JSONOutput(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "list",
		Description: "Return a list",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return []map[string]interface{}{{"name": "Budget Inn", "price": 99.99}}, nil
		},
	}))

	result := te.Execute(context.Background(), "list", nil, nil)

	require.True(t, result.Success)
	assert.JSONEq(t, `[{"name":"Budget Inn","price":99.99}]`, result.Output)
}

func TestToolExecutor_Execute_HandlerError(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "fail",
		Description: "Always fails",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return nil, errors.New("catalog unavailable")
		},
	}))

	result := te.Execute(context.Background(), "fail", nil, nil)

	assert.False(t, result.Success)
	assert.Equal(t, "catalog unavailable", result.Error)
}

func TestToolExecutor_Execute_Panic(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "explode",
		Description: "Panics",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			panic("boom")
		},
	}))

	result := te.Execute(context.Background(), "explode", nil, nil)

	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "tool panicked")
}

func TestToolExecutor_Execute_Timeout(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "slow",
		Description: "Sleeps",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			select {
			case <-time.After(time.Second):
				return "late", nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		},
	}))

	result := te.Execute(context.Background(), "slow", nil, &ExecutionContext{Timeout: 20 * time.Millisecond})

	assert.False(t, result.Success)
}

func TestToolExecutor_Execute_ExecutionContext(t *testing.T) {
	te := New()
	type runState struct{ lookups int }
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "count",
		Description: "Counts lookups in the run state",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			state, ok := StateFrom[*runState](ctx)
			if !ok {
				return nil, errors.New("no run state")
			}
			state.lookups++
			return ExecutionFrom(ctx).Agent, nil
		},
	}))

	state := &runState{}
	execCtx := &ExecutionContext{RunID: "run_1", Agent: "Hotel Agent", State: state}

	result := te.Execute(context.Background(), "count", nil, execCtx)

	require.True(t, result.Success)
	assert.Equal(t, "Hotel Agent", result.Output)
	assert.Equal(t, 1, state.lookups)
}

func TestToolExecutor_Execute_OutputTruncation(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(ToolDefinition{
		Name:        "big",
		Description: "Large output",
		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
			return strings.Repeat("x", 20*1024), nil
		},
	}))

	result := te.Execute(context.Background(), "big", nil, nil)

	assert.True(t, result.Success)
	assert.True(t, result.Truncated)
	assert.Contains(t, result.Output, "[output truncated]")
}

func TestToolExecutor_ParametersSchema(t *testing.T) {
	te := New()
	require.NoError(t, te.RegisterTool(echoTool()))

	schema, err := te.ParametersSchema("echo")
	require.NoError(t, err)

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []string{"text"}, schema["required"])
	props := schema["properties"].(map[string]interface{})
	assert.Contains(t, props, "text")
	assert.Contains(t, props, "limit")

	_, err = te.ParametersSchema("missing")
	assert.Error(t, err)
}

func TestToolExecutor_ListTools(t *testing.T) {
	te := New()
	noop := func(ctx context.Context, params map[string]interface{}) (interface{}, error) { return nil, nil }
	require.NoError(t, te.RegisterTool(ToolDefinition{Name: "search_hotels", Description: "h", Handler: noop}))
	require.NoError(t, te.RegisterTool(ToolDefinition{Name: "get_weather_forecast", Description: "w", Handler: noop}))

	assert.Equal(t, []string{"get_weather_forecast", "search_hotels"}, te.ListTools())

	te.UnregisterTool("search_hotels")
	assert.Equal(t, []string{"get_weather_forecast"}, te.ListTools())
}
