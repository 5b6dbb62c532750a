// Package toolexecutor holds the function tools an agent run may call.
//
// Arguments are checked against a JSON schema built from the declared
// parameters before the handler runs. Handlers run under a per-call timeout
// and reach the run state with StateFrom:
//
//	exec := toolexecutor.New()
//	_ = exec.RegisterTool(toolexecutor.ToolDefinition{
//		Name:        "get_weather",
//		Description: "Forecast for a city",
//		Parameters:  []toolexecutor.ToolParameter{{Name: "city", Type: "string", Description: "city name", Required: true}},
//		Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
//			return "sunny", nil
//		},
//	})
package toolexecutor
