// Package agent runs language-model agents that call tools and hand off
// control to one another.
//
// Invariants:
// - A run is an iterative loop; the current agent is swapped on handoff.
// - Input guardrails run concurrently once per agent entry and must all finish.
// - Tool calls route through toolexecutor only, sequentially in model order.
// - Turns and handoffs are bounded and exceed with LimitExceededError.
//
// Usage:
//
//	runner, _ := agent.NewRunner(agent.Config{Model: model, ToolExecutor: te, ModelName: "gpt-4o"})
//	result, _ := runner.Run(ctx, planner, "Plan a trip to Paris", agent.RunOptions{State: userCtx})
//	fields, _ := result.Fields()
//	_ = fields
package agent
