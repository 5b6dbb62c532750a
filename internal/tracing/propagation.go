package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// NewRunContext starts a run. A run started while another is in progress,
// such as a guardrail analysis, records the outer run as its parent.
func NewRunContext(ctx context.Context, agent string) (context.Context, string) {
	if GetTraceID(ctx) == "" {
		ctx = WithTraceID(ctx, NewTraceID())
	}
	if parent := GetRunID(ctx); parent != "" {
		ctx = WithParentRunID(ctx, parent)
	}

	runID := NewRunID()
	ctx = WithRunID(ctx, runID)
	ctx = WithAgent(ctx, agent)
	return ctx, runID
}

// PropagateToHandoff moves control to another agent within the same run
func PropagateToHandoff(ctx context.Context, agent string) context.Context {
	return WithAgent(ctx, agent)
}

// PropagateToLogger adds tracing context to a zerolog logger
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)
	lc := logger.With()

	if tc.TraceID != "" {
		lc = lc.Str("trace_id", tc.TraceID)
	}
	if tc.RequestID != "" {
		lc = lc.Str("request_id", tc.RequestID)
	}
	if tc.RunID != "" {
		lc = lc.Str("run_id", tc.RunID)
	}
	if tc.ParentRunID != "" {
		lc = lc.Str("parent_run_id", tc.ParentRunID)
	}
	if tc.Agent != "" {
		lc = lc.Str("agent", tc.Agent)
	}
	if tc.UserID != "" {
		lc = lc.Str("user_id", tc.UserID)
	}

	return lc.Logger()
}

// LoggerFromContext creates a logger with tracing context from the given context
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}
