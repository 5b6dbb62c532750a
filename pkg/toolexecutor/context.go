package toolexecutor

import "context"

type executionKey struct{}

// WithExecution returns a child context carrying the run's execution details
func WithExecution(ctx context.Context, execCtx *ExecutionContext) context.Context {
	if execCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, executionKey{}, execCtx)
}

// ExecutionFrom returns the execution details a handler was invoked with, or nil
// outside a run.
func ExecutionFrom(ctx context.Context) *ExecutionContext {
	execCtx, _ := ctx.Value(executionKey{}).(*ExecutionContext)
	return execCtx
}

// StateFrom returns the caller-owned run state when it has type T
func StateFrom[T any](ctx context.Context) (T, bool) {
	var zero T
	execCtx := ExecutionFrom(ctx)
	if execCtx == nil {
		return zero, false
	}
	state, ok := execCtx.State.(T)
	return state, ok
}
