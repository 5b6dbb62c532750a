package tracing

import (
	"context"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// TraceIDKey is the context key for trace ID
	TraceIDKey ContextKey = "trace_id"
	// RequestIDKey is the context key for the inbound HTTP request ID
	RequestIDKey ContextKey = "request_id"
	// RunIDKey is the context key for run ID
	RunIDKey ContextKey = "run_id"
	// ParentRunIDKey is the context key for the run that started a nested run
	ParentRunIDKey ContextKey = "parent_run_id"
	// AgentKey is the context key for the name of the agent in control
	AgentKey ContextKey = "agent"
	// UserIDKey is the context key for the requesting user
	UserIDKey ContextKey = "user_id"
)

// TraceContext holds tracing information
type TraceContext struct {
	TraceID     string
	RequestID   string
	RunID       string
	ParentRunID string
	Agent       string
	UserID      string
}

// NewTraceID generates a new trace ID
func NewTraceID() string {
	return uuid.New().String()
}

// NewRequestID generates a new request ID
func NewRequestID() string {
	return uuid.New().String()
}

// NewRunID generates a short, URL-safe run ID
func NewRunID() string {
	id, err := gonanoid.New()
	if err != nil {
		return uuid.New().String()
	}
	return "run_" + id
}

// WithTraceID adds a trace ID to the context
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithRunID adds a run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// WithParentRunID adds the parent run ID to the context
func WithParentRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ParentRunIDKey, runID)
}

// WithAgent adds the current agent name to the context
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, AgentKey, agent)
}

// WithUserID adds the requesting user to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func stringValue(ctx context.Context, key ContextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// GetTraceID retrieves the trace ID from the context
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

// GetRequestID retrieves the request ID from the context
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetRunID retrieves the run ID from the context
func GetRunID(ctx context.Context) string {
	return stringValue(ctx, RunIDKey)
}

// GetParentRunID retrieves the parent run ID from the context
func GetParentRunID(ctx context.Context) string {
	return stringValue(ctx, ParentRunIDKey)
}

// GetAgent retrieves the current agent name from the context
func GetAgent(ctx context.Context) string {
	return stringValue(ctx, AgentKey)
}

// GetUserID retrieves the requesting user from the context
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

// FromContext extracts all tracing information from the context
func FromContext(ctx context.Context) *TraceContext {
	return &TraceContext{
		TraceID:     GetTraceID(ctx),
		RequestID:   GetRequestID(ctx),
		RunID:       GetRunID(ctx),
		ParentRunID: GetParentRunID(ctx),
		Agent:       GetAgent(ctx),
		UserID:      GetUserID(ctx),
	}
}

// NewRequestContext creates a new context for a request with fresh trace and request IDs
func NewRequestContext(ctx context.Context) context.Context {
	ctx = WithTraceID(ctx, NewTraceID())
	return WithRequestID(ctx, NewRequestID())
}
