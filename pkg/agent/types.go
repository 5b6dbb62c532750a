package agent

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// KindText is the result kind of an agent without an output type
const KindText = "Text"

// Message represents a message in the conversation
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall represents a tool invocation requested by the model
type ToolCall struct {
	ID         string                 `json:"id"`
	Name       string                 `json:"name"`
	Parameters map[string]interface{} `json:"parameters"`
}

// TokenUsage tracks token consumption
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Add accumulates another usage record
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// Result is the outcome of a run. Kind names the output type of the agent
// that produced it, or KindText for plain text.
type Result struct {
	Kind      string     `json:"kind"`
	Output    any        `json:"output"`
	LastAgent string     `json:"last_agent"`
	RunID     string     `json:"run_id"`
	Turns     int        `json:"turns"`
	Handoffs  []string   `json:"handoffs,omitempty"`
	Usage     TokenUsage `json:"usage"`
}

// Text returns the output of a plain-text run
func (r *Result) Text() (string, bool) {
	s, ok := r.Output.(string)
	return s, ok
}

// Fields returns the field-by-field serialization of the output
func (r *Result) Fields() (map[string]any, error) {
	if text, ok := r.Text(); ok {
		return map[string]any{"message": text}, nil
	}

	data, err := json.Marshal(r.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s output: %w", r.Kind, err)
	}
	fields := map[string]any{}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%s output is not an object: %w", r.Kind, err)
	}
	return fields, nil
}

// EventType identifies a run event
type EventType string

const (
	EventAgentStart  EventType = "agent_start"
	EventGuardrail   EventType = "guardrail"
	EventToolCall    EventType = "tool_call"
	EventToolResult  EventType = "tool_result"
	EventHandoff     EventType = "handoff"
	EventFinalOutput EventType = "final_output"
)

// Event describes progress of a run for streaming and auditing
type Event struct {
	Type      EventType `json:"event"`
	RunID     string    `json:"run_id"`
	Agent     string    `json:"agent"`
	Name      string    `json:"name,omitempty"`
	Detail    any       `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
