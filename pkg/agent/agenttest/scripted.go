// Package agenttest provides a deterministic agent.Model for tests.
package agenttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
)

// Response is one scripted model turn
type Response struct {
	Content   string
	ToolCalls []agent.ToolCall
	Usage     *agent.TokenUsage
	Err       error
}

// Text scripts a plain answer
func Text(content string) Response {
	return Response{Content: content}
}

// Call scripts a single tool call
func Call(id, name string, params map[string]interface{}) Response {
	if params == nil {
		params = map[string]interface{}{}
	}
	return Response{ToolCalls: []agent.ToolCall{{ID: id, Name: name, Parameters: params}}}
}

// Handoff scripts a transfer to target
func Handoff(id string, target *agent.Agent) Response {
	return Call(id, agent.HandoffToolName(target), nil)
}

// Fail scripts a model error
func Fail(err error) Response {
	return Response{Err: err}
}

// ScriptedModel replays responses per agent. Each agent consumes its own
// script in order, so concurrent guardrail runs stay deterministic.
type ScriptedModel struct {
	mu       sync.Mutex
	scripts  map[string][]Response
	requests []agent.ModelRequest
}

var _ agent.Model = (*ScriptedModel)(nil)

// NewScriptedModel creates an empty scripted model
func NewScriptedModel() *ScriptedModel {
	return &ScriptedModel{scripts: make(map[string][]Response)}
}

// Script appends responses to the named agent's script
func (m *ScriptedModel) Script(agentName string, responses ...Response) *ScriptedModel {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scripts[agentName] = append(m.scripts[agentName], responses...)
	return m
}

// Provider returns the provider name
func (m *ScriptedModel) Provider() string {
	return "scripted"
}

// Call returns the next scripted response for the requesting agent
func (m *ScriptedModel) Call(ctx context.Context, request agent.ModelRequest) (*agent.ModelResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.requests = append(m.requests, request)

	script := m.scripts[request.Agent]
	if len(script) == 0 {
		return nil, fmt.Errorf("script exhausted for agent %s", request.Agent)
	}
	current := script[0]
	m.scripts[request.Agent] = script[1:]

	if current.Err != nil {
		return nil, current.Err
	}

	return &agent.ModelResponse{
		Content:   current.Content,
		ToolCalls: append([]agent.ToolCall(nil), current.ToolCalls...),
		Usage:     current.Usage,
	}, nil
}

// Requests returns every request received so far
func (m *ScriptedModel) Requests() []agent.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]agent.ModelRequest(nil), m.requests...)
}

// RequestsFor returns the requests made on behalf of one agent
func (m *ScriptedModel) RequestsFor(agentName string) []agent.ModelRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []agent.ModelRequest
	for _, req := range m.requests {
		if req.Agent == agentName {
			out = append(out, req)
		}
	}
	return out
}

// Remaining reports how many responses are left for an agent
func (m *ScriptedModel) Remaining(agentName string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.scripts[agentName])
}
