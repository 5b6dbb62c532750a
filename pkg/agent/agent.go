package agent

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// handoffPrefix names the synthetic tools that transfer control
const handoffPrefix = "transfer_to_"

// InstructionsFunc extends an agent's instructions from the run state
type InstructionsFunc func(ctx context.Context, state any) string

// Agent is an immutable role definition. Handoff targets are full agents and
// form a directed graph rooted at the agent a run starts with.
type Agent struct {
	Name         string
	Instructions string

	// DynamicInstructions, when set, is appended to Instructions on every turn
	DynamicInstructions InstructionsFunc

	// HandoffDescription tells other agents when to transfer to this one
	HandoffDescription string

	// Output is nil for agents that answer in plain text
	Output *OutputType

	// Tools are names registered in the runner's tool executor
	Tools []string

	Handoffs        []*Agent
	InputGuardrails []InputGuardrail
}

// Validate checks the agent itself, not the graph it belongs to
func (a *Agent) Validate() error {
	if a == nil {
		return fmt.Errorf("agent is nil")
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("agent name is required")
	}
	if strings.TrimSpace(a.Instructions) == "" {
		return fmt.Errorf("agent %s: instructions are required", a.Name)
	}

	seenTools := make(map[string]bool, len(a.Tools))
	for _, tool := range a.Tools {
		if tool == "" {
			return fmt.Errorf("agent %s: empty tool name", a.Name)
		}
		if strings.HasPrefix(tool, handoffPrefix) {
			return fmt.Errorf("agent %s: tool %s uses the reserved %s prefix", a.Name, tool, handoffPrefix)
		}
		if seenTools[tool] {
			return fmt.Errorf("agent %s: duplicate tool %s", a.Name, tool)
		}
		seenTools[tool] = true
	}

	seenHandoffs := make(map[string]bool, len(a.Handoffs))
	for i, target := range a.Handoffs {
		if target == nil {
			return fmt.Errorf("agent %s: handoff %d is nil", a.Name, i)
		}
		name := HandoffToolName(target)
		if seenHandoffs[name] {
			return fmt.Errorf("agent %s: duplicate handoff %s", a.Name, name)
		}
		seenHandoffs[name] = true
	}

	for i, g := range a.InputGuardrails {
		if g.Name == "" {
			return fmt.Errorf("agent %s: guardrail %d has no name", a.Name, i)
		}
		if g.Check == nil {
			return fmt.Errorf("agent %s: guardrail %s has no check", a.Name, g.Name)
		}
	}

	return nil
}

// OutputKind returns the result kind this agent produces
func (a *Agent) OutputKind() string {
	if a.Output == nil {
		return KindText
	}
	return a.Output.Name()
}

// SystemPrompt renders the instructions for the current run state
func (a *Agent) SystemPrompt(ctx context.Context, state any) string {
	if a.DynamicInstructions == nil {
		return a.Instructions
	}
	extra := strings.TrimSpace(a.DynamicInstructions(ctx, state))
	if extra == "" {
		return a.Instructions
	}
	return a.Instructions + "\n\n" + extra
}

// handoffTarget resolves a transfer tool name to one of the agent's targets
func (a *Agent) handoffTarget(toolName string) *Agent {
	for _, target := range a.Handoffs {
		if HandoffToolName(target) == toolName {
			return target
		}
	}
	return nil
}

// HandoffToolName returns the tool name that transfers control to target,
// e.g. "Flight Agent" becomes "transfer_to_flight_agent".
func HandoffToolName(target *Agent) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(target.Name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			lastUnderscore = false
			continue
		}
		if !lastUnderscore && b.Len() > 0 {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	return handoffPrefix + strings.TrimSuffix(b.String(), "_")
}

// isHandoffTool reports whether name is a transfer tool
func isHandoffTool(name string) bool {
	return strings.HasPrefix(name, handoffPrefix)
}

// handoffDescription is the tool description advertised for a transfer
func handoffDescription(target *Agent) string {
	desc := fmt.Sprintf("Handoff to the %s agent to handle the request.", target.Name)
	if target.HandoffDescription != "" {
		desc += " " + target.HandoffDescription
	}
	return desc
}
