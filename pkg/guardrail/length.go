package guardrail

import (
	"context"

	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
)

// InputLengthName is the guardrail name reported on a tripwire
const InputLengthName = "input_length_guardrail"

// LengthVerdict reports the measured input size
type LengthVerdict struct {
	Tokens int `json:"tokens"`
	Limit  int `json:"limit"`
}

// InputLength trips on inputs longer than a token limit
type InputLength struct {
	limit int
}

// NewInputLength creates a length guardrail. A limit of zero or less disables it.
func NewInputLength(limit int) *InputLength {
	return &InputLength{limit: limit}
}

// Enabled reports whether a limit is set
func (l *InputLength) Enabled() bool {
	return l.limit > 0
}

// Guardrail returns the limit as an agent input guardrail
func (l *InputLength) Guardrail() agent.InputGuardrail {
	return agent.InputGuardrail{
		Name: InputLengthName,
		Check: func(ctx context.Context, state any, a *agent.Agent, input string) (agent.GuardrailResult, error) {
			tokens := agent.CountTokens(input)
			return agent.GuardrailResult{
				Info:              &LengthVerdict{Tokens: tokens, Limit: l.limit},
				TripwireTriggered: l.Enabled() && tokens > l.limit,
			}, nil
		},
	}
}
