package agent

import (
	"errors"
	"fmt"
)

// ErrExecutionLimit matches every LimitExceededError
var ErrExecutionLimit = errors.New("execution limit exceeded")

// LimitExceededError is returned when a run exceeds its turn or handoff ceiling
type LimitExceededError struct {
	Limit string // "turns" or "handoffs"
	Max   int
	Agent string
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("execution limit exceeded: more than %d %s (last agent %q)", e.Max, e.Limit, e.Agent)
}

// Is makes errors.Is(err, ErrExecutionLimit) hold
func (e *LimitExceededError) Is(target error) bool {
	return target == ErrExecutionLimit
}

// GuardrailTripwireError aborts a run when an input guardrail trips. Result
// carries the guardrail's verdict.
type GuardrailTripwireError struct {
	Guardrail string
	Agent     string
	Result    GuardrailResult
}

func (e *GuardrailTripwireError) Error() string {
	return fmt.Sprintf("input guardrail %q triggered tripwire for agent %q", e.Guardrail, e.Agent)
}

// ModelBehaviorError reports model output the runner cannot act on, such as a
// call to an unknown tool or a final answer that does not match the schema.
type ModelBehaviorError struct {
	Agent  string
	Reason string
	Err    error
}

func (e *ModelBehaviorError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent %q: %s: %v", e.Agent, e.Reason, e.Err)
	}
	return fmt.Sprintf("agent %q: %s", e.Agent, e.Reason)
}

func (e *ModelBehaviorError) Unwrap() error {
	return e.Err
}
