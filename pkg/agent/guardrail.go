package agent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// GuardrailFunc inspects the input an agent is about to act on
type GuardrailFunc func(ctx context.Context, state any, a *Agent, input string) (GuardrailResult, error)

// InputGuardrail is a named pre-check attached to an agent
type InputGuardrail struct {
	Name  string
	Check GuardrailFunc
}

// GuardrailResult is a guardrail verdict. Info is free-form diagnostic data.
type GuardrailResult struct {
	Info              any  `json:"info,omitempty"`
	TripwireTriggered bool `json:"tripwire_triggered"`
}

// GuardrailOutcome pairs a guardrail with its verdict
type GuardrailOutcome struct {
	Guardrail string
	Result    GuardrailResult
}

// RunInputGuardrails evaluates every guardrail of a concurrently. All checks
// complete before returning; outcomes keep declaration order so the caller
// can report the first tripped guardrail deterministically.
func RunInputGuardrails(ctx context.Context, a *Agent, input string, state any) ([]GuardrailOutcome, error) {
	if len(a.InputGuardrails) == 0 {
		return nil, nil
	}

	outcomes := make([]GuardrailOutcome, len(a.InputGuardrails))
	g, gctx := errgroup.WithContext(ctx)

	for i, guardrail := range a.InputGuardrails {
		i, guardrail := i, guardrail
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("guardrail %s panicked: %v", guardrail.Name, r)
				}
			}()

			result, err := guardrail.Check(gctx, state, a, input)
			if err != nil {
				return fmt.Errorf("guardrail %s: %w", guardrail.Name, err)
			}
			outcomes[i] = GuardrailOutcome{Guardrail: guardrail.Name, Result: result}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// firstTripped returns the first outcome whose tripwire fired
func firstTripped(outcomes []GuardrailOutcome) (GuardrailOutcome, bool) {
	for _, o := range outcomes {
		if o.Result.TripwireTriggered {
			return o, true
		}
	}
	return GuardrailOutcome{}, false
}
