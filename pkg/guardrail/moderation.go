package guardrail

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
)

// ModerationName is the guardrail name reported on a tripwire
const ModerationName = "moderation_guardrail"

// ModerationVerdict explains a moderation decision
type ModerationVerdict struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

// Moderation checks input against blocked keywords and patterns
type Moderation struct {
	keywords []string
	patterns []*regexp.Regexp
}

// NewModeration creates a content filter. Keywords match case-insensitively.
func NewModeration(keywords, patterns []string) (*Moderation, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", p, err)
		}
		compiled = append(compiled, re)
	}

	kws := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			kws = append(kws, kw)
		}
	}

	return &Moderation{keywords: kws, patterns: compiled}, nil
}

// Enabled reports whether any rule is configured
func (m *Moderation) Enabled() bool {
	return len(m.keywords) > 0 || len(m.patterns) > 0
}

// CheckPrompt returns an error if the prompt contains blocked content
func (m *Moderation) CheckPrompt(prompt string) error {
	normalized := strings.ToLower(prompt)
	for _, kw := range m.keywords {
		if strings.Contains(normalized, strings.ToLower(kw)) {
			return fmt.Errorf("prompt contains blocked keyword: %s", kw)
		}
	}
	for i, re := range m.patterns {
		if re.MatchString(prompt) {
			return fmt.Errorf("prompt matches blocked pattern #%d", i+1)
		}
	}
	return nil
}

// Guardrail returns the filter as an agent input guardrail
func (m *Moderation) Guardrail() agent.InputGuardrail {
	return agent.InputGuardrail{
		Name: ModerationName,
		Check: func(ctx context.Context, state any, a *agent.Agent, input string) (agent.GuardrailResult, error) {
			if err := m.CheckPrompt(input); err != nil {
				return agent.GuardrailResult{
					Info:              &ModerationVerdict{Blocked: true, Reason: err.Error()},
					TripwireTriggered: true,
				}, nil
			}
			return agent.GuardrailResult{Info: &ModerationVerdict{}}, nil
		},
	}
}
