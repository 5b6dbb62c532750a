// Package guardrail provides the input guardrails of the travel planner:
// an agent-backed budget feasibility check that fails open, a keyword and
// pattern moderation filter, and a token-count input limit.
package guardrail
