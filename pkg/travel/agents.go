package travel

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jsexpertdev/ostad-ai-agent/internal/config"
	"github.com/jsexpertdev/ostad-ai-agent/internal/metrics"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/guardrail"
	"github.com/rs/zerolog"
)

//go:embed agents.yaml
var defaultAgents []byte

// Agent names of the default graph
const (
	PlannerAgentName = "Travel Planner"
	FlightAgentName  = "Flight Agent"
	HotelAgentName   = "Hotel Agent"
	ChatAgentName    = "General Chat"
)

// DefaultDefinitions returns the embedded agent graph
func DefaultDefinitions() (*agent.DefinitionFile, error) {
	return agent.ParseDefinitions(defaultAgents)
}

// AgentsConfig holds what BuildAgents resolves definitions against
type AgentsConfig struct {
	Definitions *agent.DefinitionFile
	Runner      *agent.Runner
	Guardrails  config.GuardrailsConfig
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
	AllowCycles bool
}

// BuildAgents builds and validates the agent graph. Guardrails disabled in
// configuration are left out.
func BuildAgents(cfg AgentsConfig) (*agent.Graph, error) {
	if cfg.Definitions == nil {
		return nil, fmt.Errorf("agent definitions are required")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}

	builder := &agent.Builder{
		Outputs:      OutputTypes(),
		Guardrails:   map[string]agent.GuardrailFactory{},
		Instructions: Instructions(),
	}

	if cfg.Guardrails.Budget {
		builder.Guardrails["budget"] = func(analyzer *agent.Agent) (agent.InputGuardrail, error) {
			b, err := guardrail.NewBudget(cfg.Runner, analyzer, cfg.Metrics, cfg.Logger)
			if err != nil {
				return agent.InputGuardrail{}, err
			}
			return b.Guardrail(), nil
		}
	}

	moderation, err := guardrail.NewModeration(cfg.Guardrails.BlockedKeywords, cfg.Guardrails.BlockedPatterns)
	if err != nil {
		return nil, err
	}
	if moderation.Enabled() {
		builder.Guardrails["moderation"] = func(*agent.Agent) (agent.InputGuardrail, error) {
			return moderation.Guardrail(), nil
		}
	}

	if length := guardrail.NewInputLength(cfg.Guardrails.MaxInputTokens); length.Enabled() {
		builder.Guardrails["input_length"] = func(*agent.Agent) (agent.InputGuardrail, error) {
			return length.Guardrail(), nil
		}
	}

	graph, err := builder.Build(cfg.Definitions)
	if err != nil {
		return nil, err
	}

	// Agents reachable only as guardrail analyzers are validated on their own
	opts := agent.GraphOptions{
		AllowCycles: cfg.AllowCycles,
		HasTool:     cfg.Runner.ToolExecutor().HasTool,
	}
	reached := map[string]bool{}
	for _, name := range append([]string{graph.Root.Name}, graph.Order...) {
		if reached[name] {
			continue
		}
		agents, err := agent.ValidateGraph(graph.Agents[name], opts)
		if err != nil {
			return nil, fmt.Errorf("invalid agent graph: %w", err)
		}
		for _, a := range agents {
			reached[a.Name] = true
		}
	}

	return graph, nil
}

// Instructions returns the dynamic instruction providers by name
func Instructions() map[string]agent.InstructionsFunc {
	return map[string]agent.InstructionsFunc{
		"flight_preferences": fromUserContext((*UserContext).flightPreferences),
		"hotel_preferences":  fromUserContext((*UserContext).hotelPreferences),
		"user_profile":       fromUserContext((*UserContext).Profile),
	}
}

func fromUserContext(render func(*UserContext) string) agent.InstructionsFunc {
	return func(ctx context.Context, state any) string {
		uc, ok := state.(*UserContext)
		if !ok || uc == nil {
			return ""
		}
		return render(uc)
	}
}
