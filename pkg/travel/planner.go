package travel

import (
	"context"
	"errors"
	"fmt"

	"github.com/jsexpertdev/ostad-ai-agent/internal/tracing"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
	"github.com/rs/zerolog"
)

// ErrInvalidRequest wraps every plan request validation failure
var ErrInvalidRequest = errors.New("invalid request")

// Planner answers plan requests by running the root agent of the graph
type Planner struct {
	runner *agent.Runner
	graph  *agent.Graph
	logger zerolog.Logger
}

// PlannerConfig holds planner configuration
type PlannerConfig struct {
	Runner *agent.Runner
	Graph  *agent.Graph
	Logger zerolog.Logger
}

// NewPlanner creates a new planner
func NewPlanner(cfg PlannerConfig) (*Planner, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.Graph == nil || cfg.Graph.Root == nil {
		return nil, fmt.Errorf("agent graph is required")
	}

	return &Planner{
		runner: cfg.Runner,
		graph:  cfg.Graph,
		logger: cfg.Logger,
	}, nil
}

// Graph returns the agent graph the planner runs
func (p *Planner) Graph() *agent.Graph {
	return p.graph
}

// Plan runs the travel planner for one request. onEvent may be nil.
func (p *Planner) Plan(ctx context.Context, req PlanRequest, onEvent func(agent.Event)) (*agent.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	ctx = tracing.WithUserID(ctx, req.UserID)
	uc := NewUserContext(req)

	logger := tracing.LoggerFromContext(ctx, p.logger)
	logger.Debug().
		Str("budget_level", uc.BudgetLevel).
		Int("preferred_airlines", len(uc.PreferredAirlines)).
		Int("hotel_amenities", len(uc.HotelAmenities)).
		Msg("Planning trip")

	return p.runner.Run(ctx, p.graph.Root, req.Query, agent.RunOptions{
		State:   uc,
		OnEvent: onEvent,
	})
}
