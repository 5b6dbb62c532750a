package guardrail

import (
	"context"
	"fmt"

	"github.com/jsexpertdev/ostad-ai-agent/internal/metrics"
	"github.com/jsexpertdev/ostad-ai-agent/internal/tracing"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
	"github.com/rs/zerolog"
)

const (
	// BudgetName is the guardrail name reported on a tripwire
	BudgetName = "budget_guardrail"

	// BudgetAnalyzerName is the agent that judges budgets
	BudgetAnalyzerName = "Budget Analyzer"

	// BudgetAnalyzerInstructions is the analyzer's system prompt
	BudgetAnalyzerInstructions = "You analyze if the user's travel budget is realistic and suggest improvements."
)

// BudgetAnalysis is the verdict of the budget analyzer
type BudgetAnalysis struct {
	IsRealistic     bool     `json:"is_realistic"`
	Reasoning       string   `json:"reasoning"`
	SuggestedBudget *float64 `json:"suggested_budget,omitempty"`
}

// BudgetAnalysisOutput is the structured output type of the analyzer
var BudgetAnalysisOutput = agent.MustOutputType("BudgetAnalysis", BudgetAnalysis{})

// AgentRunner runs a nested agent
type AgentRunner interface {
	Run(ctx context.Context, start *agent.Agent, input string, opts agent.RunOptions) (*agent.Result, error)
}

// Budget vetoes plans whose budget the analyzer judges unrealistic
type Budget struct {
	runner   AgentRunner
	analyzer *agent.Agent
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewBudget creates a budget guardrail backed by analyzer
func NewBudget(runner AgentRunner, analyzer *agent.Agent, m *metrics.Metrics, logger zerolog.Logger) (*Budget, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer agent is required")
	}
	if analyzer.Output == nil || analyzer.Output.Name() != BudgetAnalysisOutput.Name() {
		return nil, fmt.Errorf("analyzer agent %s must produce %s", analyzer.Name, BudgetAnalysisOutput.Name())
	}

	return &Budget{
		runner:   runner,
		analyzer: analyzer,
		metrics:  m,
		logger:   logger,
	}, nil
}

// Guardrail returns the budget check as an agent input guardrail
func (b *Budget) Guardrail() agent.InputGuardrail {
	return agent.InputGuardrail{Name: BudgetName, Check: b.Check}
}

// Check runs the analyzer on input. Every failure is reported as a
// realistic budget so the plan proceeds.
func (b *Budget) Check(ctx context.Context, state any, a *agent.Agent, input string) (agent.GuardrailResult, error) {
	analysis, err := b.analyze(ctx, state, input)
	if err != nil {
		b.metrics.RecordGuardrailFailure(BudgetName)
		logger := tracing.LoggerFromContext(ctx, b.logger)
		logger.Warn().
			Err(err).
			Str("guardrail", BudgetName).
			Msg("Budget analysis failed, allowing plan")

		return agent.GuardrailResult{
			Info: &BudgetAnalysis{
				IsRealistic: true,
				Reasoning:   "Error: " + err.Error(),
			},
			TripwireTriggered: false,
		}, nil
	}

	b.metrics.ResetGuardrailFailures(BudgetName)
	return agent.GuardrailResult{
		Info:              analysis,
		TripwireTriggered: !analysis.IsRealistic,
	}, nil
}

func (b *Budget) analyze(ctx context.Context, state any, input string) (analysis *BudgetAnalysis, err error) {
	defer func() {
		if r := recover(); r != nil {
			analysis = nil
			err = fmt.Errorf("budget analysis panicked: %v", r)
		}
	}()

	prompt := fmt.Sprintf("Analyze this travel plan: %s", input)
	result, err := b.runner.Run(ctx, b.analyzer, prompt, agent.RunOptions{State: state})
	if err != nil {
		return nil, err
	}

	analysis, ok := result.Output.(*BudgetAnalysis)
	if !ok || analysis == nil {
		return nil, fmt.Errorf("unexpected budget analysis output %T", result.Output)
	}
	return analysis, nil
}
