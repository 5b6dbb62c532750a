package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jsexpertdev/ostad-ai-agent/internal/metrics"
	"github.com/jsexpertdev/ostad-ai-agent/internal/tracing"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/toolexecutor"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultMaxTurns bounds the model calls of a single run
	DefaultMaxTurns = 10

	// DefaultMaxHandoffs bounds the transfers of control in a single run
	DefaultMaxHandoffs = 5
)

// multipleHandoffsMessage answers every transfer after the first in a turn
const multipleHandoffsMessage = "Multiple handoffs requested, ignoring this one."

// Run outcomes reported to metrics
const (
	outcomeSuccess  = "success"
	outcomeTripwire = "tripwire"
	outcomeLimit    = "limit"
	outcomeError    = "error"
)

// Runner drives agents through model turns, tool calls and handoffs
type Runner struct {
	model        Model
	toolExecutor *toolexecutor.ToolExecutor
	metrics      *metrics.Metrics
	logger       zerolog.Logger

	modelName   string
	temperature float64
	maxTokens   int
	maxTurns    int
	maxHandoffs int
	toolTimeout time.Duration
}

// Config holds runner configuration
type Config struct {
	Model        Model
	ToolExecutor *toolexecutor.ToolExecutor
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger

	ModelName   string
	Temperature float64
	MaxTokens   int
	MaxTurns    int
	MaxHandoffs int
	ToolTimeout time.Duration
}

// RunOptions tunes a single run
type RunOptions struct {
	// State is shared by pointer with every agent, tool and guardrail of the run
	State any

	// MaxTurns overrides the runner default when positive
	MaxTurns int

	// OnEvent receives progress events synchronously from the run goroutine
	OnEvent func(Event)
}

// NewRunner creates a new agent runner
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Model == nil {
		return nil, fmt.Errorf("model is required")
	}
	if cfg.ToolExecutor == nil {
		return nil, fmt.Errorf("tool executor is required")
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("model name is required")
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	maxHandoffs := cfg.MaxHandoffs
	if maxHandoffs <= 0 {
		maxHandoffs = DefaultMaxHandoffs
	}
	toolTimeout := cfg.ToolTimeout
	if toolTimeout <= 0 {
		toolTimeout = toolexecutor.DefaultTimeout
	}

	return &Runner{
		model:        cfg.Model,
		toolExecutor: cfg.ToolExecutor,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		modelName:    cfg.ModelName,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		maxTurns:     maxTurns,
		maxHandoffs:  maxHandoffs,
		toolTimeout:  toolTimeout,
	}, nil
}

// ToolExecutor returns the registry the runner resolves tools from
func (r *Runner) ToolExecutor() *toolexecutor.ToolExecutor {
	return r.toolExecutor
}

// runState is the mutable state of one run
type runState struct {
	runID    string
	input    string
	opts     RunOptions
	maxTurns int

	current  *Agent
	messages []Message
	turns    int
	handoffs []string
	usage    TokenUsage
}

// Run executes start against input until an agent produces a final output
func (r *Runner) Run(ctx context.Context, start *Agent, input string, opts RunOptions) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := start.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent: %w", err)
	}

	ctx, runID := tracing.NewRunContext(ctx, start.Name)
	ctx, span := tracing.StartSpan(
		ctx,
		"agent.run",
		attribute.String("run_id", runID),
		attribute.String("agent", start.Name),
	)

	st := &runState{
		runID:    runID,
		input:    input,
		opts:     opts,
		maxTurns: r.maxTurns,
		current:  start,
		messages: []Message{{Role: RoleUser, Content: input}},
	}
	if opts.MaxTurns > 0 {
		st.maxTurns = opts.MaxTurns
	}

	logger := tracing.LoggerFromContext(ctx, r.logger)
	logger.Debug().Int("max_turns", st.maxTurns).Msg("Agent run started")

	result, err := r.loop(ctx, st)
	tracing.EndSpan(span, err)

	outcome := runOutcome(err)
	r.metrics.RecordAgentRun(st.current.Name, outcome)
	if err != nil {
		logger.Warn().
			Err(err).
			Str("outcome", outcome).
			Str("last_agent", st.current.Name).
			Int("turns", st.turns).
			Msg("Agent run failed")
		return nil, err
	}

	logger.Info().
		Str("kind", result.Kind).
		Str("last_agent", result.LastAgent).
		Int("turns", result.Turns).
		Strs("handoffs", result.Handoffs).
		Msg("Agent run completed")
	return result, nil
}

// loop is the run state machine. The current agent is swapped on handoff and
// its guardrails run once on entry.
func (r *Runner) loop(ctx context.Context, st *runState) (*Result, error) {
	entering := true

	for {
		if entering {
			if err := r.enterAgent(ctx, st); err != nil {
				return nil, err
			}
			entering = false
		}

		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}
		if st.turns >= st.maxTurns {
			return nil, &LimitExceededError{Limit: "turns", Max: st.maxTurns, Agent: st.current.Name}
		}
		st.turns++

		response, err := r.callModel(ctx, st)
		if err != nil {
			return nil, err
		}

		if len(response.ToolCalls) == 0 {
			return r.finalOutput(st, response.Content)
		}

		target, err := r.executeToolCalls(ctx, st, response)
		if err != nil {
			return nil, err
		}
		if target == nil {
			continue
		}

		if len(st.handoffs) >= r.maxHandoffs {
			return nil, &LimitExceededError{Limit: "handoffs", Max: r.maxHandoffs, Agent: st.current.Name}
		}
		r.metrics.RecordHandoff(st.current.Name, target.Name)
		r.emit(st, EventHandoff, target.Name, map[string]string{"from": st.current.Name})
		logger := tracing.LoggerFromContext(ctx, r.logger)
		logger.Info().
			Str("from", st.current.Name).
			Str("to", target.Name).
			Msg("Handoff")

		st.handoffs = append(st.handoffs, target.Name)
		st.current = target
		ctx = tracing.PropagateToHandoff(ctx, target.Name)
		entering = true
	}
}

// enterAgent announces the current agent and evaluates its guardrails
func (r *Runner) enterAgent(ctx context.Context, st *runState) error {
	a := st.current
	r.emit(st, EventAgentStart, a.Name, nil)

	if len(a.InputGuardrails) == 0 {
		return nil
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"agent.guardrails",
		attribute.String("agent", a.Name),
		attribute.Int("count", len(a.InputGuardrails)),
	)

	outcomes, err := RunInputGuardrails(ctx, a, st.input, st.opts.State)
	if err != nil {
		for _, g := range a.InputGuardrails {
			r.metrics.RecordGuardrail(g.Name, "error")
		}
		err = fmt.Errorf("input guardrails of %s failed: %w", a.Name, err)
		tracing.EndSpan(span, err)
		return err
	}

	for _, o := range outcomes {
		verdict := "pass"
		if o.Result.TripwireTriggered {
			verdict = "tripwire"
		}
		r.metrics.RecordGuardrail(o.Guardrail, verdict)
		r.emit(st, EventGuardrail, o.Guardrail, o.Result)
	}

	if tripped, ok := firstTripped(outcomes); ok {
		err = &GuardrailTripwireError{Guardrail: tripped.Guardrail, Agent: a.Name, Result: tripped.Result}
	}
	tracing.EndSpan(span, err)
	return err
}

// callModel performs one turn for the current agent
func (r *Runner) callModel(ctx context.Context, st *runState) (*ModelResponse, error) {
	a := st.current

	tools, err := r.toolSpecs(a)
	if err != nil {
		return nil, err
	}

	request := ModelRequest{
		Agent:        a.Name,
		Model:        r.modelName,
		SystemPrompt: a.SystemPrompt(ctx, st.opts.State),
		Messages:     append([]Message(nil), st.messages...),
		Tools:        tools,
		Output:       a.Output,
		Temperature:  r.temperature,
		MaxTokens:    r.maxTokens,
	}

	ctx, span := tracing.StartSpan(
		ctx,
		"agent.turn",
		attribute.String("agent", a.Name),
		attribute.Int("turn", st.turns),
		attribute.String("provider", r.model.Provider()),
	)

	start := time.Now()
	response, err := r.model.Call(ctx, request)
	if err == nil && response == nil {
		err = &ModelBehaviorError{Agent: a.Name, Reason: "empty model response"}
	}
	if err != nil {
		r.metrics.RecordModelCall(r.model.Provider(), false, time.Since(start), 0, 0)
		tracing.EndSpan(span, err)
		var mbe *ModelBehaviorError
		if errors.As(err, &mbe) {
			return nil, err
		}
		return nil, fmt.Errorf("model call failed for %s: %w", a.Name, err)
	}

	usage := response.Usage
	if usage == nil {
		usage = estimateUsage(request, response)
	}
	st.usage.Add(usage)
	r.metrics.RecordModelCall(r.model.Provider(), true, time.Since(start), usage.InputTokens, usage.OutputTokens)

	span.SetAttributes(
		attribute.Int("tool_calls", len(response.ToolCalls)),
		attribute.Int("input_tokens", usage.InputTokens),
		attribute.Int("output_tokens", usage.OutputTokens),
	)
	tracing.EndSpan(span, nil)

	return response, nil
}

// toolSpecs lists the agent's tools followed by its handoff tools
func (r *Runner) toolSpecs(a *Agent) ([]ToolSpec, error) {
	specs := make([]ToolSpec, 0, len(a.Tools)+len(a.Handoffs))

	for _, name := range a.Tools {
		def := r.toolExecutor.GetTool(name)
		if def == nil {
			return nil, fmt.Errorf("agent %s: tool not found: %s", a.Name, name)
		}
		params, err := r.toolExecutor.ParametersSchema(name)
		if err != nil {
			return nil, err
		}
		specs = append(specs, ToolSpec{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  params,
		})
	}

	for _, target := range a.Handoffs {
		specs = append(specs, ToolSpec{
			Name:        HandoffToolName(target),
			Description: handoffDescription(target),
			Parameters: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		})
	}

	return specs, nil
}

// executeToolCalls runs the calls of one turn in model order and returns the
// handoff target, if any. The first transfer wins.
func (r *Runner) executeToolCalls(ctx context.Context, st *runState, response *ModelResponse) (*Agent, error) {
	a := st.current
	st.messages = append(st.messages, Message{
		Role:      RoleAssistant,
		Content:   response.Content,
		ToolCalls: response.ToolCalls,
	})

	var target *Agent
	for _, call := range response.ToolCalls {
		if isHandoffTool(call.Name) {
			next := a.handoffTarget(call.Name)
			if next == nil {
				return nil, &ModelBehaviorError{Agent: a.Name, Reason: fmt.Sprintf("unknown handoff %s", call.Name)}
			}
			content := multipleHandoffsMessage
			if target == nil {
				target = next
				content = fmt.Sprintf(`{"assistant": %q}`, next.Name)
			}
			st.messages = append(st.messages, Message{Role: RoleTool, Content: content, ToolCallID: call.ID})
			continue
		}

		if !hasTool(a, call.Name) {
			return nil, &ModelBehaviorError{Agent: a.Name, Reason: fmt.Sprintf("tool %s not found", call.Name)}
		}

		r.emit(st, EventToolCall, call.Name, call.Parameters)
		result := r.executeTool(ctx, st, call)
		r.emit(st, EventToolResult, call.Name, result.Content())

		st.messages = append(st.messages, Message{Role: RoleTool, Content: result.Content(), ToolCallID: call.ID})
	}

	return target, nil
}

// executeTool runs a single tool call through the executor
func (r *Runner) executeTool(ctx context.Context, st *runState, call ToolCall) toolexecutor.ToolResult {
	ctx, span := tracing.StartSpan(
		ctx,
		"agent.tool",
		attribute.String("tool", call.Name),
		attribute.String("agent", st.current.Name),
	)

	params := call.Parameters
	if params == nil {
		params = map[string]interface{}{}
	}

	result := r.toolExecutor.Execute(ctx, call.Name, params, &toolexecutor.ExecutionContext{
		RunID:   st.runID,
		Agent:   st.current.Name,
		Timeout: r.toolTimeout,
		State:   st.opts.State,
	})
	r.metrics.RecordToolExecution(call.Name, result.Success, result.Duration)

	var err error
	if !result.Success {
		err = errors.New(result.Error)
		logger := tracing.LoggerFromContext(ctx, r.logger)
		logger.Debug().
			Str("tool", call.Name).
			Str("error", result.Error).
			Msg("Tool returned an error")
	}
	tracing.EndSpan(span, err)

	return result
}

// finalOutput turns the last model message into the run result
func (r *Runner) finalOutput(st *runState, content string) (*Result, error) {
	a := st.current

	var output any = content
	if a.Output != nil {
		decoded, err := a.Output.Decode(content)
		if err != nil {
			return nil, &ModelBehaviorError{
				Agent:  a.Name,
				Reason: fmt.Sprintf("invalid %s output", a.Output.Name()),
				Err:    err,
			}
		}
		output = decoded
	}

	result := &Result{
		Kind:      a.OutputKind(),
		Output:    output,
		LastAgent: a.Name,
		RunID:     st.runID,
		Turns:     st.turns,
		Handoffs:  st.handoffs,
		Usage:     st.usage,
	}
	r.emit(st, EventFinalOutput, result.Kind, output)

	return result, nil
}

// emit delivers a run event to the caller, if it asked for events
func (r *Runner) emit(st *runState, typ EventType, name string, detail any) {
	if st.opts.OnEvent == nil {
		return
	}
	st.opts.OnEvent(Event{
		Type:      typ,
		RunID:     st.runID,
		Agent:     st.current.Name,
		Name:      name,
		Detail:    detail,
		Timestamp: time.Now(),
	})
}

func hasTool(a *Agent, name string) bool {
	for _, tool := range a.Tools {
		if tool == name {
			return true
		}
	}
	return false
}

func runOutcome(err error) string {
	var tripwire *GuardrailTripwireError
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.As(err, &tripwire):
		return outcomeTripwire
	case errors.Is(err, ErrExecutionLimit):
		return outcomeLimit
	default:
		return outcomeError
	}
}
