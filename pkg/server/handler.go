package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jsexpertdev/ostad-ai-agent/internal/tracing"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/travel"
)

// TripwireDetail is returned for every input guardrail tripwire
const TripwireDetail = "Budget too low or invalid"

// maxBodyBytes caps a plan request body
const maxBodyBytes = 1 << 20

// Plan request outcomes, as recorded in metrics
const (
	outcomeSuccess  = "success"
	outcomeInvalid  = "invalid"
	outcomeTripwire = "tripwire"
	outcomeError    = "error"
)

// Planner runs plan requests
type Planner interface {
	Plan(ctx context.Context, req travel.PlanRequest, onEvent func(agent.Event)) (*agent.Result, error)
}

// PlanResponse is the body of a successful plan
type PlanResponse struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

// ErrorResponse is the body of a failed plan
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// planOutcome is a plan result mapped onto the HTTP surface
type planOutcome struct {
	status  int
	outcome string
	kind    string
	data    map[string]interface{}
	detail  string
}

func (o planOutcome) body() interface{} {
	if o.status == http.StatusOK {
		return PlanResponse{Type: o.kind, Data: o.data}
	}
	return ErrorResponse{Detail: o.detail}
}

func invalidRequest(err error) planOutcome {
	return planOutcome{
		status:  http.StatusBadRequest,
		outcome: outcomeInvalid,
		detail:  "invalid request: " + err.Error(),
	}
}

// handlePlan handles POST /plan
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	if !s.acquire() {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Detail: "server is shutting down"})
		return
	}
	defer s.inFlightReqs.Done()

	start := time.Now()
	req, err := decodePlanRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))

	var result planOutcome
	if err != nil {
		result = invalidRequest(err)
	} else {
		result = s.runPlan(r.Context(), req, nil)
	}

	s.metrics.RecordPlanRequest(result.outcome, time.Since(start))
	writeJSON(w, result.status, result.body())
}

// decodePlanRequest parses and validates a plan request body
func decodePlanRequest(body io.Reader) (travel.PlanRequest, error) {
	var req travel.PlanRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, fmt.Errorf("request body is required")
		}
		return req, fmt.Errorf("malformed JSON: %v", err)
	}
	if err := req.Validate(); err != nil {
		return req, err
	}
	return req, nil
}

// runPlan runs one plan under the request timeout and maps its outcome
func (s *Server) runPlan(ctx context.Context, req travel.PlanRequest, onEvent func(agent.Event)) planOutcome {
	ctx, cancel := context.WithTimeout(ctx, s.options.RequestTimeout)
	defer cancel()

	result, err := s.planner.Plan(ctx, req, onEvent)
	o := outcomeOf(result, err)

	logger := tracing.LoggerFromContext(ctx, s.logger)
	var tripwire *agent.GuardrailTripwireError
	switch {
	case errors.As(err, &tripwire):
		logger.Info().
			Str("guardrail", tripwire.Guardrail).
			Str("agent", tripwire.Agent).
			Msg("Plan rejected by guardrail")
	case o.outcome == outcomeError:
		logger.Error().Err(err).Str("detail", o.detail).Msg("Plan failed")
	}

	return o
}

// Response maps a plan result or error onto an HTTP status and body
func Response(result *agent.Result, err error) (int, interface{}) {
	o := outcomeOf(result, err)
	return o.status, o.body()
}

func outcomeOf(result *agent.Result, err error) planOutcome {
	if err != nil {
		var tripwire *agent.GuardrailTripwireError
		switch {
		case errors.Is(err, travel.ErrInvalidRequest):
			return planOutcome{status: http.StatusBadRequest, outcome: outcomeInvalid, detail: err.Error()}
		case errors.As(err, &tripwire):
			return planOutcome{status: http.StatusBadRequest, outcome: outcomeTripwire, detail: TripwireDetail}
		default:
			return planOutcome{status: http.StatusInternalServerError, outcome: outcomeError, detail: "Error: " + err.Error()}
		}
	}

	if result == nil {
		return planOutcome{status: http.StatusInternalServerError, outcome: outcomeError, detail: "Error: empty plan result"}
	}

	data, err := result.Fields()
	if err != nil {
		return planOutcome{status: http.StatusInternalServerError, outcome: outcomeError, detail: "Error: " + err.Error()}
	}

	return planOutcome{
		status:  http.StatusOK,
		outcome: outcomeSuccess,
		kind:    result.Kind,
		data:    data,
	}
}
