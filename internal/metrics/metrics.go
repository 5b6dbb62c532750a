package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing, which keeps library callers free of nil checks.
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	PlanRequestsTotal   *prometheus.CounterVec
	PlanRequestDuration *prometheus.HistogramVec
	RateLimitedTotal    prometheus.Counter

	// Agent run metrics
	AgentRunsTotal *prometheus.CounterVec
	HandoffsTotal  *prometheus.CounterVec

	// Model metrics
	ModelCallsTotal   *prometheus.CounterVec
	ModelCallDuration *prometheus.HistogramVec
	ModelTokensTotal  *prometheus.CounterVec

	// Tool metrics
	ToolExecutionsTotal   *prometheus.CounterVec
	ToolExecutionDuration *prometheus.HistogramVec

	// Guardrail metrics
	GuardrailChecksTotal         *prometheus.CounterVec
	GuardrailFailuresTotal       *prometheus.CounterVec
	GuardrailConsecutiveFailures *prometheus.GaugeVec

	// Catalog metrics
	CatalogReloadsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all metrics
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		PlanRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plan_requests_total",
				Help: "Total number of plan requests by outcome",
			},
			[]string{"status"},
		),
		PlanRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "plan_request_duration_seconds",
				Help:    "Duration of plan requests in seconds",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60, 120},
			},
			[]string{"status"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "http_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),

		AgentRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_runs_total",
				Help: "Total number of agent runs by final agent and outcome",
			},
			[]string{"agent", "outcome"},
		),
		HandoffsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agent_handoffs_total",
				Help: "Total number of handoffs between agents",
			},
			[]string{"from", "to"},
		),

		ModelCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_calls_total",
				Help: "Total number of inference calls",
			},
			[]string{"provider", "status"},
		),
		ModelCallDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "model_call_duration_seconds",
				Help:    "Duration of inference calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		ModelTokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "model_tokens_total",
				Help: "Total number of tokens consumed",
			},
			[]string{"direction"},
		),

		ToolExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tool_executions_total",
				Help: "Total number of tool executions",
			},
			[]string{"tool_name", "status"},
		),
		ToolExecutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tool_execution_duration_seconds",
				Help:    "Duration of tool executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tool_name"},
		),

		GuardrailChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardrail_checks_total",
				Help: "Total number of guardrail evaluations by verdict",
			},
			[]string{"guardrail", "verdict"},
		),
		GuardrailFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guardrail_failures_total",
				Help: "Total number of guardrail evaluations that failed open",
			},
			[]string{"guardrail"},
		),
		GuardrailConsecutiveFailures: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "guardrail_consecutive_failures",
				Help: "Failed-open evaluations since the last successful one",
			},
			[]string{"guardrail"},
		),

		CatalogReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_reloads_total",
				Help: "Total number of catalog reload attempts",
			},
			[]string{"status"},
		),
	}

	m.registerMetrics()

	return m
}

// registerMetrics registers all metrics with the registry
func (m *Metrics) registerMetrics() {
	m.registry.MustRegister(
		m.PlanRequestsTotal,
		m.PlanRequestDuration,
		m.RateLimitedTotal,
		m.AgentRunsTotal,
		m.HandoffsTotal,
		m.ModelCallsTotal,
		m.ModelCallDuration,
		m.ModelTokensTotal,
		m.ToolExecutionsTotal,
		m.ToolExecutionDuration,
		m.GuardrailChecksTotal,
		m.GuardrailFailuresTotal,
		m.GuardrailConsecutiveFailures,
		m.CatalogReloadsTotal,
	)
}

func status(ok bool) string {
	if ok {
		return "success"
	}
	return "error"
}

// RecordPlanRequest records one /plan outcome
func (m *Metrics) RecordPlanRequest(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.PlanRequestsTotal.WithLabelValues(outcome).Inc()
	m.PlanRequestDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordRateLimited counts a request rejected by the limiter
func (m *Metrics) RecordRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

// RecordAgentRun records how a run ended and which agent held control
func (m *Metrics) RecordAgentRun(agent, outcome string) {
	if m == nil {
		return
	}
	m.AgentRunsTotal.WithLabelValues(agent, outcome).Inc()
}

// RecordHandoff records a transfer of control
func (m *Metrics) RecordHandoff(from, to string) {
	if m == nil {
		return
	}
	m.HandoffsTotal.WithLabelValues(from, to).Inc()
}

// RecordModelCall records a single inference call
func (m *Metrics) RecordModelCall(provider string, ok bool, d time.Duration, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.ModelCallsTotal.WithLabelValues(provider, status(ok)).Inc()
	m.ModelCallDuration.WithLabelValues(provider).Observe(d.Seconds())
	if inputTokens > 0 {
		m.ModelTokensTotal.WithLabelValues("input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		m.ModelTokensTotal.WithLabelValues("output").Add(float64(outputTokens))
	}
}

// RecordToolExecution records a tool call
func (m *Metrics) RecordToolExecution(tool string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.ToolExecutionsTotal.WithLabelValues(tool, status(ok)).Inc()
	m.ToolExecutionDuration.WithLabelValues(tool).Observe(d.Seconds())
}

// RecordGuardrail records a guardrail verdict: pass, tripwire or error
func (m *Metrics) RecordGuardrail(guardrail, verdict string) {
	if m == nil {
		return
	}
	m.GuardrailChecksTotal.WithLabelValues(guardrail, verdict).Inc()
}

// RecordGuardrailFailure counts a failed-open evaluation
func (m *Metrics) RecordGuardrailFailure(guardrail string) {
	if m == nil {
		return
	}
	m.GuardrailFailuresTotal.WithLabelValues(guardrail).Inc()
	m.GuardrailConsecutiveFailures.WithLabelValues(guardrail).Inc()
}

// ResetGuardrailFailures clears the consecutive failure gauge
func (m *Metrics) ResetGuardrailFailures(guardrail string) {
	if m == nil {
		return
	}
	m.GuardrailConsecutiveFailures.WithLabelValues(guardrail).Set(0)
}

// RecordCatalogReload records a catalog reload attempt
func (m *Metrics) RecordCatalogReload(ok bool) {
	if m == nil {
		return
	}
	m.CatalogReloadsTotal.WithLabelValues(status(ok)).Inc()
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
