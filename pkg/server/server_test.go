package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jsexpertdev/ostad-ai-agent/internal/metrics"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/travel"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPlanner struct {
	mock.Mock
}

func (m *mockPlanner) Plan(ctx context.Context, req travel.PlanRequest, onEvent func(agent.Event)) (*agent.Result, error) {
	args := m.Called(ctx, req, onEvent)
	var result *agent.Result
	if r := args.Get(0); r != nil {
		result = r.(*agent.Result)
	}
	return result, args.Error(1)
}

func setupTestServer(t *testing.T, planner Planner, options Options) (*Server, *metrics.Metrics) {
	t.Helper()

	m := metrics.NewMetrics()
	s, err := NewServer(options, planner, m, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.Stop()
		}
	})
	return s, m
}

func postPlan(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/plan", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded), rec.Body.String())
	return rec, decoded
}

const validBody = `{"query": "Plan a trip to Tokyo", "user_id": "u1"}`

func TestNewServer(t *testing.T) {
	t.Run("should apply defaults", func(t *testing.T) {
		s, _ := setupTestServer(t, &mockPlanner{}, Options{})

		assert.Equal(t, 8000, s.options.Port)
		assert.Equal(t, "0.0.0.0", s.options.Host)
		assert.Equal(t, 60*time.Second, s.options.RequestTimeout)
		assert.Equal(t, "0.0.0.0:8000", s.server.Addr)
		assert.Nil(t, s.rateLimiter)
	})

	t.Run("should keep the write deadline past the request timeout", func(t *testing.T) {
		s, _ := setupTestServer(t, &mockPlanner{}, Options{
			RequestTimeout: 600 * time.Millisecond,
			WriteTimeout:   200 * time.Millisecond,
		})

		assert.Equal(t, 600*time.Millisecond+writeGrace, s.server.WriteTimeout)
	})

	t.Run("should require a planner", func(t *testing.T) {
		_, err := NewServer(Options{}, nil, nil, zerolog.Nop())
		assert.EqualError(t, err, "planner is required")
	})
}

func TestHealth(t *testing.T) {
	t.Run("should report status and uptime", func(t *testing.T) {
		s, _ := setupTestServer(t, &mockPlanner{}, Options{})

		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.Contains(t, body, "uptime")
		assert.Contains(t, body, "timestamp")
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("should expose plan metrics", func(t *testing.T) {
		planner := &mockPlanner{}
		planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
			Return(&agent.Result{Kind: agent.KindText, Output: "Hello"}, nil)
		s, _ := setupTestServer(t, planner, Options{})
		postPlan(t, s.Handler(), validBody)

		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "plan_requests_total")
	})
}

func TestHandlePlan(t *testing.T) {
	t.Run("should return the structured result", func(t *testing.T) {
		planner := &mockPlanner{}
		planner.On("Plan", mock.Anything, travel.PlanRequest{
			Query:          "Find a hotel in the historic area",
			UserID:         "u1",
			HotelAmenities: []string{"Spa"},
			BudgetLevel:    "luxury",
		}, mock.Anything).Return(&agent.Result{
			Kind: "HotelRecommendation",
			Output: &travel.HotelRecommendation{
				Name:                 "Luxury Palace",
				Location:             "Historic",
				PricePerNight:        399.99,
				Amenities:            []string{"Spa", "WiFi", "Pool"},
				RecommendationReason: "Spa and historic location.",
			},
		}, nil)
		s, m := setupTestServer(t, planner, Options{})

		rec, body := postPlan(t, s.Handler(), `{"query": "Find a hotel in the historic area", "user_id": "u1",
			"hotel_amenities": ["Spa"], "budget_level": "luxury"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, "HotelRecommendation", body["type"])

		data := body["data"].(map[string]interface{})
		assert.Equal(t, "Luxury Palace", data["name"])
		assert.Equal(t, "Historic", data["location"])
		assert.Equal(t, 399.99, data["price_per_night"])
		assert.Equal(t, "Spa and historic location.", data["recommendation_reason"])

		planner.AssertExpectations(t)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PlanRequestsTotal.WithLabelValues(outcomeSuccess)))
	})

	t.Run("should wrap text answers as a message", func(t *testing.T) {
		planner := &mockPlanner{}
		planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
			Return(&agent.Result{Kind: agent.KindText, Output: "Tokyo is lovely in spring."}, nil)
		s, _ := setupTestServer(t, planner, Options{})

		rec, body := postPlan(t, s.Handler(), validBody)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Text", body["type"])
		assert.Equal(t, map[string]interface{}{"message": "Tokyo is lovely in spring."}, body["data"])
	})

	t.Run("should map a guardrail tripwire to 400", func(t *testing.T) {
		planner := &mockPlanner{}
		planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &agent.GuardrailTripwireError{Guardrail: "budget_guardrail", Agent: "Travel Planner"})
		s, m := setupTestServer(t, planner, Options{})

		rec, body := postPlan(t, s.Handler(), validBody)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, map[string]interface{}{"detail": TripwireDetail}, body)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PlanRequestsTotal.WithLabelValues(outcomeTripwire)))
	})

	t.Run("should map other errors to 500", func(t *testing.T) {
		planner := &mockPlanner{}
		planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.New("model call failed"))
		s, _ := setupTestServer(t, planner, Options{})

		rec, body := postPlan(t, s.Handler(), validBody)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Error: model call failed", body["detail"])
	})

	t.Run("should map execution limits to 500", func(t *testing.T) {
		planner := &mockPlanner{}
		planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, &agent.LimitExceededError{Limit: "turns", Max: 10, Agent: "Travel Planner"})
		s, _ := setupTestServer(t, planner, Options{})

		rec, body := postPlan(t, s.Handler(), validBody)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.True(t, strings.HasPrefix(body["detail"].(string), "Error: execution limit exceeded"))
	})

	t.Run("should reject malformed JSON", func(t *testing.T) {
		planner := &mockPlanner{}
		s, m := setupTestServer(t, planner, Options{})

		rec, body := postPlan(t, s.Handler(), `{"query": `)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.True(t, strings.HasPrefix(body["detail"].(string), "invalid request: malformed JSON"))
		planner.AssertNotCalled(t, "Plan", mock.Anything, mock.Anything, mock.Anything)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PlanRequestsTotal.WithLabelValues(outcomeInvalid)))
	})

	t.Run("should reject a missing user id", func(t *testing.T) {
		planner := &mockPlanner{}
		s, _ := setupTestServer(t, planner, Options{})

		rec, body := postPlan(t, s.Handler(), `{"query": "Trip to Paris"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid request: user_id is required", body["detail"])
		planner.AssertNotCalled(t, "Plan", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("should reject an empty body", func(t *testing.T) {
		s, _ := setupTestServer(t, &mockPlanner{}, Options{})

		rec, body := postPlan(t, s.Handler(), "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid request: request body is required", body["detail"])
	})

	t.Run("should only accept POST", func(t *testing.T) {
		s, _ := setupTestServer(t, &mockPlanner{}, Options{})

		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plan", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("should bound the run by the request timeout", func(t *testing.T) {
		planner := &mockPlanner{}
		planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, context.DeadlineExceeded).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			})
		s, _ := setupTestServer(t, planner, Options{RequestTimeout: 50 * time.Millisecond})

		rec, body := postPlan(t, s.Handler(), validBody)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Error: context deadline exceeded", body["detail"])
	})

	t.Run("should deliver the timeout response over a real connection", func(t *testing.T) {
		planner := &mockPlanner{}
		planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, context.DeadlineExceeded).
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			})
		s, _ := setupTestServer(t, planner, Options{
			RequestTimeout: 100 * time.Millisecond,
			WriteTimeout:   50 * time.Millisecond,
		})

		ts := httptest.NewUnstartedServer(s.Handler())
		ts.Config.WriteTimeout = s.server.WriteTimeout
		ts.Start()
		defer ts.Close()

		resp, err := http.Post(ts.URL+"/plan", "application/json", strings.NewReader(validBody))
		require.NoError(t, err)
		defer resp.Body.Close()

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "Error: context deadline exceeded", body["detail"])
	})

	t.Run("should recover from a panicking planner", func(t *testing.T) {
		planner := &mockPlanner{}
		planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, nil).
			Run(func(mock.Arguments) { panic("boom") })
		s, _ := setupTestServer(t, planner, Options{})

		rec, body := postPlan(t, s.Handler(), validBody)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Error: boom", body["detail"])
	})

	t.Run("should keep a client request id", func(t *testing.T) {
		planner := &mockPlanner{}
		planner.On("Plan", mock.Anything, mock.Anything, mock.Anything).
			Return(&agent.Result{Kind: agent.KindText, Output: "ok"}, nil)
		s, _ := setupTestServer(t, planner, Options{})

		req := httptest.NewRequest(http.MethodPost, "/plan", strings.NewReader(validBody))
		req.Header.Set(RequestIDHeader, "req-123")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestStop(t *testing.T) {
	t.Run("should refuse plans once stopping", func(t *testing.T) {
		planner := &mockPlanner{}
		s, _ := setupTestServer(t, planner, Options{RateLimitPerSecond: 5, RateLimitBurst: 5})

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, s.Stop(ctx))

		rec, body := postPlan(t, s.Handler(), validBody)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "server is shutting down", body["detail"])
		planner.AssertNotCalled(t, "Plan", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestResponse(t *testing.T) {
	t.Run("should map results and errors", func(t *testing.T) {
		status, body := Response(&agent.Result{Kind: agent.KindText, Output: "hi"}, nil)
		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, PlanResponse{Type: "Text", Data: map[string]interface{}{"message": "hi"}}, body)

		status, body = Response(nil, &agent.GuardrailTripwireError{Guardrail: "moderation_guardrail"})
		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, ErrorResponse{Detail: TripwireDetail}, body)

		status, body = Response(nil, nil)
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, ErrorResponse{Detail: "Error: empty plan result"}, body)
	})
}
