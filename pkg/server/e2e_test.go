package server

import (
	"net/http"
	"testing"

	"github.com/jsexpertdev/ostad-ai-agent/internal/config"
	"github.com/jsexpertdev/ostad-ai-agent/internal/metrics"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent/agenttest"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/guardrail"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/travel"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestService(t *testing.T, model *agenttest.ScriptedModel) (*travel.Service, http.Handler) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Inference.Model = "test-model"
	m := metrics.NewMetrics()

	svc, err := travel.NewService(cfg, model, m, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	s, err := NewServer(OptionsFromConfig(cfg.Server), svc.Planner, m, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.rateLimiter.Stop() })

	return svc, s.Handler()
}

func TestPlanEndToEnd(t *testing.T) {
	t.Run("should reject an unrealistic budget with 400", func(t *testing.T) {
		model := agenttest.NewScriptedModel().
			Script(guardrail.BudgetAnalyzerName, agenttest.Text(
				`{"is_realistic": false, "reasoning": "Three days in Miami cost far more than $50."}`))
		_, h := setupTestService(t, model)

		rec, body := postPlan(t, h, `{"query": "Plan a 3-day trip to Miami with a $50 budget", "user_id": "u1"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Budget too low or invalid", body["detail"])
		assert.Empty(t, model.RequestsFor(travel.PlannerAgentName))
	})

	t.Run("should recommend a catalog hotel for a luxury stay", func(t *testing.T) {
		model := agenttest.NewScriptedModel().
			Script(guardrail.BudgetAnalyzerName, agenttest.Text(`{"is_realistic": true, "reasoning": "No budget limit given."}`))
		svc, h := setupTestService(t, model)

		hotelAgent := svc.Planner.Graph().Agents[travel.HotelAgentName]
		model.Script(travel.PlannerAgentName, agenttest.Handoff("call_1", hotelAgent))
		model.Script(travel.HotelAgentName,
			agenttest.Call("call_2", travel.ToolHotels, map[string]interface{}{
				"city": "Rome", "check_in": "2025-09-01", "check_out": "2025-09-05",
			}),
			agenttest.Text(`{"name": "Luxury Palace", "location": "Historic", "price_per_night": 399.99,
				"amenities": ["Spa", "WiFi", "Pool"], "recommendation_reason": "Historic area with a spa."}`),
		)

		query := "What's a good hotel in a historic area?"
		rec, body := postPlan(t, h, `{"query": "`+query+`", "user_id": "u2", "budget_level": "luxury"}`)
		require.Equal(t, http.StatusOK, rec.Code, body)

		plannerReqs := model.RequestsFor(travel.PlannerAgentName)
		require.NotEmpty(t, plannerReqs)
		assert.Equal(t, query, plannerReqs[0].Messages[len(plannerReqs[0].Messages)-1].Content)
		assert.Equal(t, "HotelRecommendation", body["type"])

		data := body["data"].(map[string]interface{})
		assert.Equal(t, "Luxury Palace", data["name"])
		assert.NotEmpty(t, data["recommendation_reason"])

		var catalogHotel bool
		for _, hotel := range svc.Catalog.Get().Hotels {
			if hotel.Name == data["name"] {
				catalogHotel = true
			}
		}
		assert.True(t, catalogHotel)
	})
}
