package travel

import (
	"github.com/jsexpertdev/ostad-ai-agent/pkg/agent"
	"github.com/jsexpertdev/ostad-ai-agent/pkg/guardrail"
)

// FlightRecommendation is the structured answer of the flight agent
type FlightRecommendation struct {
	Airline              string  `json:"airline"`
	DepartureTime        string  `json:"departure_time"`
	ArrivalTime          string  `json:"arrival_time"`
	Price                float64 `json:"price"`
	DirectFlight         bool    `json:"direct_flight"`
	RecommendationReason string  `json:"recommendation_reason"`
}

// HotelRecommendation is the structured answer of the hotel agent
type HotelRecommendation struct {
	Name                 string   `json:"name"`
	Location             string   `json:"location"`
	PricePerNight        float64  `json:"price_per_night"`
	Amenities            []string `json:"amenities"`
	RecommendationReason string   `json:"recommendation_reason"`
}

// TravelPlan is the structured answer of the travel planner
type TravelPlan struct {
	Destination  string   `json:"destination"`
	DurationDays int      `json:"duration_days"`
	Budget       float64  `json:"budget"`
	Activities   []string `json:"activities"`
	Notes        string   `json:"notes"`
}

// Output types by name, as referenced from agent definitions
var (
	FlightRecommendationOutput = agent.MustOutputType("FlightRecommendation", FlightRecommendation{})
	HotelRecommendationOutput  = agent.MustOutputType("HotelRecommendation", HotelRecommendation{})
	TravelPlanOutput           = agent.MustOutputType("TravelPlan", TravelPlan{})
)

// OutputTypes returns the registry of structured outputs
func OutputTypes() map[string]*agent.OutputType {
	return map[string]*agent.OutputType{
		FlightRecommendationOutput.Name():     FlightRecommendationOutput,
		HotelRecommendationOutput.Name():      HotelRecommendationOutput,
		TravelPlanOutput.Name():               TravelPlanOutput,
		guardrail.BudgetAnalysisOutput.Name(): guardrail.BudgetAnalysisOutput,
	}
}
