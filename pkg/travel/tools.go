package travel

import (
	"context"
	"fmt"

	"github.com/jsexpertdev/ostad-ai-agent/pkg/toolexecutor"
)

// Tool names
const (
	ToolWeather = "get_weather_forecast"
	ToolFlights = "search_flights"
	ToolHotels  = "search_hotels"
)

// RegisterTools registers the lookup tools backed by store
func RegisterTools(te *toolexecutor.ToolExecutor, store *CatalogStore) error {
	if te == nil {
		return fmt.Errorf("tool executor is required")
	}
	if store == nil {
		return fmt.Errorf("catalog store is required")
	}

	tools := []toolexecutor.ToolDefinition{
		{
			Name:        ToolWeather,
			Description: "Get the weather forecast for a city on a specific date.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "city", Type: "string", Description: "City name, e.g. Paris", Required: true},
				{Name: "date", Type: "string", Description: "Date of the forecast", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				recordLookup(ctx, ToolWeather, params)
				city, _ := params["city"].(string)
				return store.Get().Forecast(city), nil
			},
		},
		{
			Name:        ToolFlights,
			Description: "Search available flights between two cities on a date.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "origin", Type: "string", Description: "Departure city", Required: true},
				{Name: "destination", Type: "string", Description: "Arrival city", Required: true},
				{Name: "date", Type: "string", Description: "Travel date", Required: true},
			},
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				recordLookup(ctx, ToolFlights, params)
				return store.Get().Flights, nil
			},
		},
		{
			Name:        ToolHotels,
			Description: "Search hotels in a city for the given stay.",
			Parameters: []toolexecutor.ToolParameter{
				{Name: "city", Type: "string", Description: "City name", Required: true},
				{Name: "check_in", Type: "string", Description: "Check-in date", Required: true},
				{Name: "check_out", Type: "string", Description: "Check-out date", Required: true},
				{Name: "max_price", Type: "number", Description: "Maximum price per night"},
			},
			// max_price is accepted but the catalog is returned whole
			Handler: func(ctx context.Context, params map[string]interface{}) (interface{}, error) {
				recordLookup(ctx, ToolHotels, params)
				return store.Get().Hotels, nil
			},
		},
	}

	for _, def := range tools {
		if err := te.RegisterTool(def); err != nil {
			return fmt.Errorf("failed to register %s: %w", def.Name, err)
		}
	}
	return nil
}

// recordLookup notes the call in the run's user context, if there is one
func recordLookup(ctx context.Context, tool string, params map[string]interface{}) {
	if uc, ok := toolexecutor.StateFrom[*UserContext](ctx); ok && uc != nil {
		uc.RecordLookup(tool, params)
	}
}
