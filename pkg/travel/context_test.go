package travel

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserContext(t *testing.T) {
	t.Run("should default missing lists to empty slices", func(t *testing.T) {
		uc := NewUserContext(PlanRequest{Query: "trip", UserID: "u1"})

		require.NotNil(t, uc.PreferredAirlines)
		require.NotNil(t, uc.HotelAmenities)
		assert.Empty(t, uc.PreferredAirlines)
		assert.Empty(t, uc.HotelAmenities)
		assert.Empty(t, uc.BudgetLevel)
		assert.WithinDuration(t, time.Now(), uc.SessionStart, time.Second)
	})

	t.Run("should copy preferences from the request", func(t *testing.T) {
		uc := NewUserContext(PlanRequest{
			UserID:            "u1",
			PreferredAirlines: []string{"SkyWays"},
			HotelAmenities:    []string{"Spa"},
			BudgetLevel:       "luxury",
		})

		assert.Equal(t, "u1", uc.UserID)
		assert.Equal(t, []string{"SkyWays"}, uc.PreferredAirlines)
		assert.Equal(t, []string{"Spa"}, uc.HotelAmenities)
		assert.Equal(t, "luxury", uc.BudgetLevel)
	})
}

func TestPlanRequestValidate(t *testing.T) {
	t.Run("should require a query", func(t *testing.T) {
		assert.EqualError(t, PlanRequest{UserID: "u1"}.Validate(), "query is required")
	})

	t.Run("should require a user id", func(t *testing.T) {
		assert.EqualError(t, PlanRequest{Query: "trip", UserID: " "}.Validate(), "user_id is required")
	})

	t.Run("should accept a complete request", func(t *testing.T) {
		assert.NoError(t, PlanRequest{Query: "trip", UserID: "u1"}.Validate())
	})
}

func TestUserContextLookups(t *testing.T) {
	t.Run("should record lookups from concurrent tools", func(t *testing.T) {
		uc := NewUserContext(PlanRequest{UserID: "u1"})

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				uc.RecordLookup(ToolWeather, map[string]interface{}{"city": "Paris"})
			}()
		}
		wg.Wait()

		lookups := uc.Lookups()
		assert.Len(t, lookups, 20)
		assert.Equal(t, ToolWeather, lookups[0].Tool)
	})
}

func TestUserContextProfile(t *testing.T) {
	t.Run("should describe every preference", func(t *testing.T) {
		uc := NewUserContext(PlanRequest{
			UserID:            "u1",
			PreferredAirlines: []string{"SkyWays", "OceanAir"},
			HotelAmenities:    []string{"Pool"},
			BudgetLevel:       "moderate",
		})

		profile := uc.Profile()
		assert.Contains(t, profile, "User: u1.")
		assert.Contains(t, profile, "Preferred airlines: SkyWays, OceanAir.")
		assert.Contains(t, profile, "Desired hotel amenities: Pool.")
		assert.Contains(t, profile, "Budget level: moderate.")
	})

	t.Run("should render no preferences when none are set", func(t *testing.T) {
		uc := NewUserContext(PlanRequest{UserID: "u1"})
		assert.Empty(t, uc.flightPreferences())
		assert.Empty(t, uc.hotelPreferences())
		assert.Equal(t, "User: u1.", uc.Profile())
	})
}
