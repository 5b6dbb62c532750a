package travel

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// PlanRequest is the body of a plan request
type PlanRequest struct {
	Query             string   `json:"query"`
	UserID            string   `json:"user_id"`
	PreferredAirlines []string `json:"preferred_airlines,omitempty"`
	HotelAmenities    []string `json:"hotel_amenities,omitempty"`
	BudgetLevel       string   `json:"budget_level,omitempty"`
}

// Validate checks the required fields
func (r PlanRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("query is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("user_id is required")
	}
	return nil
}

// Lookup records one tool call made on behalf of the user
type Lookup struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
	At   time.Time              `json:"at"`
}

// UserContext is the per-request state shared by every agent, tool and
// guardrail of a run
type UserContext struct {
	UserID            string
	PreferredAirlines []string
	HotelAmenities    []string
	BudgetLevel       string
	SessionStart      time.Time

	mu      sync.Mutex
	lookups []Lookup
}

// NewUserContext builds the run state for a request. Lists are never nil.
func NewUserContext(req PlanRequest) *UserContext {
	airlines := req.PreferredAirlines
	if airlines == nil {
		airlines = []string{}
	}
	amenities := req.HotelAmenities
	if amenities == nil {
		amenities = []string{}
	}

	return &UserContext{
		UserID:            req.UserID,
		PreferredAirlines: airlines,
		HotelAmenities:    amenities,
		BudgetLevel:       req.BudgetLevel,
		SessionStart:      time.Now(),
	}
}

// RecordLookup appends a tool call to the scratch record
func (u *UserContext) RecordLookup(tool string, args map[string]interface{}) {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.lookups = append(u.lookups, Lookup{Tool: tool, Args: args, At: time.Now()})
}

// Lookups returns a copy of the recorded tool calls
func (u *UserContext) Lookups() []Lookup {
	u.mu.Lock()
	defer u.mu.Unlock()

	return append([]Lookup(nil), u.lookups...)
}

func (u *UserContext) flightPreferences() string {
	var lines []string
	if len(u.PreferredAirlines) > 0 {
		lines = append(lines, "Preferred airlines: "+strings.Join(u.PreferredAirlines, ", ")+".")
	}
	if u.BudgetLevel != "" {
		lines = append(lines, "Budget level: "+u.BudgetLevel+".")
	}
	return strings.Join(lines, "\n")
}

func (u *UserContext) hotelPreferences() string {
	var lines []string
	if len(u.HotelAmenities) > 0 {
		lines = append(lines, "Desired hotel amenities: "+strings.Join(u.HotelAmenities, ", ")+".")
	}
	if u.BudgetLevel != "" {
		lines = append(lines, "Budget level: "+u.BudgetLevel+".")
	}
	return strings.Join(lines, "\n")
}

// Profile summarizes the user's preferences for a system prompt
func (u *UserContext) Profile() string {
	lines := []string{"User: " + u.UserID + "."}
	if prefs := u.flightPreferences(); prefs != "" {
		lines = append(lines, prefs)
	}
	if len(u.HotelAmenities) > 0 {
		lines = append(lines, "Desired hotel amenities: "+strings.Join(u.HotelAmenities, ", ")+".")
	}
	return strings.Join(lines, "\n")
}
