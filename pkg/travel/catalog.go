package travel

import (
	_ "embed"
	"fmt"
	"os"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Flight is a catalog flight as returned by search_flights
type Flight struct {
	Airline       string  `json:"airline" yaml:"airline"`
	DepartureTime string  `json:"departure_time" yaml:"departure_time"`
	ArrivalTime   string  `json:"arrival_time" yaml:"arrival_time"`
	Price         float64 `json:"price" yaml:"price"`
	Direct        bool    `json:"direct" yaml:"direct"`
}

// Hotel is a catalog hotel as returned by search_hotels
type Hotel struct {
	Name          string   `json:"name" yaml:"name"`
	Location      string   `json:"location" yaml:"location"`
	PricePerNight float64  `json:"price_per_night" yaml:"price_per_night"`
	Amenities     []string `json:"amenities" yaml:"amenities"`
}

// Catalog is the static data behind the lookup tools
type Catalog struct {
	Weather map[string]string `yaml:"weather"`
	Flights []Flight          `yaml:"flights"`
	Hotels  []Hotel           `yaml:"hotels"`
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Weather == nil {
		c.Weather = map[string]string{}
	}
	for i := range c.Hotels {
		if c.Hotels[i].Amenities == nil {
			c.Hotels[i].Amenities = []string{}
		}
	}
	return &c, nil
}

// LoadCatalog reads a catalog file
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// DefaultCatalog returns the embedded catalog
func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded catalog is invalid: %v", err))
	}
	return c
}

// Validate checks catalog entries
func (c *Catalog) Validate() error {
	if len(c.Flights) == 0 {
		return fmt.Errorf("catalog has no flights")
	}
	if len(c.Hotels) == 0 {
		return fmt.Errorf("catalog has no hotels")
	}
	for i, f := range c.Flights {
		if f.Airline == "" {
			return fmt.Errorf("flight %d has no airline", i)
		}
		if f.Price < 0 {
			return fmt.Errorf("flight %s has a negative price", f.Airline)
		}
	}
	for i, h := range c.Hotels {
		if h.Name == "" {
			return fmt.Errorf("hotel %d has no name", i)
		}
		if h.PricePerNight < 0 {
			return fmt.Errorf("hotel %s has a negative price", h.Name)
		}
	}
	return nil
}

// Forecast returns the canned forecast for city
func (c *Catalog) Forecast(city string) string {
	if forecast, ok := c.Weather[city]; ok {
		return forecast
	}
	return fmt.Sprintf("No forecast available for %s.", city)
}

// CatalogStore holds the active catalog and swaps it atomically
type CatalogStore struct {
	current atomic.Pointer[Catalog]
}

// NewCatalogStore creates a store serving c
func NewCatalogStore(c *Catalog) *CatalogStore {
	s := &CatalogStore{}
	s.current.Store(c)
	return s
}

// Get returns the active catalog
func (s *CatalogStore) Get() *Catalog {
	return s.current.Load()
}

// Set replaces the active catalog
func (s *CatalogStore) Set(c *Catalog) {
	s.current.Store(c)
}
