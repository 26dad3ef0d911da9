package search

import (
	"fmt"

	"github.com/kilianp07/ecofleet/core/factory"
	"github.com/kilianp07/ecofleet/core/state"
)

// Config selects and tunes the planner.
type Config struct {
	Strategy      string  `json:"strategy"`
	RangeBucketKm float64 `json:"range_bucket_km"`
	MaxExpansions int     `json:"max_expansions"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Strategy == "" {
		c.Strategy = "greedy"
	}
	if c.RangeBucketKm == 0 {
		c.RangeBucketKm = state.DefaultBucketKm
	}
}

// Validate checks that the strategy is registered.
func (c Config) Validate() error {
	if _, err := New(c.Strategy); err != nil {
		return err
	}
	if c.RangeBucketKm < 0 || c.MaxExpansions < 0 {
		return fmt.Errorf("range_bucket_km and max_expansions must be non-negative")
	}
	return nil
}

var registry = factory.NewRegistry[Strategy]()

func init() {
	for _, s := range []Strategy{BFS{}, DFS{}, AStar{}, Greedy{}} {
		s := s
		_ = registry.Register(s.Name(), func(map[string]any) (Strategy, error) { return s, nil })
	}
}

// Register adds a strategy factory identified by name.
func Register(name string, f factory.Factory[Strategy]) error {
	return registry.Register(name, f)
}

// New returns the strategy registered under name.
func New(name string) (Strategy, error) {
	s, err := registry.Create(factory.ModuleConfig{Type: name})
	if err != nil {
		return nil, fmt.Errorf("search strategy: %w", err)
	}
	return s, nil
}

// Names lists the registered strategies.
func Names() []string { return registry.Types() }
