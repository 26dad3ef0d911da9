package sim

import (
	"fmt"
	"time"
)

// Config holds the simulator settings. Times are simulated minutes unless
// the field name says otherwise.
type Config struct {
	// DurationSeconds is the wall-clock length of a run. Zero relies on MaxTicks.
	DurationSeconds float64 `json:"duration_seconds"`
	// MaxTicks stops the run after that many simulated minutes. Zero means unbounded.
	MaxTicks int `json:"max_ticks"`
	// PlanningBudgetMS caps one planning attempt. Zero gives the planner the
	// wall-clock time left in the run.
	PlanningBudgetMS int `json:"planning_budget_ms"`
	// TickDelayMS pauses between ticks so live consumers can follow the run.
	TickDelayMS int `json:"tick_delay_ms"`

	// RequestProbability is the chance of a new request per tick. Like the
	// other rates and fees below, a negative value disables it.
	RequestProbability       float64 `json:"request_probability"`
	DeadlineMinutes          int     `json:"deadline_minutes"`
	MaxPassengers            int     `json:"max_passengers"`
	EcoPreferenceProbability float64 `json:"eco_preference_probability"`

	OperatingCostPerMinute float64 `json:"operating_cost_per_minute"`
	PickupFee              float64 `json:"pickup_fee"`

	// MaxPlanningFailures consecutive failed attempts on the same pending set
	// trigger the unreachable check and a back-off of BackoffTicks.
	MaxPlanningFailures int `json:"max_planning_failures"`
	BackoffTicks        int `json:"backoff_ticks"`

	// CongestionEveryTicks reshuffles congested roads periodically. Zero disables it.
	CongestionEveryTicks int     `json:"congestion_every_ticks"`
	CongestedEdges       int     `json:"congested_edges"`
	CongestionFactor     float64 `json:"congestion_factor"`

	Seed int64 `json:"seed"`
}

// fallbackBudget bounds planning when the run has no wall-clock deadline.
const fallbackBudget = 2 * time.Second

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.DurationSeconds == 0 && c.MaxTicks == 0 {
		c.DurationSeconds = 60
	}
	if c.RequestProbability == 0 {
		c.RequestProbability = 0.1
	}
	if c.DeadlineMinutes == 0 {
		c.DeadlineMinutes = 60
	}
	if c.MaxPassengers == 0 {
		c.MaxPassengers = 4
	}
	if c.EcoPreferenceProbability == 0 {
		c.EcoPreferenceProbability = 0.3
	}
	if c.OperatingCostPerMinute == 0 {
		c.OperatingCostPerMinute = 0.5
	}
	if c.PickupFee == 0 {
		c.PickupFee = 0.5
	}
	if c.MaxPlanningFailures == 0 {
		c.MaxPlanningFailures = 3
	}
	if c.BackoffTicks == 0 {
		c.BackoffTicks = 5
	}
	if c.CongestedEdges == 0 {
		c.CongestedEdges = 8
	}
	if c.CongestionFactor == 0 {
		c.CongestionFactor = 5
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.DurationSeconds <= 0 && c.MaxTicks <= 0 {
		return fmt.Errorf("simulation needs duration_seconds or max_ticks")
	}
	if c.DurationSeconds < 0 || c.MaxTicks < 0 || c.PlanningBudgetMS < 0 || c.TickDelayMS < 0 {
		return fmt.Errorf("simulation durations must not be negative")
	}
	if c.RequestProbability > 1 || c.EcoPreferenceProbability > 1 {
		return fmt.Errorf("probabilities must not exceed 1")
	}
	if c.DeadlineMinutes <= 0 || c.MaxPassengers <= 0 {
		return fmt.Errorf("deadline_minutes and max_passengers must be positive")
	}
	if c.MaxPlanningFailures <= 0 || c.BackoffTicks < 0 {
		return fmt.Errorf("max_planning_failures must be positive and backoff_ticks non-negative")
	}
	if c.CongestionEveryTicks < 0 || c.CongestedEdges < 0 || c.CongestionFactor < 1 {
		return fmt.Errorf("congestion settings out of range")
	}
	return nil
}

func (c Config) duration() time.Duration {
	return time.Duration(c.DurationSeconds * float64(time.Second))
}

// rate maps disabled (negative) values to zero.
func rate(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
