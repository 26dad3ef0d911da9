package sim

import (
	"sort"
	"time"

	"github.com/kilianp07/ecofleet/core/metrics"
	"github.com/kilianp07/ecofleet/core/model"
)

// Stats summarises a run.
type Stats struct {
	RunID     string `json:"run_id"`
	Strategy  string `json:"strategy"`
	Ticks     int    `json:"ticks"`
	Generated int    `json:"generated"`
	Completed int    `json:"completed"`
	Failed    int    `json:"failed"`
	// Active counts requests on board a vehicle, Pending those still waiting.
	Active  int `json:"active"`
	Pending int `json:"pending"`

	AvgWait float64 `json:"avg_wait"`
	MinWait int     `json:"min_wait"`
	MaxWait int     `json:"max_wait"`

	Money      float64 `json:"money"`
	CO2        float64 `json:"co2"`
	EmptyKm    float64 `json:"empty_km"`
	LoadedKm   float64 `json:"loaded_km"`
	EmptyRatio float64 `json:"empty_ratio"`

	PlanCalls    int `json:"plan_calls"`
	PlanTimeouts int `json:"plan_timeouts"`
}

// CompletionRate is the share of generated requests delivered.
func (st Stats) CompletionRate() float64 {
	if st.Generated == 0 {
		return 0
	}
	return float64(st.Completed) / float64(st.Generated)
}

// Summary converts the statistics for the metrics sinks.
func (st Stats) Summary() metrics.RunSummary {
	return metrics.RunSummary{
		RunID:       st.RunID,
		Strategy:    st.Strategy,
		Generated:   st.Generated,
		Completed:   st.Completed,
		Failed:      st.Failed,
		Active:      st.Active,
		AvgWait:     st.AvgWait,
		MinWait:     st.MinWait,
		MaxWait:     st.MaxWait,
		Money:       st.Money,
		CO2:         st.CO2,
		EmptyKm:     st.EmptyKm,
		LoadedKm:    st.LoadedKm,
		PlanCalls:   st.PlanCalls,
		PlanTimeout: st.PlanTimeouts,
		Time:        time.Now().UTC(),
	}
}

// Stats computes the statistics of the run so far.
func (s *Simulator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		RunID:        s.runID,
		Strategy:     s.strategy.Name(),
		Ticks:        s.minute,
		Generated:    s.generated,
		Completed:    len(s.completed),
		Failed:       len(s.failed),
		Active:       s.activeLocked(),
		Pending:      len(s.pending),
		Money:        s.money,
		CO2:          s.co2,
		EmptyKm:      s.emptyKm,
		LoadedKm:     s.loadedKm,
		PlanCalls:    s.planCalls,
		PlanTimeouts: s.planTimeouts,
	}
	if total := s.emptyKm + s.loadedKm; total > 0 {
		st.EmptyRatio = s.emptyKm / total
	}
	for i, r := range s.completed {
		w := r.WaitTime()
		st.AvgWait += float64(w)
		if i == 0 || w < st.MinWait {
			st.MinWait = w
		}
		if w > st.MaxWait {
			st.MaxWait = w
		}
	}
	if n := len(s.completed); n > 0 {
		st.AvgWait /= float64(n)
	}
	return st
}

// Status of a request in the run report.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Outcome is the per-request line of the run report.
type Outcome struct {
	ID          int    `json:"id"`
	Origin      int64  `json:"origin"`
	Destination int64  `json:"destination"`
	Passengers  int    `json:"passengers"`
	CreatedAt   int    `json:"created_at"`
	Deadline    int    `json:"deadline"`
	PickedUpAt  int    `json:"picked_up_at,omitempty"`
	CompletedAt int    `json:"completed_at,omitempty"`
	Wait        int    `json:"wait,omitempty"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	VehicleID   string `json:"vehicle_id,omitempty"`
}

// Outcomes lists every known request ordered by id.
func (s *Simulator) Outcomes() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Outcome
	add := func(r *model.Request, status string) {
		out = append(out, Outcome{
			ID: r.ID, Origin: r.Origin, Destination: r.Destination, Passengers: r.Passengers,
			CreatedAt: r.CreatedAt, Deadline: r.Deadline, PickedUpAt: r.PickedUpAt,
			CompletedAt: r.CompletedAt, Wait: r.WaitTime(), Status: status,
			Reason: s.reasons[r.ID], VehicleID: s.servedBy[r.ID],
		})
	}
	for _, r := range s.completed {
		add(r, StatusCompleted)
	}
	for _, r := range s.failed {
		add(r, StatusFailed)
	}
	for _, r := range s.pending {
		add(r, StatusPending)
	}
	for _, v := range s.vehicles {
		for _, r := range v.Onboard {
			add(r, StatusActive)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
