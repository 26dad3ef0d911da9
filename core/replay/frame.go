// Package replay turns simulator snapshots into serialisable frames and
// persists them for later playback.
package replay

import (
	"time"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/state"
)

// VehicleView is the per-vehicle part of a frame.
type VehicleView struct {
	ID       string  `json:"id"`
	Class    string  `json:"class"`
	Location int64   `json:"location"`
	Occupied bool    `json:"occupied"`
	Range    float64 `json:"range"`
	MaxRange float64 `json:"max_range"`
	Onboard  []int   `json:"onboard,omitempty"`
}

// Frame is one recorded snapshot of a run.
type Frame struct {
	RunID     string        `json:"run_id"`
	Seq       int           `json:"seq"`
	Minute    int           `json:"minute"`
	Label     string        `json:"label"`
	Alert     string        `json:"alert,omitempty"`
	Vehicles  []VehicleView `json:"vehicles"`
	Pending   []int         `json:"pending"`
	Congested []city.RoadID `json:"congested,omitempty"`
	Money     float64       `json:"money"`
	CO2       float64       `json:"co2"`
	Recorded  time.Time     `json:"recorded"`
}

// FromState builds the frame of snapshot s.
func FromState(runID string, seq int, s *state.State) Frame {
	f := Frame{
		RunID:    runID,
		Seq:      seq,
		Minute:   int(s.Time),
		Label:    s.Describe(),
		Alert:    s.Alert,
		Vehicles: make([]VehicleView, len(s.Vehicles)),
		Pending:  s.PendingIDs(),
		Money:    s.Money,
		CO2:      s.CO2,
		Recorded: time.Now().UTC(),
	}
	for i, v := range s.Vehicles {
		f.Vehicles[i] = VehicleView{
			ID:       v.ID,
			Class:    v.Class.String(),
			Location: v.Location,
			Occupied: v.Occupied,
			Range:    v.Range,
			MaxRange: v.MaxRange,
			Onboard:  v.OnboardIDs(),
		}
	}
	if len(s.Congested) > 0 {
		f.Congested = append([]city.RoadID(nil), s.Congested...)
	}
	return f
}
