package metrics

import (
	"time"

	"github.com/kilianp07/ecofleet/core/events"
)

// MetricsSink records per-minute simulation counters.
type MetricsSink interface {
	RecordTick(ev events.TickEvent) error
}

// PlanningRecorder records planning attempts.
type PlanningRecorder interface {
	RecordPlanning(ev events.PlanningEvent) error
}

// RequestRecorder records request transitions.
type RequestRecorder interface {
	RecordRequest(ev events.RequestEvent) error
}

// RunSummary is the end-of-run statistics of a simulation.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	Strategy    string    `json:"strategy"`
	Generated   int       `json:"generated"`
	Completed   int       `json:"completed"`
	Failed      int       `json:"failed"`
	Active      int       `json:"active"`
	AvgWait     float64   `json:"avg_wait"`
	MinWait     int       `json:"min_wait"`
	MaxWait     int       `json:"max_wait"`
	Money       float64   `json:"money"`
	CO2         float64   `json:"co2"`
	EmptyKm     float64   `json:"empty_km"`
	LoadedKm    float64   `json:"loaded_km"`
	PlanCalls   int       `json:"plan_calls"`
	PlanTimeout int       `json:"plan_timeouts"`
	Time        time.Time `json:"time"`
}

// RunRecorder records the summary of a finished run.
type RunRecorder interface {
	RecordRun(s RunSummary) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordTick(events.TickEvent) error         { return nil }
func (NopSink) RecordPlanning(events.PlanningEvent) error { return nil }
func (NopSink) RecordRequest(events.RequestEvent) error   { return nil }
func (NopSink) RecordRun(RunSummary) error                { return nil }
