package events

import "time"

// PlanningOutcome classifies a planning attempt.
type PlanningOutcome string

const (
	PlanFound      PlanningOutcome = "found"
	PlanNoSolution PlanningOutcome = "no_solution"
	PlanTimeout    PlanningOutcome = "timeout"
	PlanSkipped    PlanningOutcome = "skipped"
)

// PlanningEvent is published after each planning attempt.
type PlanningEvent struct {
	RunID    string          `json:"run_id"`
	Minute   int             `json:"minute"`
	Strategy string          `json:"strategy"`
	Outcome  PlanningOutcome `json:"outcome"`
	Pending  int             `json:"pending"`
	Steps    int             `json:"steps"`
	Cost     float64         `json:"cost"`
	Expanded int             `json:"expanded"`
	Duration time.Duration   `json:"duration_ns"`
}
