package events

// TickEvent carries the run counters at the end of a simulated minute.
type TickEvent struct {
	RunID     string  `json:"run_id"`
	Minute    int     `json:"minute"`
	Pending   int     `json:"pending"`
	Active    int     `json:"active"`
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	IdleFleet int     `json:"idle_fleet"`
	Money     float64 `json:"money"`
	CO2       float64 `json:"co2"`
}

// AlertEvent is a transient message also attached to the snapshot.
type AlertEvent struct {
	RunID   string `json:"run_id"`
	Minute  int    `json:"minute"`
	Message string `json:"message"`
}
