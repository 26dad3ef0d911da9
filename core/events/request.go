package events

// RequestStatus is the lifecycle step reported by a RequestEvent.
type RequestStatus string

const (
	RequestCreated   RequestStatus = "created"
	RequestPickedUp  RequestStatus = "picked_up"
	RequestCompleted RequestStatus = "completed"
	RequestFailed    RequestStatus = "failed"
)

// RequestEvent is published on every request transition. Reason is set for
// failures ("deadline" or "unreachable"); VehicleID once a vehicle serves it.
type RequestEvent struct {
	RunID       string        `json:"run_id"`
	RequestID   int           `json:"request_id"`
	Status      RequestStatus `json:"status"`
	Minute      int           `json:"minute"`
	VehicleID   string        `json:"vehicle_id,omitempty"`
	WaitMinutes int           `json:"wait_minutes,omitempty"`
	Reason      string        `json:"reason,omitempty"`
}
