package model

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest is returned by Request.Validate.
var ErrInvalidRequest = errors.New("invalid request")

// Request is a ride order from Origin to Destination. Times are simulated
// minutes. A request is never copied: states share it by pointer, and only
// the pickup and completion markers change after creation.
type Request struct {
	ID                  int
	Origin              int64
	Destination         int64
	Passengers          int
	Deadline            int
	CreatedAt           int
	PrefersZeroEmission bool

	PickedUpAt  int
	CompletedAt int
	Delivered   bool
}

// Validate checks the request fields.
func (r *Request) Validate() error {
	switch {
	case r.Origin == r.Destination:
		return fmt.Errorf("%w: %d origin equals destination", ErrInvalidRequest, r.ID)
	case r.Passengers <= 0:
		return fmt.Errorf("%w: %d passengers must be positive", ErrInvalidRequest, r.ID)
	}
	return nil
}

// Expired reports whether the pickup deadline has passed at minute now.
func (r *Request) Expired(now int) bool { return now > r.Deadline }

// Complete marks the request delivered at minute now.
func (r *Request) Complete(now int) {
	r.CompletedAt = now
	r.Delivered = true
}

// WaitTime returns the minutes between creation and delivery.
func (r *Request) WaitTime() int {
	if !r.Delivered {
		return 0
	}
	return r.CompletedAt - r.CreatedAt
}
