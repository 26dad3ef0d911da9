package model

import (
	"errors"
	"fmt"
)

// ErrInvalidVehicle is returned by Vehicle.Validate.
var ErrInvalidVehicle = errors.New("invalid vehicle")

// Vehicle is a taxi of the fleet roster.
//
// Onboard holds at most one request: a vehicle serves a single ride at a time.
// BusyUntil is owned by the simulator and marks the simulated minute at which
// the vehicle finishes its current action.
type Vehicle struct {
	ID       string
	Class    VehicleClass
	Location int64
	Range    float64 // remaining range in km
	MaxRange float64 // range in km with a full battery or tank
	Capacity int     // passenger seats
	Occupied bool
	Onboard  []*Request

	BusyUntil int
}

// Validate checks that the vehicle configuration is sound.
func (v *Vehicle) Validate() error {
	switch {
	case v.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidVehicle)
	case v.MaxRange <= 0:
		return fmt.Errorf("%w: %s max range must be positive", ErrInvalidVehicle, v.ID)
	case v.Range < 0 || v.Range > v.MaxRange:
		return fmt.Errorf("%w: %s range %.1f outside [0, %.1f]", ErrInvalidVehicle, v.ID, v.Range, v.MaxRange)
	case v.Capacity <= 0:
		return fmt.Errorf("%w: %s capacity must be positive", ErrInvalidVehicle, v.ID)
	case v.Occupied != (len(v.Onboard) > 0):
		return fmt.Errorf("%w: %s occupancy does not match onboard list", ErrInvalidVehicle, v.ID)
	}
	return nil
}

// Clone returns an independent copy of the vehicle. Onboard requests are
// shared by reference, the slice holding them is not.
func (v *Vehicle) Clone() *Vehicle {
	c := *v
	if v.Onboard != nil {
		c.Onboard = make([]*Request, len(v.Onboard))
		copy(c.Onboard, v.Onboard)
	}
	return &c
}

// Free reports whether the vehicle can take a new ride.
func (v *Vehicle) Free() bool { return !v.Occupied }

// Current returns the request being served, or nil.
func (v *Vehicle) Current() *Request {
	if len(v.Onboard) == 0 {
		return nil
	}
	return v.Onboard[0]
}

// RangeFraction returns the remaining range as a fraction of MaxRange.
func (v *Vehicle) RangeFraction() float64 {
	if v.MaxRange <= 0 {
		return 0
	}
	return v.Range / v.MaxRange
}

// OnboardIDs returns the ids of the requests carried by the vehicle.
func (v *Vehicle) OnboardIDs() []int {
	ids := make([]int, len(v.Onboard))
	for i, r := range v.Onboard {
		ids[i] = r.ID
	}
	return ids
}
