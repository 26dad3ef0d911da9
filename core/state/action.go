package state

import (
	"errors"
	"fmt"
)

// ActionKind enumerates the atomic fleet actions.
type ActionKind int

const (
	Start ActionKind = iota
	Pickup
	Dropoff
	Recharge
	Move
)

// String returns a human-readable representation of the kind.
func (k ActionKind) String() string {
	switch k {
	case Start:
		return "start"
	case Pickup:
		return "pickup"
	case Dropoff:
		return "dropoff"
	case Recharge:
		return "recharge"
	case Move:
		return "move"
	default:
		return "unknown"
	}
}

// Action describes how a state was generated from its parent. Vehicle is the
// index of the acting vehicle in the roster; From and To are equal for
// actions performed in place.
type Action struct {
	Kind      ActionKind
	Vehicle   int
	VehicleID string
	From      int64
	To        int64
	RequestID int
}

func (a Action) String() string {
	switch a.Kind {
	case Start:
		return "initial state"
	case Pickup:
		return fmt.Sprintf("[%s] pickup request %d at %d", a.VehicleID, a.RequestID, a.To)
	case Dropoff:
		return fmt.Sprintf("[%s] dropoff request %d at %d", a.VehicleID, a.RequestID, a.To)
	case Recharge:
		return fmt.Sprintf("[%s] recharge at %d", a.VehicleID, a.To)
	case Move:
		return fmt.Sprintf("[%s] move %d -> %d", a.VehicleID, a.From, a.To)
	default:
		return "unknown action"
	}
}

// ErrNoTransition is returned by Derive when two states differ in no vehicle
// or in a way no single action explains.
var ErrNoTransition = errors.New("no single action between states")

// Derive recovers the action leading from prev to next by comparing the
// vehicle rosters.
func Derive(prev, next *State) (Action, error) {
	if len(prev.Vehicles) != len(next.Vehicles) {
		return Action{}, fmt.Errorf("%w: roster size %d vs %d", ErrNoTransition, len(prev.Vehicles), len(next.Vehicles))
	}
	for i, p := range prev.Vehicles {
		n := next.Vehicles[i]
		a := Action{Vehicle: i, VehicleID: n.ID, From: p.Location, To: n.Location}
		switch {
		case p.Location != n.Location:
			a.Kind = Move
		case !p.Occupied && n.Occupied:
			a.Kind = Pickup
			a.RequestID = n.Onboard[0].ID
		case p.Occupied && !n.Occupied:
			a.Kind = Dropoff
			a.RequestID = p.Onboard[0].ID
		case n.Range > p.Range:
			a.Kind = Recharge
		default:
			continue
		}
		return a, nil
	}
	return Action{}, ErrNoTransition
}
