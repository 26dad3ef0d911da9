// Package state models a snapshot of the fleet and the open requests, and
// the successor relation the search strategies traverse.
package state

import (
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/model"
)

// DefaultBucketKm is the range discretisation used when none is configured.
const DefaultBucketKm = 10

// State is a fleet snapshot. States are immutable by convention once built:
// every vehicle is owned by its state, requests are shared by reference.
type State struct {
	Vehicles []*model.Vehicle
	Pending  []*model.Request
	// Time is the simulated minute the state is reached at.
	Time float64
	// Cost is the accumulated weighted cost (g).
	Cost  float64
	Money float64
	CO2   float64

	Parent *State
	Action Action

	// Label overrides the action description on snapshots.
	Label     string
	Alert     string
	Congested []city.RoadID
}

// New builds a root state owning clones of vehicles.
func New(vehicles []*model.Vehicle, pending []*model.Request, now float64) *State {
	s := &State{
		Vehicles: make([]*model.Vehicle, len(vehicles)),
		Pending:  make([]*model.Request, len(pending)),
		Time:     now,
		Action:   Action{Kind: Start, Vehicle: -1},
	}
	for i, v := range vehicles {
		s.Vehicles[i] = v.Clone()
	}
	copy(s.Pending, pending)
	return s
}

// Clone returns a detached copy: vehicles are cloned, the pending list is
// copied and the parent link is dropped.
func (s *State) Clone() *State {
	c := New(s.Vehicles, s.Pending, s.Time)
	c.Cost, c.Money, c.CO2 = s.Cost, s.Money, s.CO2
	c.Action = s.Action
	c.Label, c.Alert = s.Label, s.Alert
	if s.Congested != nil {
		c.Congested = append([]city.RoadID(nil), s.Congested...)
	}
	return c
}

// IsGoal reports whether every request has been served.
func (s *State) IsGoal() bool {
	if len(s.Pending) > 0 {
		return false
	}
	for _, v := range s.Vehicles {
		if v.Occupied {
			return false
		}
	}
	return true
}

// Describe returns the snapshot label or the generating action.
func (s *State) Describe() string {
	if s.Label != "" {
		return s.Label
	}
	return s.Action.String()
}

// PendingIDs returns the ids of the pending requests in ascending order.
func (s *State) PendingIDs() []int {
	ids := make([]int, len(s.Pending))
	for i, r := range s.Pending {
		ids[i] = r.ID
	}
	sort.Ints(ids)
	return ids
}

// Signature is the reduced key used for duplicate detection: per vehicle
// its id, location, occupancy, range bucket and onboard ids, followed by the
// pending ids. Range is bucketed by bucketKm so the key space stays finite;
// states differing only within a bucket collapse.
func (s *State) Signature(bucketKm float64) string {
	if bucketKm <= 0 {
		bucketKm = DefaultBucketKm
	}
	var b strings.Builder
	for _, v := range s.Vehicles {
		b.WriteString(v.ID)
		b.WriteByte('@')
		b.WriteString(strconv.FormatInt(v.Location, 10))
		if v.Occupied {
			b.WriteString(":o:")
		} else {
			b.WriteString(":f:")
		}
		b.WriteString(strconv.Itoa(int(v.Range / bucketKm)))
		for _, r := range v.Onboard {
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(r.ID))
		}
		b.WriteByte('|')
	}
	b.WriteString("p")
	for _, id := range s.PendingIDs() {
		b.WriteByte(',')
		b.WriteString(strconv.Itoa(id))
	}
	return b.String()
}

// Path returns the states from the root to s by following parent links.
func (s *State) Path() []*State {
	var out []*State
	for n := s; n != nil; n = n.Parent {
		out = append(out, n)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Actions returns the generating actions along the path to s, root excluded.
func (s *State) Actions() []Action {
	path := s.Path()
	out := make([]Action, 0, len(path)-1)
	for _, p := range path[1:] {
		out = append(out, p.Action)
	}
	return out
}
