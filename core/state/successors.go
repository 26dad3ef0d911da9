package state

import (
	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/cost"
	"github.com/kilianp07/ecofleet/core/model"
)

// Successors returns every state reachable from s by one action of one
// vehicle. For each vehicle, in roster order, it tries pickups, dropoff,
// recharge and moves to neighbours in ascending id order.
func (s *State) Successors(g city.Provider, m *cost.Model) []*State {
	var out []*State
	for i, v := range s.Vehicles {
		out = s.pickups(out, i, v, g, m)
		if next := s.dropoff(i, v, m); next != nil {
			out = append(out, next)
		}
		if next := s.recharge(i, v, g, m); next != nil {
			out = append(out, next)
		}
		out = s.moves(out, i, v, g, m)
	}
	return out
}

// child clones s, links it as the parent and returns the clone with the
// vehicle at index i ready to be mutated.
func (s *State) child(i int, a Action, b cost.Breakdown, minutes float64) (*State, *model.Vehicle) {
	c := New(s.Vehicles, s.Pending, s.Time+minutes)
	c.Cost = s.Cost + b.Weighted
	c.Money = s.Money + b.Money
	c.CO2 = s.CO2 + b.CO2
	c.Parent = s
	a.Vehicle = i
	c.Action = a
	return c, c.Vehicles[i]
}

func (s *State) pickups(out []*State, i int, v *model.Vehicle, g city.Provider, m *cost.Model) []*State {
	if v.Occupied {
		return out
	}
	for _, r := range s.Pending {
		if r.Origin != v.Location || s.Time > float64(r.Deadline) || r.Passengers > v.Capacity {
			continue
		}
		if !m.CanCarry(v, g.StraightLine(r.Origin, r.Destination)) {
			continue
		}
		a := Action{Kind: Pickup, VehicleID: v.ID, From: v.Location, To: v.Location, RequestID: r.ID}
		next, nv := s.child(i, a, m.Pickup(v, r), m.Config().ServiceMinutes)
		nv.Occupied = true
		nv.Onboard = append(nv.Onboard, r)
		next.Pending = without(s.Pending, r.ID)
		out = append(out, next)
	}
	return out
}

func (s *State) dropoff(i int, v *model.Vehicle, m *cost.Model) *State {
	r := v.Current()
	if !v.Occupied || r == nil || r.Destination != v.Location {
		return nil
	}
	a := Action{Kind: Dropoff, VehicleID: v.ID, From: v.Location, To: v.Location, RequestID: r.ID}
	next, nv := s.child(i, a, m.Dropoff(v), m.Config().ServiceMinutes)
	nv.Occupied = false
	nv.Onboard = nil
	return next
}

func (s *State) recharge(i int, v *model.Vehicle, g city.Provider, m *cost.Model) *State {
	if g.NodeType(v.Location) != energySource(v.Class) || !m.CanRecharge(v) {
		return nil
	}
	km := v.MaxRange - v.Range
	a := Action{Kind: Recharge, VehicleID: v.ID, From: v.Location, To: v.Location}
	next, nv := s.child(i, a, m.Recharge(v, km), m.RechargeMinutes(km))
	nv.Range = nv.MaxRange
	return next
}

func (s *State) moves(out []*State, i int, v *model.Vehicle, g city.Provider, m *cost.Model) []*State {
	for _, nb := range g.Neighbors(v.Location) {
		e, ok := g.EdgeCost(v.Location, nb)
		if !ok || v.Range < e.DistanceKm {
			continue
		}
		a := Action{Kind: Move, VehicleID: v.ID, From: v.Location, To: nb}
		next, nv := s.child(i, a, m.ActionCost(v, e.DistanceKm, e.TimeMin), e.TimeMin)
		nv.Location = nb
		nv.Range -= e.DistanceKm
		if nv.Range < 0 {
			nv.Range = 0
		}
		out = append(out, next)
	}
	return out
}

func energySource(c model.VehicleClass) city.NodeType {
	if c == model.Combustion {
		return city.Fueling
	}
	return city.Charging
}

func without(reqs []*model.Request, id int) []*model.Request {
	out := make([]*model.Request, 0, len(reqs))
	for _, r := range reqs {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}
