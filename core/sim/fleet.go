package sim

import (
	"math"

	"github.com/kilianp07/ecofleet/core/events"
	"github.com/kilianp07/ecofleet/core/metrics/eco"
	"github.com/kilianp07/ecofleet/core/model"
	"github.com/kilianp07/ecofleet/core/state"
)

// buildPlans splits a planned path into per-vehicle queues by diffing
// consecutive states.
func buildPlans(path []*state.State, fleet int) ([][]state.Action, error) {
	plans := make([][]state.Action, fleet)
	for k := 1; k < len(path); k++ {
		a, err := state.Derive(path[k-1], path[k])
		if err != nil {
			return nil, err
		}
		plans[a.Vehicle] = append(plans[a.Vehicle], a)
	}
	return plans, nil
}

// advance pops the next planned step of every vehicle that finished its
// previous action and applies it to the live vehicle. It also accrues the
// per-minute operating cost of the fleet.
func (s *Simulator) advance() {
	s.money += rate(s.cfg.OperatingCostPerMinute) * float64(len(s.vehicles))
	for i, v := range s.vehicles {
		if v.BusyUntil > s.minute || len(s.plans[i]) == 0 {
			continue
		}
		a := s.plans[i][0]
		s.plans[i] = s.plans[i][1:]
		if !s.apply(v, a) {
			s.log.Debugf("%s: dropping stale plan at %s", v.ID, a)
			s.plans[i] = nil
			continue
		}
		if s.label == "" {
			s.label = a.String()
		} else {
			s.label += "; " + a.String()
		}
	}
}

// apply performs one action on v. It returns false when the live vehicle no
// longer matches the planned precondition.
func (s *Simulator) apply(v *model.Vehicle, a state.Action) bool {
	cfg := s.costs.Config()
	switch a.Kind {
	case state.Move:
		if v.Location != a.From {
			return false
		}
		e, ok := s.graph.EdgeCost(a.From, a.To)
		if !ok || v.Range < e.DistanceKm {
			return false
		}
		s.drive(v, e.DistanceKm)
		v.Location = a.To
		v.BusyUntil = s.minute + wholeMinutes(e.TimeMin)
	case state.Pickup:
		if v.Occupied || v.Location != a.To {
			return false
		}
		r := s.takePending(a.RequestID)
		if r == nil {
			return false
		}
		r.PickedUpAt = s.minute
		s.servedBy[r.ID] = v.ID
		v.Occupied = true
		v.Onboard = []*model.Request{r}
		s.money += rate(s.cfg.PickupFee)
		v.BusyUntil = s.minute + wholeMinutes(cfg.ServiceMinutes)
		s.publish(events.RequestEvent{RunID: s.runID, RequestID: r.ID, Status: events.RequestPickedUp, Minute: s.minute, VehicleID: v.ID})
	case state.Dropoff:
		r := v.Current()
		if r == nil || r.ID != a.RequestID || v.Location != r.Destination {
			return false
		}
		r.Complete(s.minute)
		v.Occupied = false
		v.Onboard = nil
		s.completed = append(s.completed, r)
		v.BusyUntil = s.minute + wholeMinutes(cfg.ServiceMinutes)
		s.log.Debugf("request %d completed by %s after %d minutes", r.ID, v.ID, r.WaitTime())
		s.publish(events.RequestEvent{
			RunID: s.runID, RequestID: r.ID, Status: events.RequestCompleted,
			Minute: s.minute, VehicleID: v.ID, WaitMinutes: r.WaitTime(),
		})
	case state.Recharge:
		if v.Location != a.To {
			return false
		}
		km := v.MaxRange - v.Range
		s.money += km * cfg.EnergyPricePerKm
		v.Range = v.MaxRange
		v.BusyUntil = s.minute + int(s.costs.RechargeMinutes(km))
	default:
		return false
	}
	return true
}

// drive charges km of travel to v: range, running cost, emissions and the
// empty or loaded distance counters.
func (s *Simulator) drive(v *model.Vehicle, km float64) {
	v.Range = math.Max(0, v.Range-km)
	money := km * s.costs.RatePerKm(v.Class)
	co2 := s.costs.Emissions(v.Class, km)
	s.money += money
	s.co2 += co2
	if v.Occupied {
		s.loadedKm += km
	} else {
		s.emptyKm += km
	}
	if err := s.eco.Add(eco.Entry{VehicleID: v.ID, Class: v.Class.String(), Km: km, Loaded: v.Occupied, CO2: co2, Money: money}); err != nil {
		s.log.Warnf("eco ledger: %v", err)
	}
}

func wholeMinutes(m float64) int {
	n := int(math.Ceil(m))
	if n < 1 {
		return 1
	}
	return n
}
