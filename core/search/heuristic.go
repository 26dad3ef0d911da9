package search

import (
	"math"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/state"
)

// Estimate sums, in straight-line km:
//   - for each pending request, its trip plus the approach of the closest
//     free vehicle (no approach term when every vehicle is busy);
//   - for each occupied vehicle, the distance left to its destination.
//
// It ignores range limits, recharges and road detours, and is expressed in
// km while g is a weighted cost, so it is not a lower bound in general: A*
// with it is not guaranteed to return the cheapest plan.
func Estimate(s *state.State, g city.Provider) float64 {
	var h float64
	for _, r := range s.Pending {
		h += g.StraightLine(r.Origin, r.Destination)
		approach := math.Inf(1)
		for _, v := range s.Vehicles {
			if v.Occupied {
				continue
			}
			if d := g.StraightLine(v.Location, r.Origin); d < approach {
				approach = d
			}
		}
		if !math.IsInf(approach, 1) {
			h += approach
		}
	}
	for _, v := range s.Vehicles {
		if r := v.Current(); r != nil {
			h += g.StraightLine(v.Location, r.Destination)
		}
	}
	return h
}
