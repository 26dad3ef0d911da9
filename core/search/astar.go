package search

import (
	"container/heap"
	"context"

	"github.com/kilianp07/ecofleet/core/state"
)

// AStar orders the frontier by g+h and keeps the best known g per
// signature. A cheaper path to a signature already expanded re-opens it;
// superseded heap entries are skipped when popped.
type AStar struct{}

func (AStar) Name() string { return "astar" }

func (a AStar) Search(ctx context.Context, initial *state.State, p Problem) (*Result, error) {
	r := newRun(ctx, a.Name(), p)
	h := p.heuristic()
	open := &frontier{}
	heap.Init(open)
	sig0 := r.sig(initial)
	best := map[string]float64{sig0: initial.Cost}
	open.push(initial, sig0, initial.Cost+h(initial, p.Graph))
	for open.Len() > 0 {
		e := open.pop()
		if e.g > best[e.sig] {
			continue
		}
		if e.state.IsGoal() {
			return r.found(e.state)
		}
		succ, err := r.expand(e.state)
		if err != nil {
			return r.fail(err)
		}
		for _, n := range succ {
			sig := r.sig(n)
			if g, ok := best[sig]; ok && n.Cost >= g {
				continue
			}
			best[sig] = n.Cost
			open.push(n, sig, n.Cost+h(n, p.Graph))
		}
	}
	return r.fail(ErrNoSolution)
}
