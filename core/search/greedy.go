package search

import (
	"container/heap"
	"context"

	"github.com/kilianp07/ecofleet/core/state"
)

// Greedy orders the frontier by h alone. A signature is never reconsidered
// once it has entered the frontier.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

func (gr Greedy) Search(ctx context.Context, initial *state.State, p Problem) (*Result, error) {
	r := newRun(ctx, gr.Name(), p)
	h := p.heuristic()
	open := &frontier{}
	heap.Init(open)
	sig0 := r.sig(initial)
	queued := map[string]struct{}{sig0: {}}
	closed := make(map[string]struct{})
	open.push(initial, sig0, h(initial, p.Graph))
	for open.Len() > 0 {
		e := open.pop()
		delete(queued, e.sig)
		if e.state.IsGoal() {
			return r.found(e.state)
		}
		closed[e.sig] = struct{}{}
		succ, err := r.expand(e.state)
		if err != nil {
			return r.fail(err)
		}
		for _, n := range succ {
			sig := r.sig(n)
			if _, ok := closed[sig]; ok {
				continue
			}
			if _, ok := queued[sig]; ok {
				continue
			}
			queued[sig] = struct{}{}
			open.push(n, sig, h(n, p.Graph))
		}
	}
	return r.fail(ErrNoSolution)
}
