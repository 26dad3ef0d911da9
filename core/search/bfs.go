package search

import (
	"context"

	"github.com/kilianp07/ecofleet/core/state"
)

// BFS explores states in level order. The plan has the fewest actions, not
// the lowest cost.
type BFS struct{}

func (BFS) Name() string { return "bfs" }

func (b BFS) Search(ctx context.Context, initial *state.State, p Problem) (*Result, error) {
	r := newRun(ctx, b.Name(), p)
	visited := map[string]struct{}{r.sig(initial): {}}
	queue := []*state.State{initial}
	for len(queue) > 0 {
		cur := queue[0]
		queue[0] = nil
		queue = queue[1:]
		if cur.IsGoal() {
			return r.found(cur)
		}
		succ, err := r.expand(cur)
		if err != nil {
			return r.fail(err)
		}
		for _, n := range succ {
			sig := r.sig(n)
			if _, ok := visited[sig]; ok {
				continue
			}
			visited[sig] = struct{}{}
			queue = append(queue, n)
		}
	}
	return r.fail(ErrNoSolution)
}
