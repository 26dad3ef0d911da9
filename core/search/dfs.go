package search

import (
	"context"

	"github.com/kilianp07/ecofleet/core/state"
)

// DFS explores the most recent branch first using an explicit stack.
// Successors are pushed in reverse so the first generated one is explored
// first.
type DFS struct{}

func (DFS) Name() string { return "dfs" }

func (d DFS) Search(ctx context.Context, initial *state.State, p Problem) (*Result, error) {
	r := newRun(ctx, d.Name(), p)
	visited := make(map[string]struct{})
	stack := []*state.State{initial}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack[len(stack)-1] = nil
		stack = stack[:len(stack)-1]
		sig := r.sig(cur)
		if _, ok := visited[sig]; ok {
			continue
		}
		visited[sig] = struct{}{}
		if cur.IsGoal() {
			return r.found(cur)
		}
		succ, err := r.expand(cur)
		if err != nil {
			return r.fail(err)
		}
		for i := len(succ) - 1; i >= 0; i-- {
			if _, ok := visited[r.sig(succ[i])]; !ok {
				stack = append(stack, succ[i])
			}
		}
	}
	return r.fail(ErrNoSolution)
}
