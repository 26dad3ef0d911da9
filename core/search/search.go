// Package search implements the planners that turn a fleet state into a
// sequence of actions serving every pending request.
//
// Four strategies share the Strategy interface:
//
//	bfs     level order, shortest in number of actions
//	dfs     iterative depth first, baseline only
//	astar   best first on g+h with re-opening of cheaper paths
//	greedy  best first on h, first path to a signature wins
//
// Duplicate detection uses state.State.Signature with Problem.BucketKm.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/cost"
	"github.com/kilianp07/ecofleet/core/state"
)

var (
	// ErrNoSolution is returned when the frontier is exhausted without
	// reaching a goal.
	ErrNoSolution = errors.New("no solution found")
	// ErrExpansionLimit is returned when Problem.MaxExpansions is reached.
	ErrExpansionLimit = errors.New("expansion limit reached")
)

// cancelCheckInterval is the number of expansions between context checks.
const cancelCheckInterval = 64

// Heuristic estimates the remaining cost from s to a goal.
type Heuristic func(s *state.State, g city.Provider) float64

// Problem bundles what a strategy needs besides the initial state.
type Problem struct {
	Graph city.Provider
	Cost  *cost.Model
	// Heuristic is used by informed strategies. Nil means Estimate.
	Heuristic Heuristic
	BucketKm  float64
	// MaxExpansions caps the number of expanded states. Zero means no cap.
	MaxExpansions int
}

func (p Problem) heuristic() Heuristic {
	if p.Heuristic != nil {
		return p.Heuristic
	}
	return Estimate
}

// Result is a solved plan.
type Result struct {
	Goal     *state.State
	Path     []*state.State
	Cost     float64
	Expanded int
}

// Actions returns the actions of the plan in execution order.
func (r *Result) Actions() []state.Action { return r.Goal.Actions() }

// Strategy searches for a goal state reachable from initial. It returns
// ErrNoSolution when none exists, or the context error when ctx is done
// before the search ends.
type Strategy interface {
	Name() string
	Search(ctx context.Context, initial *state.State, p Problem) (*Result, error)
}

// run tracks the bookkeeping shared by every strategy.
type run struct {
	ctx      context.Context
	p        Problem
	name     string
	start    time.Time
	expanded int
}

func newRun(ctx context.Context, name string, p Problem) *run {
	return &run{ctx: ctx, p: p, name: name, start: time.Now()}
}

func (r *run) sig(s *state.State) string { return s.Signature(r.p.BucketKm) }

func (r *run) expand(s *state.State) ([]*state.State, error) {
	r.expanded++
	if r.p.MaxExpansions > 0 && r.expanded > r.p.MaxExpansions {
		return nil, ErrExpansionLimit
	}
	if r.expanded%cancelCheckInterval == 0 {
		if err := r.ctx.Err(); err != nil {
			return nil, err
		}
	}
	return s.Successors(r.p.Graph, r.p.Cost), nil
}

func (r *run) found(goal *state.State) (*Result, error) {
	observe(r.name, outcomeFound, r.expanded, time.Since(r.start))
	return &Result{Goal: goal, Path: goal.Path(), Cost: goal.Cost, Expanded: r.expanded}, nil
}

func (r *run) fail(err error) (*Result, error) {
	observe(r.name, outcomeOf(err), r.expanded, time.Since(r.start))
	return nil, err
}
