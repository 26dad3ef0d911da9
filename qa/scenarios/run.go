package scenarios

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/cost"
	"github.com/kilianp07/ecofleet/core/model"
	"github.com/kilianp07/ecofleet/core/search"
	"github.com/kilianp07/ecofleet/core/sim"
	"github.com/kilianp07/ecofleet/core/state"
	"github.com/kilianp07/ecofleet/infra/logger"
	"github.com/kilianp07/ecofleet/infra/metrics"
	"github.com/kilianp07/ecofleet/internal/eventbus"
)

const searchTimeout = 10 * time.Second

func RunScenario(t *testing.T, sc *Scenario) {
	g, fleet, reqs, err := sc.Build()
	if err != nil {
		t.Fatalf("build %s: %v", sc.Name, err)
	}
	if sc.Simulation != nil {
		runSimulation(t, sc, g, fleet, reqs)
		return
	}
	p := search.Problem{Graph: g, Cost: cost.NewModel(cost.DefaultConfig()), BucketKm: sc.BucketKm}
	for _, name := range sc.strategies() {
		t.Run(name, func(t *testing.T) {
			strategy, err := search.New(name)
			if err != nil {
				t.Fatalf("strategy: %v", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), searchTimeout)
			defer cancel()
			res, err := strategy.Search(ctx, state.New(fleet, reqs, 0), p)
			checkSearch(t, sc, res, err)
		})
	}
}

func (sc *Scenario) strategies() []string {
	if len(sc.Strategies) > 0 {
		return sc.Strategies
	}
	return search.Names()
}

func checkSearch(t *testing.T, sc *Scenario, res *search.Result, err error) {
	exp := sc.Expected
	if !exp.Solvable {
		if !errors.Is(err, search.ErrNoSolution) {
			t.Fatalf("expected no solution, got %v", err)
		}
		if res != nil {
			t.Fatalf("expected no result, got %d steps", len(res.Path)-1)
		}
		return
	}
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !res.Goal.IsGoal() || len(res.Goal.Pending) != 0 {
		t.Fatalf("result is not a goal state")
	}
	actions := res.Actions()
	if exp.MinSteps > 0 && len(actions) < exp.MinSteps {
		t.Errorf("expected at least %d steps, got %d", exp.MinSteps, len(actions))
	}
	if exp.MaxSteps > 0 && len(actions) > exp.MaxSteps {
		t.Errorf("expected at most %d steps, got %d: %v", exp.MaxSteps, len(actions), actions)
	}
	for _, kind := range exp.MustInclude {
		if !includesBeforeLastDropoff(actions, kind) {
			t.Errorf("expected a %s action before the final dropoff in %v", kind, actions)
		}
	}
}

func includesBeforeLastDropoff(actions []state.Action, kind string) bool {
	last := len(actions)
	for i := len(actions) - 1; i >= 0; i-- {
		if actions[i].Kind == state.Dropoff {
			last = i
			break
		}
	}
	for _, a := range actions[:last] {
		if a.Kind.String() == kind {
			return true
		}
	}
	return false
}

// recordingStrategy remembers every request id it was asked to plan for.
type recordingStrategy struct {
	search.Strategy
	mu   sync.Mutex
	seen map[int]bool
}

func (r *recordingStrategy) Search(ctx context.Context, initial *state.State, p search.Problem) (*search.Result, error) {
	r.mu.Lock()
	for _, id := range initial.PendingIDs() {
		r.seen[id] = true
	}
	r.mu.Unlock()
	return r.Strategy.Search(ctx, initial, p)
}

func runSimulation(t *testing.T, sc *Scenario, g *city.City, fleet []*model.Vehicle, reqs []*model.Request) {
	name := "greedy"
	if len(sc.Strategies) > 0 {
		name = sc.Strategies[0]
	}
	base, err := search.New(name)
	if err != nil {
		t.Fatalf("strategy: %v", err)
	}
	strategy := &recordingStrategy{Strategy: base, seen: map[int]bool{}}

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	bus := eventbus.NewWithBuffer(1024)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := metrics.StartEventCollector(ctx, bus, sink, logger.NopLogger{})

	cfg := sim.Config{
		MaxTicks:           sc.Simulation.MaxTicks,
		PlanningBudgetMS:   sc.Simulation.PlanningBudgetMS,
		RequestProbability: -1,
	}
	s, err := sim.NewSimulator(cfg, g, cost.NewModel(cost.DefaultConfig()), strategy,
		search.Problem{BucketKm: sc.BucketKm}, fleet, logger.NopLogger{})
	if err != nil {
		t.Fatalf("simulator: %v", err)
	}
	s.SetEventBus(bus)
	for _, r := range reqs {
		if err := s.Inject(r); err != nil {
			t.Fatalf("inject %d: %v", r.ID, err)
		}
	}
	st, err := s.Run(ctx)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	bus.Close()
	wg.Wait()

	exp := sc.Expected
	if st.Completed != exp.Completed || st.Failed != exp.Failed {
		t.Errorf("expected %d completed and %d failed, got %d and %d", exp.Completed, exp.Failed, st.Completed, st.Failed)
	}
	if exp.Reason != "" {
		if got := counterValue(t, reg, "ecofleet_request_events_total", map[string]string{"status": "failed", "reason": exp.Reason}); int(got) != exp.Failed {
			t.Errorf("expected %d failures with reason %s, got %v", exp.Failed, exp.Reason, got)
		}
	}
	for _, id := range exp.NeverPlanned {
		if strategy.seen[id] {
			t.Errorf("request %d was offered to the planner", id)
		}
	}
}

func counterValue(t *testing.T, g prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := g.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if matchLabels(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(m *dto.Metric, labels map[string]string) bool {
	n := 0
	for _, lp := range m.GetLabel() {
		if v, ok := labels[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			n++
		}
	}
	return n == len(labels)
}
