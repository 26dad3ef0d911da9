package sim

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/cost"
	"github.com/kilianp07/ecofleet/core/events"
	"github.com/kilianp07/ecofleet/core/model"
	"github.com/kilianp07/ecofleet/core/replay"
	"github.com/kilianp07/ecofleet/core/search"
	"github.com/kilianp07/ecofleet/core/state"
	"github.com/kilianp07/ecofleet/internal/eventbus"
)

// line city 1-2-3-4 with one minute per km, plus the isolated node 5
func lineCity(t *testing.T) *city.City {
	t.Helper()
	c := city.New()
	for i := int64(1); i <= 4; i++ {
		require.NoError(t, c.AddNode(i, float64(i-1), 0, city.Street))
	}
	require.NoError(t, c.AddNode(5, 10, 10, city.Street))
	for i := int64(1); i < 4; i++ {
		require.NoError(t, c.AddStreet(i, i+1, 1, 1))
	}
	return c
}

func testConfig(ticks int) Config {
	return Config{MaxTicks: ticks, PlanningBudgetMS: 1000, RequestProbability: -1, Seed: 1}
}

func newSim(t *testing.T, cfg Config, g city.Provider, strategy search.Strategy, fleet ...*model.Vehicle) *Simulator {
	t.Helper()
	if len(fleet) == 0 {
		fleet = []*model.Vehicle{{ID: "E1", Location: 1, Range: 100, MaxRange: 100, Capacity: 4}}
	}
	s, err := NewSimulator(cfg, g, cost.NewModel(cost.DefaultConfig()), strategy, search.Problem{BucketKm: 10}, fleet, nil)
	require.NoError(t, err)
	return s
}

// countingStrategy records the requests it was asked to plan for.
type countingStrategy struct {
	search.Strategy
	calls atomic.Int32
	seen  map[int]bool
}

func (c *countingStrategy) Search(ctx context.Context, initial *state.State, p search.Problem) (*search.Result, error) {
	c.calls.Add(1)
	for _, r := range initial.Pending {
		c.seen[r.ID] = true
	}
	return c.Strategy.Search(ctx, initial, p)
}

func TestSimulatorServesInjectedRequest(t *testing.T) {
	s := newSim(t, testConfig(12), lineCity(t), search.AStar{})
	bus := eventbus.NewWithBuffer(256)
	s.SetEventBus(bus)
	sub := bus.Subscribe()
	require.NoError(t, s.Inject(&model.Request{ID: 101, Origin: 2, Destination: 4, Passengers: 1, Deadline: 100}))

	st, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, st.Ticks)
	assert.Equal(t, 1, st.Generated)
	assert.Equal(t, 1, st.Completed)
	assert.Zero(t, st.Failed)
	assert.Zero(t, st.Active)
	// created at minute 1; move 1, pickup 2, two moves 1 each, dropoff at 7
	assert.Equal(t, 6, st.MaxWait)
	assert.InDelta(t, 6.0, st.AvgWait, 1e-9)
	assert.InDelta(t, 1.0, st.EmptyKm, 1e-9)
	assert.InDelta(t, 2.0, st.LoadedKm, 1e-9)
	assert.InDelta(t, 1.0/3, st.EmptyRatio, 1e-9)
	assert.Zero(t, st.CO2)
	// operating cost 12×0.5, pickup fee 0.5, 3 km at 0.05
	assert.InDelta(t, 6.65, st.Money, 1e-9)
	assert.Equal(t, 1, st.PlanCalls)
	assert.Equal(t, Done, s.Phase())

	bus.Close()
	var statuses []events.RequestStatus
	var planned int
	for ev := range sub {
		switch e := ev.(type) {
		case events.RequestEvent:
			statuses = append(statuses, e.Status)
		case events.PlanningEvent:
			assert.Equal(t, events.PlanFound, e.Outcome)
			planned++
		}
	}
	assert.Equal(t, []events.RequestStatus{events.RequestCreated, events.RequestPickedUp, events.RequestCompleted}, statuses)
	assert.Equal(t, 1, planned)

	out := s.Outcomes()
	require.Len(t, out, 1)
	assert.Equal(t, StatusCompleted, out[0].Status)
	assert.Equal(t, "E1", out[0].VehicleID)
	assert.Equal(t, 3, out[0].PickedUpAt)

	eco, ok := s.EcoStore().Vehicle("E1")
	require.True(t, ok)
	assert.InDelta(t, 2.0, eco.LoadedKm, 1e-9)
}

// A request injected with a deadline already over is failed at the first
// deadline check and never handed to the planner.
func TestSimulatorExpiredRequestNeverPlanned(t *testing.T) {
	strategy := &countingStrategy{Strategy: search.Greedy{}, seen: map[int]bool{}}
	s := newSim(t, testConfig(3), lineCity(t), strategy)
	require.NoError(t, s.Inject(&model.Request{ID: 7, Origin: 2, Destination: 3, Passengers: 1, Deadline: 0}))

	st, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, st.Failed)
	assert.Zero(t, st.PlanCalls)
	assert.Zero(t, strategy.calls.Load())
	assert.False(t, strategy.seen[7])

	out := s.Outcomes()
	require.Len(t, out, 1)
	assert.Equal(t, StatusFailed, out[0].Status)
	assert.Equal(t, "deadline", out[0].Reason)

	hist := s.History()
	require.Len(t, hist, 4)
	for _, h := range hist {
		assert.Empty(t, h.Pending)
	}
	assert.Equal(t, "request 7 expired", hist[1].Alert)
}

func TestSimulatorUnreachableRequest(t *testing.T) {
	cfg := testConfig(10)
	cfg.MaxPlanningFailures = 3
	cfg.BackoffTicks = 5
	s := newSim(t, cfg, lineCity(t), search.AStar{})
	require.NoError(t, s.Inject(&model.Request{ID: 9, Origin: 5, Destination: 2, Passengers: 1, Deadline: 100}))

	st, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.PlanCalls)
	assert.Equal(t, 1, st.Failed)
	assert.Zero(t, st.Pending)
	out := s.Outcomes()
	require.Len(t, out, 1)
	assert.Equal(t, "unreachable", out[0].Reason)
}

// blockingStrategy ignores cancellation until released.
type blockingStrategy struct {
	release chan struct{}
	calls   atomic.Int32
}

func (b *blockingStrategy) Name() string { return "blocking" }

func (b *blockingStrategy) Search(context.Context, *state.State, search.Problem) (*search.Result, error) {
	b.calls.Add(1)
	<-b.release
	return nil, search.ErrNoSolution
}

func TestSimulatorPlanningTimeout(t *testing.T) {
	strategy := &blockingStrategy{release: make(chan struct{})}
	defer close(strategy.release)
	cfg := testConfig(4)
	cfg.PlanningBudgetMS = 20
	cfg.MaxPlanningFailures = 100
	s := newSim(t, cfg, lineCity(t), strategy)
	bus := eventbus.NewWithBuffer(256)
	s.SetEventBus(bus)
	sub := bus.Subscribe()
	require.NoError(t, s.Inject(&model.Request{ID: 1, Origin: 2, Destination: 4, Passengers: 1, Deadline: 100}))

	st, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, st.Ticks)
	assert.Equal(t, 1, st.PlanCalls)
	assert.Equal(t, 1, st.PlanTimeouts)
	assert.Equal(t, int32(1), strategy.calls.Load())
	assert.Equal(t, 1, st.Pending)

	bus.Close()
	var outcomes []events.PlanningOutcome
	for ev := range sub {
		if e, ok := ev.(events.PlanningEvent); ok {
			outcomes = append(outcomes, e.Outcome)
		}
	}
	assert.Equal(t, []events.PlanningOutcome{events.PlanTimeout, events.PlanSkipped, events.PlanSkipped, events.PlanSkipped}, outcomes)
}

// Every generated request ends in exactly one bucket.
func TestSimulatorRequestPartition(t *testing.T) {
	grid := city.GridConfig{Rows: 4, Cols: 4, ChargingStations: 1, FuelStations: 1, Seed: 3}
	grid.SetDefaults()
	g, err := city.NewGrid(grid)
	require.NoError(t, err)

	cfg := Config{MaxTicks: 40, PlanningBudgetMS: 100, RequestProbability: 0.3, Seed: 7, CongestionEveryTicks: 10}
	fleet := []*model.Vehicle{
		{ID: "E1", Class: model.Electric, Location: 0, Range: 200, MaxRange: 200, Capacity: 4},
		{ID: "C1", Class: model.Combustion, Location: 15, Range: 600, MaxRange: 600, Capacity: 4},
	}
	s := newSim(t, cfg, g, search.Greedy{}, fleet...)
	frames := eventbus.NewTypedWithBuffer[replay.Frame](128)
	s.SetFrameBus(frames)
	fsub := frames.Subscribe()

	st, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Positive(t, st.Generated)
	assert.Equal(t, st.Generated, st.Completed+st.Failed+st.Pending+st.Active)
	assert.Len(t, s.Outcomes(), st.Generated)

	stored, err := s.ReplayStore().Query(context.Background(), replay.Query{})
	require.NoError(t, err)
	assert.Len(t, stored, 41)
	assert.Equal(t, s.RunID(), stored[0].RunID)

	var congested bool
	for _, h := range s.History() {
		if strings.Contains(h.Alert, "traffic update") {
			congested = true
			assert.NotEmpty(t, h.Congested)
		}
	}
	assert.True(t, congested)

	frames.Close()
	n := 0
	for range fsub {
		n++
	}
	assert.Equal(t, 41, n)
}

func TestBuildPlans(t *testing.T) {
	g := lineCity(t)
	r := &model.Request{ID: 1, Origin: 2, Destination: 3, Passengers: 1, Deadline: 100}
	fleet := []*model.Vehicle{
		{ID: "E1", Location: 4, Range: 100, MaxRange: 100, Capacity: 4},
		{ID: "E2", Location: 1, Range: 100, MaxRange: 100, Capacity: 4},
	}
	p := search.Problem{Graph: g, Cost: cost.NewModel(cost.DefaultConfig()), BucketKm: 10}
	res, err := search.BFS{}.Search(context.Background(), state.New(fleet, []*model.Request{r}, 0), p)
	require.NoError(t, err)

	plans, err := buildPlans(res.Path, len(fleet))
	require.NoError(t, err)
	total := 0
	for i, plan := range plans {
		for _, a := range plan {
			assert.Equal(t, i, a.Vehicle)
		}
		total += len(plan)
	}
	assert.Equal(t, len(res.Path)-1, total)
	assert.Len(t, res.Actions(), total)

	_, err = buildPlans([]*state.State{res.Path[0], res.Path[0]}, len(fleet))
	assert.ErrorIs(t, err, state.ErrNoTransition)
}

func TestNewSimulatorValidation(t *testing.T) {
	g := lineCity(t)
	m := cost.NewModel(cost.DefaultConfig())
	ok := &model.Vehicle{ID: "E1", Location: 1, Range: 10, MaxRange: 10, Capacity: 1}
	tests := []struct {
		name  string
		cfg   Config
		fleet []*model.Vehicle
		want  error
	}{
		{"unknown node", testConfig(1), []*model.Vehicle{{ID: "E1", Location: 42, Range: 10, MaxRange: 10, Capacity: 1}}, city.ErrUnknownNode},
		{"invalid vehicle", testConfig(1), []*model.Vehicle{{ID: "E1", Location: 1, Range: 20, MaxRange: 10, Capacity: 1}}, model.ErrInvalidVehicle},
		{"duplicate id", testConfig(1), []*model.Vehicle{ok, ok}, model.ErrInvalidVehicle},
		{"empty fleet", testConfig(1), nil, nil},
		{"bad probability", Config{MaxTicks: 1, RequestProbability: 2}, []*model.Vehicle{ok}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSimulator(tt.cfg, g, m, search.Greedy{}, search.Problem{}, tt.fleet, nil)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestSimulatorInjectAndRunOnce(t *testing.T) {
	s := newSim(t, testConfig(1), lineCity(t), search.Greedy{})
	assert.ErrorIs(t, s.Inject(&model.Request{Origin: 1, Destination: 42, Passengers: 1}), city.ErrUnknownNode)
	assert.ErrorIs(t, s.Inject(&model.Request{Origin: 1, Destination: 1, Passengers: 1}), model.ErrInvalidRequest)
	assert.Error(t, s.Inject(nil))

	r := &model.Request{Origin: 1, Destination: 2, Passengers: 1, Deadline: 10}
	require.NoError(t, s.Inject(r))
	assert.NotZero(t, r.ID)

	_, err := s.Run(context.Background())
	require.NoError(t, err)
	_, err = s.Run(context.Background())
	assert.True(t, errors.Is(err, ErrAlreadyRan))
}

func TestSimulatorStopsOnCancel(t *testing.T) {
	s := newSim(t, Config{DurationSeconds: 3600, RequestProbability: -1}, lineCity(t), search.Greedy{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	st, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Ticks)
	assert.Len(t, s.History(), 1)
}

func TestReport(t *testing.T) {
	st := Stats{RunID: "r1", Strategy: "greedy", Ticks: 10, Generated: 4, Completed: 3, Failed: 1, AvgWait: 12.5, MinWait: 8, MaxWait: 20, EmptyKm: 1, LoadedKm: 3, EmptyRatio: 0.25}
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, st))
	out := buf.String()
	assert.Contains(t, out, "3 (75.0%)")
	assert.Contains(t, out, "12.5 / 8 / 20 min")
	assert.Contains(t, out, "(25% empty)")

	buf.Reset()
	require.NoError(t, WriteCSV(&buf, []Outcome{
		{ID: 1, Origin: 2, Destination: 4, Passengers: 1, CreatedAt: 1, Deadline: 61, PickedUpAt: 3, CompletedAt: 7, Wait: 6, Status: StatusCompleted, VehicleID: "E1"},
		{ID: 2, Origin: 5, Destination: 2, Passengers: 2, Status: StatusFailed, Reason: "unreachable"},
	}))
	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"1", "2", "4", "1", "1", "61", "3", "7", "6", "completed", "", "E1"}, rows[1])
	assert.Equal(t, "unreachable", rows[2][10])
}

func TestConfigDefaults(t *testing.T) {
	var c Config
	c.SetDefaults()
	require.NoError(t, c.Validate())
	assert.Equal(t, 60.0, c.DurationSeconds)
	assert.Equal(t, 0.1, c.RequestProbability)
	assert.Equal(t, 3, c.MaxPlanningFailures)
	assert.Equal(t, 5, c.BackoffTicks)
	assert.Equal(t, 8, c.CongestedEdges)

	c.CongestionFactor = 0.5
	assert.Error(t, c.Validate())
	assert.Equal(t, "planning", Planning.String())
}

// Requests no vehicle can seat or carry far enough are failed as unreachable
// while the servable ones still complete.
func TestSimulatorFailsUnservableRequests(t *testing.T) {
	cfg := testConfig(30)
	cfg.MaxPlanningFailures = 3
	cfg.BackoffTicks = 2
	fleet := []*model.Vehicle{{ID: "E1", Location: 1, Range: 2.5, MaxRange: 2.5, Capacity: 2}}
	s := newSim(t, cfg, lineCity(t), search.AStar{}, fleet...)

	/* too many passengers: rejected at the door */
	err := s.Inject(&model.Request{ID: 3, Origin: 2, Destination: 3, Passengers: 3, Deadline: 100})
	require.ErrorIs(t, err, model.ErrInvalidRequest)

	/* servable */
	require.NoError(t, s.Inject(&model.Request{ID: 1, Origin: 2, Destination: 3, Passengers: 1, Deadline: 100}))
	/* 3 km with margin exceeds the full range */
	require.NoError(t, s.Inject(&model.Request{ID: 2, Origin: 1, Destination: 4, Passengers: 1, Deadline: 100}))
	/* too many passengers, entering without the Inject check */
	s.mu.Lock()
	s.injected = append(s.injected, &model.Request{ID: 4, Origin: 2, Destination: 3, Passengers: 3, Deadline: 100})
	s.mu.Unlock()

	st, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.Generated)
	assert.Equal(t, 1, st.Completed)
	assert.Equal(t, 2, st.Failed)
	assert.Zero(t, st.Pending)

	got := map[int]Outcome{}
	for _, o := range s.Outcomes() {
		got[o.ID] = o
	}
	assert.Equal(t, StatusCompleted, got[1].Status)
	assert.Equal(t, "unreachable", got[2].Reason)
	assert.Equal(t, "unreachable", got[4].Reason)
}

// The worker flag is down by the time the outcome is received, so a plan
// call right after a finished one never sees a stale worker.
func TestRunWorkerClearsInflightBeforeReturn(t *testing.T) {
	strategy := &countingStrategy{Strategy: search.Greedy{}, seen: map[int]bool{}}
	s := newSim(t, testConfig(1), lineCity(t), strategy)
	s.mu.Lock()
	initial := s.freezeLocked()
	s.mu.Unlock()

	for i := 0; i < 200; i++ {
		s.runWorker(context.Background(), initial, time.Second)
		require.False(t, s.inflight.Load(), "iteration %d", i)
	}
	assert.Equal(t, int32(200), strategy.calls.Load())
}

func TestAdvanceJoinsLabels(t *testing.T) {
	fleet := []*model.Vehicle{
		{ID: "E1", Location: 1, Range: 100, MaxRange: 100, Capacity: 4},
		{ID: "E2", Location: 3, Range: 100, MaxRange: 100, Capacity: 4},
	}
	s := newSim(t, testConfig(1), lineCity(t), search.Greedy{}, fleet...)
	first := state.Action{Kind: state.Move, Vehicle: 0, VehicleID: "E1", From: 1, To: 2}
	second := state.Action{Kind: state.Move, Vehicle: 1, VehicleID: "E2", From: 3, To: 4}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[0] = []state.Action{first}
	s.plans[1] = []state.Action{second}
	s.advance()

	/* both vehicles acted in the same minute */
	assert.Equal(t, first.String()+"; "+second.String(), s.label)
	assert.Equal(t, int64(2), s.vehicles[0].Location)
	assert.Equal(t, int64(4), s.vehicles[1].Location)
}
