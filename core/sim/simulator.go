// Package sim runs the online dispatch loop: every simulated minute it
// generates and expires requests, advances the fleet along its plans, asks
// the planner for new plans under a wall-clock budget and records a snapshot.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/cost"
	"github.com/kilianp07/ecofleet/core/events"
	"github.com/kilianp07/ecofleet/core/logger"
	"github.com/kilianp07/ecofleet/core/metrics/eco"
	"github.com/kilianp07/ecofleet/core/model"
	"github.com/kilianp07/ecofleet/core/replay"
	"github.com/kilianp07/ecofleet/core/search"
	"github.com/kilianp07/ecofleet/core/state"
	"github.com/kilianp07/ecofleet/internal/eventbus"
)

var (
	// ErrPlanningTimeout reports a planning attempt that overran its budget.
	// It is never returned by Run: the result is discarded and the tick goes on.
	ErrPlanningTimeout = errors.New("planning timeout")
	// ErrAlreadyRan is returned when Run is called twice.
	ErrAlreadyRan = errors.New("simulator already ran")
)

// Reacher is implemented by providers able to answer path existence.
type Reacher interface {
	Reachable(u, v int64) bool
}

// Congester is implemented by providers with dynamic congestion.
type Congester interface {
	Congest(rng *rand.Rand, n int, factor float64) error
	CongestedEdges() []city.RoadID
}

// Simulator owns the live fleet and the request buckets of one run.
type Simulator struct {
	cfg      Config
	graph    city.Provider
	costs    *cost.Model
	strategy search.Strategy
	problem  search.Problem
	log      logger.Logger
	rng      *rand.Rand
	runID    string

	bus    eventbus.EventBus
	frames *eventbus.TypedBus[replay.Frame]
	store  replay.Store
	eco    eco.Store

	inflight atomic.Bool
	started  atomic.Bool
	phase    atomic.Int32

	mu        sync.Mutex
	minute    int
	vehicles  []*model.Vehicle
	plans     [][]state.Action
	pending   []*model.Request
	completed []*model.Request
	failed    []*model.Request
	reasons   map[int]string
	servedBy  map[int]string
	injected  []*model.Request
	nextID    int
	generated int
	history   []*state.State
	label     string
	alert     string

	money, co2        float64
	emptyKm, loadedKm float64
	planCalls         int
	planTimeouts      int
	failures          int
	failedSet         string
	backoffUntil      int
}

// NewSimulator validates the fleet against the provider and returns a
// simulator ready to Run. The fleet is cloned.
func NewSimulator(cfg Config, g city.Provider, costs *cost.Model, strategy search.Strategy, problem search.Problem, fleet []*model.Vehicle, log logger.Logger) (*Simulator, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if g == nil || costs == nil || strategy == nil {
		return nil, fmt.Errorf("simulator needs a provider, a cost model and a strategy")
	}
	if len(fleet) == 0 {
		return nil, fmt.Errorf("simulator needs at least one vehicle")
	}
	if log == nil {
		log = nopLogger{}
	}
	problem.Graph = g
	problem.Cost = costs
	s := &Simulator{
		cfg:      cfg,
		graph:    g,
		costs:    costs,
		strategy: strategy,
		problem:  problem,
		log:      log,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		runID:    uuid.NewString(),
		store:    replay.NewMemoryStore(),
		eco:      eco.NewMemoryStore(),
		reasons:  make(map[int]string),
		servedBy: make(map[int]string),
		nextID:   1,
	}
	seen := make(map[string]bool, len(fleet))
	for _, v := range fleet {
		if err := v.Validate(); err != nil {
			return nil, err
		}
		if seen[v.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", model.ErrInvalidVehicle, v.ID)
		}
		seen[v.ID] = true
		if err := city.CheckNodes(g, v.Location); err != nil {
			return nil, fmt.Errorf("vehicle %s: %w", v.ID, err)
		}
		s.vehicles = append(s.vehicles, v.Clone())
	}
	s.plans = make([][]state.Action, len(s.vehicles))
	return s, nil
}

// SetEventBus configures the bus receiving request, planning and tick events.
func (s *Simulator) SetEventBus(bus eventbus.EventBus) { s.bus = bus }

// SetFrameBus configures the bus receiving every recorded frame.
func (s *Simulator) SetFrameBus(bus *eventbus.TypedBus[replay.Frame]) { s.frames = bus }

// SetReplayStore replaces the in-memory frame store.
func (s *Simulator) SetReplayStore(store replay.Store) {
	if store != nil {
		s.store = store
	}
}

// SetRunID overrides the generated run identifier.
func (s *Simulator) SetRunID(id string) {
	if id != "" {
		s.runID = id
	}
}

// RunID returns the identifier stamped on events and frames.
func (s *Simulator) RunID() string { return s.runID }

// ReplayStore returns the store frames are appended to.
func (s *Simulator) ReplayStore() replay.Store { return s.store }

// EcoStore returns the per-vehicle distance ledger.
func (s *Simulator) EcoStore() eco.Store { return s.eco }

// Phase returns the current phase of the tick cycle.
func (s *Simulator) Phase() Phase { return Phase(s.phase.Load()) }

func (s *Simulator) setPhase(p Phase) { s.phase.Store(int32(p)) }

// Minute returns the current simulated minute.
func (s *Simulator) Minute() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minute
}

// History returns the recorded snapshots in order.
func (s *Simulator) History() []*state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*state.State(nil), s.history...)
}

// Run ticks until the wall-clock duration elapses, MaxTicks is reached or
// ctx is cancelled, then returns the final statistics.
func (s *Simulator) Run(ctx context.Context) (Stats, error) {
	if !s.started.CompareAndSwap(false, true) {
		return Stats{}, ErrAlreadyRan
	}
	s.setPhase(Running)
	deadline := time.Time{}
	if d := s.cfg.duration(); d > 0 {
		deadline = time.Now().Add(d)
	}
	s.log.Infof("run %s started: %d vehicles, strategy %s", s.runID, len(s.vehicles), s.strategy.Name())
	s.snapshot(ctx)
	for !s.finished(ctx, deadline) {
		s.tick(ctx, deadline)
		if s.cfg.TickDelayMS > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(s.cfg.TickDelayMS) * time.Millisecond):
			}
		}
	}
	s.setPhase(Done)
	st := s.Stats()
	s.publish(st.Summary())
	s.log.Infof("run %s done after %d minutes: %d/%d completed, %d failed, %.2f spent, %.0f g CO2",
		s.runID, st.Ticks, st.Completed, st.Generated, st.Failed, st.Money, st.CO2)
	return st, nil
}

func (s *Simulator) finished(ctx context.Context, deadline time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	if !deadline.IsZero() && !time.Now().Before(deadline) {
		return true
	}
	return s.cfg.MaxTicks > 0 && s.Minute() >= s.cfg.MaxTicks
}

// tick runs one simulated minute.
func (s *Simulator) tick(ctx context.Context, deadline time.Time) {
	s.setPhase(Tick)
	s.mu.Lock()
	s.minute++
	s.label, s.alert = "", ""
	s.congest()
	s.generate()
	s.expire()
	s.setPhase(Applying)
	s.advance()
	s.mu.Unlock()

	s.setPhase(Planning)
	s.replan(ctx, deadline)

	s.setPhase(Running)
	s.snapshot(ctx)
	s.publishTick()
}

func (s *Simulator) congest() {
	every := s.cfg.CongestionEveryTicks
	c, ok := s.graph.(Congester)
	if every <= 0 || !ok || s.minute%every != 0 {
		return
	}
	if err := c.Congest(s.rng, s.cfg.CongestedEdges, s.cfg.CongestionFactor); err != nil {
		s.log.Warnf("congestion update: %v", err)
		return
	}
	s.setAlert(fmt.Sprintf("traffic update: %d roads congested", len(c.CongestedEdges())))
}

func (s *Simulator) setAlert(msg string) {
	if s.alert == "" {
		s.alert = msg
	} else {
		s.alert += "; " + msg
	}
	s.publish(events.AlertEvent{RunID: s.runID, Minute: s.minute, Message: msg})
}

// snapshot records an immutable clone of the live fleet and pending list.
func (s *Simulator) snapshot(ctx context.Context) {
	s.mu.Lock()
	snap := state.New(s.vehicles, s.pending, float64(s.minute))
	snap.Money, snap.CO2 = s.money, s.co2
	snap.Label = s.label
	if snap.Label == "" {
		snap.Label = fmt.Sprintf("minute %d", s.minute)
	}
	snap.Alert = s.alert
	if c, ok := s.graph.(Congester); ok {
		snap.Congested = c.CongestedEdges()
	}
	seq := len(s.history)
	s.history = append(s.history, snap)
	s.mu.Unlock()

	frame := replay.FromState(s.runID, seq, snap)
	if err := s.store.Append(ctx, frame); err != nil {
		s.log.Warnf("replay append: %v", err)
	}
	if s.frames != nil {
		s.frames.Publish(frame)
	}
}

func (s *Simulator) publishTick() {
	s.mu.Lock()
	ev := events.TickEvent{
		RunID:     s.runID,
		Minute:    s.minute,
		Pending:   len(s.pending),
		Active:    s.activeLocked(),
		Completed: len(s.completed),
		Failed:    len(s.failed),
		IdleFleet: s.idleLocked(),
		Money:     s.money,
		CO2:       s.co2,
	}
	s.mu.Unlock()
	s.publish(ev)
}

func (s *Simulator) publish(ev eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func (s *Simulator) activeLocked() int {
	n := 0
	for _, v := range s.vehicles {
		if v.Occupied {
			n++
		}
	}
	return n
}

// idleLocked counts vehicles that finished their action and have no plan.
func (s *Simulator) idleLocked() int {
	n := 0
	for i, v := range s.vehicles {
		if v.BusyUntil <= s.minute && len(s.plans[i]) == 0 {
			n++
		}
	}
	return n
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}
