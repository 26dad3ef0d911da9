package sim

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/ecofleet/core/events"
	"github.com/kilianp07/ecofleet/core/model"
	"github.com/kilianp07/ecofleet/core/search"
	"github.com/kilianp07/ecofleet/core/state"
)

type planOutcome struct {
	res *search.Result
	err error
}

// replan runs the strategy on a frozen copy of the live fleet when requests
// are pending and a vehicle sits idle. The worker gets the planning budget;
// past it the result is dropped and the tick goes on without a new plan.
// Only one worker exists at a time: while a timed-out worker is still
// unwinding, planning is skipped.
func (s *Simulator) replan(ctx context.Context, deadline time.Time) {
	s.mu.Lock()
	if !s.needsPlanLocked() {
		s.mu.Unlock()
		return
	}
	minute, pending := s.minute, len(s.pending)
	if s.inflight.Load() {
		s.mu.Unlock()
		s.publish(events.PlanningEvent{RunID: s.runID, Minute: minute, Strategy: s.strategy.Name(), Outcome: events.PlanSkipped, Pending: pending})
		return
	}
	initial := s.freezeLocked()
	key := pendingKey(s.pending)
	s.planCalls++
	s.mu.Unlock()

	out, elapsed := s.runWorker(ctx, initial, s.budget(deadline))

	s.mu.Lock()
	defer s.mu.Unlock()
	ev := events.PlanningEvent{
		RunID:    s.runID,
		Minute:   minute,
		Strategy: s.strategy.Name(),
		Pending:  pending,
		Duration: elapsed,
	}
	switch {
	case out.err == nil:
		plans, err := buildPlans(out.res.Path, len(s.vehicles))
		if err != nil {
			s.log.Errorf("minute %d: unusable plan: %v", minute, err)
			ev.Outcome = events.PlanNoSolution
			s.noteFailure(key)
			break
		}
		s.plans = plans
		s.failures, s.failedSet = 0, ""
		ev.Outcome = events.PlanFound
		ev.Steps = len(out.res.Path) - 1
		ev.Cost = out.res.Cost
		ev.Expanded = out.res.Expanded
		s.log.Infof("minute %d: plan with %d steps for %d requests, cost %.2f, %d expanded in %s",
			minute, ev.Steps, pending, ev.Cost, ev.Expanded, elapsed.Round(time.Microsecond))
	case errors.Is(out.err, ErrPlanningTimeout):
		s.planTimeouts++
		ev.Outcome = events.PlanTimeout
		s.log.Warnf("minute %d: planning discarded after %s", minute, elapsed.Round(time.Millisecond))
		s.noteFailure(key)
	default:
		ev.Outcome = events.PlanNoSolution
		if res := out.res; res != nil {
			ev.Expanded = res.Expanded
		}
		s.log.Warnf("minute %d: no plan for %d pending requests: %v", minute, pending, out.err)
		s.noteFailure(key)
	}
	s.publish(ev)
}

// runWorker starts the search in its own goroutine and waits for it at most
// budget. The worker context is cancelled on return so an overrunning
// search stops at its next cancellation check.
func (s *Simulator) runWorker(ctx context.Context, initial *state.State, budget time.Duration) (planOutcome, time.Duration) {
	pctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()
	done := make(chan planOutcome, 1)
	start := time.Now()
	s.inflight.Store(true)
	go func() {
		res, err := s.strategy.Search(pctx, initial, s.problem)
		// cleared before the send so the next tick never sees a stale worker
		s.inflight.Store(false)
		done <- planOutcome{res: res, err: err}
	}()

	var out planOutcome
	select {
	case out = <-done:
	case <-pctx.Done():
		select {
		case out = <-done:
		default:
			out.err = ErrPlanningTimeout
		}
	}
	if errors.Is(out.err, context.DeadlineExceeded) || errors.Is(out.err, context.Canceled) {
		out = planOutcome{err: ErrPlanningTimeout}
	}
	return out, time.Since(start)
}

func (s *Simulator) budget(deadline time.Time) time.Duration {
	b := time.Duration(s.cfg.PlanningBudgetMS) * time.Millisecond
	if !deadline.IsZero() {
		left := time.Until(deadline)
		if b == 0 || left < b {
			b = left
		}
	} else if b == 0 {
		b = fallbackBudget
	}
	if b <= 0 {
		b = time.Millisecond
	}
	return b
}

func (s *Simulator) needsPlanLocked() bool {
	if len(s.pending) == 0 || s.minute < s.backoffUntil {
		return false
	}
	return s.idleLocked() > 0
}

// freezeLocked copies the fleet and the pending requests, requests included,
// so the worker shares no memory with the live run.
func (s *Simulator) freezeLocked() *state.State {
	copies := make(map[int]*model.Request)
	cp := func(r *model.Request) *model.Request {
		if c, ok := copies[r.ID]; ok {
			return c
		}
		c := *r
		copies[r.ID] = &c
		return &c
	}
	vehicles := make([]*model.Vehicle, len(s.vehicles))
	for i, v := range s.vehicles {
		c := v.Clone()
		for j, r := range c.Onboard {
			c.Onboard[j] = cp(r)
		}
		vehicles[i] = c
	}
	pending := make([]*model.Request, len(s.pending))
	for i, r := range s.pending {
		pending[i] = cp(r)
	}
	return state.New(vehicles, pending, float64(s.minute))
}

// noteFailure counts consecutive failures on the same pending set. Once the
// limit is hit, requests no vehicle can serve on the road graph are failed
// as unreachable and planning backs off.
func (s *Simulator) noteFailure(key string) {
	if key != s.failedSet {
		s.failedSet, s.failures = key, 0
	}
	s.failures++
	if s.failures < s.cfg.MaxPlanningFailures {
		return
	}
	s.failures, s.failedSet = 0, ""
	flagged := s.flagUnreachable()
	s.backoffUntil = s.minute + s.cfg.BackoffTicks
	s.log.Warnf("minute %d: planning failed %d times, %d requests unreachable, backing off until minute %d",
		s.minute, s.cfg.MaxPlanningFailures, flagged, s.backoffUntil)
}

func (s *Simulator) flagUnreachable() int {
	g, ok := s.graph.(Reacher)
	if !ok {
		return 0
	}
	keep := s.pending[:0]
	flagged := 0
	for _, r := range s.pending {
		if s.servable(g, r) {
			keep = append(keep, r)
			continue
		}
		flagged++
		s.fail(r, reasonUnreachable)
		s.setAlert("request " + strconv.Itoa(r.ID) + " unreachable")
	}
	clear(s.pending[len(keep):])
	s.pending = keep
	return flagged
}

func (s *Simulator) servable(g Reacher, r *model.Request) bool {
	if !g.Reachable(r.Origin, r.Destination) {
		return false
	}
	km := s.graph.StraightLine(r.Origin, r.Destination)
	for _, v := range s.vehicles {
		if v.Capacity >= r.Passengers && s.fitsRange(v, km) && g.Reachable(v.Location, r.Origin) {
			return true
		}
	}
	return false
}

// fitsRange reports whether a fully charged v could take a trip of km.
func (s *Simulator) fitsRange(v *model.Vehicle, km float64) bool {
	margin := s.costs.Config().PickupSafetyMargin
	return margin < 0 || v.MaxRange >= km*margin
}

func pendingKey(reqs []*model.Request) string {
	ids := make([]int, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	sort.Ints(ids)
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
