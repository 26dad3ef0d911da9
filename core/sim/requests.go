package sim

import (
	"fmt"

	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/events"
	"github.com/kilianp07/ecofleet/core/model"
)

const (
	reasonDeadline    = "deadline"
	reasonUnreachable = "unreachable"
)

// Inject queues an externally created request. It enters the pending list at
// the next tick, before deadline enforcement, so a request whose deadline is
// already over is failed without ever reaching the planner. A zero ID is
// replaced by the next free identifier and a zero CreatedAt by the minute of
// insertion.
func (s *Simulator) Inject(r *model.Request) error {
	if r == nil {
		return fmt.Errorf("%w: nil request", model.ErrInvalidRequest)
	}
	if err := city.CheckNodes(s.graph, r.Origin, r.Destination); err != nil {
		return fmt.Errorf("request %d: %w", r.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.takeID()
	} else if r.ID >= s.nextID {
		s.nextID = r.ID + 1
	}
	if err := r.Validate(); err != nil {
		return err
	}
	if !s.carriable(r) {
		return fmt.Errorf("%w: request %d needs %d seats, no vehicle has them", model.ErrInvalidRequest, r.ID, r.Passengers)
	}
	s.injected = append(s.injected, r)
	return nil
}

func (s *Simulator) carriable(r *model.Request) bool {
	for _, v := range s.vehicles {
		if v.Capacity >= r.Passengers {
			return true
		}
	}
	return false
}

func (s *Simulator) takeID() int {
	id := s.nextID
	s.nextID++
	return id
}

// generate adds the injected requests and, with the configured probability,
// one random request to the pending list.
func (s *Simulator) generate() {
	for _, r := range s.injected {
		if r.CreatedAt == 0 {
			r.CreatedAt = s.minute
		}
		s.admit(r)
	}
	s.injected = nil

	if s.rng.Float64() >= rate(s.cfg.RequestProbability) {
		return
	}
	origin := s.graph.RandomFreeLocation(s.rng)
	dest := origin
	for i := 0; i < 10 && dest == origin; i++ {
		dest = s.graph.RandomFreeLocation(s.rng)
	}
	if dest == origin {
		return
	}
	s.admit(&model.Request{
		ID:                  s.takeID(),
		Origin:              origin,
		Destination:         dest,
		Passengers:          1 + s.rng.Intn(s.cfg.MaxPassengers),
		Deadline:            s.minute + s.cfg.DeadlineMinutes,
		CreatedAt:           s.minute,
		PrefersZeroEmission: s.rng.Float64() < rate(s.cfg.EcoPreferenceProbability),
	})
}

func (s *Simulator) admit(r *model.Request) {
	s.pending = append(s.pending, r)
	s.generated++
	s.log.Debugw("request created", map[string]any{
		"request": r.ID, "origin": r.Origin, "destination": r.Destination,
		"passengers": r.Passengers, "deadline": r.Deadline,
	})
	s.publish(events.RequestEvent{RunID: s.runID, RequestID: r.ID, Status: events.RequestCreated, Minute: s.minute})
}

// expire moves every pending request past its deadline to the failed bucket.
func (s *Simulator) expire() {
	keep := s.pending[:0]
	for _, r := range s.pending {
		if r.Expired(s.minute) {
			s.fail(r, reasonDeadline)
			s.setAlert(fmt.Sprintf("request %d expired", r.ID))
			continue
		}
		keep = append(keep, r)
	}
	clear(s.pending[len(keep):])
	s.pending = keep
}

func (s *Simulator) fail(r *model.Request, reason string) {
	s.failed = append(s.failed, r)
	s.reasons[r.ID] = reason
	s.log.Debugf("request %d failed: %s", r.ID, reason)
	s.publish(events.RequestEvent{RunID: s.runID, RequestID: r.ID, Status: events.RequestFailed, Minute: s.minute, Reason: reason})
}

// takePending removes the request id from the pending list.
func (s *Simulator) takePending(id int) *model.Request {
	for i, r := range s.pending {
		if r.ID == id {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return r
		}
	}
	return nil
}
