package metrics

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/ecofleet/core/events"
	coremetrics "github.com/kilianp07/ecofleet/core/metrics"
	"github.com/kilianp07/ecofleet/internal/eventbus"
)

type countingSink struct {
	mu                        sync.Mutex
	ticks, plans, reqs, runs int
}

func (c *countingSink) RecordTick(events.TickEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ticks++
	return nil
}

func (c *countingSink) RecordPlanning(events.PlanningEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.plans++
	return nil
}

func (c *countingSink) RecordRequest(events.RequestEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reqs++
	return nil
}

func (c *countingSink) RecordRun(coremetrics.RunSummary) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs++
	return nil
}

func TestStartEventCollector(t *testing.T) {
	bus := eventbus.New()
	sink := &countingSink{}
	wg := StartEventCollector(context.Background(), bus, sink, nil)

	bus.Publish(events.TickEvent{Minute: 1})
	bus.Publish(events.PlanningEvent{Outcome: events.PlanFound})
	bus.Publish(events.RequestEvent{Status: events.RequestCreated})
	bus.Publish(events.AlertEvent{Message: "ignored"})
	bus.Publish(coremetrics.RunSummary{})
	bus.Close()
	wg.Wait()

	assert.Equal(t, 1, sink.ticks)
	assert.Equal(t, 1, sink.plans)
	assert.Equal(t, 1, sink.reqs)
	assert.Equal(t, 1, sink.runs)
}

func TestStartEventCollectorNil(t *testing.T) {
	wg := StartEventCollector(context.Background(), nil, nil, nil)
	wg.Wait()
}
