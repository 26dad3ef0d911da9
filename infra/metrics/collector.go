package metrics

import (
	"context"
	"sync"

	"github.com/kilianp07/ecofleet/core/events"
	coremetrics "github.com/kilianp07/ecofleet/core/metrics"
	"github.com/kilianp07/ecofleet/infra/logger"
	"github.com/kilianp07/ecofleet/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for events.
// It stops when the context is canceled or the bus is closed. The returned
// WaitGroup is released once the collector goroutine has exited.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.MetricsSink, log logger.Logger) *sync.WaitGroup {
	var wg sync.WaitGroup
	if bus == nil || sink == nil {
		return &wg
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("metrics sink: %v", err)
				}
			}
		}
	}()
	return &wg
}

func record(sink coremetrics.MetricsSink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.TickEvent:
		return sink.RecordTick(e)
	case events.PlanningEvent:
		if r, ok := sink.(coremetrics.PlanningRecorder); ok {
			return r.RecordPlanning(e)
		}
	case events.RequestEvent:
		if r, ok := sink.(coremetrics.RequestRecorder); ok {
			return r.RecordRequest(e)
		}
	case coremetrics.RunSummary:
		if r, ok := sink.(coremetrics.RunRecorder); ok {
			return r.RecordRun(e)
		}
	}
	return nil
}
