package replay

import (
	"context"
	"sync"

	"github.com/kilianp07/ecofleet/core/events"
	"github.com/kilianp07/ecofleet/core/logger"
	"github.com/kilianp07/ecofleet/internal/eventbus"
)

// Publisher pushes frames and alerts to an external consumer.
type Publisher interface {
	PublishFrame(ctx context.Context, f Frame) error
	PublishAlert(ctx context.Context, a events.AlertEvent) error
	Close() error
}

// Forward relays every frame of frames and every alert of bus to pub until
// ctx is cancelled or both buses are closed. Either bus may be nil. Publish
// errors are logged and do not stop the relay.
func Forward(ctx context.Context, frames *eventbus.TypedBus[Frame], bus eventbus.EventBus, pub Publisher, log logger.Logger) *sync.WaitGroup {
	var wg sync.WaitGroup
	if pub == nil {
		return &wg
	}
	if frames != nil {
		sub := frames.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer frames.Unsubscribe(sub)
			for {
				select {
				case f, ok := <-sub:
					if !ok {
						return
					}
					if err := pub.PublishFrame(ctx, f); err != nil && log != nil {
						log.Warnf("publish frame %d: %v", f.Seq, err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	if bus != nil {
		sub := bus.Subscribe()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer bus.Unsubscribe(sub)
			for {
				select {
				case ev, ok := <-sub:
					if !ok {
						return
					}
					a, isAlert := ev.(events.AlertEvent)
					if !isAlert {
						continue
					}
					if err := pub.PublishAlert(ctx, a); err != nil && log != nil {
						log.Warnf("publish alert: %v", err)
					}
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	return &wg
}
