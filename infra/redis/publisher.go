// Package redis publishes replay frames and alerts over Redis Pub/Sub.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kilianp07/ecofleet/core/events"
	"github.com/kilianp07/ecofleet/core/replay"
	"github.com/kilianp07/ecofleet/infra/logger"
)

// Config selects the Redis server and the channel prefix.
type Config struct {
	URL     string `json:"url"`
	Channel string `json:"channel"`
	// TimeoutMS bounds one publish call.
	TimeoutMS int `json:"timeout_ms"`
}

// Enabled reports whether a server is configured.
func (c Config) Enabled() bool { return c.URL != "" }

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Channel == "" {
		c.Channel = "ecofleet"
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 2000
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if _, err := goredis.ParseURL(c.URL); err != nil {
		return fmt.Errorf("redis url: %w", err)
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("timeout_ms must be non-negative")
	}
	return nil
}

type client interface {
	Publish(ctx context.Context, channel string, message interface{}) *goredis.IntCmd
	Close() error
}

// Publisher implements replay.Publisher. Frames go to <channel>:<run>:frames
// and alerts to <channel>:<run>:alerts.
type Publisher struct {
	rdb     client
	channel string
	timeout time.Duration
	log     logger.Logger
}

var _ replay.Publisher = (*Publisher)(nil)

// NewPublisher parses the URL and returns a publisher. The connection is
// opened lazily by the first publish.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	opt, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	return newPublisher(goredis.NewClient(opt), cfg), nil
}

func newPublisher(rdb client, cfg Config) *Publisher {
	return &Publisher{
		rdb:     rdb,
		channel: cfg.Channel,
		timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		log:     logger.New("redis_publisher"),
	}
}

// Channel returns the channel of kind ("frames" or "alerts") for a run.
func (p *Publisher) Channel(runID, kind string) string {
	return p.channel + ":" + runID + ":" + kind
}

func (p *Publisher) PublishFrame(ctx context.Context, f replay.Frame) error {
	return p.publish(ctx, p.Channel(f.RunID, "frames"), f)
}

func (p *Publisher) PublishAlert(ctx context.Context, a events.AlertEvent) error {
	return p.publish(ctx, p.Channel(a.RunID, "alerts"), a)
}

func (p *Publisher) publish(ctx context.Context, channel string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	n, err := p.rdb.Publish(ctx, channel, data).Result()
	if err != nil {
		return fmt.Errorf("redis publish %s: %w", channel, err)
	}
	p.log.Debugf("published to %s, %d receivers", channel, n)
	return nil
}

func (p *Publisher) Close() error { return p.rdb.Close() }
