package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/time/rate"

	"github.com/kilianp07/ecofleet/core/events"
	"github.com/kilianp07/ecofleet/core/replay"
	"github.com/kilianp07/ecofleet/infra/logger"
)

// Publisher implements replay.Publisher on top of Eclipse Paho. Frames go to
// <prefix>/<run>/frames under a rate limit, alerts to <prefix>/<run>/alerts.
type Publisher struct {
	cli     pahoClient
	cfg     Config
	limiter *rate.Limiter
	log     logger.Logger
	dropped atomic.Uint64
}

var _ replay.Publisher = (*Publisher)(nil)

// NewPublisher connects to the broker and announces the publisher as online
// on the status topic. The broker reports it offline through the last will.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_publisher")
	p := &Publisher{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.PublishRate), 1),
		log:     log,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if cfg.LWTTopic != "" {
			c.Publish(cfg.LWTTopic, cfg.LWTQoS, cfg.LWTRetain, "online")
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.cli = c
	return p, nil
}

// Topic returns the topic of kind ("frames" or "alerts") for a run.
func (p *Publisher) Topic(runID, kind string) string {
	return fmt.Sprintf("%s/%s/%s", p.cfg.TopicPrefix, runID, kind)
}

// PublishFrame sends the frame unless the rate limit is exhausted, in which
// case the frame is counted as dropped.
func (p *Publisher) PublishFrame(ctx context.Context, f replay.Frame) error {
	if !p.limiter.Allow() {
		p.dropped.Add(1)
		return nil
	}
	return p.publish(ctx, p.Topic(f.RunID, "frames"), p.cfg.QoS["frames"], f)
}

// PublishAlert sends the alert. Alerts are not rate limited.
func (p *Publisher) PublishAlert(ctx context.Context, a events.AlertEvent) error {
	return p.publish(ctx, p.Topic(a.RunID, "alerts"), p.cfg.QoS["alerts"], a)
}

// Dropped returns the number of frames skipped by the rate limit.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

func (p *Publisher) publish(ctx context.Context, topic string, qos byte, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	backoff := time.Duration(p.cfg.BackoffMS) * time.Millisecond
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		if publishErr = token.Error(); publishErr == nil {
			p.log.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.log.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt == p.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(1<<attempt)):
		}
	}
	return publishErr
}

// Close gracefully closes the MQTT connection.
func (p *Publisher) Close() error {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
	return nil
}
