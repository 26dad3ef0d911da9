// Package app wires a configured simulation run: city, fleet, planner,
// metrics sinks, replay store, publishers and the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apireplay "github.com/kilianp07/ecofleet/api/replay"
	"github.com/kilianp07/ecofleet/api/vehicles"
	"github.com/kilianp07/ecofleet/config"
	"github.com/kilianp07/ecofleet/core/city"
	"github.com/kilianp07/ecofleet/core/cost"
	coremetrics "github.com/kilianp07/ecofleet/core/metrics"
	"github.com/kilianp07/ecofleet/core/model"
	"github.com/kilianp07/ecofleet/core/replay"
	"github.com/kilianp07/ecofleet/core/search"
	"github.com/kilianp07/ecofleet/core/sim"
	"github.com/kilianp07/ecofleet/infra/logger"
	"github.com/kilianp07/ecofleet/infra/metrics"
	"github.com/kilianp07/ecofleet/infra/mqtt"
	"github.com/kilianp07/ecofleet/infra/redis"
	"github.com/kilianp07/ecofleet/internal/eventbus"
)

// eventBuffer keeps the collectors from dropping events on busy ticks.
const eventBuffer = 1024

// Service orchestrates one simulation run and its outputs.
type Service struct {
	Sim        *sim.Simulator
	City       *city.City
	cfg        *config.Config
	bus        *eventbus.Bus
	frames     *eventbus.TypedBus[replay.Frame]
	store      replay.Store
	sink       coremetrics.MetricsSink
	publishers []replay.Publisher
	registry   registry
	log        logger.Logger
}

type registry struct {
	reg prometheus.Registerer
	gat prometheus.Gatherer
}

// Option customizes a Service.
type Option func(*Service)

// WithRegistry registers the run's gauges on reg and serves /metrics from it
// instead of the Prometheus default registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Service) { s.registry = registry{reg: reg, gat: reg} }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	g, err := city.NewGrid(cfg.City)
	if err != nil {
		return nil, fmt.Errorf("city: %w", err)
	}
	fleet, err := cfg.Fleet.Build(g)
	if err != nil {
		return nil, fmt.Errorf("fleet: %w", err)
	}
	return NewWithFleet(cfg, g, fleet, opts...)
}

// NewWithFleet creates a Service running on a prebuilt city and fleet.
func NewWithFleet(cfg *config.Config, g *city.City, fleet []*model.Vehicle, opts ...Option) (*Service, error) {
	logg := logger.New("service")
	strategy, err := search.New(cfg.Search.Strategy)
	if err != nil {
		return nil, err
	}
	problem := search.Problem{BucketKm: cfg.Search.RangeBucketKm, MaxExpansions: cfg.Search.MaxExpansions}
	s, err := sim.NewSimulator(cfg.Simulation, g, cost.NewModel(cfg.Cost), strategy, problem, fleet, logger.New("simulator"))
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}

	store, err := replay.NewStore(cfg.Replay)
	if err != nil {
		return nil, fmt.Errorf("replay store: %w", err)
	}
	svc := &Service{
		Sim:    s,
		City:   g,
		cfg:    cfg,
		bus:    eventbus.NewWithBuffer(eventBuffer),
		frames: eventbus.NewTypedWithBuffer[replay.Frame](eventBuffer),
		store:  store,
		log:    logg,
	}
	svc.registry = registry{reg: prometheus.DefaultRegisterer, gat: prometheus.DefaultGatherer}
	for _, opt := range opts {
		opt(svc)
	}
	s.SetEventBus(svc.bus)
	s.SetFrameBus(svc.frames)
	s.SetReplayStore(store)

	if svc.sink, err = buildSink(cfg.Metrics, s, svc.addr() != "", svc.registry.reg); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("metrics: %w", err)
	}
	if cfg.MQTT.Enabled() {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publishers = append(svc.publishers, pub)
	}
	if cfg.Redis.Enabled() {
		pub, err := redis.NewPublisher(cfg.Redis)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("redis publisher: %w", err)
		}
		svc.publishers = append(svc.publishers, pub)
	}
	return svc, nil
}

// buildSink combines the configured sinks with the eco KPI gauges of the run.
// The gauges are only registered when something serves /metrics.
func buildSink(cfg coremetrics.Config, s *sim.Simulator, serving bool, reg prometheus.Registerer) (coremetrics.MetricsSink, error) {
	configured, err := coremetrics.NewMetricsSink(cfg.Sinks)
	if err != nil {
		return nil, err
	}
	if !serving {
		return configured, nil
	}
	ecoSink, err := metrics.NewEcoSink(s.EcoStore(), reg)
	if err != nil {
		return nil, err
	}
	return coremetrics.NewMultiSink(configured, ecoSink), nil
}

// Handlers returns the HTTP API of the run keyed by mux pattern.
func (s *Service) Handlers() map[string]http.Handler {
	token := s.cfg.API.Token
	return map[string]http.Handler{
		"/api/replay/frames":   apireplay.NewFrameHandler(s.store, token),
		"/api/replay/stats":    apireplay.NewStatsHandler(s.Sim, token),
		"/api/replay/live":     apireplay.NewLiveHandler(s.frames, token),
		"/api/vehicles/status": vehicles.NewStatusHandler(s.store),
		"/api/vehicles/":       vehicles.NewKPIHandler(s.Sim.EcoStore()),
	}
}

func (s *Service) addr() string {
	if s.cfg.API.Addr != "" {
		return s.cfg.API.Addr
	}
	return s.cfg.Metrics.PrometheusAddr
}

// Run starts the relays and the HTTP server, runs the simulation and blocks
// until it ends. Events published at the end of the run are drained before
// Run returns, even when ctx is cancelled.
func (s *Service) Run(ctx context.Context) (sim.Stats, error) {
	relayCtx := context.WithoutCancel(ctx)
	collector := metrics.StartEventCollector(relayCtx, s.bus, s.sink, logger.New("collector"))
	var relays []*sync.WaitGroup
	for _, pub := range s.publishers {
		relays = append(relays, replay.Forward(relayCtx, s.frames, s.bus, pub, logger.New("relay")))
	}

	srvCtx, stopServer := context.WithCancel(relayCtx)
	defer stopServer()
	srvDone := make(chan struct{})
	if addr := s.addr(); addr != "" {
		go func() {
			defer close(srvDone)
			if err := metrics.StartPromServer(srvCtx, addr, s.registry.gat, s.Handlers()); err != nil {
				s.log.Errorf("http server: %v", err)
			}
		}()
	} else {
		close(srvDone)
	}

	st, err := s.Sim.Run(ctx)
	s.bus.Close()
	s.frames.Close()
	collector.Wait()
	for _, wg := range relays {
		wg.Wait()
	}
	if err != nil {
		return st, err
	}
	if linger := time.Duration(s.cfg.API.LingerSeconds) * time.Second; linger > 0 && s.addr() != "" {
		s.log.Infof("run finished, serving results for %s", linger)
		select {
		case <-ctx.Done():
		case <-time.After(linger):
		}
	}
	stopServer()
	<-srvDone
	return st, nil
}

// Close releases the replay store and the publishers.
func (s *Service) Close() error {
	var errs []error
	for _, pub := range s.publishers {
		errs = append(errs, pub.Close())
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	return errors.Join(errs...)
}
