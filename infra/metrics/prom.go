package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/ecofleet/core/events"
	coremetrics "github.com/kilianp07/ecofleet/core/metrics"
)

// PromSink records simulation events in Prometheus metrics.
type PromSink struct {
	pending   prometheus.Gauge
	active    prometheus.Gauge
	idle      prometheus.Gauge
	money     prometheus.Gauge
	co2       prometheus.Gauge
	requests  *prometheus.CounterVec
	wait      prometheus.Histogram
	planning  *prometheus.HistogramVec
	expanded  *prometheus.HistogramVec
	runs      *prometheus.CounterVec
	completed *prometheus.GaugeVec
}

// NewPromSink registers simulation metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Collectors
// already registered by a previous sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.pending, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ecofleet_pending_requests",
		Help: "Requests waiting for pickup",
	})); err != nil {
		return nil, err
	}
	if s.active, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ecofleet_active_requests",
		Help: "Requests currently on board a vehicle",
	})); err != nil {
		return nil, err
	}
	if s.idle, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ecofleet_idle_vehicles",
		Help: "Vehicles without a planned action",
	})); err != nil {
		return nil, err
	}
	if s.money, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ecofleet_money_spent",
		Help: "Accumulated operating cost of the current run",
	})); err != nil {
		return nil, err
	}
	if s.co2, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ecofleet_co2_grams",
		Help: "Accumulated CO2 emissions of the current run",
	})); err != nil {
		return nil, err
	}
	if s.requests, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecofleet_request_events_total",
		Help: "Request transitions by status and failure reason",
	}, []string{"status", "reason"})); err != nil {
		return nil, err
	}
	if s.wait, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ecofleet_request_wait_minutes",
		Help:    "Simulated minutes between creation and completion",
		Buckets: prometheus.LinearBuckets(5, 5, 12),
	})); err != nil {
		return nil, err
	}
	if s.planning, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ecofleet_planning_seconds",
		Help:    "Wall-clock time of planning attempts",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy", "outcome"})); err != nil {
		return nil, err
	}
	if s.expanded, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ecofleet_planning_expanded_states",
		Help:    "States expanded by successful planning attempts",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"strategy"})); err != nil {
		return nil, err
	}
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ecofleet_runs_total",
		Help: "Finished simulation runs",
	}, []string{"strategy"})); err != nil {
		return nil, err
	}
	if s.completed, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecofleet_last_run_requests",
		Help: "Request outcomes of the last finished run",
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, err
	}
	return c, nil
}

// RecordTick updates the run gauges.
func (s *PromSink) RecordTick(ev events.TickEvent) error {
	s.pending.Set(float64(ev.Pending))
	s.active.Set(float64(ev.Active))
	s.idle.Set(float64(ev.IdleFleet))
	s.money.Set(ev.Money)
	s.co2.Set(ev.CO2)
	return nil
}

// RecordRequest counts request transitions and observes wait times.
func (s *PromSink) RecordRequest(ev events.RequestEvent) error {
	s.requests.WithLabelValues(string(ev.Status), ev.Reason).Inc()
	if ev.Status == events.RequestCompleted {
		s.wait.Observe(float64(ev.WaitMinutes))
	}
	return nil
}

// RecordPlanning observes planning latency.
func (s *PromSink) RecordPlanning(ev events.PlanningEvent) error {
	s.planning.WithLabelValues(ev.Strategy, string(ev.Outcome)).Observe(ev.Duration.Seconds())
	if ev.Outcome == events.PlanFound {
		s.expanded.WithLabelValues(ev.Strategy).Observe(float64(ev.Expanded))
	}
	return nil
}

// RecordRun exports the final request outcomes.
func (s *PromSink) RecordRun(sum coremetrics.RunSummary) error {
	s.runs.WithLabelValues(sum.Strategy).Inc()
	s.completed.WithLabelValues("completed").Set(float64(sum.Completed))
	s.completed.WithLabelValues("failed").Set(float64(sum.Failed))
	s.completed.WithLabelValues("active").Set(float64(sum.Active))
	return nil
}
