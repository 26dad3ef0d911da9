package search

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeFound      = "found"
	outcomeNoSolution = "no_solution"
	outcomeLimit      = "expansion_limit"
	outcomeCancelled  = "cancelled"
)

var (
	searchDuration *prometheus.HistogramVec
	searchExpanded *prometheus.HistogramVec
	searchOutcomes *prometheus.CounterVec
)

func newCollectors() (*prometheus.HistogramVec, *prometheus.HistogramVec, *prometheus.CounterVec) {
	dur := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_duration_seconds",
			Help:    "Wall-clock time spent in a search",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
	exp := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "search_expanded_states",
			Help:    "Number of states expanded per search",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"strategy"},
	)
	out := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "search_outcomes_total",
			Help: "Searches by strategy and outcome",
		},
		[]string{"strategy", "outcome"},
	)
	return dur, exp, out
}

func init() {
	searchDuration, searchExpanded, searchOutcomes = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers search metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(searchDuration, searchExpanded, searchOutcomes)
}

// ResetMetrics reinitializes the collectors for testing purposes and
// registers them on reg if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	searchDuration, searchExpanded, searchOutcomes = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func observe(strategy, outcome string, expanded int, d time.Duration) {
	searchDuration.WithLabelValues(strategy).Observe(d.Seconds())
	searchExpanded.WithLabelValues(strategy).Observe(float64(expanded))
	searchOutcomes.WithLabelValues(strategy, outcome).Inc()
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrNoSolution):
		return outcomeNoSolution
	case errors.Is(err, ErrExpansionLimit):
		return outcomeLimit
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return outcomeCancelled
	default:
		return "error"
	}
}
