package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/ecofleet/core/events"
	eco "github.com/kilianp07/ecofleet/core/metrics/eco"
)

// EcoSink exports the per-vehicle distance ledger as Prometheus gauges.
// The gauges are refreshed on every tick.
type EcoSink struct {
	store eco.Store
	km    *prometheus.GaugeVec
	ratio *prometheus.GaugeVec
	co2   *prometheus.GaugeVec
}

// NewEcoSink creates a sink with Prometheus gauges registered on reg.
func NewEcoSink(store eco.Store, reg prometheus.Registerer) (*EcoSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &EcoSink{store: store}
	var err error
	if s.km, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecofleet_vehicle_km",
		Help: "Distance driven per vehicle, split by load",
	}, []string{"vehicle_id", "class", "load"})); err != nil {
		return nil, err
	}
	if s.ratio, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecofleet_vehicle_empty_ratio",
		Help: "Share of distance driven without passengers",
	}, []string{"vehicle_id", "class"})); err != nil {
		return nil, err
	}
	if s.co2, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ecofleet_vehicle_co2_grams",
		Help: "CO2 emitted per vehicle",
	}, []string{"vehicle_id", "class"})); err != nil {
		return nil, err
	}
	return s, nil
}

// RecordTick refreshes the gauges from the store.
func (s *EcoSink) RecordTick(events.TickEvent) error {
	for _, k := range s.store.All() {
		s.km.WithLabelValues(k.VehicleID, k.Class, "empty").Set(k.EmptyKm)
		s.km.WithLabelValues(k.VehicleID, k.Class, "loaded").Set(k.LoadedKm)
		s.ratio.WithLabelValues(k.VehicleID, k.Class).Set(k.EmptyRatio())
		s.co2.WithLabelValues(k.VehicleID, k.Class).Set(k.CO2)
	}
	return nil
}
