// Package eco keeps a per-vehicle ledger of driven distance and emissions.
package eco

// Store records movement entries and exposes per-vehicle aggregates.
type Store interface {
	Add(e Entry) error
	Vehicle(id string) (VehicleKPI, bool)
	All() []VehicleKPI
	Totals() VehicleKPI
}
