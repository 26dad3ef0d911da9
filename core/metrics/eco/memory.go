package eco

import (
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store safe for concurrent use.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*VehicleKPI
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]*VehicleKPI)}
}

// Add accumulates the entry into the vehicle aggregate.
func (m *MemoryStore) Add(e Entry) error {
	if e.VehicleID == "" {
		return fmt.Errorf("eco: missing vehicle id")
	}
	if e.Km < 0 {
		return fmt.Errorf("eco: negative distance %.2f for %s", e.Km, e.VehicleID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	k, ok := m.data[e.VehicleID]
	if !ok {
		k = &VehicleKPI{VehicleID: e.VehicleID, Class: e.Class}
		m.data[e.VehicleID] = k
	}
	if e.Loaded {
		k.LoadedKm += e.Km
	} else {
		k.EmptyKm += e.Km
	}
	k.CO2 += e.CO2
	k.Money += e.Money
	return nil
}

// Vehicle returns the aggregate for id.
func (m *MemoryStore) Vehicle(id string) (VehicleKPI, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.data[id]
	if !ok {
		return VehicleKPI{}, false
	}
	return *k, true
}

// All returns the aggregates sorted by vehicle id.
func (m *MemoryStore) All() []VehicleKPI {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]VehicleKPI, 0, len(m.data))
	for _, k := range m.data {
		out = append(out, *k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].VehicleID < out[j].VehicleID })
	return out
}

// Totals sums every vehicle aggregate.
func (m *MemoryStore) Totals() VehicleKPI {
	var t VehicleKPI
	for _, k := range m.All() {
		t.EmptyKm += k.EmptyKm
		t.LoadedKm += k.LoadedKm
		t.CO2 += k.CO2
		t.Money += k.Money
	}
	return t
}
