package vehicles

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/kilianp07/ecofleet/core/metrics/eco"
)

type kpiOut struct {
	eco.VehicleKPI
	EmptyRatio float64 `json:"empty_ratio"`
}

// NewKPIHandler exposes the eco ledger via GET /api/vehicles/kpis for the
// whole fleet and GET /api/vehicles/{id}/kpis for one vehicle.
func NewKPIHandler(store eco.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/vehicles/"), "/")
		parts := strings.Split(path, "/")
		var body any
		switch {
		case len(parts) == 1 && parts[0] == "kpis":
			all := store.All()
			out := make([]kpiOut, len(all))
			for i, k := range all {
				out[i] = kpiOut{k, k.EmptyRatio()}
			}
			totals := store.Totals()
			body = struct {
				Vehicles []kpiOut `json:"vehicles"`
				Totals   kpiOut   `json:"totals"`
			}{out, kpiOut{totals, totals.EmptyRatio()}}
		case len(parts) == 2 && parts[1] == "kpis":
			k, ok := store.Vehicle(parts[0])
			if !ok {
				http.NotFound(w, r)
				return
			}
			body = kpiOut{k, k.EmptyRatio()}
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	})
}
