package replay

import (
	"net/http"

	"github.com/kilianp07/ecofleet/core/sim"
)

// StatsSource reports the statistics of a run, live or finished.
type StatsSource interface {
	Stats() sim.Stats
}

// NewStatsHandler exposes the run statistics via GET /api/replay/stats.
func NewStatsHandler(src StatsSource, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		st := src.Stats()
		writeJSON(w, struct {
			sim.Stats
			CompletionRate float64 `json:"completion_rate"`
		}{st, st.CompletionRate()})
	})
}
