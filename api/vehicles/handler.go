package vehicles

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kilianp07/ecofleet/core/replay"
)

// NewStatusHandler returns an HTTP handler exposing the fleet as recorded in
// the latest frame of a run via GET /api/vehicles/status?run_id=&class=&occupied=.
func NewStatusHandler(store replay.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		frames, err := store.Query(r.Context(), replay.Query{RunID: q.Get("run_id")})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		var occupied *bool
		if s := q.Get("occupied"); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				http.Error(w, "occupied must be a boolean", http.StatusBadRequest)
				return
			}
			occupied = &b
		}
		class := q.Get("class")
		entries := []replay.VehicleView{}
		if len(frames) > 0 {
			for _, v := range frames[len(frames)-1].Vehicles {
				if class != "" && v.Class != class {
					continue
				}
				if occupied != nil && v.Occupied != *occupied {
					continue
				}
				entries = append(entries, v)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
