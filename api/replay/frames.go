package replay

import (
	"fmt"
	"net/http"
	"strconv"

	corereplay "github.com/kilianp07/ecofleet/core/replay"
)

// NewFrameHandler returns an HTTP handler exposing recorded frames via
// GET /api/replay/frames?run_id=&from=&to=&limit=. Requests must include an
// Authorization header with "Bearer <token>" when token is non-empty.
func NewFrameHandler(store corereplay.Store, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !authorized(r, token) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		frames, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if frames == nil {
			frames = []corereplay.Frame{}
		}
		writeJSON(w, frames)
	})
}

func parseQuery(r *http.Request) (corereplay.Query, error) {
	v := r.URL.Query()
	q := corereplay.Query{RunID: v.Get("run_id")}
	for name, dst := range map[string]*int{"from": &q.From, "to": &q.To, "limit": &q.Limit} {
		s := v.Get(name)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, fmt.Errorf("%s must be a non-negative integer", name)
		}
		*dst = n
	}
	return q, nil
}
