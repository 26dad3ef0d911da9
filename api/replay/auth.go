// Package replay exposes recorded frames, run statistics and a live frame
// stream over HTTP.
package replay

import (
	"encoding/json"
	"net/http"
)

// authorized checks the bearer token. Browsers cannot set headers on a
// websocket handshake, so the token is also accepted as a query parameter.
func authorized(r *http.Request, token string) bool {
	if token == "" {
		return true
	}
	if r.Header.Get("Authorization") == "Bearer "+token {
		return true
	}
	return r.URL.Query().Get("token") == token
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
