package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/pitwall/internal/httpserver/deps"
)

type readyzResponse struct {
	Ready bool  `json:"ready"`
	Ticks int64 `json:"ticks"`
}

// Readyz reports ready once the relay has completed its first tick.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := d.Relay.Status()
		resp := readyzResponse{Ready: st.Ticks > 0, Ticks: st.Ticks}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}
