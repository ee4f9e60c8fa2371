package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/pitwall/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
)

// Refresh triggers an immediate relay tick. With ?force=true the change
// detection is reset first, so the tick broadcasts even without new data.
func Refresh(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		force := r.URL.Query().Get("force") == "true"

		var triggered bool
		if force {
			ok, err := d.Relay.ForceTrigger(r.Context())
			if err != nil {
				d.Logger.Error("forced refresh failed", logger.Error(err))
				http.Error(w, "❌ Refresh failed\n", http.StatusInternalServerError)
				return
			}
			triggered = ok
		} else {
			triggered = d.Relay.Trigger()
		}

		if !triggered {
			d.Logger.Warn("refresh already pending",
				logger.String("remote_ip", r.RemoteAddr))
			w.WriteHeader(http.StatusTooManyRequests)
			if _, err := w.Write([]byte("⏳ Refresh already pending, please wait\n")); err != nil {
				d.Logger.Debug("failed to write response", logger.Error(err))
			}
			return
		}

		d.Logger.Info("manual refresh triggered via endpoint",
			logger.Bool("force", force),
			logger.String("remote_ip", r.RemoteAddr))
		w.WriteHeader(http.StatusAccepted)
		if _, err := w.Write([]byte("✅ Refresh triggered successfully\n")); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}
