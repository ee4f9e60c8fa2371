package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/pitwall/internal/domain"
	"github.com/MrSnakeDoc/pitwall/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/relay"
)

type snapshotResponse struct {
	domain.SessionInfo
	Data *domain.LivePayload `json:"data"`
}

// LiveSession returns the session the relay currently follows.
func LiveSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := d.Resolver.Resolve(r.Context())
		if res == nil {
			writeJSON(w, http.StatusOK, domain.SessionInfo{})
			return
		}
		writeJSON(w, http.StatusOK, res.Info())
	}
}

// LiveSnapshot builds a fresh payload, the same one a joining websocket client receives.
func LiveSnapshot(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := d.Relay.Snapshot(r.Context())
		if err != nil {
			d.Logger.Error("snapshot failed", logger.Error(err))
			writeError(w, http.StatusBadGateway, relay.ErrorMessage)
			return
		}
		writeJSON(w, http.StatusOK, snapshotResponse{SessionInfo: snap.Info, Data: snap.Payload})
	}
}
