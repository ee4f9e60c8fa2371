package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pitwall/internal/httpserver/deps"
)

func init() { Register(registerWS) }

// no timeout here: the connection outlives the handler
func registerWS(r chi.Router, d deps.Deps) {
	r.Handle("/ws", d.Gateway)
}
