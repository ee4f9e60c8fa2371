package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/pitwall/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pitwall/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerLive, middleware.Timeout(15*time.Second)) }

func registerLive(r chi.Router, d deps.Deps) {
	r.Get("/live/session", handlers.LiveSession(d))
	r.Get("/live/snapshot", handlers.LiveSnapshot(d))
}
