package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrSnakeDoc/pitwall/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pitwall/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/pitwall/internal/httpserver/mw"
)

func init() { Register(registerHealth, middleware.Timeout(2*time.Second)) }

func registerHealth(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	operator := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger))
	operator.Get("/readyz", handlers.Readyz(d))
	operator.Get("/infra", handlers.Infra(d))
	operator.Handle("/metrics", promhttp.Handler())
}
