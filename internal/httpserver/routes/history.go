package routes

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MrSnakeDoc/pitwall/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pitwall/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerHistory, middleware.Timeout(20*time.Second)) }

func registerHistory(r chi.Router, d deps.Deps) {
	r.Get("/history/champions", handlers.Champions(d))
	r.Get("/history/{season}/driver-standings", handlers.DriverStandings(d))
	r.Get("/history/{season}/constructor-standings", handlers.ConstructorStandings(d))
	r.Get("/history/{season}/{round}/results", handlers.RaceResults(d))
	r.Get("/history/{season}/{round}/qualifying", handlers.QualifyingResults(d))
}
