package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/pitwall/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/sources/jolpica"
)

const (
	firstSeason          = 1950
	defaultChampionsFrom = 2020
	maxRound             = 30
)

var (
	errBadRequest = errors.New("bad request")
	errNotFound   = errors.New("not found")
)

// historyQuery is a validated history request. key names the route and the
// parameters run uses, nothing else from the URL.
type historyQuery struct {
	key string
	run func(ctx context.Context) (any, error)
}

type historyParse func(r *http.Request) (historyQuery, error)

// history serves parsed queries through the shared response cache. Only
// successful answers are cached.
func history(d deps.Deps, parse historyParse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := parse(r)
		if err != nil {
			historyError(w, r, d, err)
			return
		}
		if body, ok := d.HistoryCache.Get(q.key); ok {
			w.Header().Set("X-Cache", "HIT")
			writeRaw(w, body)
			return
		}

		v, err := q.run(r.Context())
		if err != nil {
			historyError(w, r, d, err)
			return
		}
		body, err := json.Marshal(v)
		if err != nil {
			d.Logger.Error("failed to encode history response", logger.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to fetch historical data")
			return
		}
		d.HistoryCache.Set(q.key, body)
		w.Header().Set("X-Cache", "MISS")
		writeRaw(w, body)
	}
}

func historyError(w http.ResponseWriter, r *http.Request, d deps.Deps, err error) {
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, jolpica.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "Invalid season or round")
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, "No results")
	case errors.Is(err, jolpica.ErrRateLimited):
		d.Logger.Warn("history request refused, upstream budget spent", logger.String("path", r.URL.Path))
		writeError(w, http.StatusTooManyRequests, "Historical data temporarily unavailable")
	default:
		d.Logger.Error("history fetch failed", logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusBadGateway, "Failed to fetch historical data")
	}
}

func writeRaw(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func DriverStandings(d deps.Deps) http.HandlerFunc {
	return history(d, func(r *http.Request) (historyQuery, error) {
		season, err := seasonParam(r, d)
		if err != nil {
			return historyQuery{}, err
		}
		return historyQuery{
			key: "driver-standings:" + season,
			run: func(ctx context.Context) (any, error) { return d.History.DriverStandings(ctx, season) },
		}, nil
	})
}

func ConstructorStandings(d deps.Deps) http.HandlerFunc {
	return history(d, func(r *http.Request) (historyQuery, error) {
		season, err := seasonParam(r, d)
		if err != nil {
			return historyQuery{}, err
		}
		return historyQuery{
			key: "constructor-standings:" + season,
			run: func(ctx context.Context) (any, error) { return d.History.ConstructorStandings(ctx, season) },
		}, nil
	})
}

func RaceResults(d deps.Deps) http.HandlerFunc {
	return history(d, func(r *http.Request) (historyQuery, error) {
		season, round, err := roundParams(r, d)
		if err != nil {
			return historyQuery{}, err
		}
		return historyQuery{
			key: "results:" + season + ":" + round,
			run: func(ctx context.Context) (any, error) { return found(d.History.RaceResults(ctx, season, round)) },
		}, nil
	})
}

func QualifyingResults(d deps.Deps) http.HandlerFunc {
	return history(d, func(r *http.Request) (historyQuery, error) {
		season, round, err := roundParams(r, d)
		if err != nil {
			return historyQuery{}, err
		}
		return historyQuery{
			key: "qualifying:" + season + ":" + round,
			run: func(ctx context.Context) (any, error) { return found(d.History.QualifyingResults(ctx, season, round)) },
		}, nil
	})
}

// Champions lists season champions, ?from defaults to 2020 and ?to to the current year.
// Both bounds must lie between 1950 and next year.
func Champions(d deps.Deps) http.HandlerFunc {
	return history(d, func(r *http.Request) (historyQuery, error) {
		from, err := intQuery(r, "from", defaultChampionsFrom)
		if err != nil {
			return historyQuery{}, err
		}
		to, err := intQuery(r, "to", d.Now().Year())
		if err != nil {
			return historyQuery{}, err
		}
		if from < firstSeason || to > d.Now().Year()+1 {
			return historyQuery{}, errBadRequest
		}
		return historyQuery{
			key: "champions:" + strconv.Itoa(from) + ":" + strconv.Itoa(to),
			run: func(ctx context.Context) (any, error) { return d.History.ChampionshipWinners(ctx, from, to) },
		}, nil
	})
}

// found turns a missing race into errNotFound; a nil *Race must not reach the encoder as data.
func found(race *jolpica.Race, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if race == nil {
		return nil, errNotFound
	}
	return race, nil
}

// seasonParam accepts "current" or a year between 1950 and next year.
func seasonParam(r *http.Request, d deps.Deps) (string, error) {
	season := chi.URLParam(r, "season")
	if season == "current" {
		return season, nil
	}
	year, err := strconv.Atoi(season)
	if err != nil || year < firstSeason || year > d.Now().Year()+1 {
		return "", errBadRequest
	}
	return season, nil
}

// roundParams accepts "last" or a round number.
func roundParams(r *http.Request, d deps.Deps) (string, string, error) {
	season, err := seasonParam(r, d)
	if err != nil {
		return "", "", err
	}
	round := chi.URLParam(r, "round")
	if round == "last" {
		return season, round, nil
	}
	n, err := strconv.Atoi(round)
	if err != nil || n < 1 || n > maxRound {
		return "", "", errBadRequest
	}
	return season, round, nil
}

func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errBadRequest
	}
	return n, nil
}
