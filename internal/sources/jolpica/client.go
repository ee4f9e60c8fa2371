// Package jolpica reads historical championship data from the Jolpica mirror
// of the Ergast API. Unlike the OpenF1 client, failures are returned.
package jolpica

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/metrics"
	"github.com/MrSnakeDoc/pitwall/internal/utils"
)

const (
	apiName = "jolpica"

	// MaxChampionSpan bounds ChampionshipWinners; each season costs two requests.
	MaxChampionSpan = 25

	championFanout = 4
)

var (
	// ErrRateLimited is returned once the hourly request budget is spent.
	ErrRateLimited  = errors.New("jolpica request budget exhausted")
	ErrInvalidRange = errors.New("invalid season range")
)

// StatusError reports a non-2xx answer.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Path, e.Code)
}

type Client struct {
	baseURL string
	http    *http.Client
	budget  *budget
	logger  logger.Logger
}

// New builds a client allowed hourlyLimit requests per hour (<= 0 disables the budget).
func New(baseURL string, timeout time.Duration, hourlyLimit int, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		budget:  newBudget(hourlyLimit, time.Hour),
		logger:  log.Named(apiName),
	}
}

// Remaining is the number of requests left in the current budget window, -1 when unlimited.
func (c *Client) Remaining() int {
	return c.budget.remaining()
}

func (c *Client) DriverStandings(ctx context.Context, season string) ([]DriverStanding, error) {
	var env envelope
	if err := c.get(ctx, "driverStandings", season+"/driverStandings.json", &env); err != nil {
		return nil, err
	}
	out := env.standings().DriverStandings
	if out == nil {
		out = []DriverStanding{}
	}
	return out, nil
}

func (c *Client) ConstructorStandings(ctx context.Context, season string) ([]ConstructorStanding, error) {
	var env envelope
	if err := c.get(ctx, "constructorStandings", season+"/constructorStandings.json", &env); err != nil {
		return nil, err
	}
	out := env.standings().ConstructorStandings
	if out == nil {
		out = []ConstructorStanding{}
	}
	return out, nil
}

// RaceResults returns the classified results of one round, nil when the round has none yet.
func (c *Client) RaceResults(ctx context.Context, season, round string) (*Race, error) {
	var env envelope
	if err := c.get(ctx, "results", season+"/"+round+"/results.json", &env); err != nil {
		return nil, err
	}
	return env.race(), nil
}

// QualifyingResults returns the qualifying classification of one round, nil when absent.
func (c *Client) QualifyingResults(ctx context.Context, season, round string) (*Race, error) {
	var env envelope
	if err := c.get(ctx, "qualifying", season+"/"+round+"/qualifying.json", &env); err != nil {
		return nil, err
	}
	return env.race(), nil
}

// ChampionshipWinners returns the champions of every season in [from, to],
// newest first. A season that fails or has no driver champion yet is left out; the
// call only fails when the request budget ran out on the way.
func (c *Client) ChampionshipWinners(ctx context.Context, from, to int) ([]Champion, error) {
	if from <= 0 || to < from || to-from+1 > MaxChampionSpan {
		return nil, fmt.Errorf("%w: %d-%d", ErrInvalidRange, from, to)
	}

	seasons := to - from + 1
	slots := make([]*Champion, seasons)
	limited := make([]bool, seasons)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(championFanout)
	for i := range seasons {
		year := to - i
		g.Go(func() error {
			champ, err := c.champion(gctx, year)
			switch {
			case errors.Is(err, ErrRateLimited):
				limited[i] = true
			case err != nil:
				c.logger.Warn("failed to fetch season champions", logger.Int("season", year), logger.Error(err))
			default:
				slots[i] = champ
			}
			return nil
		})
	}
	_ = g.Wait()

	out := make([]Champion, 0, seasons)
	for i, champ := range slots {
		if limited[i] {
			return nil, ErrRateLimited
		}
		if champ != nil {
			out = append(out, *champ)
		}
	}
	return out, nil
}

func (c *Client) champion(ctx context.Context, year int) (*Champion, error) {
	season := strconv.Itoa(year)

	var drivers, constructors envelope
	if err := c.get(ctx, "driverStandings", season+"/driverStandings/1.json", &drivers); err != nil {
		return nil, err
	}
	if err := c.get(ctx, "constructorStandings", season+"/constructorStandings/1.json", &constructors); err != nil {
		return nil, err
	}

	ds := drivers.standings().DriverStandings
	if len(ds) == 0 {
		return nil, nil
	}
	d := ds[0]

	champ := &Champion{
		Year:     year,
		Driver:   d.Driver.FullName(),
		DriverID: d.Driver.DriverID,
		Points:   parsePoints(d.Points),
		Wins:     parseInt(d.Wins),
	}
	// no constructors' championship before 1958
	if cs := constructors.standings().ConstructorStandings; len(cs) > 0 {
		champ.ConstructorChampion = cs[0].Constructor.Name
		champ.ConstructorPoints = parsePoints(cs[0].Points)
		champ.ConstructorWins = parseInt(cs[0].Wins)
	}
	if len(d.Constructors) > 0 {
		champ.Team = d.Constructors[0].Name
		champ.ConstructorID = d.Constructors[0].ConstructorID
	}
	return champ, nil
}

// parsePoints accepts half points ("12.5"); garbage reads as zero.
func parsePoints(s string) float64 {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

func parseInt(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// get spends one unit of budget and decodes path into out. endpoint is the metrics label.
func (c *Client) get(ctx context.Context, endpoint, path string, out any) error {
	if !c.budget.take() {
		metrics.ObserveUpstream(apiName, endpoint, "rate_limited", 0)
		return ErrRateLimited
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+path, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(apiName, endpoint, "error", time.Since(start))
		return fmt.Errorf("%s: %w", path, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveUpstream(apiName, endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
		return &StatusError{Path: path, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ObserveUpstream(apiName, endpoint, "decode_error", time.Since(start))
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	metrics.ObserveUpstream(apiName, endpoint, "ok", time.Since(start))
	return nil
}
