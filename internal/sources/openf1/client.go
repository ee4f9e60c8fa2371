// Package openf1 reads session, driver, lap and race telemetry data from the
// OpenF1 API. Every fetch degrades to an empty result on failure; errors are
// logged here and never returned to callers.
package openf1

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrSnakeDoc/pitwall/internal/domain"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/metrics"
	"github.com/MrSnakeDoc/pitwall/internal/utils"
)

const apiName = "openf1"

// StatusError is returned by get when the API answers with a non-2xx code.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Code)
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  logger.Logger
}

// New builds a client. timeout bounds every single request, body included.
func New(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  log.Named(apiName),
	}
}

// Sessions lists sessions for a year, or the one session matching filter.SessionKey.
func (c *Client) Sessions(ctx context.Context, filter domain.SessionFilter) []domain.Session {
	params := url.Values{}
	switch {
	case filter.SessionKey != "":
		params.Set("session_key", filter.SessionKey)
	case filter.Year > 0:
		params.Set("year", strconv.Itoa(filter.Year))
	}
	return fetch[domain.Session](ctx, c, "sessions", params)
}

// Drivers returns driver metadata for a session.
func (c *Client) Drivers(ctx context.Context, sessionKey int) []domain.DriverInfo {
	return fetch[domain.DriverInfo](ctx, c, "drivers", sessionParams(sessionKey))
}

// Laps returns the full lap history of a session. No limit is applied: best
// laps are only correct over the whole history.
func (c *Client) Laps(ctx context.Context, sessionKey int) []domain.DriverLapRecord {
	return fetch[domain.DriverLapRecord](ctx, c, "laps", sessionParams(sessionKey))
}

// RaceFeed fetches drivers, intervals and car data concurrently. A failing
// branch yields an empty slice without affecting the other two.
func (c *Client) RaceFeed(ctx context.Context, sessionKey, limit int) domain.RaceFeed {
	var (
		feed domain.RaceFeed
		g    errgroup.Group
	)

	bounded := sessionParams(sessionKey)
	bounded.Set("limit", strconv.Itoa(limit))

	g.Go(func() error {
		feed.Drivers = c.Drivers(ctx, sessionKey)
		return nil
	})
	g.Go(func() error {
		feed.Intervals = capAt(fetch[domain.Interval](ctx, c, "intervals", bounded), limit)
		return nil
	})
	g.Go(func() error {
		feed.CarData = capAt(fetch[domain.CarSample](ctx, c, "car_data", bounded), limit)
		return nil
	})
	_ = g.Wait()

	return feed
}

func sessionParams(sessionKey int) url.Values {
	return url.Values{"session_key": []string{strconv.Itoa(sessionKey)}}
}

func capAt[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// fetch decodes endpoint into a slice, or logs and returns an empty one.
func fetch[T any](ctx context.Context, c *Client, endpoint string, params url.Values) []T {
	var out []T
	err := c.get(ctx, endpoint, params, &out)

	var statusErr *StatusError
	switch {
	case err == nil:
		if out == nil {
			out = []T{}
		}
		return out
	case errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound:
		// the API answers 404 when a filter matches nothing
		c.logger.Debug("no results",
			logger.String("endpoint", endpoint),
			logger.String("query", params.Encode()))
	default:
		c.logger.Warn("fetch failed",
			logger.String("endpoint", endpoint),
			logger.String("query", params.Encode()),
			logger.Error(err))
	}
	return []T{}
}

func (c *Client) get(ctx context.Context, endpoint string, params url.Values, out any) error {
	u := c.baseURL + "/" + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstream(apiName, endpoint, "error", time.Since(start))
		return fmt.Errorf("%s: %w", endpoint, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.ObserveUpstream(apiName, endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))
		return &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		metrics.ObserveUpstream(apiName, endpoint, "decode_error", time.Since(start))
		return fmt.Errorf("failed to decode %s: %w", endpoint, err)
	}
	metrics.ObserveUpstream(apiName, endpoint, "ok", time.Since(start))
	return nil
}
