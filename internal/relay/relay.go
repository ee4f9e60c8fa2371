package relay

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/MrSnakeDoc/pitwall/internal/cache"
	"github.com/MrSnakeDoc/pitwall/internal/domain"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/resolver"
)

// ErrorMessage is the only failure text clients ever see from a tick.
const ErrorMessage = "Failed to fetch live data"

// Feed is the telemetry side of the OpenF1 client.
type Feed interface {
	Drivers(ctx context.Context, sessionKey int) []domain.DriverInfo
	Laps(ctx context.Context, sessionKey int) []domain.DriverLapRecord
	RaceFeed(ctx context.Context, sessionKey, limit int) domain.RaceFeed
}

// SessionResolver picks the session each tick works on.
type SessionResolver interface {
	Resolve(ctx context.Context) *resolver.Resolution
	Recent(ctx context.Context, limit int) []domain.Session
}

// Publisher delivers to every subscriber of the live-timing room.
type Publisher interface {
	PublishLiveData(p domain.LivePayload)
	PublishError(message string)
}

// DedupStore remembers the fingerprint of the last broadcast per session.
type DedupStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Flush(ctx context.Context) error
}

type Options struct {
	Interval       time.Duration // pause between the end of a tick and the start of the next
	FeedLimit      int           // race-mode intervals / car data cap
	DriverCacheTTL time.Duration
}

type Relay struct {
	resolver SessionResolver
	feed     Feed
	dedup    DedupStore
	out      Publisher
	drivers  *cache.TTL[[]domain.DriverInfo]
	logger   logger.Logger
	opts     Options
	now      func() time.Time

	trigger  chan struct{}
	stopCh   chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once

	mu     sync.RWMutex
	status Status
}

func New(res SessionResolver, feed Feed, dedup DedupStore, out Publisher, opts Options, log logger.Logger) *Relay {
	return &Relay{
		resolver: res,
		feed:     feed,
		dedup:    dedup,
		out:      out,
		drivers:  cache.NewTTL[[]domain.DriverInfo](opts.DriverCacheTTL),
		logger:   log.Named("relay"),
		opts:     opts,
		now:      time.Now,
		trigger:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// DedupKey is the change-detection key of a session.
func DedupKey(sessionKey int) string {
	return "live:" + strconv.Itoa(sessionKey)
}

// Tick runs one resolve, fetch, compare and broadcast cycle. A panic anywhere
// in the cycle is turned into an error; the caller decides what clients see.
func (r *Relay) Tick(ctx context.Context) (outcome Outcome, err error) {
	started := r.now()
	var res *resolver.Resolution

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("tick panicked: %v", p)
		}
		if err != nil {
			outcome = OutcomeFailed
			if res != nil {
				err = fmt.Errorf("session %d: %w", res.Session.Key, err)
			}
		}
		r.record(outcome, res, started, err)
	}()

	res = r.resolver.Resolve(ctx)
	if res == nil {
		return OutcomeSkipped, nil
	}

	payload := r.build(ctx, res)
	content, err := payload.Content()
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to encode payload: %w", err)
	}
	fp := fingerprint(content)
	key := DedupKey(res.Session.Key)

	prev, found, lookupErr := r.dedup.Get(ctx, key)
	if lookupErr != nil {
		r.logger.Warn("dedup lookup failed, broadcasting anyway",
			logger.String("key", key), logger.Error(lookupErr))
		found = false
	}
	if found && prev == fp {
		return OutcomeSuppressed, nil
	}

	r.out.PublishLiveData(payload)
	if err := r.dedup.Set(ctx, key, fp); err != nil {
		r.logger.Warn("failed to store broadcast fingerprint",
			logger.String("key", key), logger.Error(err))
	}
	return OutcomeBroadcast, nil
}

// Snapshot builds the current session header and payload without touching
// change detection and without broadcasting.
func (r *Relay) Snapshot(ctx context.Context) (snap domain.Snapshot, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("snapshot panicked: %v", p)
		}
	}()

	res := r.resolver.Resolve(ctx)
	if res == nil {
		return domain.Snapshot{}, nil
	}
	payload := r.build(ctx, res)
	return domain.Snapshot{Info: res.Info(), Payload: &payload}, nil
}

// RecentSessions lists this season's sessions newest first.
func (r *Relay) RecentSessions(ctx context.Context, limit int) []domain.Session {
	return r.resolver.Recent(ctx, limit)
}

func (r *Relay) build(ctx context.Context, res *resolver.Resolution) domain.LivePayload {
	session := res.Session
	p := domain.LivePayload{
		Mode:           res.Mode,
		CurrentSession: &session,
		IsLive:         res.Live,
		Timestamp:      r.now().UTC(),
	}

	if res.Mode.Timed() {
		laps := r.feed.Laps(ctx, session.Key)
		p.Standings = domain.DeriveStandings(laps, r.driverInfo(ctx, session.Key))
		return p
	}

	feed := r.feed.RaceFeed(ctx, session.Key, r.opts.FeedLimit)
	p.Drivers = feed.Drivers
	p.Intervals = feed.Intervals
	p.CarData = feed.CarData
	return p
}

// driverInfo serves session metadata from cache. Empty fetches are not cached
// so a transient failure is retried on the next tick.
func (r *Relay) driverInfo(ctx context.Context, sessionKey int) []domain.DriverInfo {
	key := strconv.Itoa(sessionKey)
	if drivers, ok := r.drivers.Get(key); ok {
		return drivers
	}
	drivers := r.feed.Drivers(ctx, sessionKey)
	if len(drivers) > 0 {
		r.drivers.Set(key, drivers)
	}
	return drivers
}

func fingerprint(content []byte) string {
	return strconv.FormatUint(xxhash.Sum64(content), 16)
}
