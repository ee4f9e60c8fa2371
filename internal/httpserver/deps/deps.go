package deps

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pitwall/internal/cache"
	"github.com/MrSnakeDoc/pitwall/internal/domain"
	"github.com/MrSnakeDoc/pitwall/internal/gateway"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/relay"
	"github.com/MrSnakeDoc/pitwall/internal/resolver"
	"github.com/MrSnakeDoc/pitwall/internal/sources/jolpica"
)

// Relay is the part of the live relay the HTTP layer drives.
type Relay interface {
	Snapshot(ctx context.Context) (domain.Snapshot, error)
	Status() relay.Status
	Trigger() bool
	ForceTrigger(ctx context.Context) (bool, error)
}

type SessionResolver interface {
	Resolve(ctx context.Context) *resolver.Resolution
}

type Gateway interface {
	http.Handler
	Stats() gateway.Stats
}

// History is the historical-results proxy backend.
type History interface {
	DriverStandings(ctx context.Context, season string) ([]jolpica.DriverStanding, error)
	ConstructorStandings(ctx context.Context, season string) ([]jolpica.ConstructorStanding, error)
	RaceResults(ctx context.Context, season, round string) (*jolpica.Race, error)
	QualifyingResults(ctx context.Context, season, round string) (*jolpica.Race, error)
	ChampionshipWinners(ctx context.Context, from, to int) ([]jolpica.Champion, error)
	Remaining() int
}

type Deps struct {
	Logger          logger.Logger
	StartTime       time.Time
	Version         string
	Commit          string
	BuildDate       string
	GoVersion       string
	TimeNow         func() time.Time // for testing, defaults to time.Now
	AllowedHosts    []string         // Host headers allowed to reach operator endpoints
	AllowedCIDRS    []string         // IPs allowed to reach operator endpoints
	AllowedOrigins  []string         // CORS origins for the REST API
	TrustProxy      bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	RateLimitBurst  int              // /api token bucket size per client IP
	RateLimitPerMin int              // /api token refill per client IP per minute
	RedisClient     *redis.Client    // nil when dedup runs in memory
	Relay           Relay
	Resolver        SessionResolver
	Gateway         Gateway
	History         History
	HistoryCache    *cache.TTL[[]byte] // encoded history responses by request path
}

// Now returns the injected clock, or time.Now.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
