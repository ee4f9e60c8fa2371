package mw

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/pitwall/internal/metrics"
	"github.com/MrSnakeDoc/pitwall/internal/utils"
)

type RateLimitConfig struct {
	Burst             int
	RefillPerIPPerMin int
	MaxEntries        int           // prune idle clients once this many are tracked, 0 = no cap
	SweepInterval     time.Duration // default 1m
	IdleTTL           time.Duration // default 15m
	TrustProxy        bool
	Now               func() time.Time
}

// quota is one client's token bucket.
type quota struct {
	mu       sync.Mutex
	tokens   float64
	refilled time.Time
	seen     time.Time
}

type verdict struct {
	allowed    bool
	remaining  int
	retryAfter int // seconds
}

type ipLimiter struct {
	cfg      RateLimitConfig
	perSec   float64
	capacity float64

	mu      sync.Mutex
	clients map[string]*quota
	swept   time.Time
}

func newIPLimiter(cfg RateLimitConfig) *ipLimiter {
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerIPPerMin < 1 {
		cfg.RefillPerIPPerMin = 1
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ipLimiter{
		cfg:      cfg,
		perSec:   float64(cfg.RefillPerIPPerMin) / 60,
		capacity: float64(cfg.Burst),
		clients:  make(map[string]*quota),
		swept:    cfg.Now(),
	}
}

// quotaFor returns the bucket of ip, pruning idle clients when due or when
// the table is full.
func (l *ipLimiter) quotaFor(ip string, now time.Time) *quota {
	l.mu.Lock()
	defer l.mu.Unlock()

	full := l.cfg.MaxEntries > 0 && len(l.clients) >= l.cfg.MaxEntries
	if full || now.Sub(l.swept) >= l.cfg.SweepInterval {
		for key, q := range l.clients {
			if now.Sub(q.seen) > l.cfg.IdleTTL {
				delete(l.clients, key)
			}
		}
		l.swept = now
	}

	q, ok := l.clients[ip]
	if !ok {
		q = &quota{tokens: l.capacity, refilled: now, seen: now}
		l.clients[ip] = q
	}
	return q
}

func (l *ipLimiter) check(ip string, now time.Time) verdict {
	q := l.quotaFor(ip, now)

	q.mu.Lock()
	defer q.mu.Unlock()

	if dt := now.Sub(q.refilled).Seconds(); dt > 0 {
		q.tokens = math.Min(l.capacity, q.tokens+dt*l.perSec)
		q.refilled = now
	}

	if q.tokens < 1 {
		wait := int(math.Ceil((1 - q.tokens) / l.perSec))
		return verdict{retryAfter: max(wait, 1)}
	}
	q.tokens--
	q.seen = now
	return verdict{allowed: true, remaining: int(q.tokens)}
}

// RateLimit is a per-client-IP token bucket: Burst requests at once, refilled
// at RefillPerIPPerMin. Refused requests get a JSON 429 with Retry-After.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newIPLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v := l.check(utils.ClientIP(r, l.cfg.TrustProxy), l.cfg.Now())

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))

			if !v.allowed {
				metrics.RateLimited()
				h.Set("Retry-After", strconv.Itoa(v.retryAfter))
				h.Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "Too many requests"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
