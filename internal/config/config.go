package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix = "PITWALL_"

	// EnvConfigFile points to an optional YAML file with the same keys,
	// lower-cased and without the prefix (poll_interval, redis_addr...).
	EnvConfigFile = envPrefix + "CONFIG_FILE"
)

type Config struct {
	ListenPort      string        // ex: ":3001"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// Upstream APIs
	OpenF1BaseURL      string        // telemetry API root
	JolpicaBaseURL     string        // historical results API root
	UpstreamTimeout    time.Duration // per-request timeout for both APIs
	JolpicaHourlyLimit int           // requests per hour allowed against Jolpica

	// Live relay
	PollInterval    time.Duration // delay between the end of a tick and the next one
	SessionOverride string        // pin a session key ("latest" allowed); pinned sessions are never live
	FeedLimit       int           // max intervals / car_data rows per race-mode fetch
	DriverCacheTTL  time.Duration // driver metadata freshness
	DedupTTL        time.Duration // how long the last broadcast fingerprint is remembered
	HistoryCacheTTL time.Duration // historical proxy response cache

	// Gateway
	JoinCooldown   time.Duration // min delay between two join_live_timing from one client
	AllowedOrigins []string      // CORS + websocket origin check, empty = any

	// API rate limit (per client IP)
	RateLimitBurst  int
	RateLimitPerMin int

	// Redis (optional, empty addr = in-memory dedup)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	AllowedHosts []string // optional, restrict operator endpoints to specific Host headers
	AllowedCIDRS []string // optional, restrict operator endpoints to specific IPs/CIDRs
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

// source resolves raw values: environment first, then the YAML file.
type source struct {
	file map[string]string
}

// Load reads .env (if present), the optional YAML file, then the environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Sprintf("❌ FATAL: invalid .env file: %v", err))
	}

	src := source{}
	if path := os.Getenv(EnvConfigFile); path != "" {
		values, err := readFile(path)
		if err != nil {
			panic(fmt.Sprintf("❌ FATAL: %v", err))
		}
		src.file = values
	}

	return src.load()
}

func (s source) load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      s.getenv("PITWALL_LISTEN_PORT", ":3001"),
		ShutdownTimeout: s.mustDuration("PITWALL_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  s.getenv("PITWALL_LOG_LEVEL", "info"),
		PrettyLog: s.mustBool("PITWALL_PRETTY_LOG", true),

		// Upstream
		OpenF1BaseURL:      strings.TrimRight(s.getenv("PITWALL_OPENF1_URL", "https://api.openf1.org/v1"), "/"),
		JolpicaBaseURL:     strings.TrimRight(s.getenv("PITWALL_JOLPICA_URL", "https://api.jolpi.ca/ergast/f1"), "/"),
		UpstreamTimeout:    s.mustDuration("PITWALL_UPSTREAM_TIMEOUT", 8*time.Second),
		JolpicaHourlyLimit: s.getenvInt("PITWALL_JOLPICA_HOURLY_LIMIT", 200),

		// Relay
		PollInterval:    s.mustDuration("PITWALL_POLL_INTERVAL", 10*time.Second),
		SessionOverride: s.getenv("PITWALL_SESSION_OVERRIDE", ""),
		FeedLimit:       s.getenvInt("PITWALL_FEED_LIMIT", 100),
		DriverCacheTTL:  s.mustDuration("PITWALL_DRIVER_CACHE_TTL", 30*time.Second),
		DedupTTL:        s.mustDuration("PITWALL_DEDUP_TTL", 5*time.Minute),
		HistoryCacheTTL: s.mustDuration("PITWALL_HISTORY_CACHE_TTL", 5*time.Minute),

		// Gateway
		JoinCooldown:   s.mustDuration("PITWALL_JOIN_COOLDOWN", 5*time.Second),
		AllowedOrigins: splitAndTrim(s.getenv("PITWALL_ALLOWED_ORIGINS", "http://localhost:5173")),

		RateLimitBurst:  s.getenvInt("PITWALL_RATE_LIMIT_BURST", 30),
		RateLimitPerMin: s.getenvInt("PITWALL_RATE_LIMIT_PER_MIN", 120),

		// Redis settings
		RedisAddr:           s.getenv("PITWALL_REDIS_ADDR", ""),
		RedisUser:           s.getenv("PITWALL_REDIS_USERNAME", ""),
		RedisPassword:       s.getenv("PITWALL_REDIS_PASSWORD", ""),
		RedisDB:             s.getenvInt("PITWALL_REDIS_DB", 0),
		RedisDT:             s.mustDuration("PITWALL_REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             s.mustDuration("PITWALL_REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             s.mustDuration("PITWALL_REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        s.mustDuration("PITWALL_REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    s.mustDuration("PITWALL_REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       s.getenvInt("PITWALL_REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: s.mustDuration("PITWALL_REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  s.mustDuration("PITWALL_REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  s.getenvInt("PITWALL_REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts: splitAndTrim(s.getenv("PITWALL_ALLOWED_HOSTS", "")),
		AllowedCIDRS: parseAllowedIPs(s.getenv("PITWALL_ALLOWED_CIDRS", "")),
		TrustProxy:   s.mustBool("PITWALL_TRUST_PROXY", false),
	}

	if cfg.PollInterval <= 0 {
		panic("❌ FATAL: PITWALL_POLL_INTERVAL must be > 0")
	}
	if cfg.FeedLimit < 1 {
		panic("❌ FATAL: PITWALL_FEED_LIMIT must be >= 1")
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		if cfgCopy.RedisPassword != "" {
			cfgCopy.RedisPassword = "***REDACTED***"
		}
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// readFile decodes a flat YAML mapping. Scalars of any type are kept as text
// and parsed by the same helpers as environment values.
func readFile(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	values := make(map[string]string)
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return values, nil
}

// fileKey maps PITWALL_POLL_INTERVAL to poll_interval.
func fileKey(envKey string) string {
	return strings.ToLower(strings.TrimPrefix(envKey, envPrefix))
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return strings.TrimSpace(s.file[fileKey(key)])
}

// helpers
func (s source) getenv(key, def string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return def
}

func (s source) getenvInt(key string, def int) int {
	if v := s.lookup(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s source) mustBool(key string, def bool) bool {
	if v := s.lookup(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func (s source) mustDuration(key string, def time.Duration) time.Duration {
	if v := s.lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
