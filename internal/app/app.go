package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/pitwall/internal/cache"
	"github.com/MrSnakeDoc/pitwall/internal/config"
	"github.com/MrSnakeDoc/pitwall/internal/gateway"
	"github.com/MrSnakeDoc/pitwall/internal/httpserver"
	"github.com/MrSnakeDoc/pitwall/internal/httpserver/deps"
	"github.com/MrSnakeDoc/pitwall/internal/logger"
	"github.com/MrSnakeDoc/pitwall/internal/redis"
	"github.com/MrSnakeDoc/pitwall/internal/relay"
	"github.com/MrSnakeDoc/pitwall/internal/resolver"
	"github.com/MrSnakeDoc/pitwall/internal/sources/jolpica"
	"github.com/MrSnakeDoc/pitwall/internal/sources/openf1"
	redisstore "github.com/MrSnakeDoc/pitwall/internal/store/redis"
	"github.com/MrSnakeDoc/pitwall/internal/version"
)

type App struct {
	cfg         *config.Config
	logger      logger.Logger
	server      *httpserver.Server
	redisClient *goredis.Client
	relay       *relay.Relay
	hub         *gateway.Hub
}

func New() (*App, error) {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	// Redis is optional: without it the dedup state lives in process memory.
	var (
		redisClient *goredis.Client
		dedup       relay.DedupStore
	)
	if cfg.RedisAddr != "" {
		loggerClient.Infof("Connecting to Redis at %s", cfg.RedisAddr)
		client, err := redis.New(context.Background(), redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, loggerClient)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		loggerClient.Info("Redis initialized successfully")
		redisClient = client
		dedup = redisstore.NewStore(client, cfg.DedupTTL)
	} else {
		loggerClient.Info("Redis not configured, change detection kept in memory")
		dedup = cache.NewStrings(cache.NewTTL[string](cfg.DedupTTL))
	}

	f1 := openf1.New(cfg.OpenF1BaseURL, cfg.UpstreamTimeout, loggerClient)
	history := jolpica.New(cfg.JolpicaBaseURL, cfg.UpstreamTimeout, cfg.JolpicaHourlyLimit, loggerClient)
	res := resolver.New(f1, cfg.SessionOverride, loggerClient)

	// The hub publishes what the relay produces and replays relay snapshots
	// on join, so it is attached once both exist.
	hub := gateway.NewHub(gateway.Options{
		JoinCooldown:   cfg.JoinCooldown,
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		ReplayTimeout:  2 * cfg.UpstreamTimeout,
	}, loggerClient)
	rl := relay.New(res, f1, dedup, hub, relay.Options{
		Interval:       cfg.PollInterval,
		FeedLimit:      cfg.FeedLimit,
		DriverCacheTTL: cfg.DriverCacheTTL,
	}, loggerClient)
	hub.Attach(rl)

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		AllowedOrigins:  cfg.AllowedOrigins,
		TrustProxy:      cfg.TrustProxy,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RedisClient:     redisClient,
		Relay:           rl,
		Resolver:        res,
		Gateway:         hub,
		History:         history,
		HistoryCache:    cache.NewTTL[[]byte](cfg.HistoryCacheTTL),
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		server:      httpserver.New(cfg, loggerClient, d),
		redisClient: redisClient,
		relay:       rl,
		hub:         hub,
	}, nil
}

func (a *App) Run() error {
	defer func() { _ = a.logger.Sync() }()

	a.logger.Infof("🏁 Starting Pitwall %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("Pitwall %s", version.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.relay.Start(ctx)
	a.logger.Info("live relay started",
		logger.Duration("interval", a.cfg.PollInterval),
		logger.String("session_override", a.cfg.SessionOverride))

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	// Stop the relay first so no broadcast races the hub shutdown.
	a.relay.Stop()
	a.hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ Pitwall stopped cleanly")
	return nil
}
