package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dmitrymomot/hero"
	"github.com/dmitrymomot/hero/example/controllers"
	"github.com/dmitrymomot/hero/middlewares"
	"github.com/dmitrymomot/hero/pkg/config"
	"github.com/dmitrymomot/hero/pkg/logger"
	"github.com/dmitrymomot/hero/pkg/redis"
	"github.com/dmitrymomot/hero/pkg/session"
)

func main() {
	settings, err := config.LoadSettings(config.DefaultPrefix, ".env")
	if err != nil {
		slog.Error("load settings", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.NewWithSentry(
		logger.Config{Level: settings.LogLevel, Format: settings.LogFormat},
		logger.SentryConfig{DSN: settings.SentryDSN, Environment: settings.SentryEnv, MinLevel: slog.LevelError},
		middlewares.RequestIDExtractor(),
	)

	cfg, err := config.Load(settings.ConfigFile)
	if err != nil {
		log.Error("load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	var redisCfg redis.Config
	if err := decodeOptional(cfg, "redis", &redisCfg); err != nil {
		log.Error("decode redis config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	redisCfg.URL = settings.RedisURL

	rl := rateLimitConfig{Max: middlewares.DefaultRateLimit, Period: middlewares.DefaultRateWindow}
	if err := decodeOptional(cfg, "rate_limit", &rl); err != nil {
		log.Error("decode rate limit config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var (
		store   session.Store       = session.NewMemoryStore()
		limiter middlewares.Limiter = middlewares.NewMemoryLimiter()
		checks  []hero.HealthOption
		hooks   []hero.RunOption
	)
	if redisCfg.URL != "" {
		client, err := redis.Open(ctx, redisCfg)
		if err != nil {
			log.Error("connect redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = session.NewRedisStore(client, "hero:session:")
		limiter = middlewares.NewRedisLimiter(client)
		checks = append(checks, hero.WithReadinessCheck("redis", redis.Healthcheck(client)))
		hooks = append(hooks, hero.ShutdownHook(redis.Shutdown(client)))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middlewares.NewHTTPMetrics(reg, "hero")

	app, err := hero.New(
		hero.WithLogger(log),
		hero.WithConfig(cfg),
		hero.WithDebug(settings.Debug),
		hero.WithPublicDir(settings.PublicDir),
		hero.WithSession(store,
			hero.WithSessionCookieName(cfg.String("session.cookie", "HERO_SESSION")),
			hero.WithSessionMaxAge(cfg.Int("session.max_age", 86400)),
		),
		hero.WithBeans(&controllers.ContactStore{}),
		hero.WithControllers(
			&controllers.ContactController{},
			&controllers.SessionController{},
			&controllers.AccountController{},
			middlewares.NewMetricsController(metrics, ""),
		),

		hero.WithMiddlewareFactory("Recover", func() hero.Middleware { return middlewares.Recover() }),
		hero.WithMiddlewareFactory("RequestID", func() hero.Middleware { return middlewares.RequestID() }),
		hero.WithMiddlewareFactory("AccessLog", func() hero.Middleware { return middlewares.AccessLog() }),
		hero.WithMiddlewareFactory("Metrics", func() hero.Middleware { return middlewares.Metrics(metrics) }),
		hero.WithMiddlewareFactory("Cors", func() hero.Middleware { return middlewares.CORS() }),
		hero.WithMiddlewareFactory("Timeout", func() hero.Middleware { return middlewares.Timeout(middlewares.DefaultTimeout) }),
		hero.WithMiddlewareFactory("Auth", func() hero.Middleware { return middlewares.Auth() }),
		hero.WithMiddlewareFactory("RateLimit", func() hero.Middleware {
			return middlewares.RateLimit(limiter, middlewares.WithRateLimit(rl.Max, rl.Period))
		}),
		hero.WithMiddleware("Recover", "RequestID", "AccessLog", "Metrics", "Cors"),

		hero.WithHealthChecks(checks...),
	)
	if err != nil {
		log.Error("configure app", slog.String("error", err.Error()))
		os.Exit(1)
	}

	opts := append([]hero.RunOption{
		hero.Logger(log),
		hero.ShutdownTimeout(settings.ShutdownTimeout),
	}, hooks...)
	if err := app.Run(settings.Address, opts...); err != nil {
		log.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

type rateLimitConfig struct {
	Max    int           `yaml:"max"`
	Period time.Duration `yaml:"period"`
}

// decodeOptional decodes the config section at key into out. A missing
// section leaves out unchanged.
func decodeOptional(cfg *config.Tree, key string, out any) error {
	if err := cfg.Decode(key, out); err != nil && !errors.Is(err, config.ErrKeyNotFound) {
		return err
	}
	return nil
}
