// Package middlewares provides pipeline middleware for hero applications.
//
// Every constructor returns a hero.Middleware. Applications register them
// under ids with hero.WithMiddlewareFactory and list the ids as defaults
// (hero.WithMiddleware or the "middleware" config key) or per controller
// (Middlewares() []string). Factories run once per request, so middleware
// values must not keep per-request state between calls; shared state such
// as a Limiter or HTTPMetrics is created once and captured.
//
//	limiter := middlewares.NewRedisLimiter(client)
//	metrics := middlewares.NewHTTPMetrics(prometheus.NewRegistry(), "shop")
//
//	app, err := hero.New(
//	    hero.WithLogger(logger.New(cfg, middlewares.RequestIDExtractor())),
//	    hero.WithMiddleware("requestid", "accesslog", "recover", "cors"),
//	    hero.WithMiddlewareFactory("requestid", func() hero.Middleware { return middlewares.RequestID() }),
//	    hero.WithMiddlewareFactory("accesslog", func() hero.Middleware { return middlewares.AccessLog() }),
//	    hero.WithMiddlewareFactory("recover", func() hero.Middleware { return middlewares.Recover() }),
//	    hero.WithMiddlewareFactory("cors", func() hero.Middleware { return middlewares.CORS() }),
//	    hero.WithMiddlewareFactory("ratelimit", func() hero.Middleware {
//	        return middlewares.RateLimit(limiter, middlewares.WithRateLimit(60, time.Minute))
//	    }),
//	    hero.WithMiddlewareFactory("metrics", func() hero.Middleware { return middlewares.Metrics(metrics) }),
//	    hero.WithControllers(middlewares.NewMetricsController(metrics, ""), &ShopController{}),
//	)
//
// # Request ID
//
// RequestID keeps an upstream X-Request-ID or generates a ULID, stores it in
// the request context and echoes it in the response. RequestIDExtractor
// adds it to every record logged with that context.
//
// # Recover and Timeout
//
// The coordinator already contains panics. Recover additionally logs the
// panic with a bounded stack trace and hands a PanicError to the exception
// handler. Timeout bounds the rest of the pipeline and fails with a 503
// wrapping TimeoutError.
//
// # CORS
//
// CORS sets the Access-Control-* headers on every response and answers
// OPTIONS with an empty 200. Middleware only runs for matched routes, so
// routes that must answer preflight requests should accept OPTIONS (Any
// or Match).
//
// # Auth and RateLimit
//
// Auth rejects requests without an identified caller. RateLimit applies a
// sliding window per client and action, stored in Redis (RedisLimiter) or
// in process memory (MemoryLimiter).
//
// # Metrics and AccessLog
//
// Metrics records Prometheus request counters and latency histograms by
// route pattern; MetricsController exposes them. AccessLog writes one slog
// record per request.
package middlewares
