package internal

import (
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"

	"github.com/dmitrymomot/hero/pkg/sanitizer"
	"github.com/dmitrymomot/hero/pkg/session"
)

// Option configures the application.
type Option func(*App)

// WithLogger sets the application logger.
//
// Example:
//
//	log := logger.NewWithSentry(logger.Config{Format: "json"}, sentryCfg,
//	    middlewares.RequestIDExtractor(),
//	)
//	hero.New(hero.WithLogger(log))
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithConfig sets the configuration tree used for value injection.
// Its "middleware" list and "app.debug" flag apply unless WithMiddleware
// or WithDebug are given.
func WithConfig(cfg ConfigProvider) Option {
	return func(a *App) {
		a.config = cfg
	}
}

// WithDebug toggles debug mode. In debug mode error messages are rendered
// and fallback failures are logged.
func WithDebug(on bool) Option {
	return func(a *App) {
		a.debug = on
		a.debugSet = true
	}
}

// WithControllers registers controllers. Each one is handed to the registry,
// which fills its inject and value fields, and then declares its routes.
//
// Example:
//
//	hero.New(
//	    hero.WithControllers(&UserController{}, &OrderController{}),
//	)
func WithControllers(ctrls ...Controller) Option {
	return func(a *App) {
		a.controllers = append(a.controllers, ctrls...)
	}
}

// WithMiddleware sets the default middleware ids applied to every route,
// outermost first.
func WithMiddleware(ids ...string) Option {
	return func(a *App) {
		a.middleware = append(a.middleware, ids...)
		a.middlewareSet = true
	}
}

// WithMiddlewareFactory registers how middleware id is created.
// The factory runs for every request that uses it.
//
// Example:
//
//	hero.WithMiddlewareFactory("cors", func() hero.Middleware {
//	    return middlewares.CORS()
//	})
func WithMiddlewareFactory(id string, f MiddlewareFactory) Option {
	return func(a *App) {
		if id == "" || f == nil {
			a.errs = append(a.errs, errors.New("hero: middleware factory needs an id and a function"))
			return
		}
		a.factories[id] = f
	}
}

// WithMiddlewareFunc registers a stateless middleware function under id.
func WithMiddlewareFunc(id string, fn MiddlewareFunc) Option {
	return WithMiddlewareFactory(id, func() Middleware { return fn })
}

// WithBeans declares struct types the registry can build on demand.
// Middleware types declared here are resolved by their type identifier.
func WithBeans(protos ...any) Option {
	return func(a *App) {
		a.setup = append(a.setup, func(r *Registry) { r.Declare(protos...) })
	}
}

// WithBean declares proto's type under a custom identifier.
func WithBean(id string, proto any) Option {
	return func(a *App) {
		a.setup = append(a.setup, func(r *Registry) { r.DeclareAs(id, proto) })
	}
}

// WithProvider registers a constructor for id.
//
// Example:
//
//	hero.WithProvider(hero.TypeID[redis.Client](), func() any { return client })
func WithProvider(id string, fn func() any) Option {
	return func(a *App) {
		a.setup = append(a.setup, func(r *Registry) { r.Provide(id, fn) })
	}
}

// WithInstance registers a ready-made object under id. No injection is applied.
func WithInstance(id string, v any) Option {
	return func(a *App) {
		a.setup = append(a.setup, func(r *Registry) { r.Put(id, v) })
	}
}

// WithExceptionHandler installs h under ExceptionHandlerID.
// Its inject and value fields are filled on first use.
func WithExceptionHandler(h ExceptionHandler) Option {
	return WithProvider(ExceptionHandlerID, func() any { return h })
}

// WithPublicDir serves regular files under dir for GET and HEAD requests
// no route matches.
func WithPublicDir(dir string) Option {
	return func(a *App) {
		if dir != "" {
			a.static = NewStaticFileResolver(dir)
		}
	}
}

// WithSession enables server-side sessions stored in store.
// Sessions are loaded on first use and saved before the response is written.
//
// Example:
//
//	hero.New(
//	    hero.WithSession(session.NewRedisStore(client, ""),
//	        hero.WithSessionCookieName("__sid"),
//	        hero.WithSessionSecure(true),
//	    ),
//	)
func WithSession(store session.Store, opts ...SessionOption) Option {
	return func(a *App) {
		if store == nil {
			a.errs = append(a.errs, ErrNoSessionStore)
			return
		}
		a.sessions = NewSessionManager(store, opts...)
	}
}

// WithInputSanitizer replaces the function applied to query and form
// values. The default escapes HTML special characters.
func WithInputSanitizer(fn sanitizer.Func) Option {
	return func(a *App) {
		if fn != nil {
			a.sanitize = fn
		}
	}
}

// WithInputPolicy sanitizes query and form values with a bluemonday policy.
func WithInputPolicy(p *bluemonday.Policy) Option {
	return WithInputSanitizer(sanitizer.Policy(p))
}

// WithValidator sets the validator for struct body bindings.
func WithValidator(v *validator.Validate) Option {
	return func(a *App) {
		if v != nil {
			a.validate = v
		}
	}
}

// WithMaxBodySize limits how many body bytes are read. Defaults to 10MB.
func WithMaxBodySize(n int64) Option {
	return func(a *App) {
		if n > 0 {
			a.maxBodySize = n
		}
	}
}

// WithHealthChecks adds liveness and readiness endpoints.
// Liveness (/health/live) always answers OK; readiness (/health/ready)
// runs every configured check.
//
// Example:
//
//	hero.WithHealthChecks(
//	    hero.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		cfg := &healthConfig{
			livenessPath:  defaultLivenessPath,
			readinessPath: defaultReadinessPath,
			timeout:       defaultHealthTimeout,
		}
		for _, opt := range opts {
			opt(cfg)
		}
		a.health = cfg
	}
}
