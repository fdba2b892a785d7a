package internal

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/hero/pkg/hostrouter"
)

// ErrNoApps is returned by Run without domains or a fallback.
var ErrNoApps = errors.New("hero: no domains or fallback configured")

// Run serves one App on addr and blocks until shutdown.
//
// Example:
//
//	err := app.Run(":2345", hero.ShutdownHook(redis.Shutdown(client)))
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := buildRunConfig(opts...)
	if addr != "" {
		cfg.address = addr
	}
	if cfg.logger == nil {
		cfg.logger = a.logger
	}
	return runServer(cfg.runtime(a))
}

// Run serves several Apps chosen by Host header and blocks until shutdown.
//
// Example:
//
//	err := hero.Run(
//	    hero.Domain("api.acme.com", api),
//	    hero.Fallback(site),
//	    hero.Address(":2345"),
//	)
func Run(opts ...RunOption) error {
	cfg := buildRunConfig(opts...)

	var handler http.Handler
	switch {
	case len(cfg.domains) > 0:
		routes := make(hostrouter.Routes, len(cfg.domains))
		for pattern, app := range cfg.domains {
			routes[pattern] = app
		}
		var fallback http.Handler
		if cfg.fallback != nil {
			fallback = cfg.fallback
		}
		handler = hostrouter.New(routes, fallback)
	case cfg.fallback != nil:
		handler = cfg.fallback
	default:
		return ErrNoApps
	}

	return runServer(cfg.runtime(handler))
}

func (c *runConfig) runtime(h http.Handler) runtimeConfig {
	return runtimeConfig{
		baseCtx:         c.baseCtx,
		handler:         h,
		logger:          c.logger,
		listener:        c.listener,
		address:         c.address,
		startupHooks:    c.startupHooks,
		shutdownHooks:   c.shutdownHooks,
		shutdownTimeout: c.shutdownTimeout,
	}
}
