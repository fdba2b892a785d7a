// Package hero is a request-processing core for HTTP applications built
// from controllers, a dependency-injecting object registry and named
// middleware.
//
// Controllers are plain structs. The registry builds each controller once,
// filling fields tagged inject with other registered objects and fields
// tagged value with configuration. Handlers are named methods whose
// parameters are bound from the request.
//
// # Quick Start
//
//	app, err := hero.New(
//	    hero.WithLogger(log),
//	    hero.WithConfig(cfg),
//	    hero.WithBeans(&repository.Users{}),
//	    hero.WithControllers(&UserController{}),
//	)
//	if err != nil {
//	    log.Error("configure app", "error", err)
//	    os.Exit(1)
//	}
//
//	if err := app.Run(":8080"); err != nil {
//	    log.Error("server", "error", err)
//	}
//
// # Controllers
//
// Controllers declare routes by handler method name. Parameters without an
// explicit binding are inferred from their type: *http.Request,
// http.ResponseWriter, *hero.Session, context.Context and
// *hero.RequestContext are injected.
//
//	type UserController struct {
//	    Users *repository.Users `inject:""`
//	    Title string            `value:"app.name"`
//	}
//
//	func (c *UserController) Routes(r hero.Router) {
//	    r.GET("/users/{id}", "Show", hero.Path("id"))
//	    r.GET("/users", "List", hero.Query("page", "1"))
//	    r.POST("/users", "Create", hero.Body())
//	}
//
//	func (c *UserController) Show(id int) (*User, error) {
//	    return c.Users.Find(id)
//	}
//
// Handler results become responses: *hero.Response is written as is,
// structs, maps and slices as JSON, strings as HTML and other scalars as
// text. Returned errors go to the exception handler.
//
// # Middleware
//
// Middleware is referenced by id. Ids resolve to registered factories
// first and to registry types second, and every request gets fresh
// instances. The first id is the outermost layer.
//
//	app, err := hero.New(
//	    hero.WithMiddlewareFactory("Cors", func() hero.Middleware {
//	        return middlewares.CORS()
//	    }),
//	    hero.WithMiddlewareFunc("Stamp", func(rc *hero.RequestContext, next hero.Next) (*hero.Response, error) {
//	        rc.Writer.Header().Set("X-Stamp", "1")
//	        return next(rc)
//	    }),
//	    hero.WithMiddleware("Cors", "Stamp"),
//	)
//
// Controllers implementing MiddlewareProvider add ids for their routes.
//
// # Errors
//
// Every error or panic raised while handling a request ends in the
// exception handler registered under ExceptionHandlerID. When it fails too,
// a fixed 500 response with FallbackMessage is written.
//
// # Shutdown
//
// Run handles SIGINT and SIGTERM for graceful shutdown. Several apps can be
// served by host:
//
//	err := hero.Run(
//	    hero.Domain("api.acme.com", api),
//	    hero.Fallback(site),
//	    hero.ShutdownHook(redis.Shutdown(client)),
//	)
package hero
