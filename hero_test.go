package hero_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero"
	"github.com/dmitrymomot/hero/pkg/session"
)

type article struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

type articleController struct{}

func (c *articleController) Routes(r hero.Router) {
	r.GET("/articles/{id}", "Show", hero.Path("id"))
	r.POST("/articles", "Create", hero.Body())
	r.GET("/whoami", "WhoAmI")
}

func (c *articleController) Show(id int) (*article, error) {
	if id != 1 {
		return nil, hero.ErrNotFound("article not found")
	}
	return &article{ID: 1, Title: "Hello"}, nil
}

func (c *articleController) Create(in article) (*hero.Response, error) {
	in.ID = 2
	return hero.JSON(http.StatusCreated, in)
}

func (c *articleController) WhoAmI(rc *hero.RequestContext) string {
	return hero.ContextValue[string](rc, userKey{})
}

type userKey struct{}

func TestApp(t *testing.T) {
	t.Parallel()

	app, err := hero.New(
		hero.WithControllers(&articleController{}),
		hero.WithMiddlewareFunc("User", func(rc *hero.RequestContext, next hero.Next) (*hero.Response, error) {
			rc.Set(userKey{}, "ada")
			return next(rc)
		}),
		hero.WithMiddleware("User"),
	)
	require.NoError(t, err)

	t.Run("json result", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles/1", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"id":1,"title":"Hello"}`, rec.Body.String())
	})

	t.Run("http error", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles/9", nil))
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Contains(t, rec.Body.String(), "article not found")
	})

	t.Run("body binding", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest(http.MethodPost, "/articles", strings.NewReader(`{"title":"New"}`))
		r.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, r)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.JSONEq(t, `{"id":2,"title":"New"}`, rec.Body.String())
	})

	t.Run("middleware context value", func(t *testing.T) {
		t.Parallel()

		rec := httptest.NewRecorder()
		app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		require.Equal(t, "ada", rec.Body.String())
	})

	t.Run("routes are exposed", func(t *testing.T) {
		t.Parallel()

		patterns := make([]string, 0, len(app.Routes()))
		for _, r := range app.Routes() {
			patterns = append(patterns, r.Pattern)
		}
		require.ElementsMatch(t, []string{"/articles/{id}", "/articles", "/whoami"}, patterns)
	})
}

func TestNewReportsConfigurationErrors(t *testing.T) {
	t.Parallel()

	_, err := hero.New(hero.WithMiddlewareFactory("", nil))
	require.Error(t, err)
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusTooManyRequests, hero.StatusOf(hero.ErrTooManyRequests("slow down")))
	require.Equal(t, http.StatusInternalServerError, hero.StatusOf(io.EOF))

	he, ok := hero.AsHTTPError(hero.NewHTTPError(http.StatusTeapot, "tea", hero.WithErrorCode("brew")))
	require.True(t, ok)
	require.Equal(t, "brew", he.ErrorCode)
}

func TestTypeID(t *testing.T) {
	t.Parallel()

	require.Equal(t, "github.com/dmitrymomot/hero_test.article", hero.TypeID[*article]())
	require.Equal(t, hero.TypeID[article](), hero.TypeOf(&article{}))
}

type pingController struct{ name string }

func (c *pingController) Routes(r hero.Router) { r.GET("/ping", "Ping") }

func (c *pingController) Ping() string { return c.name }

func TestRun(t *testing.T) {
	t.Parallel()

	api, err := hero.New(hero.WithControllers(&pingController{name: "api"}))
	require.NoError(t, err)
	site, err := hero.New(
		hero.WithControllers(&pingController{name: "site"}),
		hero.WithSession(session.NewMemoryStore()),
	)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	var started, stopped atomic.Bool
	done := make(chan error, 1)
	go func() {
		done <- hero.Run(
			hero.Listener(ln),
			hero.WithContext(ctx),
			hero.Domain("api.example.com", api),
			hero.Fallback(site),
			hero.StartupHook(func(context.Context) error {
				started.Store(true)
				return nil
			}),
			hero.ShutdownHook(func(context.Context) error {
				stopped.Store(true)
				return nil
			}),
			hero.ShutdownTimeout(time.Second),
		)
	}()

	get := func(host string) string {
		req, err := http.NewRequest(http.MethodGet, "http://"+ln.Addr().String()+"/ping", nil)
		require.NoError(t, err)
		req.Host = host
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		return string(body)
	}

	require.Equal(t, "api", get("api.example.com"))
	require.Equal(t, "site", get("www.example.com"))
	require.True(t, started.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	require.True(t, stopped.Load())
}

func TestRunWithoutApps(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, hero.Run(), hero.ErrNoApps)
}
