package middlewares_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero/internal"
)

// newTestContext builds a request context on a bare app. Extra options
// configure the app, e.g. sessions or a logger.
func newTestContext(t *testing.T, r *http.Request, opts ...internal.Option) (*internal.RequestContext, *httptest.ResponseRecorder) {
	t.Helper()

	app, err := internal.New(opts...)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	return app.NewRequestContext(rec, r), rec
}

func okHandler(rc *internal.RequestContext) (*internal.Response, error) {
	return internal.Text(http.StatusOK, "ok"), nil
}

// logBuffer is a goroutine-safe sink for a JSON slog handler.
type logBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newBufferLogger() (*slog.Logger, *logBuffer) {
	buf := &logBuffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}
