package internal

import (
	"bufio"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
)

// ResponseWriter wraps the connection writer. It records the status and
// size of what was sent and runs hooks once, right before the headers go
// out. The coordinator uses Written to tell whether a handler already
// replied on the connection itself.
type ResponseWriter struct {
	http.ResponseWriter
	parent      *ResponseWriter
	beforeWrite []func()
	status      int
	size        int64
	mu          sync.Mutex
	written     bool
}

// NewResponseWriter wraps w. An existing *ResponseWriter is returned as is.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	if rw, ok := w.(*ResponseWriter); ok {
		return rw
	}
	return &ResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

// OnBeforeWrite registers a hook that runs before the headers are sent.
// Hooks run in registration order. Hooks registered after the first
// write never run.
func (w *ResponseWriter) OnBeforeWrite(fn func()) {
	if w.parent != nil {
		if d, ok := w.ResponseWriter.(*detachedWriter); ok && !d.released.Load() {
			w.parent.OnBeforeWrite(fn)
		}
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written {
		return
	}
	w.beforeWrite = append(w.beforeWrite, fn)
}

// begin marks the response as started and returns pending hooks.
func (w *ResponseWriter) begin(code int) ([]func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.written {
		return nil, false
	}
	w.written = true
	if code > 0 {
		w.status = code
	}
	hooks := w.beforeWrite
	w.beforeWrite = nil
	return hooks, true
}

// WriteHeader sends the status line once; later calls are ignored.
func (w *ResponseWriter) WriteHeader(code int) {
	hooks, first := w.begin(code)
	if !first {
		return
	}
	for _, fn := range hooks {
		fn()
	}
	w.ResponseWriter.WriteHeader(code)
}

// Write sends body bytes, emitting an implicit 200 first if needed.
func (w *ResponseWriter) Write(b []byte) (int, error) {
	if hooks, first := w.begin(0); first {
		for _, fn := range hooks {
			fn()
		}
		w.ResponseWriter.WriteHeader(w.status)
	}

	n, err := w.ResponseWriter.Write(b)
	w.mu.Lock()
	w.size += int64(n)
	w.mu.Unlock()
	return n, err
}

// Status returns the status sent, or 200 before anything was written.
func (w *ResponseWriter) Status() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Size returns the number of body bytes written.
func (w *ResponseWriter) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Written reports whether headers were sent.
func (w *ResponseWriter) Written() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

func (w *ResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		if hooks, first := w.begin(0); first {
			for _, fn := range hooks {
				fn()
			}
			w.ResponseWriter.WriteHeader(w.status)
		}
		flusher.Flush()
	}
}

func (w *ResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if hijacker, ok := w.ResponseWriter.(http.Hijacker); ok {
		conn, brw, err := hijacker.Hijack()
		if err == nil {
			w.mu.Lock()
			w.written = true
			w.mu.Unlock()
		}
		return conn, brw, err
	}
	return nil, nil, http.ErrNotSupported
}

// Unwrap returns the underlying writer, for http.ResponseController.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Detach returns a writer for a goroutine that may outlive the caller's
// interest in the response. It forwards to w and registers hooks on w
// until release runs. After that its writes fail with
// http.ErrHandlerTimeout and its headers go to a private map, so w can be
// used without racing the goroutine.
func (w *ResponseWriter) Detach() (child *ResponseWriter, release func()) {
	d := &detachedWriter{parent: w, orphan: http.Header{}}
	child = &ResponseWriter{ResponseWriter: d, parent: w, status: http.StatusOK}
	return child, d.release
}

type detachedWriter struct {
	parent   *ResponseWriter
	orphan   http.Header
	mu       sync.Mutex
	released atomic.Bool
}

func (d *detachedWriter) Header() http.Header {
	if d.released.Load() {
		return d.orphan
	}
	return d.parent.Header()
}

func (d *detachedWriter) WriteHeader(code int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released.Load() {
		return
	}
	d.parent.WriteHeader(code)
}

func (d *detachedWriter) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.released.Load() {
		return 0, http.ErrHandlerTimeout
	}
	return d.parent.Write(b)
}

// release waits for an in-flight write to finish.
func (d *detachedWriter) release() {
	d.mu.Lock()
	d.released.Store(true)
	d.mu.Unlock()
}
