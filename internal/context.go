package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrymomot/hero/pkg/session"
)

// RequestContext carries one request through the pipeline. It is created
// by the coordinator and passed explicitly; nothing stores it globally.
type RequestContext struct {
	Request  *http.Request
	Writer   *ResponseWriter
	Route    *Route
	PathVars map[string]string

	app *App

	session *session.Session

	body     []byte
	post     any
	inputs   map[string]any
	bodyErr  error
	bodyRead bool
}

func newRequestContext(app *App, w *ResponseWriter, r *http.Request) *RequestContext {
	return &RequestContext{app: app, Writer: w, Request: r}
}

// Context returns the request context.
func (rc *RequestContext) Context() context.Context {
	return rc.Request.Context()
}

// Fork returns a copy of rc bound to ctx, for running the rest of the
// pipeline on another goroutine. The copy owns its request, so Set on it
// never touches rc. Its writer forwards to rc.Writer until release runs;
// call release before using rc again while the copy may still be active.
func (rc *RequestContext) Fork(ctx context.Context) (fork *RequestContext, release func()) {
	clone := *rc
	clone.Request = rc.Request.WithContext(ctx)
	clone.Writer, release = rc.Writer.Detach()
	return &clone, release
}

// Set stores a value in the request context.
func (rc *RequestContext) Set(key, val any) {
	rc.Request = rc.Request.WithContext(context.WithValue(rc.Request.Context(), key, val))
}

// Get returns a value stored with Set.
func (rc *RequestContext) Get(key any) any {
	return rc.Request.Context().Value(key)
}

// Logger returns the application logger.
func (rc *RequestContext) Logger() *slog.Logger {
	return rc.app.logger
}

// Debug reports whether the app runs in debug mode.
func (rc *RequestContext) Debug() bool {
	return rc.app.debug
}

// Header returns a request header.
func (rc *RequestContext) Header(name string) string {
	return rc.Request.Header.Get(name)
}

// PathVar returns a matched path variable.
func (rc *RequestContext) PathVar(name string) (string, bool) {
	v, ok := rc.PathVars[name]
	return v, ok
}

// Session returns the request session, loading or creating it on first
// use. A loaded session is committed before the response headers go out.
func (rc *RequestContext) Session() (*session.Session, error) {
	if rc.session != nil {
		return rc.session, nil
	}
	sm := rc.app.sessions
	if sm == nil {
		return nil, ErrNoSessionStore
	}

	sess, err := sm.Load(rc.Context(), rc.Request)
	if err != nil {
		return nil, err
	}
	rc.session = sess
	rc.Writer.OnBeforeWrite(func() {
		if err := sm.Commit(rc.Context(), rc.Writer.Unwrap(), sess); err != nil {
			rc.Logger().ErrorContext(rc.Context(), "session commit failed", slog.String("error", err.Error()))
		}
	})
	return sess, nil
}

// IsAjax reports an XMLHttpRequest.
func (rc *RequestContext) IsAjax() bool {
	return rc.Header("X-Requested-With") == "XMLHttpRequest"
}

// IsPjax reports a pjax navigation request.
func (rc *RequestContext) IsPjax() bool {
	return rc.Header("X-Pjax") != ""
}

// ExpectsJSON reports whether the client wants a JSON response.
func (rc *RequestContext) ExpectsJSON() bool {
	return (rc.IsAjax() && !rc.IsPjax()) || strings.Contains(rc.Header("Accept"), "json")
}

// ClientIP returns the originating client address.
func (rc *RequestContext) ClientIP() string {
	return clientIP(rc.Request)
}

// clientIP honours X-Forwarded-For and X-Real-IP only when the peer is a
// loopback or private address, i.e. a proxy in front of the app.
func clientIP(r *http.Request) string {
	remote := remoteHost(r.RemoteAddr)
	if !trustedPeer(remote) {
		return remote
	}
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return remote
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}

func trustedPeer(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate()
}

// Body returns the raw request body. It is read once; the request body is
// replaced with a reader over the same bytes.
func (rc *RequestContext) Body() ([]byte, error) {
	if rc.bodyRead {
		return rc.body, rc.bodyErr
	}
	rc.bodyRead = true

	if rc.Request.Body == nil || rc.Request.Body == http.NoBody {
		return nil, nil
	}
	reader := http.MaxBytesReader(rc.Writer, rc.Request.Body, rc.app.maxBodySize)
	rc.body, rc.bodyErr = io.ReadAll(reader)
	_ = rc.Request.Body.Close()
	rc.Request.Body = io.NopCloser(bytes.NewReader(rc.body))
	if rc.bodyErr != nil {
		rc.bodyErr = ErrBadRequest("request body too large or unreadable", WithError(rc.bodyErr))
	}
	return rc.body, rc.bodyErr
}

// PostData returns the parsed body: a decoded JSON document, or a map of
// form fields (repeated fields and name[] fields become lists).
// Other content types yield an empty map.
func (rc *RequestContext) PostData() (any, error) {
	if rc.post != nil {
		return rc.post, nil
	}

	raw, err := rc.Body()
	if err != nil {
		return nil, err
	}

	post, err := parseBody(rc.Header("Content-Type"), raw, rc.app.maxBodySize)
	if err != nil {
		return nil, &BindingError{Source: "body", Reason: "malformed body", Err: err}
	}
	rc.post = post
	return post, nil
}

func parseBody(contentType string, raw []byte, maxMemory int64) (any, error) {
	empty := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return empty, nil
	}

	mediaType, params, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "application/json" || strings.HasSuffix(mediaType, "+json"):
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		if doc == nil {
			return empty, nil
		}
		return doc, nil
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(raw))
		if err != nil {
			return nil, err
		}
		return formMap(values), nil
	case mediaType == "multipart/form-data":
		form, err := multipart.NewReader(bytes.NewReader(raw), params["boundary"]).ReadForm(maxMemory)
		if err != nil {
			return nil, err
		}
		defer func() { _ = form.RemoveAll() }()
		return formMap(form.Value), nil
	default:
		return empty, nil
	}
}

func formMap(values url.Values) map[string]any {
	out := make(map[string]any, len(values))
	for key, vs := range values {
		name, isList := strings.CutSuffix(key, "[]")
		if !isList && len(vs) == 1 {
			out[name] = vs[0]
			continue
		}
		list := make([]any, len(vs))
		for i, v := range vs {
			list[i] = v
		}
		out[name] = list
	}
	return out
}

// Inputs returns query parameters merged with top-level body fields; body
// fields replace query parameters of the same name. Single values are
// strings, repeated or name[] values and lists of scalars are []string,
// and nested objects or arrays keep their decoded shape. Values are not
// sanitized.
func (rc *RequestContext) Inputs() (map[string]any, error) {
	if rc.inputs != nil {
		return rc.inputs, nil
	}

	query := url.Values{}
	lists := map[string]bool{}
	for key, vs := range rc.Request.URL.Query() {
		name, isList := strings.CutSuffix(key, "[]")
		query[name] = append(query[name], vs...)
		if isList {
			lists[name] = true
		}
	}

	merged := make(map[string]any, len(query))
	for name, vs := range query {
		if len(vs) == 1 && !lists[name] {
			merged[name] = vs[0]
			continue
		}
		merged[name] = vs
	}

	post, err := rc.PostData()
	if err != nil {
		return nil, err
	}
	if fields, ok := post.(map[string]any); ok {
		for name, v := range fields {
			merged[name] = inputValue(v)
		}
	}

	rc.inputs = merged
	return merged, nil
}

// inputValue flattens scalars and lists of scalars into strings. Anything
// else is kept as decoded.
func inputValue(v any) any {
	if s, ok := scalarString(v); ok {
		return s
	}
	list, ok := v.([]any)
	if !ok {
		return v
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := scalarString(item)
		if !ok {
			return v
		}
		out = append(out, s)
	}
	return out
}

func scalarString(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, true
	case bool:
		return strconv.FormatBool(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case nil:
		return "", true
	default:
		return "", false
	}
}

// Input returns a sanitized query or body value: a string for single
// values, a []string for lists of scalars, and a map[string]any or []any
// for nested values, sanitized at every depth. An empty list is absent.
func (rc *RequestContext) Input(name string) (any, bool, error) {
	inputs, err := rc.Inputs()
	if err != nil {
		return nil, false, err
	}
	v, ok := inputs[name]
	if !ok {
		return nil, false, nil
	}
	if vs, isList := v.([]string); isList && len(vs) == 0 {
		return nil, false, nil
	}
	return sanitizeInput(v, rc.app.sanitize), true, nil
}

func sanitizeInput(v any, clean func(string) string) any {
	switch val := v.(type) {
	case string:
		return clean(val)
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = clean(s)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeInput(item, clean)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = sanitizeInput(item, clean)
		}
		return out
	default:
		return v
	}
}

// Response helpers for middleware and handlers that build replies directly.

// JSON builds a JSON response.
func (rc *RequestContext) JSON(status int, v any) (*Response, error) {
	return JSON(status, v)
}

// Text builds a plain text response.
func (rc *RequestContext) Text(status int, s string) *Response {
	return Text(status, s)
}

// Error builds an HTTPError for the request.
func (rc *RequestContext) Error(status int, format string, args ...any) error {
	return NewHTTPError(status, fmt.Sprintf(format, args...))
}

// isClientGone reports whether err comes from an aborted client connection.
func isClientGone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed)
}
