package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
)

// Content types set by the response helpers.
const (
	ContentTypeJSON = "application/json"
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeText = "text/plain; charset=utf-8"
)

// Response is the value a handler or middleware produces. The coordinator
// writes it to the connection once the pipeline returns.
type Response struct {
	header http.Header
	file   string
	body   []byte
	status int
}

// NewResponse returns an empty 200 response.
func NewResponse() *Response {
	return &Response{status: http.StatusOK, header: make(http.Header)}
}

// Status returns the response status code.
func (r *Response) Status() int { return r.status }

// SetStatus sets the status code.
func (r *Response) SetStatus(code int) *Response {
	r.status = code
	return r
}

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.header }

// WithHeader sets a header.
func (r *Response) WithHeader(key, value string) *Response {
	r.header.Set(key, value)
	return r
}

// Body returns the response body. File responses have no body.
func (r *Response) Body() []byte { return r.body }

// SetBody replaces the body.
func (r *Response) SetBody(b []byte) *Response {
	r.body = b
	r.file = ""
	return r
}

// SetContent replaces the body with s.
func (r *Response) SetContent(s string) *Response {
	return r.SetBody([]byte(s))
}

// FilePath returns the file served by this response, if any.
func (r *Response) FilePath() string { return r.file }

// JSON encodes v as a JSON response.
func JSON(status int, v any) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode json response: %w", err)
	}
	return rawJSON(status, b), nil
}

func rawJSON(status int, b []byte) *Response {
	r := NewResponse().SetStatus(status).SetBody(b)
	r.header.Set("Content-Type", ContentTypeJSON)
	return r
}

// Text returns a plain text response.
func Text(status int, s string) *Response {
	r := NewResponse().SetStatus(status).SetContent(s)
	r.header.Set("Content-Type", ContentTypeText)
	return r
}

// HTML returns an HTML response.
func HTML(status int, s string) *Response {
	r := NewResponse().SetStatus(status).SetContent(s)
	r.header.Set("Content-Type", ContentTypeHTML)
	return r
}

// NoContent returns a response with a status and no body.
func NoContent(status int) *Response {
	return NewResponse().SetStatus(status)
}

// Redirect returns a redirect to url. Codes outside 3xx become 302.
func Redirect(url string, code int) *Response {
	if code < 300 || code > 399 {
		code = http.StatusFound
	}
	r := NewResponse().SetStatus(code)
	r.header.Set("Location", url)
	return r
}

// File serves the file at path. A request whose If-Modified-Since header
// equals the file's Last-Modified value gets 304.
func File(path string) *Response {
	r := NewResponse()
	r.file = path
	return r
}

// Download serves the file at path as an attachment named name.
// An empty name uses the file's base name.
func Download(path, name string) *Response {
	if name == "" {
		name = filepath.Base(path)
	}
	r := File(path)
	r.header.Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	return r
}

// toResponse converts a handler result into a Response.
func toResponse(v any) (*Response, error) {
	switch val := v.(type) {
	case nil:
		return NewResponse(), nil
	case *Response:
		return val, nil
	case Jsonable:
		b, err := val.ToJSON()
		if err != nil {
			return nil, fmt.Errorf("encode json response: %w", err)
		}
		return rawJSON(http.StatusOK, b), nil
	case json.RawMessage:
		return rawJSON(http.StatusOK, val), nil
	case string:
		return HTML(http.StatusOK, val), nil
	case []byte:
		r := NewResponse().SetBody(val)
		r.header.Set("Content-Type", ContentTypeHTML)
		return r, nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Text(http.StatusOK, fmt.Sprint(val)), nil
	default:
		return JSON(http.StatusOK, val)
	}
}

// write sends the response on w.
func (r *Response) write(w http.ResponseWriter, req *http.Request) error {
	if r.file != "" {
		return r.writeFile(w, req)
	}

	h := w.Header()
	for k, vs := range r.header {
		h[k] = vs
	}
	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(r.body) == 0 || req.Method == http.MethodHead {
		return nil
	}
	_, err := w.Write(r.body)
	return err
}

func (r *Response) writeFile(w http.ResponseWriter, req *http.Request) error {
	info, err := os.Stat(r.file)
	if err != nil {
		return ErrNotFound("", WithError(err))
	}
	if !info.Mode().IsRegular() {
		return ErrNotFound("", WithError(fmt.Errorf("%s is not a regular file", r.file)))
	}

	h := w.Header()
	for k, vs := range r.header {
		h[k] = vs
	}

	lastModified := info.ModTime().UTC().Format(http.TimeFormat)
	h.Set("Last-Modified", lastModified)
	if req.Header.Get("If-Modified-Since") == lastModified {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	if h.Get("Content-Type") == "" {
		h.Set("Content-Type", detectContentType(r.file))
	}
	h.Set("Content-Length", strconv.FormatInt(info.Size(), 10))

	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if req.Method == http.MethodHead {
		return nil
	}

	f, err := os.Open(r.file)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

// detectContentType guesses from the extension first, then from content.
func detectContentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	m, err := mimetype.DetectFile(path)
	if err != nil {
		return "application/octet-stream"
	}
	return m.String()
}
