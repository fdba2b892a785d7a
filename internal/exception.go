package internal

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/hero/pkg/envelope"
)

// ExceptionHandlerID is the registry identifier of a user-supplied
// exception handler.
const ExceptionHandlerID = "hero.ExceptionHandler"

// FallbackMessage is the body sent when the exception handler itself fails.
const FallbackMessage = "Oops, it seems something went wrong."

// ExceptionHandler turns a failed request into a response.
// Report is called before Render for every failure.
type ExceptionHandler interface {
	Report(err error)
	Render(rc *RequestContext, err error) (*Response, error)
}

// DefaultExceptionHandler logs server errors and renders the error message
// as JSON or plain text depending on what the client expects. Messages of
// unexpected errors are hidden unless the app runs in debug mode.
type DefaultExceptionHandler struct {
	Logger *slog.Logger `inject:""`
}

// Report logs 5xx failures at error level and the rest at debug level.
func (h *DefaultExceptionHandler) Report(err error) {
	logger := h.Logger
	if logger == nil {
		return
	}

	status := StatusOf(err)
	attrs := []any{slog.Int("status", status), slog.String("error", err.Error())}
	var pe *PanicError
	if errors.As(err, &pe) && len(pe.Stack) > 0 {
		attrs = append(attrs, slog.String("stack", string(pe.Stack)))
	}

	if status >= http.StatusInternalServerError {
		logger.Error("request failed", attrs...)
		return
	}
	logger.Debug("request rejected", attrs...)
}

// Render builds the error response.
func (h *DefaultExceptionHandler) Render(rc *RequestContext, err error) (*Response, error) {
	status := StatusOf(err)
	message := publicMessage(err, status, rc.Debug())

	if rc.ExpectsJSON() {
		var data any
		if he, ok := AsHTTPError(err); ok && (he.Detail != "" || he.ErrorCode != "") {
			data = map[string]string{"detail": he.Detail, "error_code": he.ErrorCode}
		}
		b, encErr := envelope.NewOne(status, message, data).ToJSON()
		if encErr != nil {
			return nil, encErr
		}
		return rawJSON(status, b), nil
	}
	return Text(status, message), nil
}

func publicMessage(err error, status int, debug bool) string {
	if he, ok := AsHTTPError(err); ok {
		return he.Message
	}
	var be *BindingError
	if errors.As(err, &be) || debug {
		return err.Error()
	}
	if status >= http.StatusInternalServerError {
		return FallbackMessage
	}
	return http.StatusText(status)
}

// contain runs the exception handler for err. Any failure inside it,
// including a panic, yields the fixed fallback response.
func (a *App) contain(rc *RequestContext, err error) (resp *Response) {
	defer func() {
		if p := recover(); p != nil {
			resp = a.fallback(err, &PanicError{Value: p})
		}
	}()

	handler, herr := a.exceptionHandler()
	if herr != nil {
		return a.fallback(err, herr)
	}

	handler.Report(err)
	resp, herr = handler.Render(rc, err)
	if herr != nil {
		return a.fallback(err, herr)
	}
	if resp == nil {
		return a.fallback(err, errors.New("exception handler returned no response"))
	}
	return resp
}

// exceptionHandler builds the handler registered under ExceptionHandlerID.
// When none is registered, or it is not an ExceptionHandler, the default
// handler is built instead.
func (a *App) exceptionHandler() (ExceptionHandler, error) {
	v, err := a.registry.Build(ExceptionHandlerID)
	var nf *NotFoundError
	switch {
	case err == nil:
		if h, ok := v.(ExceptionHandler); ok {
			return h, nil
		}
	case errors.As(err, &nf) && nf.ID == ExceptionHandlerID:
	default:
		return nil, err
	}

	v, err = a.registry.Build(TypeID[DefaultExceptionHandler]())
	if err != nil {
		return nil, err
	}
	h, ok := v.(ExceptionHandler)
	if !ok {
		return nil, &ConfigurationError{Subject: TypeOf(v), Reason: "not an exception handler"}
	}
	return h, nil
}

func (a *App) fallback(original, cause error) *Response {
	if a.debug {
		a.logger.Error("exception handler failed",
			slog.String("error", original.Error()),
			slog.String("cause", cause.Error()),
		)
	}
	return Text(http.StatusInternalServerError, FallbackMessage)
}
