package internal_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/hero/internal"
)

func TestAsHTTPError(t *testing.T) {
	t.Parallel()

	t.Run("wrapped HTTPError", func(t *testing.T) {
		t.Parallel()

		httpErr := internal.ErrBadRequest("bad request", internal.WithErrorCode("E1"))
		err := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", httpErr))

		got, ok := internal.AsHTTPError(err)
		require.True(t, ok)
		require.Same(t, httpErr, got)
		require.Equal(t, "E1", got.ErrorCode)
	})

	t.Run("unrelated error", func(t *testing.T) {
		t.Parallel()

		_, ok := internal.AsHTTPError(errors.New("x"))
		require.False(t, ok)
	})

	t.Run("empty message defaults to status text", func(t *testing.T) {
		t.Parallel()

		err := internal.NewHTTPError(http.StatusTooManyRequests, "")
		require.Equal(t, "Too Many Requests", err.Error())
		require.Equal(t, http.StatusTooManyRequests, err.StatusCode())
	})

	t.Run("underlying error is unwrapped", func(t *testing.T) {
		t.Parallel()

		cause := errors.New("db down")
		err := internal.ErrServiceUnavailable("try later", internal.WithError(cause), internal.WithDetail("d"))
		require.ErrorIs(t, err, cause)
		require.Equal(t, "d", err.Detail)
	})
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusNotFound, internal.StatusOf(internal.ErrNotFound("x")))
	require.Equal(t, http.StatusBadRequest, internal.StatusOf(&internal.BindingError{Source: "path", Name: "id"}))
	require.Equal(t, http.StatusInternalServerError, internal.StatusOf(errors.New("boom")))
	require.Equal(t, http.StatusInternalServerError, internal.StatusOf(&internal.PanicError{Value: "x"}))
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	require.Equal(t, "cyclic dependency: a -> b -> a",
		(&internal.CyclicDependencyError{Chain: []string{"a", "b", "a"}}).Error())
	require.Equal(t, "middleware not found: auth",
		(&internal.NotFoundError{Kind: "middleware", ID: "auth"}).Error())

	cause := errors.New("boom")
	pe := &internal.PanicError{Value: cause}
	require.ErrorIs(t, pe, cause)
	require.Equal(t, "panic: boom", pe.Error())

	ce := &internal.ConfigurationError{Subject: "X.Y", Reason: "bad", Err: cause}
	require.ErrorIs(t, ce, cause)
}
