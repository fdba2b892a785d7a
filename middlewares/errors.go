package middlewares

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/hero/internal"
)

// PanicError is what Recover and Timeout turn a handler panic into.
type PanicError = internal.PanicError

// TimeoutError is wrapped into the 503 returned by Timeout.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout after %s", e.Duration)
}

func find[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

func IsPanicError(err error) bool {
	_, ok := find[*PanicError](err)
	return ok
}

func IsTimeoutError(err error) bool {
	_, ok := find[*TimeoutError](err)
	return ok
}

// AsPanicError returns the first PanicError in err's chain.
func AsPanicError(err error) (*PanicError, bool) { return find[*PanicError](err) }

// AsTimeoutError returns the first TimeoutError in err's chain.
func AsTimeoutError(err error) (*TimeoutError, bool) { return find[*TimeoutError](err) }
