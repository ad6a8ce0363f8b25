package remote

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// StatusError is a non-2xx response from the remote store.
type StatusError struct {
	// Op names the client operation, e.g. "submit answers".
	Op string

	// Code is the HTTP status code.
	Code int

	// Body is a truncated copy of the response body, for diagnostics.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Code, e.Body)
	}
	return fmt.Sprintf("%s: status %d", e.Op, e.Code)
}

// ShapeError is a response that decoded but did not have the expected shape.
type ShapeError struct {
	Op      string
	Message string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %s", e.Op, e.Message)
}

// IsAuthFailure reports whether err is a 401/403-class failure.
// Uses errors.As to handle wrapped errors.
func IsAuthFailure(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusUnauthorized || se.Code == http.StatusForbidden
	}
	return false
}

// IsShapeError reports whether err is a data-shape failure.
func IsShapeError(err error) bool {
	var se *ShapeError
	return errors.As(err, &se)
}

// IsTransient reports whether a retry later could succeed: 5xx, 408, 429,
// timeouts and network errors.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests || se.Code == http.StatusRequestTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne)
}
