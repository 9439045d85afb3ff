package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/FACorreiaa/go-worldwise/internal/types"
)

// TransportError reports a request that never produced a usable response:
// connection failures, timeouts, cancelled contexts, unreadable bodies.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: transport: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a non-2xx response. Message carries the server's
// error text when the body had one.
type StatusError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: unexpected status %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Op, e.StatusCode, e.Message)
}

// Is lets callers match 404 and 400 responses against the domain errors.
func (e *StatusError) Is(target error) bool {
	switch target {
	case types.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case types.ErrBadRequest:
		return e.StatusCode == http.StatusBadRequest
	}
	return false
}

// DecodeError reports a 2xx response whose body is not a valid city payload.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// IsDecodeError reports whether err is or wraps a *DecodeError.
func IsDecodeError(err error) bool {
	var de *DecodeError
	return errors.As(err, &de)
}
