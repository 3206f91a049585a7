package client

import (
	"errors"
	"fmt"
	"time"
)

// ValidationError reports a caller-supplied argument that failed a pre-flight
// check. It is returned before any network call is made.
type ValidationError struct {
	Field   string
	Value   interface{}
	Allowed string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v (allowed: %s)", e.Field, e.Value, e.Allowed)
}

// APIError is any non-2xx response, from the service or from storage.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server replied %d: %s", e.StatusCode, e.Body)
}

// TransportError is a network-level failure, distinct from an HTTP error status.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// OperationError reports an operation that reached the failed status.
type OperationError struct {
	OperationID string
	Detail      string
}

func (e *OperationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("operation %s failed", e.OperationID)
	}
	return fmt.Sprintf("operation %s failed: %s", e.OperationID, e.Detail)
}

// TimeoutError reports a poll loop that exceeded its deadline before the
// operation reached a terminal status.
type TimeoutError struct {
	OperationID string
	Timeout     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("operation %s not terminated after %v", e.OperationID, e.Timeout)
}

type errTmpIf interface{ Temporary() bool }
type errTmp struct{ error }

func (t errTmp) Temporary() bool    { return true }
func (t *errTmp) Unwrap() error     { return t.error }
func MakeTemporary(err error) error { return &errTmp{err} }

// Temporary inspects the error trace and returns whether the error is
// transient. The library never retries on its own; this is for callers
// deciding whether a failed top-level call is worth reissuing.
func Temporary(err error) bool {
	var tmp errTmpIf
	if errors.As(err, &tmp) {
		return tmp.Temporary()
	}
	var terr *TransportError
	if errors.As(err, &terr) {
		return true
	}
	var aerr *APIError
	if errors.As(err, &aerr) {
		switch aerr.StatusCode {
		case 408, 429, 500, 502, 503, 504:
			return true
		}
	}
	return false
}
