// Package sources holds what the upstream transports share.
package sources

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/mozilla-frontend-infra/codetribute/internal/core/task"
)

// TransportError is a network, HTTP or API-level failure talking to an
// upstream. It aborts the current fetch for that source only.
type TransportError struct {
	Source     task.Source
	Op         string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: http %d: %v", e.Source, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Source, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether retrying the same request may succeed.
func (e *TransportError) Temporary() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// IsTransportError reports whether err wraps a *TransportError and returns it.
func IsTransportError(err error) (*TransportError, bool) {
	var te *TransportError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
