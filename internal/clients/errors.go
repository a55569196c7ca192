package clients

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all upstream clients.
var (
	// ErrUnauthorized marks a 401-class platform response. Callers clear
	// the session and send the funnel back to the Identity step.
	ErrUnauthorized = errors.New("platform rejected the access token")

	// ErrLookupNotFound is the recognized "no such record" outcome of the
	// UAVT and old-policy lookups. It falls back to manual entry, it is
	// never a hard failure.
	ErrLookupNotFound = errors.New("lookup target not found")
)

// RequestError is a non-2xx platform response or an undecodable body.
// Message carries the first structured message the platform returned,
// else a generic fallback.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("platform request failed (%d): %s", e.StatusCode, e.Message)
}

// LookupMismatchError means transport succeeded but the lookup response is
// semantically incomplete. It is treated as a failed lookup, never partial
// success.
type LookupMismatchError struct {
	Missing string
}

func (e *LookupMismatchError) Error() string {
	return fmt.Sprintf("lookup response missing %s", e.Missing)
}

// IsAuthError reports whether err is the 401-class sentinel.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
