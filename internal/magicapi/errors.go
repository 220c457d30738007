// Package magicapi provides a client for the Magic-API management backend:
// session-authenticated HTTP access, resource-tree resolution, resource
// mutations, and the WebSocket console channel.
package magicapi

import (
	"errors"
	"fmt"
)

// Sentinel errors for failure classification.
// Use errors.Is(err, magicapi.ErrAuth) to check.
var (
	// ErrNetwork covers connection failures, timeouts, and transport-level
	// problems. Never retried automatically except the single auth retry.
	ErrNetwork = errors.New("magicapi: network error")

	// ErrAuth means login failed, or the token expired and re-login also
	// failed. The session enters the Failed state.
	ErrAuth = errors.New("magicapi: authentication failed")

	// ErrSessionFailed is returned by every call after the session has
	// entered the Failed state, until credentials are reset.
	ErrSessionFailed = errors.New("magicapi: session failed, reset credentials to continue")

	// ErrUnauthorized is the per-response classification of HTTP 401 or an
	// API-level unauthorized envelope. The session layer recovers from it
	// once; callers normally see ErrAuth instead.
	ErrUnauthorized = errors.New("magicapi: unauthorized")

	// ErrNotFound means path resolution produced zero matches. Reportable,
	// not fatal.
	ErrNotFound = errors.New("magicapi: no matching resource")

	// ErrAmbiguousMatch means a path resolved to several endpoints where the
	// caller required exactly one. Soft: the matches are still returned so
	// the caller can pick or report them.
	ErrAmbiguousMatch = errors.New("magicapi: multiple resources match")

	// ErrMalformedResponse means the backend returned non-JSON or an
	// envelope missing expected fields. Distinct from ErrNetwork.
	ErrMalformedResponse = errors.New("magicapi: malformed response")
)

// APIError wraps a sentinel error with the envelope code and message the
// backend returned, for debugging and errors.Is() checks.
type APIError struct {
	Code    int    // envelope code (1 = success, anything else is this error)
	Status  int    // HTTP status, 0 if the failure was API-level only
	Message string // envelope message or raw body excerpt
	Err     error  // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("magicapi: HTTP %d (code %d): %s", e.Status, e.Code, e.Message)
	}

	return fmt.Sprintf("magicapi: code %d: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// FilterError reports an invalid search pattern. Field names which input
// the malformed expression came from so the operator can fix the right flag.
type FilterError struct {
	Field string // "path", "name", "query", ...
	Err   error  // underlying regexp compile error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("magicapi: invalid %s pattern: %v", e.Field, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}
