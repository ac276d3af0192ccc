package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// Typed errors for backend responses.
// These allow callers to use errors.Is() instead of inspecting status codes.
var (
	// ErrBadRequest indicates the request was malformed or invalid (HTTP 400).
	ErrBadRequest = errors.New("bad request")

	// ErrUnauthorized indicates the session cookie is missing or expired (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the viewer does not own the resource (HTTP 403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested resource does not exist (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the write conflicts with current state (HTTP 409).
	ErrConflict = errors.New("conflict")

	// ErrRateLimited indicates the backend throttled the request (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrServer indicates the backend failed to process the request (HTTP 5xx).
	ErrServer = errors.New("server error")

	// ErrMalformedResponse indicates a 2xx response whose body could not be decoded
	ErrMalformedResponse = errors.New("malformed response")
)

// APIError is returned for every non-2xx response. Message carries the
// human-readable "error" field of the response envelope.
type APIError struct {
	Method     string
	Path       string
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap maps the status code onto one of the package sentinels
func (e *APIError) Unwrap() error {
	return sentinelFor(e.StatusCode)
}

// UserMessage is the text shown to the viewer in an error notification
func (e *APIError) UserMessage() string {
	return e.Message
}

func sentinelFor(status int) error {
	switch {
	case status == http.StatusBadRequest:
		return ErrBadRequest
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrServer
	}
	return nil
}

// IsAuthError returns true if logging in again might help
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsAPIError checks if err is or wraps an APIError
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}
