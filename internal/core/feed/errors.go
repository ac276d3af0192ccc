package feed

import (
	"errors"
	"fmt"
)

var (
	// ErrScopeUnresolved is returned when a fetch is attempted before the
	// hosting view has finalised the scope. It guards programming mistakes
	// and is not shown to users.
	ErrScopeUnresolved = errors.New("feed scope not resolved")

	// ErrInvalidScope is returned for a scope missing its identifier
	ErrInvalidScope = errors.New("invalid feed scope")

	// ErrClosed is returned by operations on a feed whose view was unmounted
	ErrClosed = errors.New("feed closed")

	// ErrItemNotFound is returned when a mutation targets an ID not in the list
	ErrItemNotFound = errors.New("item not in feed")

	// ErrItemDeleted is returned when a mutation targets a tombstoned item
	ErrItemDeleted = errors.New("item already deleted")

	// ErrCounterUnsupported is returned by ToggleCounter for item types
	// that carry no counter
	ErrCounterUnsupported = errors.New("item has no counter")
)

// NetworkError records a failed request against the backend: either the
// request could not be made or the server answered with a non-2xx status.
type NetworkError struct {
	Err error
	Op  string
	URL string
}

func (e *NetworkError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError checks if err is or wraps a NetworkError
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// userMessager is implemented by errors that carry a human-readable message
// from the server.
type userMessager interface {
	UserMessage() string
}

// UserMessage extracts the message to show in a notification
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var um userMessager
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
