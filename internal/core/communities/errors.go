package communities

import "errors"

// Domain errors for communities
var (
	// ErrCommunityNotFound is returned when no community has the requested name
	ErrCommunityNotFound = errors.New("community not found")

	// ErrInvalidName is returned for an empty or unusable community name
	ErrInvalidName = errors.New("invalid community name")
)
