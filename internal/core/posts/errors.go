package posts

import (
	"errors"
	"fmt"
)

// Sentinel errors for post operations
var (
	// ErrContentEmpty is returned when post content is blank
	ErrContentEmpty = errors.New("post content is required")

	// ErrContentTooLong is returned when content exceeds maxPostGraphemes
	ErrContentTooLong = errors.New("post content too long")

	// ErrInvalidDraft is returned when a mutation payload is not a post draft
	ErrInvalidDraft = errors.New("invalid post draft")

	// ErrScopeMismatch is returned when a draft names a different community
	// or project than the list it is created from
	ErrScopeMismatch = errors.New("post draft does not match the list scope")
)

// ValidationError represents a validation error with field context
type ValidationError struct {
	Err     error
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error (%s): %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UserMessage is the text shown in the failure notification
func (e *ValidationError) UserMessage() string {
	return e.Message
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string, err error) error {
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if error is a validation error
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
