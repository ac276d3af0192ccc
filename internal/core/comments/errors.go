package comments

import (
	"errors"
	"fmt"
)

var (
	// ErrContentEmpty is returned when comment text is blank
	ErrContentEmpty = errors.New("comment text is required")

	// ErrContentTooLong is returned when text exceeds maxCommentGraphemes
	ErrContentTooLong = errors.New("comment text too long")

	// ErrInvalidDraft is returned when a mutation payload is not a comment draft
	ErrInvalidDraft = errors.New("invalid comment draft")

	// ErrPostRequired is returned when a service is built without a post
	ErrPostRequired = errors.New("comments require a post ID")

	// ErrLikesUnsupported is returned by ToggleCounter; comments cannot be liked
	ErrLikesUnsupported = errors.New("comments cannot be liked")
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

// IsValidationError checks if error is a validation error
func IsValidationError(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}
