// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Classification errors.
	ErrNoIdentifierFound = errors.New("no identifier found")
	ErrUnparsableAmount  = errors.New("unparsable amount")
	ErrUnknownActionType = errors.New("unknown action type")

	// Scraper errors.
	ErrFetchFailed = errors.New("fetch failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// IsRetryable reports whether a later attempt may succeed where err failed.
// An explicit Permanent or RetryAfter mark takes precedence over the
// sentinel checks.
func IsRetryable(err error) bool {
	var re *RetryableError
	if errors.As(err, &re) {
		return re.Retryable
	}

	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrFetchFailed) ||
		errors.Is(err, ErrMaxRetries) ||
		errors.Is(err, context.DeadlineExceeded)
}
