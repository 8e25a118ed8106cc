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

	// Commit engine errors.
	ErrValidation        = errors.New("candidate validation failed")
	ErrMessageNotPending = errors.New("message is not pending")
	// ErrMessageNotDiscarded guards restore: only discarded messages come
	// back to pending. Processed is terminal.
	ErrMessageNotDiscarded = errors.New("message is not discarded")
	ErrCommitInFlight      = errors.New("commit already in flight for message")
	// ErrStatusInconsistency marks the sharp edge where a permanent record
	// was written but the source message could not be marked processed. The
	// record exists; the queue will re-show the message.
	ErrStatusInconsistency = errors.New("record written but message status update failed")

	// Refinement errors.
	ErrRefinerUnavailable = errors.New("refiner unavailable")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the reviewer. Every
// failed mutating action wraps its cause in one of these, naming the action.
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

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
