// Package joyerr defines error types that are shared between pulljoy
// packages.
package joyerr

import (
	"fmt"
	"time"
)

type RetryableError struct {
	// Err is the wrapped original error
	Err error
	// After is the earliest point in time that the operation can be retried
	After time.Time
}

func NewRetryableError(originalErr error, retryAfter time.Time) *RetryableError {
	return &RetryableError{
		Err:   originalErr,
		After: retryAfter,
	}
}

func NewRetryableAnytimeError(originalErr error) *RetryableError {
	return &RetryableError{
		Err: originalErr,
	}
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

func (e *RetryableError) Error() string {
	if e.After.IsZero() {
		return fmt.Sprintf("retryable error: %s", e.Err)
	}

	return fmt.Sprintf("retryable error (after %s): %s", e.After, e.Err)
}

// BugError represents an internal consistency violation, e.g. a persisted
// workflow state outside the known set.
// It indicates a programming error, not a condition a user can correct.
type BugError struct {
	Detail string
}

func NewBugError(format string, args ...any) *BugError {
	return &BugError{Detail: fmt.Sprintf(format, args...)}
}

func (e *BugError) Error() string {
	return fmt.Sprintf("BUG: %s", e.Detail)
}
