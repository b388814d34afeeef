package errors

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. Every core operation fails with exactly one of these in its chain.
var (
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("not found")
	ErrAlreadyUsed      = errors.New("already used")
	ErrRateLimited      = errors.New("rate limited")
	ErrExpired          = errors.New("expired")
	ErrAttemptsExceeded = errors.New("attempts exceeded")
	ErrMismatch         = errors.New("mismatch")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrUnavailable      = errors.New("unavailable")
)

var kinds = []error{
	ErrValidation,
	ErrNotFound,
	ErrAlreadyUsed,
	ErrRateLimited,
	ErrExpired,
	ErrAttemptsExceeded,
	ErrMismatch,
	ErrUnauthorized,
	ErrUnavailable,
}

// Error pairs a kind with a message that is safe to show to callers.
// The underlying cause is kept for logs and errors.Is/As but never printed by Error().
type Error struct {
	Kind    error
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.cause}
}

// Cause returns the internal error, if any.
func (e *Error) Cause() error {
	return e.cause
}

// New returns an error of the given kind with a caller-safe message.
func New(kind error, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an error of the given kind that retains cause for logging.
func Wrap(kind error, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// RateLimitError is returned when a rolling window has been exhausted.
type RateLimitError struct {
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return "too many requests, please try again later"
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// KindOf returns the kind sentinel found in err's chain, or nil.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
