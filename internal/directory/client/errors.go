package client

import (
	"errors"
	"fmt"
)

// Category is the normalized failure taxonomy for directory calls.
type Category string

const (
	CategoryTimeout        Category = "timeout"
	CategoryBadData        Category = "bad_data"
	CategoryAuthentication Category = "authentication"
	CategoryOutage         Category = "provider_outage"
	CategoryNotFound       Category = "not_found"
	CategoryRateLimited    Category = "rate_limited"
	CategoryInternal       Category = "internal"
)

// Error wraps a directory failure with its category.
type Error struct {
	Category   Category
	Operation  string
	Status     int
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("directory %s [%s]: %s: %v", e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("directory %s [%s]: %s", e.Operation, e.Category, e.Message)
}

func (e *Error) Unwrap() error { return e.Underlying }

func newError(category Category, op, msg string, status int, underlying error) *Error {
	return &Error{
		Category:   category,
		Operation:  op,
		Status:     status,
		Message:    msg,
		Underlying: underlying,
		Retryable:  category == CategoryTimeout || category == CategoryOutage || category == CategoryRateLimited,
	}
}

// IsRetryable reports whether a caller-initiated retry may succeed.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable
	}
	return false
}

// GetCategory extracts the category, defaulting to internal.
func GetCategory(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryInternal
}
