package repositories

import "fmt"

// ErrorCode enumerates the failure categories surfaced to services.
type ErrorCode string

const (
	// ErrorUnknown represents an unspecified persistence failure.
	ErrorUnknown ErrorCode = "store_unknown"
	// ErrorNotFound indicates the requested row does not exist.
	ErrorNotFound ErrorCode = "store_not_found"
	// ErrorConflict indicates a uniqueness or invariant violation.
	ErrorConflict ErrorCode = "store_conflict"
	// ErrorUnavailable indicates the backing store could not be reached.
	ErrorUnavailable ErrorCode = "store_unavailable"
)

// StoreError is the concrete RepositoryError implementation shared by all stores.
type StoreError struct {
	Op      string
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotFound reports whether the error categorises as a missing row.
func (e *StoreError) IsNotFound() bool { return e != nil && e.Code == ErrorNotFound }

// IsConflict reports whether the error categorises as a constraint violation.
func (e *StoreError) IsConflict() bool { return e != nil && e.Code == ErrorConflict }

// IsUnavailable reports whether the error categorises as a transport failure.
func (e *StoreError) IsUnavailable() bool { return e != nil && e.Code == ErrorUnavailable }

// NewStoreError constructs a categorised store error.
func NewStoreError(op string, code ErrorCode, message string, err error) *StoreError {
	if message == "" {
		message = string(code)
	}
	return &StoreError{Op: op, Code: code, Message: message, Err: err}
}
