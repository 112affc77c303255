package errors

import (
	"fmt"
)

// ErrorCode represents a specific error class for memory operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeStoreUnavailable indicates the relational store is entirely unreachable.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeCapabilityUnavailable indicates a classification/embedding/vector
	// capability call failed transiently. Background steps degrade on this code.
	ErrCodeCapabilityUnavailable ErrorCode = "CAPABILITY_UNAVAILABLE"
	// ErrCodeValidation indicates malformed capability output (missing field,
	// out-of-range confidence). Candidates carrying it are discarded, not retried.
	ErrCodeValidation ErrorCode = "VALIDATION_FAILED"
	// ErrCodeConsistency indicates a stored record whose shape predates
	// enriched fields. Treated as migrate-on-read.
	ErrCodeConsistency ErrorCode = "CONSISTENCY_WARNING"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// MemoryError represents a structured error for memory operations.
type MemoryError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *MemoryError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *MemoryError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *MemoryError) WithContext(key string, value interface{}) *MemoryError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *MemoryError) GetCode() ErrorCode {
	return e.Code
}

// Convenience constructors for common error types.

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *MemoryError {
	return &MemoryError{Code: ErrCodeInvalidArgument, Message: msg}
}

// StoreUnavailable creates a store unavailable error.
func StoreUnavailable(msg string, cause error) *MemoryError {
	return &MemoryError{Code: ErrCodeStoreUnavailable, Message: msg, Cause: cause}
}

// CapabilityUnavailable creates a transient capability error.
func CapabilityUnavailable(capability string, cause error) *MemoryError {
	return &MemoryError{
		Code:    ErrCodeCapabilityUnavailable,
		Message: fmt.Sprintf("capability unavailable: %s", capability),
		Cause:   cause,
	}
}

// Validation creates a validation error for malformed capability output.
func Validation(msg string) *MemoryError {
	return &MemoryError{Code: ErrCodeValidation, Message: msg}
}

// Consistency creates a consistency warning for legacy-shaped records.
func Consistency(msg string) *MemoryError {
	return &MemoryError{Code: ErrCodeConsistency, Message: msg}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *MemoryError {
	return &MemoryError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string) *MemoryError {
	return &MemoryError{Code: ErrCodeTimeout, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *MemoryError {
	return &MemoryError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error is of a specific code.
func IsCode(err error, code ErrorCode) bool {
	if memErr, ok := err.(*MemoryError); ok {
		return memErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a MemoryError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	if memErr, ok := err.(*MemoryError); ok {
		return memErr.Code
	}
	return defaultCode
}
