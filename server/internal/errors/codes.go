package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type for chat pipeline operations.
type ErrorCode string

const (
	// ErrCodeUnauthorized indicates the caller is not the session owner.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeNotFound indicates the requested session does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeLLMUnavailable indicates the completion service failed or is unreachable.
	ErrCodeLLMUnavailable ErrorCode = "LLM_UNAVAILABLE"
	// ErrCodeExtractionMalformed indicates the structured extraction could not be decoded.
	ErrCodeExtractionMalformed ErrorCode = "EXTRACTION_MALFORMED"
	// ErrCodeStoreFailure indicates a persistence read or write failed.
	ErrCodeStoreFailure ErrorCode = "STORE_FAILURE"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// TherapyError represents a structured error for pipeline operations.
type TherapyError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *TherapyError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TherapyError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for common error types.

// Unauthorized creates an unauthorized error.
func Unauthorized(msg string) *TherapyError {
	return &TherapyError{Code: ErrCodeUnauthorized, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *TherapyError {
	return &TherapyError{Code: ErrCodeNotFound, Message: msg}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *TherapyError {
	return &TherapyError{Code: ErrCodeInvalidArgument, Message: msg}
}

// LLMUnavailable creates an LLM unavailable error.
func LLMUnavailable(msg string, cause error) *TherapyError {
	return &TherapyError{Code: ErrCodeLLMUnavailable, Message: msg, Cause: cause}
}

// StoreFailure creates a persistence failure error.
func StoreFailure(msg string, cause error) *TherapyError {
	return &TherapyError{Code: ErrCodeStoreFailure, Message: msg, Cause: cause}
}

// Timeout creates a timeout error.
func Timeout(msg string) *TherapyError {
	return &TherapyError{Code: ErrCodeTimeout, Message: msg}
}

// Wrap wraps an existing error with a code and message.
func Wrap(cause error, code ErrorCode, msg string) *TherapyError {
	return &TherapyError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error carries a specific code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	var te *TherapyError
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// CodeOf extracts the error code from any error.
// Returns the provided default code if the error is not a TherapyError.
func CodeOf(err error, defaultCode ErrorCode) ErrorCode {
	var te *TherapyError
	if errors.As(err, &te) {
		return te.Code
	}
	return defaultCode
}
