// Package errors provides error types and handling for mcpbox.
// It includes custom error types with HTTP status codes and error codes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with an associated HTTP status code.
type AppError struct {
	// Code is an error code string for programmatic handling
	Code string
	// Message is a user-friendly error message
	Message string
	// StatusCode is the HTTP status code to return
	StatusCode int
	// Cause is the underlying error (for error wrapping)
	Cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is allows errors.Is to work with AppError.
func (e *AppError) Is(target error) bool {
	if t, ok := target.(*AppError); ok {
		return e.Code != "" && e.Code == t.Code
	}
	return false
}

// Predefined error codes.
const (
	// Client error codes.
	ErrCodeValidation        = "VALIDATION_ERROR"
	ErrCodeInvalidCredential = "INVALID_CREDENTIAL"
	ErrCodeSequence          = "SEQUENCE_ERROR"
	ErrCodeWorkflowBusy      = "WORKFLOW_BUSY"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"

	// Server error codes.
	ErrCodeExternalUnavailable = "EXTERNAL_UNAVAILABLE"
	ErrCodePartialCompletion   = "PARTIAL_COMPLETION"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeDatabaseError       = "DATABASE_ERROR"
)

// NewClientError creates a new client error (4xx status codes).
func NewClientError(statusCode int, code, message string, cause error) *AppError {
	if statusCode < 400 || statusCode >= 500 {
		panic(fmt.Sprintf("NewClientError called with non-client status code: %d", statusCode))
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// NewServerError creates a new server error (5xx status codes).
func NewServerError(statusCode int, code, message string, cause error) *AppError {
	if statusCode < 500 || statusCode >= 600 {
		panic(fmt.Sprintf("NewServerError called with non-server status code: %d", statusCode))
	}
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// Convenience constructors for common errors

// ErrValidation creates a validation error (400). Validation errors are
// rejected before any external call and are never retried.
func ErrValidation(message string, cause error) *AppError {
	return NewClientError(http.StatusBadRequest, ErrCodeValidation, message, cause)
}

// ErrInvalidCredential creates an invalid credential error (401).
func ErrInvalidCredential(message string, cause error) *AppError {
	return NewClientError(http.StatusUnauthorized, ErrCodeInvalidCredential, message, cause)
}

// ErrSequence creates a step ordering error (409). A sequence error
// indicates the client requested a step ahead of the recorded progress.
func ErrSequence(message string, cause error) *AppError {
	return NewClientError(http.StatusConflict, ErrCodeSequence, message, cause)
}

// ErrWorkflowBusy creates a busy error (409) for an installation whose
// workflow lock is held by a concurrent step execution.
func ErrWorkflowBusy(installationID string) *AppError {
	return NewClientError(http.StatusConflict, ErrCodeWorkflowBusy,
		"a provisioning operation is already running for installation "+installationID, nil)
}

// ErrNotFound creates a not found error (404).
func ErrNotFound(message string, cause error) *AppError {
	return NewClientError(http.StatusNotFound, ErrCodeNotFound, message, cause)
}

// ErrConflict creates a conflict error (409).
func ErrConflict(message string, cause error) *AppError {
	return NewClientError(http.StatusConflict, ErrCodeConflict, message, cause)
}

// ErrExternalUnavailable creates a transient external failure error (502).
// Steps are idempotent, so these are safe to retry.
func ErrExternalUnavailable(message string, cause error) *AppError {
	return NewServerError(http.StatusBadGateway, ErrCodeExternalUnavailable, message, cause)
}

// ErrPartialCompletion creates an error for a multi-phase step that
// failed after its first phase succeeded (502). The config records the
// phase-1 success, so a retry resumes at phase 2.
func ErrPartialCompletion(message string, cause error) *AppError {
	return NewServerError(http.StatusBadGateway, ErrCodePartialCompletion, message, cause)
}

// ErrInternalError creates an internal server error (500).
func ErrInternalError(message string, cause error) *AppError {
	return NewServerError(http.StatusInternalServerError, ErrCodeInternalError, message, cause)
}

// ErrDatabaseError creates a database error (503 Service Unavailable).
// Database failures are typically transient issues.
func ErrDatabaseError(message string, cause error) *AppError {
	return NewServerError(http.StatusServiceUnavailable, ErrCodeDatabaseError, message, cause)
}

// GetStatusCode extracts the HTTP status code from an error.
// Returns 500 if the error is not an AppError.
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}

// GetErrorCode extracts the error code from an error.
// Returns empty string if the error is not an AppError.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetErrorMessage extracts a user-friendly message from an error.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

// GetErrorDetails extracts detailed error information including the underlying cause.
// Returns the underlying error message if available, otherwise returns the main error message.
func GetErrorDetails(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Cause != nil {
			return appErr.Cause.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
