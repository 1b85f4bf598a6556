// Package errors provides the standardized error taxonomy for the catalog service.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeStorageFailed      ErrorCode = "STORAGE_FAILED"
	ErrCodeQueryTimeout       ErrorCode = "QUERY_TIMEOUT"
	ErrCodeIndexFailed        ErrorCode = "INDEX_FAILED"
	ErrCodeProvisioningFailed ErrorCode = "PROVISIONING_FAILED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error. Details and Err are
// for logs only and are never written to clients on server-side failures.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Err       error                  `json:"-"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.Err
}

// Is matches any StandardError carrying the same code, so callers can write
// errors.Is(err, errors.NotFound).
func (e *StandardError) Is(target error) bool {
	t, ok := target.(*StandardError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Code-only sentinels for errors.Is comparisons.
var (
	Validation   = &StandardError{Code: ErrCodeValidationFailed}
	NotFound     = &StandardError{Code: ErrCodeNotFound}
	Storage      = &StandardError{Code: ErrCodeStorageFailed}
	Timeout      = &StandardError{Code: ErrCodeQueryTimeout}
	Index        = &StandardError{Code: ErrCodeIndexFailed}
	Provisioning = &StandardError{Code: ErrCodeProvisioningFailed}
)

// ==========================
// 2. Error Constructors
// ==========================

// NewValidationError creates a non-retryable client input error.
func NewValidationError(field, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Invalid request parameters",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"field": field},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotFoundError creates a non-retryable missing entity error.
func NewNotFoundError(entity string, id interface{}) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("%s not found", entity),
		Details:   fmt.Sprintf("id: %v", id),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStorageError creates a retryable relational store error.
func NewStorageError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStorageFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// NewQueryTimeoutError creates a retryable relational timeout error.
func NewQueryTimeoutError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// NewIndexError creates a retryable search index error.
func NewIndexError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexFailed,
		Message:   "Search index error",
		Details:   fmt.Sprintf("operation: %s, error: %v", operation, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// NewProvisioningError creates a provisioning error. These are logged, never fatal.
func NewProvisioningError(step string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProvisioningFailed,
		Message:   "Search index provisioning failed",
		Details:   fmt.Sprintf("step: %s, error: %v", step, err),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// ==========================
// 3. Classification
// ==========================

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Err:       err,
	}
}

// HTTPStatus maps an error code to the status code returned to clients.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeQueryTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeIndexFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether the code describes a caller mistake.
func IsClientError(code ErrorCode) bool {
	return HTTPStatus(code) < http.StatusInternalServerError
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeValidationFailed, ErrCodeNotFound:
		return "CLIENT"
	case ErrCodeStorageFailed, ErrCodeQueryTimeout:
		return "STORAGE"
	case ErrCodeIndexFailed, ErrCodeProvisioningFailed:
		return "SEARCH_INDEX"
	default:
		return "INTERNAL"
	}
}
