package services

import (
	"errors"
	"fmt"
	"net/http"
)

// ===============================
// ERROR TYPES
// ===============================

// ServiceError is the structured error carried across the service boundary.
// StatusCode separates "your payload was invalid" (4xx, do not retry) from
// "try again" (5xx, retry-worthy), the contract the calling CI system's
// retry logic depends on.
type ServiceError struct {
	Type       string                 `json:"type"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Retryable  bool                   `json:"retryable"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// GetStatusCode returns the HTTP status code for this error.
func (e *ServiceError) GetStatusCode() int {
	if e.StatusCode > 0 {
		return e.StatusCode
	}
	return http.StatusInternalServerError
}

// WithDetail attaches one detail entry and returns the error for chaining.
func (e *ServiceError) WithDetail(key string, value interface{}) *ServiceError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ===============================
// ERROR CONSTRUCTORS
// ===============================

// NewMalformedPayloadError reports an input that violates the submission
// contract: not an object or list, missing passed field, non-list checks.
// Never retry-worthy.
func NewMalformedPayloadError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "MALFORMED_PAYLOAD",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewValidationError reports a request that failed field validation.
func NewValidationError(message string, cause error) *ServiceError {
	return &ServiceError{
		Type:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Cause:      cause,
	}
}

// NewDuplicateSubmissionError reports a workflow run id collision.
func NewDuplicateSubmissionError(runID string) *ServiceError {
	e := &ServiceError{
		Type:       "DUPLICATE_SUBMISSION",
		Message:    "workflow run already recorded",
		Code:       "DUPLICATE_RUN",
		StatusCode: http.StatusConflict,
	}
	return e.WithDetail("workflow_run_id", runID)
}

// NewBadgeResolutionError reports a failure resolving one badge reference.
// These are isolated per reference and logged, never surfaced as a failed
// submission.
func NewBadgeResolutionError(badgeName string, cause error) *ServiceError {
	e := &ServiceError{
		Type:       "BADGE_RESOLUTION_ERROR",
		Message:    "failed to resolve badge reference",
		StatusCode: http.StatusUnprocessableEntity,
		Cause:      cause,
	}
	return e.WithDetail("badge_name", badgeName)
}

// NewStoreUnavailableError reports a transient persistence failure. The
// webhook sender is expected to retry the whole delivery.
func NewStoreUnavailableError(cause error) *ServiceError {
	return &ServiceError{
		Type:       "STORE_UNAVAILABLE",
		Message:    "persistent store temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
		Retryable:  true,
		Cause:      cause,
	}
}

// NewNotFoundError creates a not found error.
func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Type:       "NOT_FOUND",
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// NewConflictError creates a conflict error.
func NewConflictError(message, code string) *ServiceError {
	return &ServiceError{
		Type:       "CONFLICT",
		Message:    message,
		Code:       code,
		StatusCode: http.StatusConflict,
	}
}

// NewUnauthorizedError creates an unauthorized error.
func NewUnauthorizedError(message string) *ServiceError {
	return &ServiceError{
		Type:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewInternalError creates an internal server error.
func NewInternalError(message string) *ServiceError {
	return &ServiceError{
		Type:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// ===============================
// ERROR UTILITIES
// ===============================

// GetServiceError extracts a ServiceError from err, or wraps it in a
// generic internal error.
func GetServiceError(err error) *ServiceError {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}
	return NewInternalError(err.Error())
}

// IsErrorType checks whether err carries a specific error type.
func IsErrorType(err error, errorType string) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Type == errorType
	}
	return false
}

// IsNotFoundError checks whether err is a not found error.
func IsNotFoundError(err error) bool {
	return IsErrorType(err, "NOT_FOUND")
}

// IsMalformedPayloadError checks whether err is a malformed payload error.
func IsMalformedPayloadError(err error) bool {
	return IsErrorType(err, "MALFORMED_PAYLOAD")
}

// IsRetryable reports whether the caller should resubmit the delivery.
func IsRetryable(err error) bool {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Retryable
	}
	return false
}
