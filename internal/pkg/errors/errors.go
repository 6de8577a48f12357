package errors

import (
	"fmt"
	"net/http"
)

// AppError represents an application error with additional context
type AppError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	StatusCode int         `json:"-"`
	Internal   error       `json:"-"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Internal)
	}
	return e.Message
}

// Unwrap returns the internal error for errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.Internal
}

// Common error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeBadRequest         = "BAD_REQUEST"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeDatabase           = "DATABASE_ERROR"
	ErrCodeNormalization      = "NORMALIZATION_ERROR"
	ErrCodeSnapshotMalformed  = "SNAPSHOT_MALFORMED"
	ErrCodeCatalogUnavailable = "CATALOG_UNAVAILABLE"
	ErrCodeProviderAuth       = "PROVIDER_AUTH_ERROR"
	ErrCodeProviderAPI        = "PROVIDER_API_ERROR"
	ErrCodeRateLimited        = "RATE_LIMITED"
)

// New creates a new AppError
func New(code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
	}
}

// Wrap wraps an error with an AppError
func Wrap(err error, code, message string, statusCode int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Internal:   err,
	}
}

// WithDetails adds details to an AppError
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// Common error constructors

// Internal creates an internal server error
func Internal(message string, err error) *AppError {
	return Wrap(err, ErrCodeInternal, message, http.StatusInternalServerError)
}

// BadRequest creates a bad request error
func BadRequest(message string) *AppError {
	return New(ErrCodeBadRequest, message, http.StatusBadRequest)
}

// NotFound creates a not found error
func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

// ValidationError creates a validation error
func ValidationError(message string, details interface{}) *AppError {
	return New(ErrCodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

// DatabaseError creates a database error
func DatabaseError(message string, err error) *AppError {
	return Wrap(err, ErrCodeDatabase, message, http.StatusInternalServerError)
}

// NormalizationError creates a per-record normalization failure. These are
// recovered locally: the record is dropped and processing continues.
func NormalizationError(message string, err error) *AppError {
	return Wrap(err, ErrCodeNormalization, message, http.StatusUnprocessableEntity)
}

// SnapshotMalformed marks a previous snapshot that cannot be loaded for delta
// computation. This is a hard failure: an empty delta would misread as
// "no change".
func SnapshotMalformed(message string, err error) *AppError {
	return Wrap(err, ErrCodeSnapshotMalformed, message, http.StatusInternalServerError)
}

// CatalogUnavailable marks a baseline catalog that could not be loaded.
func CatalogUnavailable(message string, err error) *AppError {
	return Wrap(err, ErrCodeCatalogUnavailable, message, http.StatusServiceUnavailable)
}

// ProviderAuthError creates a provider authentication error
func ProviderAuthError(provider string, err error) *AppError {
	return Wrap(err, ErrCodeProviderAuth,
		fmt.Sprintf("Failed to authenticate with %s", provider),
		http.StatusUnauthorized)
}

// ProviderAPIError creates a provider API error
func ProviderAPIError(provider string, err error) *AppError {
	return Wrap(err, ErrCodeProviderAPI,
		fmt.Sprintf("Failed to communicate with %s API", provider),
		http.StatusBadGateway)
}

// RateLimited creates a rate limited error
func RateLimited(message string) *AppError {
	return New(ErrCodeRateLimited, message, http.StatusTooManyRequests)
}
