// Package domain defines the core domain models for SkillGate.
package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a business domain error with a structured error code.
// Code is the machine-readable value written to the "code" field of every
// rejection body.
type DomainError struct {
	Code    string // Error code (e.g., "TOKEN_EXPIRED")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// Wire-visible error codes.
const (
	CodeInvalidTokenFormat  = "INVALID_TOKEN_FORMAT"
	CodeTokenNotFound       = "TOKEN_NOT_FOUND"
	CodeTokenRevoked        = "TOKEN_REVOKED"
	CodeTokenExpired        = "TOKEN_EXPIRED"
	CodeRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	CodeBackendUnavailable  = "BACKEND_UNAVAILABLE"
	CodeInternalServerError = "INTERNAL_SERVER_ERROR"

	CodeUserNotFound    = "USER_NOT_FOUND"
	CodeUserConflict    = "USER_CONFLICT"
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeStorage         = "STORAGE_ERROR"
)

// HTTPStatus maps an error code to the HTTP status written to the client.
//
// Rate limiting answers 429 rather than 403 so clients can tell capacity
// rejections apart from authorization failures.
func HTTPStatus(code string) int {
	switch code {
	case CodeInvalidTokenFormat, CodeTokenNotFound, CodeTokenRevoked, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeBackendUnavailable:
		return http.StatusServiceUnavailable
	case CodeUserNotFound:
		return http.StatusNotFound
	case CodeUserConflict:
		return http.StatusConflict
	case CodeInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ============================================================================
// Authentication Errors
// ============================================================================

var (
	// ErrInvalidTokenFormat indicates a missing or malformed Authorization header or token.
	ErrInvalidTokenFormat = NewDomainError(CodeInvalidTokenFormat, "invalid token format")

	// ErrTokenNotFound indicates no credential matches the token digest.
	ErrTokenNotFound = NewDomainError(CodeTokenNotFound, "token not found")

	// ErrTokenRevoked indicates the token or its owner has been deactivated.
	ErrTokenRevoked = NewDomainError(CodeTokenRevoked, "token revoked")

	// ErrTokenExpired indicates the token's expiry has passed.
	ErrTokenExpired = NewDomainError(CodeTokenExpired, "token expired")
)

// ============================================================================
// Gateway Errors
// ============================================================================

var (
	// ErrRateLimitExceeded indicates the client exceeded the request window.
	ErrRateLimitExceeded = NewDomainError(CodeRateLimitExceeded, "rate limit exceeded")

	// ErrBackendUnavailable indicates the gated backend is not serving.
	ErrBackendUnavailable = NewDomainError(CodeBackendUnavailable, "backend unavailable")

	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError(CodeInternalServerError, "internal server error")
)

// ============================================================================
// Management Errors
// ============================================================================

var (
	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = NewDomainError(CodeUserNotFound, "user not found")

	// ErrUserConflict indicates a user with the same id, email or username exists.
	ErrUserConflict = NewDomainError(CodeUserConflict, "user already exists")

	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError(CodeInvalidArgument, "invalid argument")

	// ErrStorage indicates a storage layer error.
	ErrStorage = NewDomainError(CodeStorage, "storage error")
)
