package errors

import (
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the class of failure returned by the Twitter API or transport
type ErrorType string

const (
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeRateLimit   ErrorType = "rate_limit"
	ErrorTypeAuth        ErrorType = "auth"
	ErrorTypeParsing     ErrorType = "parsing"
	ErrorTypeNotFound    ErrorType = "not_found"
	ErrorTypeServerError ErrorType = "server_error"
	ErrorTypeUnknown     ErrorType = "unknown"
)

// Error represents an API error with type information
type Error struct {
	Type    ErrorType
	Message string
	Code    int
	// ResetAt is set on rate limit errors when the response carried a reset header
	ResetAt time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error (code %d): %s", e.Type, e.Code, e.Message)
}

// IsRetryable checks if an error type should be retried
func IsRetryable(errorType ErrorType) bool {
	switch errorType {
	case ErrorTypeNetwork, ErrorTypeRateLimit, ErrorTypeServerError:
		return true
	default:
		return false
	}
}

// IsRetryableStatusCode checks if an HTTP status code indicates a retryable error
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 0, http.StatusTooManyRequests:
		return true
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return false
	default:
		return statusCode >= 500
	}
}

// FromStatus maps an HTTP status code to a typed error
func FromStatus(statusCode int, message string) *Error {
	e := &Error{Code: statusCode, Message: message}

	switch {
	case statusCode == 0:
		e.Type = ErrorTypeNetwork
	case statusCode == http.StatusTooManyRequests:
		e.Type = ErrorTypeRateLimit
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Type = ErrorTypeAuth
	case statusCode == http.StatusNotFound:
		e.Type = ErrorTypeNotFound
	case statusCode >= 500:
		e.Type = ErrorTypeServerError
	default:
		e.Type = ErrorTypeUnknown
	}

	return e
}

// Network wraps a transport failure that never produced a response
func Network(err error) *Error {
	return &Error{Type: ErrorTypeNetwork, Message: err.Error()}
}

// PhaseError reports a crawl phase that was aborted. The phase's resume
// position is left in place so a later run continues from it.
type PhaseError struct {
	Phase string
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s failed: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
