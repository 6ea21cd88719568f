package apiclient

import (
	"errors"
	"fmt"
)

// ErrorCode classifies request pipeline errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a transport failure (refused, DNS, abort).
	ErrCodeConnection
	// ErrCodeAuth indicates an authentication failure (401).
	ErrCodeAuth
	// ErrCodeClient indicates a non-retryable client error (4xx).
	ErrCodeClient
	// ErrCodeRateLimit indicates rate limiting (429).
	ErrCodeRateLimit
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer
	// ErrCodeCircuitOpen indicates the circuit breaker rejected the call.
	ErrCodeCircuitOpen
	// ErrCodeEncoding indicates the request body could not be serialized.
	ErrCodeEncoding
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeClient:
		return "client"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeServer:
		return "server"
	case ErrCodeCircuitOpen:
		return "circuit_open"
	case ErrCodeEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

// Error is a structured request error with retry classification.
type Error struct {
	// StatusCode is the HTTP status code (0 for transport-level failures).
	StatusCode int
	// Code classifies the error.
	Code ErrorCode
	// Message describes the error.
	Message string
	// Retryable indicates whether another attempt may succeed.
	Retryable bool
	// Body is the raw response body, if a response was received.
	Body []byte
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("apiclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("apiclient: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// newTimeoutError creates a timeout error.
func newTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: "request deadline exceeded", Retryable: true, Err: err}
}

// newConnectionError creates a transport error.
func newConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// newCircuitOpenError creates the synthetic breaker-open error.
func newCircuitOpenError(err error) *Error {
	return &Error{
		StatusCode: 503,
		Code:       ErrCodeCircuitOpen,
		Message:    "service unavailable: circuit breaker open",
		Retryable:  true,
		Err:        err,
	}
}

// newEncodingError creates a body serialization error.
func newEncodingError(err error) *Error {
	return &Error{Code: ErrCodeEncoding, Message: err.Error(), Retryable: false, Err: err}
}

// classifyStatus converts a non-2xx HTTP status into a typed error.
// Retry eligibility is governed by status code alone: 4xx is final
// except 401, 408 and 429.
func classifyStatus(statusCode int, body []byte) *Error {
	e := &Error{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Body:       body,
	}

	switch {
	case statusCode == 401:
		e.Code = ErrCodeAuth
		e.Retryable = true
	case statusCode == 429:
		e.Code = ErrCodeRateLimit
		e.Retryable = true
	case statusCode == 408:
		e.Code = ErrCodeTimeout
		e.Retryable = true
	case statusCode >= 400 && statusCode < 500:
		e.Code = ErrCodeClient
		e.Retryable = false
	default:
		e.Code = ErrCodeServer
		e.Retryable = true
	}
	return e
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeTimeout
}

// IsConnection checks if an error is a transport error.
func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeConnection
}

// IsAuth checks if an error is an authentication error.
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeAuth
}

// IsCircuitOpen checks if an error is a breaker rejection.
func IsCircuitOpen(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeCircuitOpen
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
