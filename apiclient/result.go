package apiclient

// Result is the tagged outcome of a request. Exactly one of Data/Err is
// meaningful: OK selects which. Status is the HTTP status code, or 0
// when the failure happened below the HTTP layer (transport error,
// deadline) and 503 when the circuit breaker rejected the call without
// any network I/O.
type Result[T any] struct {
	// OK reports whether the request succeeded with a 2xx status.
	OK bool
	// Status is the HTTP status code of the final attempt.
	Status int
	// Data is the decoded response body (valid when OK).
	Data T
	// Err describes the failure (valid when !OK).
	Err *Error
	// CorrelationID identifies this logical request across all of its
	// attempts for log correlation.
	CorrelationID string
}

// failure builds a failed Result.
func failure[T any](status int, err *Error, correlationID string) Result[T] {
	return Result[T]{
		Status:        status,
		Err:           err,
		CorrelationID: correlationID,
	}
}

// success builds a successful Result.
func success[T any](status int, data T, correlationID string) Result[T] {
	return Result[T]{
		OK:            true,
		Status:        status,
		Data:          data,
		CorrelationID: correlationID,
	}
}
