package llm

import "fmt"

// Error wraps a model invocation failure with retryability information.
type Error struct {
	// Op is the operation that failed (e.g. "generate").
	Op string
	// Err is the underlying error.
	Err error
	// Retryable indicates the call may succeed if repeated with the
	// same inputs (rate limits, timeouts, 5xx responses).
	Retryable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("llm %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new llm error.
func NewError(op string, err error, retryable bool) *Error {
	return &Error{Op: op, Err: err, Retryable: retryable}
}

// IsRetryable reports whether err is an *Error marked retryable.
func IsRetryable(err error) bool {
	if e, ok := err.(*Error); ok {
		return e.Retryable
	}
	return false
}
