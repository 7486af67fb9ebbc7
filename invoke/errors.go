package invoke

import (
	"errors"
	"fmt"
)

// ErrExhausted is the terminal failure marker produced when every attempt
// allowed by the RetryPolicy ended in transient network failure. Callers
// should treat it as "no data", not as a condition to retry further.
var ErrExhausted = errors.New("request attempts exhausted")

// TransientError wraps a network-level failure that prevented an HTTP round
// trip from completing: connection reset, timeout, DNS resolution failure.
// A completed exchange with an error status is NOT a TransientError.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient network failure: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// IsTransient reports whether err is a transient network failure.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// ParseError reports a response body that did not match the shape the caller
// expected. It indicates a contract violation, not a transient condition, and
// is never retried.
type ParseError struct {
	Status int
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable response (status %d): %v", e.Status, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ExhaustedError carries the attempt count and the last transient cause after
// policy exhaustion. It matches ErrExhausted under errors.Is.
type ExhaustedError struct {
	Attempts int
	Cause    error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("request attempts exhausted after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ExhaustedError) Unwrap() error { return e.Cause }

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }
