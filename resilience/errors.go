package resilience

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations.
//
// ErrCircuitOpen and ErrBulkheadFull originate in the pipeline itself, never
// in the dependency, so callers can distinguish a rejection from a genuine
// dependency failure and apply a fallback instead of surfacing a raw error.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrBulkheadFull is returned when both the concurrency slots and the
	// wait queue of the bulkhead are at capacity.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when a single attempt exceeds its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// transientError marks an error as retryable.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// permanentError marks an error as non-retryable.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// MarkTransient wraps err so that IsTransient reports true for it.
// Use it for network failures and explicit "temporarily unavailable" signals.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// MarkPermanent wraps err so that IsPermanent reports true for it.
// Use it for validation failures, not-found, and business rejections.
func MarkPermanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Transient is shorthand for MarkTransient(fmt.Errorf(format, args...)).
func Transient(format string, args ...any) error {
	return &transientError{err: fmt.Errorf(format, args...)}
}

// Permanent is shorthand for MarkPermanent(fmt.Errorf(format, args...)).
func Permanent(format string, args ...any) error {
	return &permanentError{err: fmt.Errorf(format, args...)}
}

// IsTransient reports whether err should be retried.
// Timeouts count as transient; a later attempt may complete in time.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// IsPermanent reports whether err was explicitly marked non-retryable.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// IsRejection reports whether err was raised by the pipeline itself
// (open circuit or full bulkhead) rather than by the dependency.
func IsRejection(err error) bool {
	return errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrBulkheadFull)
}
