package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCircuitOpen is returned without any network attempt while a
	// dependency's breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrRetryExhausted is returned after max_attempts transient failures.
	ErrRetryExhausted = errors.New("retry budget exhausted")

	// ErrStaleSnapshot marks a detection cycle whose feed snapshots are too
	// far apart in time to compare.
	ErrStaleSnapshot = errors.New("snapshots exceed staleness bound")

	// ErrNoSnapshot marks a cycle that ran before both feeds produced data.
	ErrNoSnapshot = errors.New("no snapshot available")

	// ErrRiskCeiling is returned when the simulator refuses an execution
	// whose composite risk is above the configured ceiling.
	ErrRiskCeiling = errors.New("composite risk above simulation ceiling")
)

// ErrorKind classifies adapter errors for the retry policy.
type ErrorKind int

const (
	// KindTransient covers timeouts, rate limiting, and 5xx-equivalent
	// responses. Retried with backoff.
	KindTransient ErrorKind = iota
	// KindPermanent covers malformed responses and auth failures. Never
	// retried.
	KindPermanent
)

// AdapterError wraps a failure from an external dependency with its retry
// classification.
type AdapterError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *AdapterError) Error() string {
	kind := "transient"
	if e.Kind == KindPermanent {
		kind = "permanent"
	}
	return fmt.Sprintf("%s: %s adapter error: %v", e.Op, kind, e.Err)
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Transient creates a retryable adapter error.
func Transient(op string, err error) *AdapterError {
	return &AdapterError{Op: op, Kind: KindTransient, Err: err}
}

// Permanent creates a non-retryable adapter error.
func Permanent(op string, err error) *AdapterError {
	return &AdapterError{Op: op, Kind: KindPermanent, Err: err}
}

// IsTransient reports whether err should consume retry budget. Errors that
// are not AdapterErrors are treated as transient so that unclassified
// network faults still get retried.
func IsTransient(err error) bool {
	var ae *AdapterError
	if errors.As(err, &ae) {
		return ae.Kind == KindTransient
	}
	return true
}
