package schema

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the orchestration layer's failure policy.
type Kind int

const (
	// KindInput marks user-visible errors (bad format, invalid parameters)
	// that must not be retried.
	KindInput Kind = iota
	// KindTransient marks provider unavailability that may be retried with
	// bounded backoff.
	KindTransient
	// KindIntegrity marks data defects (dimension mismatch, orphaned
	// metadata) that are never retried and surfaced without internal detail.
	KindIntegrity
)

// String returns a stable label for logging.
func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindTransient:
		return "transient"
	case KindIntegrity:
		return "integrity"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with its failure classification and the
// operation that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewInputError wraps err as a non-retryable user-visible error.
func NewInputError(op string, err error) *Error {
	return &Error{Kind: KindInput, Op: op, Err: err}
}

// NewTransientError wraps err as a retryable provider error.
func NewTransientError(op string, err error) *Error {
	return &Error{Kind: KindTransient, Op: op, Err: err}
}

// NewIntegrityError wraps err as a non-retryable data defect.
func NewIntegrityError(op string, err error) *Error {
	return &Error{Kind: KindIntegrity, Op: op, Err: err}
}

// ErrorKind reports the classification of err, or KindInput with ok=false
// when err carries no classification.
func ErrorKind(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return KindInput, false
}

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	k, ok := ErrorKind(err)
	return ok && k == KindTransient
}

// IsInput reports whether err is classified as a user-visible input error.
func IsInput(err error) bool {
	k, ok := ErrorKind(err)
	return ok && k == KindInput
}

// IsIntegrity reports whether err is classified as a data defect.
func IsIntegrity(err error) bool {
	k, ok := ErrorKind(err)
	return ok && k == KindIntegrity
}
