// Package errors defines the error kinds the analysis engine reports. Callers
// tell them apart with KindOf, never by message text.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindInput    Kind = "input"
	KindTimeout  Kind = "timeout"
	KindInternal Kind = "internal"
	KindUnknown  Kind = "unknown"
)

// InputError rejects a request before any pass runs.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %q: %s", e.Field, e.Reason)
}

func (e *InputError) Kind() Kind { return KindInput }

func NewInputError(field, reason string) error {
	return &InputError{Field: field, Reason: reason}
}

// TimeoutError reports that the pipeline exceeded its wall-clock budget.
type TimeoutError struct {
	Operation string
	Budget    time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s exceeded its time budget of %s", e.Operation, e.Budget)
}

func (e *TimeoutError) Kind() Kind { return KindTimeout }

func NewTimeoutError(operation string, budget time.Duration) error {
	return &TimeoutError{Operation: operation, Budget: budget}
}

// InternalError wraps a failure or recovered panic inside one pass.
type InternalError struct {
	Pass  string
	Cause error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("pass %s failed: %v", e.Pass, e.Cause)
}

func (e *InternalError) Unwrap() error { return e.Cause }

func (e *InternalError) Kind() Kind { return KindInternal }

func NewInternalError(pass string, cause error) error {
	return &InternalError{Pass: pass, Cause: cause}
}

// FromPanic converts a recovered value into an InternalError.
func FromPanic(pass string, recovered any) error {
	if err, ok := recovered.(error); ok {
		return NewInternalError(pass, fmt.Errorf("panic: %w", err))
	}
	return NewInternalError(pass, fmt.Errorf("panic: %v", recovered))
}

type kinded interface{ Kind() Kind }

// KindOf returns the kind of the first typed error in err's chain.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var k kinded
	if stderrors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}
