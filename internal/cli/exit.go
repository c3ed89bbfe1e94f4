package cli

import (
	stderrors "errors"

	"github.com/xab-mack/smartaudit/internal/errors"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailOn   = 1
	ExitInput    = 2
	ExitTimeout  = 3
	ExitInternal = 4
)

// ExitError carries the process exit code for a command failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

func newExitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// classify maps an engine error to its exit code.
func classify(err error) error {
	if err == nil {
		return nil
	}
	switch errors.KindOf(err) {
	case errors.KindInput:
		return newExitError(ExitInput, err)
	case errors.KindTimeout:
		return newExitError(ExitTimeout, err)
	}
	return newExitError(ExitInternal, err)
}

// ExitCode returns the code main should exit with for err. Errors that did
// not come from a command, such as flag parsing failures, count as input
// errors.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ee *ExitError
	if stderrors.As(err, &ee) {
		return ee.Code
	}
	return ExitInput
}
