package runner

import (
	"errors"
	"fmt"
)

// Sentinel errors for typed error checking.
var (
	ErrInterpreterNotFound = errors.New("python interpreter not found")
	ErrInterpreterDenied   = errors.New("python interpreter not executable")
	ErrInvalidRequest      = errors.New("invalid execution request")
	ErrScratchUnavailable  = errors.New("scratch directory unavailable")
)

// TimeoutExitCode is the sentinel exit code reported when a script is killed
// for exceeding its wall-clock budget. A signal-killed child also reports -1
// through ExitError.ExitCode(), so consumers must check the TimedOut flag
// rather than this code to tell the two apart.
const TimeoutExitCode = -1

// TimeoutMessage replaces stderr when an execution is forcibly terminated.
const TimeoutMessage = "Script execution timed out"

// ExecError wraps pipeline-level failures with execution context. Non-zero
// interpreter exits are never an ExecError; those are reportable outcomes.
type ExecError struct {
	ExecID string
	Op     string // The operation that failed
	Err    error
}

func (e *ExecError) Error() string {
	if e.ExecID != "" {
		return fmt.Sprintf("execution %s: %s: %s", e.ExecID, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *ExecError) Unwrap() error {
	return e.Err
}

// IsLaunchFailure reports whether the error means the interpreter could not
// be started at all (missing binary, permission denied).
func IsLaunchFailure(err error) bool {
	return errors.Is(err, ErrInterpreterNotFound) || errors.Is(err, ErrInterpreterDenied)
}
