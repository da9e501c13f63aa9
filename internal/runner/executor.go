package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	maxStdoutBytes = 1 << 20    // 1MB
	maxStderrBytes = 256 * 1024 // 256KB
)

// ProcessResult captures the outcome of one interpreter invocation.
type ProcessResult struct {
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"duration"`
	TimedOut bool          `json:"timed_out"`
}

// Executor launches the Python interpreter against a composed script.
type Executor struct {
	Interpreter string   // binary name or absolute path, e.g. "python3"
	Args        []string // e.g. ["-u", "-B"]
}

// NewExecutor returns an Executor with the default interpreter invocation
// (unbuffered output, no .pyc files).
func NewExecutor(interpreter string, args []string) *Executor {
	if interpreter == "" {
		interpreter = "python3"
	}
	if args == nil {
		args = []string{"-u", "-B"}
	}
	return &Executor{Interpreter: interpreter, Args: args}
}

// Run executes the script at scriptPath with a hard wall-clock timeout.
//
// A non-zero interpreter exit is a normal, reportable outcome and returns a
// nil error. On timeout the process is killed and the result carries the
// sentinel exit code with the fixed timeout message in place of stderr.
// Only true launch failures (binary not found, permission denied) surface as
// errors.
func (e *Executor) Run(ctx context.Context, scriptPath string, timeout time.Duration) (*ProcessResult, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, e.Args...), scriptPath)
	cmd := exec.CommandContext(execCtx, e.Interpreter, args...) // #nosec G204 -- interpreter comes from config, script path is generated internally

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	if execCtx.Err() == context.DeadlineExceeded {
		log.Warn().
			Str("script", scriptPath).
			Dur("timeout", timeout).
			Msg("script execution timed out, process killed")

		return &ProcessResult{
			ExitCode: TimeoutExitCode,
			Stdout:   truncateOutput(stdoutBuf.String(), maxStdoutBytes),
			Stderr:   TimeoutMessage,
			Duration: duration,
			TimedOut: true,
		}, nil
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// ExitCode() is -1 when the child died to a signal; TimedOut
			// stays false here, which is how callers tell a signal death
			// from a deadline kill.
			return &ProcessResult{
				ExitCode: exitErr.ExitCode(),
				Stdout:   truncateOutput(stdoutBuf.String(), maxStdoutBytes),
				Stderr:   truncateOutput(stderrBuf.String(), maxStderrBytes),
				Duration: duration,
			}, nil
		}
		return nil, launchError(err)
	}

	return &ProcessResult{
		ExitCode: 0,
		Stdout:   truncateOutput(stdoutBuf.String(), maxStdoutBytes),
		Stderr:   truncateOutput(stderrBuf.String(), maxStderrBytes),
		Duration: duration,
	}, nil
}

// Available reports whether the configured interpreter can be resolved.
func (e *Executor) Available() bool {
	_, err := exec.LookPath(e.Interpreter)
	return err == nil
}

func launchError(err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrInterpreterNotFound, err)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("%w: %v", ErrInterpreterDenied, err)
	default:
		return fmt.Errorf("launching interpreter: %w", err)
	}
}

func truncateOutput(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	return s[:maxBytes] + "\n... [output truncated]"
}
