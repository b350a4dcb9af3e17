package seqkit

import (
	"errors"
	"fmt"
	"strings"

	"fastx-gateway/internal/pipeline"
)

// Sentinel errors for typed error checking. Each wraps the pipeline sentinel
// it classifies as.
var (
	ErrTimeout         = fmt.Errorf("seqkit run %w", pipeline.ErrTimeout)
	ErrUnavailable     = fmt.Errorf("seqkit %w", pipeline.ErrUnavailable)
	ErrInvalidCommand  = fmt.Errorf("seqkit command rejected: %w", pipeline.ErrValidation)
	ErrMalformedOutput = fmt.Errorf("unparseable seqkit output: %w", pipeline.ErrProcessing)
)

// maxStderrInError caps how much tool stderr ends up in an error message.
const maxStderrInError = 2048

// ToolError is a seqkit run that exited non-zero.
type ToolError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ToolError) Error() string {
	msg := strings.TrimSpace(e.Stderr)
	if len(msg) > maxStderrInError {
		msg = msg[:maxStderrInError] + "..."
	}
	if msg == "" {
		msg = "no error output"
	}
	return fmt.Sprintf("seqkit %s failed (exit code %d): %s", e.Command, e.ExitCode, msg)
}

func (e *ToolError) Unwrap() error {
	return pipeline.ErrTool
}

// ExecutionError wraps errors with execution context.
type ExecutionError struct {
	ExecID string
	Op     string // The operation that failed
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.ExecID != "" {
		return fmt.Sprintf("execution %s: %s: %s", e.ExecID, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// IsTimeout returns true if the error is a timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsUnavailable returns true if seqkit could not be run at all.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}

// countsAsFailure reports whether err should trip the circuit breaker. A
// tool exiting non-zero on bad input says nothing about the backend's health.
func countsAsFailure(err error) bool {
	return IsTimeout(err) || IsUnavailable(err)
}
