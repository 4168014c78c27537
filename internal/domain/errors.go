package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("resource not found")

	// ErrNoMoreRetries marks a message that must be dropped: its shape is
	// invalid or its retry budget is spent.
	ErrNoMoreRetries = errors.New("no more retries")

	ErrUnknownJob = errors.New("no handler registered for job")
)

// ValidationError reports a malformed job specification or handler parameter.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid job specification: " + e.Reason
	}
	return fmt.Sprintf("invalid job specification: %s %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// ToolExecutionError is returned when an external program exits non-zero.
type ToolExecutionError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s exited with code %d", e.Tool, e.ExitCode)
	if e.Output != "" {
		b.WriteString(": ")
		b.WriteString(e.Output)
	}
	return b.String()
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Err
}

// IsTerminal reports whether err must not trigger a repost of the message.
// Tool failures are already recorded in the job's result descriptor and
// validation failures would fail again identically.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNoMoreRetries) || errors.Is(err, ErrUnknownJob) {
		return true
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return true
	}
	var terr *ToolExecutionError
	return errors.As(err, &terr)
}
