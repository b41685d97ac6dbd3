package tasks

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyCollection is returned when running a collection with no steps.
var ErrEmptyCollection = errors.New("collection has no steps")

// ExitError reports a process that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if tail := lastLine(e.Stderr); tail != "" {
		msg += ": " + tail
	}
	return msg
}

// StepError wraps the failure of a named step.
type StepError struct {
	Step     string
	Position int
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d %q failed: %v", e.Position, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ExitCode returns the exit code carried by err, 0 if err is nil and 1 if
// err carries no exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode
	}
	return 1
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return s
}
