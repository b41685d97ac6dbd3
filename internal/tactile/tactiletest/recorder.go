// Package tactiletest provides an in-memory tactile.Executor for tests.
package tactiletest

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tactile"
)

// Call is one recorded execution.
type Call struct {
	Command tactile.Command
	Stdin   string
}

// Argv returns the binary followed by its arguments.
func (c Call) Argv() []string {
	return append([]string{c.Command.Binary}, c.Command.Arguments...)
}

// Recorder records every command it is asked to run and answers with
// canned results. Commands succeed with exit code 0 unless a rule matches.
type Recorder struct {
	mu    sync.Mutex
	calls []Call
	rules []rule

	// Output is written to the command's live Stdout for every call.
	Output string
}

type rule struct {
	match  string
	result tactile.ExecutionResult
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{}
}

// FailOn makes every command whose string form contains match exit with code.
func (r *Recorder) FailOn(match string, code int) *Recorder {
	return r.RespondTo(match, tactile.ExecutionResult{Success: true, ExitCode: code, Stderr: "exit status " + fmt.Sprint(code)})
}

// RespondTo answers commands containing match with result.
func (r *Recorder) RespondTo(match string, result tactile.ExecutionResult) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules = append(r.rules, rule{match: match, result: result})
	return r
}

// Execute implements tactile.Executor.
func (r *Recorder) Execute(ctx context.Context, cmd tactile.Command) (*tactile.ExecutionResult, error) {
	call := Call{Command: cmd, Stdin: cmd.Stdin}
	if cmd.StdinReader != nil {
		data, err := io.ReadAll(cmd.StdinReader)
		if err != nil {
			return nil, err
		}
		call.Stdin = string(data)
	}

	r.mu.Lock()
	r.calls = append(r.calls, call)
	result := tactile.ExecutionResult{Success: true, Stdout: r.Output}
	line := cmd.CommandString()
	for _, rl := range r.rules {
		if strings.Contains(line, rl.match) {
			result = rl.result
			break
		}
	}
	r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		result = tactile.ExecutionResult{Success: true, ExitCode: -1, Killed: true, KillReason: "context canceled"}
	}
	if cmd.Stdout != nil && result.Stdout != "" {
		io.WriteString(cmd.Stdout, result.Stdout)
	}

	c := cmd
	result.Command = &c
	result.FinishedAt = time.Now()
	return &result, nil
}

// Capabilities implements tactile.Executor.
func (r *Recorder) Capabilities() tactile.ExecutorCapabilities {
	return tactile.ExecutorCapabilities{Name: "recorder", SupportsStdin: true}
}

// Validate implements tactile.Executor.
func (r *Recorder) Validate(cmd tactile.Command) error {
	if cmd.Binary == "" {
		return fmt.Errorf("binary is required")
	}
	return nil
}

// Calls returns a copy of the recorded calls in execution order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Lines returns the recorded commands rendered with CommandString.
func (r *Recorder) Lines() []string {
	calls := r.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = c.Command.CommandString()
	}
	return lines
}
