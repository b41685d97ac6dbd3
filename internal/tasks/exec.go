package tasks

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tactile"
)

// ExecTask runs one command through a tactile executor.
type ExecTask struct {
	Executor tactile.Executor
	Command  tactile.Command

	// Stdin, when set, is opened right before execution and streamed to the
	// process. The reader is closed when the process exits.
	Stdin func() (io.ReadCloser, error)

	// StdinName is shown in Describe as "< name".
	StdinName string

	// ReportPath, when set, receives a copy of the process stdout.
	ReportPath string

	// Stdout and Stderr receive the live process output. May be nil.
	Stdout io.Writer
	Stderr io.Writer
}

// Exec returns an ExecTask for cmd.
func Exec(executor tactile.Executor, cmd tactile.Command) *ExecTask {
	return &ExecTask{Executor: executor, Command: cmd}
}

// WithOutput sets the live output writers.
func (t *ExecTask) WithOutput(stdout, stderr io.Writer) *ExecTask {
	t.Stdout, t.Stderr = stdout, stderr
	return t
}

// WithStdin streams the reader returned by open to the process.
func (t *ExecTask) WithStdin(name string, open func() (io.ReadCloser, error)) *ExecTask {
	t.StdinName, t.Stdin = name, open
	return t
}

// WithReport tees stdout into path.
func (t *ExecTask) WithReport(path string) *ExecTask {
	t.ReportPath = path
	return t
}

// Describe returns the command line.
func (t *ExecTask) Describe() string {
	s := t.Command.CommandString()
	if t.StdinName != "" {
		s += " < " + t.StdinName
	}
	if t.ReportPath != "" {
		s += " | tee " + t.ReportPath
	}
	return s
}

// Run executes the command. A non-zero exit is returned as *ExitError.
func (t *ExecTask) Run(ctx context.Context) error {
	cmd := t.Command
	cmd.Stdout = t.Stdout
	cmd.Stderr = t.Stderr

	if t.Stdin != nil {
		in, err := t.Stdin()
		if err != nil {
			return fmt.Errorf("failed to open stdin for %s: %w", cmd.Binary, err)
		}
		defer in.Close()
		cmd.StdinReader = in
	}

	var report *os.File
	if t.ReportPath != "" {
		if err := os.MkdirAll(filepath.Dir(t.ReportPath), 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
		f, err := os.Create(t.ReportPath + ".part")
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		report = f
		defer func() {
			report.Close()
			os.Remove(report.Name())
		}()
		if cmd.Stdout != nil {
			cmd.Stdout = io.MultiWriter(cmd.Stdout, report)
		} else {
			cmd.Stdout = report
		}
		logging.TasksDebug("Writing %s output to %s", cmd.Binary, t.ReportPath)
	}

	result, err := t.Executor.Execute(ctx, cmd)
	if err != nil {
		return fmt.Errorf("failed to execute %s: %w", cmd.Binary, err)
	}

	if report != nil && !result.Killed && !result.IsError() {
		if err := t.publishReport(report); err != nil {
			return err
		}
	}

	switch {
	case result.Killed:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%s killed: %s", cmd.Binary, result.KillReason)
	case result.IsError():
		return fmt.Errorf("failed to run %s: %s", cmd.Binary, result.Error)
	case result.ExitCode != 0:
		return &ExitError{Command: t.Command.CommandString(), ExitCode: result.ExitCode, Stderr: result.Stderr}
	}
	return nil
}

// publishReport moves a completed report over the previous one.
// A run that never finished leaves the previous report untouched.
func (t *ExecTask) publishReport(report *os.File) error {
	if err := report.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := os.Rename(report.Name(), t.ReportPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
