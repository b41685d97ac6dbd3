// Package tasks is the task-runner layer: named steps collected in order and
// run until the first failure.
package tasks

import (
	"context"
	"time"
)

// Task is a single unit of work in a collection.
type Task interface {
	// Run performs the work. A non-nil error stops the collection.
	Run(ctx context.Context) error

	// Describe returns a one-line, human readable description of the work,
	// typically the command line it would execute.
	Describe() string
}

// TaskFunc adapts a function to the Task interface.
type TaskFunc struct {
	Description string
	Fn          func(ctx context.Context) error
}

// Run calls Fn.
func (f TaskFunc) Run(ctx context.Context) error { return f.Fn(ctx) }

// Describe returns Description.
func (f TaskFunc) Describe() string { return f.Description }

// Step is a task with the name it was registered under.
type Step struct {
	Name string
	Task Task
}

// StepStatus is the outcome of a step.
type StepStatus string

const (
	StatusSucceeded StepStatus = "succeeded"
	StatusFailed    StepStatus = "failed"
	StatusCanceled  StepStatus = "canceled"
	StatusSkipped   StepStatus = "skipped"
	StatusPlanned   StepStatus = "planned"
)

// StepResult records what happened to one step.
type StepResult struct {
	Position    int           `json:"position"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Status      StepStatus    `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	ExitCode    int           `json:"exit_code"`
	Err         error         `json:"-"`
}

// Observer is notified as steps start and finish.
type Observer interface {
	StepStarted(runID string, position int, step Step)
	StepFinished(runID string, result StepResult)
}

type multiObserver []Observer

// Observers fans notifications out to every non-nil observer.
func Observers(obs ...Observer) Observer {
	var m multiObserver
	for _, o := range obs {
		if o != nil {
			m = append(m, o)
		}
	}
	return m
}

func (m multiObserver) StepStarted(runID string, position int, step Step) {
	for _, o := range m {
		o.StepStarted(runID, position, step)
	}
}

func (m multiObserver) StepFinished(runID string, result StepResult) {
	for _, o := range m {
		o.StepFinished(runID, result)
	}
}
