package tasks

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
)

// Collection is an ordered list of named steps.
type Collection struct {
	name  string
	steps []Step
}

// NewCollection returns an empty collection.
func NewCollection(name string) *Collection {
	return &Collection{name: name}
}

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// AddTask appends a step. A nil task is ignored, matching a step that was
// declared but has nothing to do.
func (c *Collection) AddTask(name string, task Task) *Collection {
	if task == nil {
		logging.TasksDebug("Skipping nil task %q in %s", name, c.name)
		return c
	}
	c.steps = append(c.steps, Step{Name: name, Task: task})
	return c
}

// AddTaskList appends steps in order.
func (c *Collection) AddTaskList(steps ...Step) *Collection {
	for _, s := range steps {
		c.AddTask(s.Name, s.Task)
	}
	return c
}

// Steps returns a copy of the registered steps.
func (c *Collection) Steps() []Step {
	return append([]Step(nil), c.steps...)
}

// Len returns the number of steps.
func (c *Collection) Len() int { return len(c.steps) }

// RunOptions controls a collection run.
type RunOptions struct {
	// RunID identifies the run. Generated when empty.
	RunID string

	// DryRun reports every step as planned without running it.
	DryRun bool

	// Observer receives step notifications. May be nil.
	Observer Observer
}

// Result summarizes a collection run.
type Result struct {
	RunID      string       `json:"run_id"`
	Name       string       `json:"name"`
	Status     StepStatus   `json:"status"`
	Steps      []StepResult `json:"steps"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Err        error        `json:"-"`
}

// FailedStep returns the name of the step that stopped the run, if any.
func (r *Result) FailedStep() string {
	for _, s := range r.Steps {
		if s.Status == StatusFailed || s.Status == StatusCanceled {
			return s.Name
		}
	}
	return ""
}

// Run executes the steps in order and stops at the first failure.
// Steps after a failure are recorded as skipped. The returned error is a
// *StepError for the failed step, or nil.
func (c *Collection) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	if len(c.steps) == 0 {
		return nil, ErrEmptyCollection
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	timer := logging.StartTimer(logging.CategoryTasks, "Collection "+c.name)
	defer timer.Stop()

	logging.Tasks("Running %s (%d steps, run=%s, dry_run=%v)", c.name, len(c.steps), runID, opts.DryRun)

	result := &Result{
		RunID:     runID,
		Name:      c.name,
		Status:    StatusSucceeded,
		Steps:     make([]StepResult, 0, len(c.steps)),
		StartedAt: time.Now(),
	}

	var stopped error
	for i, step := range c.steps {
		position := i + 1
		sr := StepResult{
			Position:    position,
			Name:        step.Name,
			Description: step.Task.Describe(),
		}

		switch {
		case stopped != nil:
			sr.Status = StatusSkipped
			result.Steps = append(result.Steps, sr)
			continue
		case opts.DryRun:
			sr.Status = StatusPlanned
			result.Steps = append(result.Steps, sr)
			continue
		}

		if opts.Observer != nil {
			opts.Observer.StepStarted(runID, position, step)
		}

		sr.StartedAt = time.Now()
		err := ctx.Err()
		if err == nil {
			err = step.Task.Run(ctx)
		}
		sr.Duration = time.Since(sr.StartedAt)

		level := "info"
		switch {
		case err == nil:
			sr.Status = StatusSucceeded
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			sr.Status = StatusCanceled
			sr.Err = err
			result.Status = StatusCanceled
			level = "warn"
			logging.TasksWarn("Step %d %s canceled in %s: %v", position, step.Name, c.name, err)
		default:
			sr.Status = StatusFailed
			sr.ExitCode = ExitCode(err)
			sr.Err = err
			result.Status = StatusFailed
			level = "error"
			logging.TasksError("Step %d %s stopped %s: %v", position, step.Name, c.name, err)
		}
		logStep(level, runID, c.name, sr)

		if err != nil {
			stopped = &StepError{Step: step.Name, Position: position, Err: err}
		}

		result.Steps = append(result.Steps, sr)
		if opts.Observer != nil {
			opts.Observer.StepFinished(runID, sr)
		}
	}

	result.FinishedAt = time.Now()
	result.Err = stopped
	return result, stopped
}

func logStep(level, runID, collection string, sr StepResult) {
	fields := map[string]interface{}{
		"collection":  collection,
		"position":    sr.Position,
		"step":        sr.Name,
		"status":      string(sr.Status),
		"duration_ms": sr.Duration.Milliseconds(),
	}
	if sr.Err != nil {
		fields["error"] = sr.Err.Error()
		fields["exit_code"] = sr.ExitCode
	}
	logging.Get(logging.CategoryTasks).StructuredLog(level, runID, "step finished", fields)
}
