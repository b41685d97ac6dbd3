package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
)

type recordingTask struct {
	name string
	log  *[]string
	err  error
}

func (r recordingTask) Run(ctx context.Context) error {
	*r.log = append(*r.log, r.name)
	return r.err
}

func (r recordingTask) Describe() string { return "record " + r.name }

type observerLog struct {
	started  []string
	finished []StepResult
}

func (o *observerLog) StepStarted(runID string, position int, step Step) {
	o.started = append(o.started, step.Name)
}

func (o *observerLog) StepFinished(runID string, result StepResult) {
	o.finished = append(o.finished, result)
}

func TestCollection_RunsInOrder(t *testing.T) {
	var log []string
	c := NewCollection("ordered").AddTaskList(
		Step{Name: "first", Task: recordingTask{name: "first", log: &log}},
		Step{Name: "second", Task: recordingTask{name: "second", log: &log}},
		Step{Name: "third", Task: recordingTask{name: "third", log: &log}},
	)

	obs := &observerLog{}
	res, err := c.Run(context.Background(), RunOptions{Observer: obs, RunID: "run-1"})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second", "third"}, log)
	assert.Equal(t, []string{"first", "second", "third"}, obs.started)
	assert.Equal(t, StatusSucceeded, res.Status)
	assert.Equal(t, "run-1", res.RunID)
	require.Len(t, res.Steps, 3)
	for i, s := range res.Steps {
		assert.Equal(t, i+1, s.Position)
		assert.Equal(t, StatusSucceeded, s.Status)
	}
	assert.Empty(t, res.FailedStep())
}

func TestCollection_StopsAtFirstFailure(t *testing.T) {
	var log []string
	boom := &ExitError{Command: "drush en", ExitCode: 3, Stderr: "warning\nmodule not found"}
	c := NewCollection("failing").
		AddTask("ok", recordingTask{name: "ok", log: &log}).
		AddTask("broken", recordingTask{name: "broken", log: &log, err: boom}).
		AddTask("never", recordingTask{name: "never", log: &log})

	res, err := c.Run(context.Background(), RunOptions{})
	require.Error(t, err)

	assert.Equal(t, []string{"ok", "broken"}, log)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "broken", stepErr.Step)
	assert.Equal(t, 2, stepErr.Position)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, ExitCode(err))
	assert.Contains(t, err.Error(), "module not found")

	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "broken", res.FailedStep())
	assert.Equal(t, StatusSkipped, res.Steps[2].Status)
	assert.Equal(t, 3, res.Steps[1].ExitCode)
}

func TestCollection_NilTaskIgnored(t *testing.T) {
	var log []string
	c := NewCollection("nil").
		AddTask("disableModules", nil).
		AddTask("cacheRebuild", recordingTask{name: "cacheRebuild", log: &log})

	assert.Equal(t, 1, c.Len())
	_, err := c.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"cacheRebuild"}, log)
}

func TestCollection_DryRun(t *testing.T) {
	var log []string
	c := NewCollection("dry").AddTask("a", recordingTask{name: "a", log: &log})

	res, err := c.Run(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)
	assert.Empty(t, log)
	assert.Equal(t, StatusPlanned, res.Steps[0].Status)
	assert.Equal(t, "record a", res.Steps[0].Description)
}

func TestCollection_Canceled(t *testing.T) {
	var log []string
	c := NewCollection("canceled").AddTask("a", recordingTask{name: "a", log: &log})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := c.Run(ctx, RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, log)
	assert.Equal(t, StatusCanceled, res.Status)
}

func TestCollection_Empty(t *testing.T) {
	_, err := NewCollection("empty").Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, ErrEmptyCollection)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.New("plain")))
	assert.Equal(t, 7, ExitCode(&StepError{Err: &ExitError{ExitCode: 7}}))
}

func TestObservers_FanOut(t *testing.T) {
	var log []string
	a, b := &observerLog{}, &observerLog{}
	c := NewCollection("fan").AddTask("only", recordingTask{name: "only", log: &log})

	_, err := c.Run(context.Background(), RunOptions{Observer: Observers(a, nil, b)})
	require.NoError(t, err)
	assert.Equal(t, []string{"only"}, a.started)
	assert.Equal(t, []string{"only"}, b.started)
	assert.Len(t, b.finished, 1)
}

func TestCollection_StepLogsCarryRunID(t *testing.T) {
	state := t.TempDir()
	require.NoError(t, logging.Initialize(state))
	require.NoError(t, logging.Enable("debug", true, nil))
	t.Cleanup(func() {
		logging.CloseAll()
		_ = logging.Initialize(filepath.Join(state, "off"))
	})

	var log []string
	c := NewCollection("logged").AddTaskList(
		Step{Name: "first", Task: recordingTask{name: "first", log: &log}},
		Step{Name: "second", Task: recordingTask{name: "second", log: &log, err: &ExitError{Command: "drush x", ExitCode: 3}}},
	)
	_, err := c.Run(context.Background(), RunOptions{RunID: "run-42"})
	require.Error(t, err)
	logging.CloseAll()

	files, err := filepath.Glob(filepath.Join(state, "logs", "*_tasks.log"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)

	var steps []logging.StructuredLogEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		i := strings.Index(line, "{")
		if i < 0 {
			continue
		}
		var entry logging.StructuredLogEntry
		require.NoError(t, json.Unmarshal([]byte(line[i:]), &entry))
		if entry.Message == "step finished" {
			steps = append(steps, entry)
		}
	}
	require.Len(t, steps, 2)
	for _, entry := range steps {
		assert.Equal(t, "run-42", entry.RunID)
		assert.Equal(t, "logged", entry.Fields["collection"])
	}
	assert.Equal(t, "info", steps[0].Level)
	assert.Equal(t, "error", steps[1].Level)
	assert.Equal(t, "failed", steps[1].Fields["status"])
	assert.EqualValues(t, 3, steps[1].Fields["exit_code"])
}
