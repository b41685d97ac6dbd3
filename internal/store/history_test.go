package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

func newTestStore(t *testing.T) *HistoryStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type failingTask struct{}

func (failingTask) Run(ctx context.Context) error { return &tasks.ExitError{Command: "drush dl", ExitCode: 1} }
func (failingTask) Describe() string              { return "drush dl" }

func TestHistoryStore_RecordsRunThroughObserver(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c := tasks.NewCollection("checkup:security").
		AddTask("cacheClear", tasks.TaskFunc{Description: "drush cache:rebuild", Fn: func(context.Context) error { return nil }}).
		AddTask("downloadModules", failingTask{}).
		AddTask("enableModules", tasks.TaskFunc{Description: "drush en", Fn: func(context.Context) error { return nil }})

	require.NoError(t, s.BeginRun(ctx, "run-1", c.Name(), "", time.Now()))
	res, err := c.Run(ctx, tasks.RunOptions{RunID: "run-1", Observer: s})
	require.Error(t, err)
	require.NoError(t, s.RecordResult(ctx, res))

	run, err := s.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "checkup:security", run.Pipeline)
	assert.Equal(t, "failed", run.Status)
	assert.Equal(t, "downloadModules", run.FailedStep)
	assert.Contains(t, run.Error, "exited with code 1")
	assert.False(t, run.FinishedAt.IsZero())

	require.Len(t, run.Steps, 3)
	assert.Equal(t, "succeeded", run.Steps[0].Status)
	assert.Equal(t, "failed", run.Steps[1].Status)
	assert.Equal(t, 1, run.Steps[1].ExitCode)
	assert.Equal(t, "skipped", run.Steps[2].Status)
	assert.Equal(t, "drush en", run.Steps[2].Description)
}

func TestHistoryStore_RecentNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	for i, name := range []string{"scaffold", "analyze:php", "install:database"} {
		id := name + "-run"
		require.NoError(t, s.BeginRun(ctx, id, name, "", base.Add(time.Duration(i)*time.Minute)))
		require.NoError(t, s.FinishRun(ctx, id, "succeeded", "", nil, base.Add(time.Duration(i)*time.Minute+time.Second)))
	}

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "install:database", runs[0].Pipeline)
	assert.Equal(t, "analyze:php", runs[1].Pipeline)
	assert.Equal(t, time.Second, runs[0].Duration())
}

func TestHistoryStore_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	assert.Error(t, s.FinishRun(ctx, "missing", "failed", "", nil, time.Now()))

	require.NoError(t, s.BeginRun(ctx, "dup", "scaffold", "", time.Now()))
	assert.Error(t, s.BeginRun(ctx, "dup", "scaffold", "", time.Now()))
}

func TestHistoryStore_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.BeginRun(context.Background(), "r", "scaffold", "", time.Now()))
	runs, err := s.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
	assert.True(t, runs[0].FinishedAt.IsZero())
}
