package tasks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tactile"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tactile/tactiletest"
)

func TestExecTask_Success(t *testing.T) {
	rec := tactiletest.New()
	rec.Output = "ok\n"
	var out bytes.Buffer

	task := Exec(rec, tactile.Command{Binary: "drush", Arguments: []string{"status"}}).WithOutput(&out, nil)
	require.NoError(t, task.Run(context.Background()))

	assert.Equal(t, []string{"drush status"}, rec.Lines())
	assert.Equal(t, "ok\n", out.String())
	assert.Equal(t, "drush status", task.Describe())
}

func TestExecTask_NonZeroExit(t *testing.T) {
	rec := tactiletest.New().FailOn("ups", 2)

	err := Exec(rec, tactile.Command{Binary: "drush", Arguments: []string{"ups"}}).Run(context.Background())

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 2, exitErr.ExitCode)
	assert.Equal(t, "drush ups", exitErr.Command)
}

func TestExecTask_InfrastructureError(t *testing.T) {
	rec := tactiletest.New().RespondTo("missing", tactile.ExecutionResult{Success: false, Error: "executable file not found"})

	err := Exec(rec, tactile.Command{Binary: "missing"}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "executable file not found")
}

func TestExecTask_Stdin(t *testing.T) {
	rec := tactiletest.New()
	closed := false

	task := Exec(rec, tactile.Command{Binary: "drush", Arguments: []string{"sql:cli"}}).
		WithStdin("dump.sql", func() (io.ReadCloser, error) {
			return closeSpy{Reader: strings.NewReader("CREATE TABLE t;"), closed: &closed}, nil
		})

	require.NoError(t, task.Run(context.Background()))
	require.Len(t, rec.Calls(), 1)
	assert.Equal(t, "CREATE TABLE t;", rec.Calls()[0].Stdin)
	assert.True(t, closed)
	assert.Equal(t, "drush sql:cli < dump.sql", task.Describe())
}

func TestExecTask_StdinOpenError(t *testing.T) {
	rec := tactiletest.New()
	task := Exec(rec, tactile.Command{Binary: "drush"}).
		WithStdin("gone.sql", func() (io.ReadCloser, error) { return nil, os.ErrNotExist })

	err := task.Run(context.Background())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Empty(t, rec.Calls())
}

func TestExecTask_Report(t *testing.T) {
	rec := tactiletest.New()
	rec.Output = "review passed\n"
	report := filepath.Join(t.TempDir(), "checkup", "security.out")
	var out bytes.Buffer

	task := Exec(rec, tactile.Command{Binary: "drush", Arguments: []string{"secrev"}}).
		WithOutput(&out, nil).
		WithReport(report)
	require.NoError(t, task.Run(context.Background()))

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "review passed\n", string(data))
	assert.Equal(t, "review passed\n", out.String())
	assert.NoFileExists(t, report+".part")
}

func TestExecTask_ReportKeptWhenCommandCannotStart(t *testing.T) {
	rec := tactiletest.New().RespondTo("secrev", tactile.ExecutionResult{Success: false, ExitCode: -1, Error: "exec: \"drush\": executable file not found"})
	report := filepath.Join(t.TempDir(), "security.out")
	require.NoError(t, os.WriteFile(report, []byte("previous review\n"), 0644))

	err := Exec(rec, tactile.Command{Binary: "drush", Arguments: []string{"secrev"}}).
		WithReport(report).
		Run(context.Background())
	require.Error(t, err)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "previous review\n", string(data))
	assert.NoFileExists(t, report+".part")
}

func TestExecTask_ReportWrittenOnNonZeroExit(t *testing.T) {
	rec := tactiletest.New().RespondTo("secrev", tactile.ExecutionResult{Success: true, ExitCode: 1, Stdout: "1 issue\n"})
	report := filepath.Join(t.TempDir(), "security.out")

	err := Exec(rec, tactile.Command{Binary: "drush", Arguments: []string{"secrev"}}).
		WithReport(report).
		Run(context.Background())
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Equal(t, "1 issue\n", string(data))
}

func TestExecTask_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Exec(tactiletest.New(), tactile.Command{Binary: "drush"}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

type closeSpy struct {
	io.Reader
	closed *bool
}

func (c closeSpy) Close() error {
	*c.closed = true
	return nil
}
