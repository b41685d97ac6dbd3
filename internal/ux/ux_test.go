package ux

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/preflight"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/store"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

func sampleCollection() *tasks.Collection {
	ok := func(context.Context) error { return nil }
	return tasks.NewCollection("checkup:modules").
		AddTask("securityUpdates", tasks.TaskFunc{Description: "drush ups --security-only -y", Fn: ok}).
		AddTask("listEnabledModules", tasks.TaskFunc{Description: "drush pml --status=enabled -y", Fn: ok})
}

func TestPlanMarkdown(t *testing.T) {
	md := PlanMarkdown("Run modules checkup", sampleCollection())

	assert.Contains(t, md, "# checkup:modules")
	assert.Contains(t, md, "Run modules checkup.")
	assert.Contains(t, md, "1. **securityUpdates**")
	assert.Contains(t, md, "2. **listEnabledModules**")
	assert.Contains(t, md, "drush pml --status=enabled -y")
}

func TestRenderMarkdown(t *testing.T) {
	out, err := RenderMarkdown(PlanMarkdown("", sampleCollection()), "notty", 100)
	require.NoError(t, err)
	assert.Contains(t, out, "securityUpdates")
	assert.Contains(t, out, "drush ups --security-only -y")
}

func TestPrinter_Run(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	c := sampleCollection().AddTask("enableModules", tasks.TaskFunc{
		Description: "drush en hacked",
		Fn:          func(context.Context) error { return &tasks.ExitError{Command: "drush en", ExitCode: 1} },
	}).AddTask("never", tasks.TaskFunc{Description: "noop", Fn: func(context.Context) error { return nil }})

	p.Header(c.Name(), "run-1", false)
	res, err := c.Run(context.Background(), tasks.RunOptions{Observer: p})
	require.Error(t, err)
	p.Summary(res)
	p.Error(err)

	out := buf.String()
	assert.Contains(t, out, "checkup:modules")
	assert.Contains(t, out, "[1] securityUpdates")
	assert.Contains(t, out, "FAIL enableModules")
	assert.Contains(t, out, "skip never")
	assert.Contains(t, out, "[FAILED] checkup:modules at enableModules")
	assert.Contains(t, out, "[ERROR]")
}

func TestPrinter_Warning(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Warning("No website found! You have to copy Drupal codebase in /web folder.")
	assert.Contains(t, buf.String(), "[WARNING] No website found!")
}

func TestPrinter_History(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.History(nil)
	assert.Contains(t, buf.String(), "No runs recorded.")

	buf.Reset()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	p.History([]store.Run{
		{Pipeline: "scaffold", Status: "succeeded", StartedAt: start, FinishedAt: start.Add(2 * time.Second)},
		{Pipeline: "checkup:security", Status: "failed", FailedStep: "hacked", StartedAt: start},
	})
	out := buf.String()
	assert.Contains(t, out, "2026-03-01 10:00:00")
	assert.Contains(t, out, "scaffold")
	assert.Contains(t, out, "at hacked")
}

func TestPrinter_Preflight(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).Preflight(preflight.Report{Results: []preflight.Result{
		{Name: "drush binary", Status: preflight.StatusFail, Detail: "not found"},
		{Name: "site directory", Status: preflight.StatusOK, Detail: "/srv/web/sites/default"},
	}})
	out := buf.String()
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "not found")
	assert.Contains(t, out, "site directory")
}

func TestPrinter_DryRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	res, err := sampleCollection().Run(context.Background(), tasks.RunOptions{DryRun: true})
	require.NoError(t, err)
	p.Header(res.Name, res.RunID, true)
	p.Summary(res)

	out := buf.String()
	assert.Contains(t, out, "(dry run)")
	assert.Contains(t, out, "[1] securityUpdates")
	assert.False(t, errors.Is(err, tasks.ErrEmptyCollection))
}
