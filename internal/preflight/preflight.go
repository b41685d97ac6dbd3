// Package preflight runs independent environment checks concurrently before
// a pipeline is trusted to work: binaries, directories, templates and a
// live drush status call.
package preflight

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/pipelines"
)

// Status is the outcome of a check.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is one named probe. Run reports a status and a short detail.
type Check struct {
	Name string
	Run  func(ctx context.Context) (Status, string)
}

// Result is the outcome of a check.
type Result struct {
	Name     string        `json:"name"`
	Status   Status        `json:"status"`
	Detail   string        `json:"detail"`
	Duration time.Duration `json:"duration"`
}

// Report collects the results of a preflight run.
type Report struct {
	Results []Result `json:"results"`
}

// Failed reports whether any check failed.
func (r Report) Failed() bool {
	for _, res := range r.Results {
		if res.Status == StatusFail {
			return true
		}
	}
	return false
}

// Run executes checks concurrently, at most limit at a time (no limit when
// limit <= 0). Results keep the order of checks.
func Run(ctx context.Context, checks []Check, limit int) Report {
	results := make([]Result, len(checks))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	var mu sync.Mutex
	for i, check := range checks {
		g.Go(func() error {
			start := time.Now()
			status, detail := check.Run(gctx)
			res := Result{Name: check.Name, Status: status, Detail: detail, Duration: time.Since(start)}

			mu.Lock()
			results[i] = res
			mu.Unlock()

			logging.PreflightDebug("%s: %s (%s)", check.Name, status, detail)
			return nil
		})
	}
	_ = g.Wait()

	logging.Preflight("Ran %d checks", len(checks))
	return Report{Results: results}
}

// DefaultChecks returns the checks for a project.
func DefaultChecks(env *pipelines.Env) []Check {
	p := env.Paths
	cfg := env.Config

	return []Check{
		{Name: "drush binary", Run: binaryCheck(cfg.Drush.Binary, p.Project, StatusFail)},
		{Name: "phpqa binary", Run: binaryCheck(cfg.Analyze.Binary, p.Project, StatusWarn)},
		{Name: "drupal root", Run: dirCheck(p.DrupalRoot, StatusFail)},
		{Name: "site directory", Run: dirCheck(p.SiteDir, StatusWarn)},
		{Name: "backups directory", Run: dirCheck(p.Backups, StatusWarn)},
		{Name: "scaffold templates", Run: filesCheck(StatusWarn,
			filepath.Join(p.Scaffold, pipelines.TemplateSettings),
			filepath.Join(p.Scaffold, pipelines.TemplateLocal))},
		{Name: "state directory", Run: writableCheck(p.State)},
		{Name: "drush status", Run: drushStatusCheck(env)},
	}
}

func binaryCheck(binary, dir string, missing Status) func(context.Context) (Status, string) {
	return func(ctx context.Context) (Status, string) {
		if binary == "" {
			return missing, "not configured"
		}
		candidate := binary
		if strings.ContainsRune(binary, filepath.Separator) && !filepath.IsAbs(binary) {
			candidate = filepath.Join(dir, binary)
		}
		path, err := exec.LookPath(candidate)
		if err != nil {
			return missing, err.Error()
		}
		return StatusOK, path
	}
}

func dirCheck(dir string, missing Status) func(context.Context) (Status, string) {
	return func(ctx context.Context) (Status, string) {
		info, err := os.Stat(dir)
		switch {
		case err != nil:
			return missing, fmt.Sprintf("%s: %v", dir, err)
		case !info.IsDir():
			return missing, dir + " is not a directory"
		}
		return StatusOK, dir
	}
}

func filesCheck(missing Status, files ...string) func(context.Context) (Status, string) {
	return func(ctx context.Context) (Status, string) {
		var absent []string
		for _, f := range files {
			if _, err := os.Stat(f); err != nil {
				absent = append(absent, filepath.Base(f))
			}
		}
		if len(absent) > 0 {
			return missing, "missing " + strings.Join(absent, ", ")
		}
		return StatusOK, fmt.Sprintf("%d files", len(files))
	}
}

func writableCheck(dir string) func(context.Context) (Status, string) {
	return func(ctx context.Context) (Status, string) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return StatusFail, err.Error()
		}
		f, err := os.CreateTemp(dir, ".preflight-*")
		if err != nil {
			return StatusFail, err.Error()
		}
		name := f.Name()
		f.Close()
		os.Remove(name)
		return StatusOK, dir
	}
}

func drushStatusCheck(env *pipelines.Env) func(context.Context) (Status, string) {
	return func(ctx context.Context) (Status, string) {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		cmd := env.Drush().AssumeYes(false).Option("fields", "bootstrap").Drush("status")
		result, err := env.Executor.Execute(ctx, cmd)
		switch {
		case err != nil:
			return StatusWarn, err.Error()
		case result.Killed:
			return StatusWarn, result.KillReason
		case result.IsError():
			return StatusWarn, result.Error
		case result.ExitCode != 0:
			return StatusWarn, fmt.Sprintf("exit code %d", result.ExitCode)
		}
		out := strings.TrimSpace(result.Stdout)
		if out == "" {
			out = "drush responded"
		}
		return StatusOK, out
	}
}
