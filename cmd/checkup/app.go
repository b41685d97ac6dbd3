package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/config"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/pipelines"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/store"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tactile"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/ux"
)

// newExecutor builds the process executor. Replaced in tests.
var newExecutor = func(cfg *config.Config, paths config.Paths) tactile.Executor {
	ec := tactile.DefaultExecutorConfig()
	ec.DefaultWorkingDir = paths.Project
	ec.DefaultTimeout = cfg.GetExecutionTimeout()
	ec.MaxTimeout = cfg.GetMaxTimeout()
	ec.InheritEnvironment = cfg.Execution.InheritEnvironment
	if len(cfg.Execution.AllowedEnvVars) > 0 {
		ec.AllowedEnvironment = cfg.Execution.AllowedEnvVars
	}
	return tactile.NewDirectExecutorWithConfig(ec)
}

// app is the per-invocation wiring shared by commands.
type app struct {
	cfg     *config.Config
	paths   config.Paths
	audit   *tactile.AuditLogger
	exec    tactile.Executor
	history *store.HistoryStore
	printer *ux.Printer
	stdout  io.Writer
	stderr  io.Writer
}

// resolveConfigPath returns -c, else checkup.yml in the project root.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	root := projectDir
	if root == "" {
		root = os.Getenv("CHECKUP_PROJECT_ROOT")
	}
	if root == "" {
		root = "."
	}
	return filepath.Join(root, config.DefaultFileName)
}

// newApp loads configuration and wires the executor, audit log and history.
// withHistory opens the history database when it is enabled.
func newApp(cmd *cobra.Command, withHistory bool) (*app, error) {
	path := resolveConfigPath()
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	paths, err := cfg.ResolvePaths(projectDir)
	if err != nil {
		return nil, err
	}

	if err := logging.Initialize(paths.State); err != nil {
		logger.Warn("File logging disabled", zap.Error(err))
	} else if cfg.Logging.DebugMode {
		if err := logging.Enable(cfg.Logging.Level, cfg.Logging.Format == "json", cfg.Logging.Categories); err != nil {
			logger.Warn("File logging disabled", zap.Error(err))
		}
	}
	logging.Boot("Config %s, project %s, site %s", path, paths.Project, paths.Site)
	logging.BootDebug("Paths: drupal_root=%s site_dir=%s backups=%s state=%s", paths.DrupalRoot, paths.SiteDir, paths.Backups, paths.State)

	a := &app{
		cfg:     cfg,
		paths:   paths,
		audit:   tactile.NewAuditLogger(),
		printer: ux.NewPrinter(cmd.OutOrStdout()),
		stdout:  cmd.OutOrStdout(),
		stderr:  cmd.ErrOrStderr(),
	}

	if !dryRun && paths.AuditLog != "" {
		if err := a.audit.EnableFileLogging(paths.AuditLog); err != nil {
			logger.Warn("Audit log disabled", zap.String("path", paths.AuditLog), zap.Error(err))
		}
	}
	a.audit.AddCallback(func(e tactile.AuditEvent) {
		fields := []zap.Field{
			zap.String("event", string(e.Type)),
			zap.String("command", e.Command.CommandString()),
			zap.String("request", e.Command.RequestID),
			zap.String("run", e.SessionID),
		}
		if e.Result != nil && e.Result.ResourceUsage != nil {
			fields = append(fields,
				zap.Int64("cpu_ms", e.Result.ResourceUsage.TotalCPUTimeMs()),
				zap.Int64("max_rss_bytes", e.Result.ResourceUsage.MaxRSSBytes))
		}
		logger.Debug("exec", fields...)
	})
	a.exec = tactile.NewAuditedExecutor(newExecutor(cfg, paths), a.audit)

	if withHistory && cfg.History.Enabled && !noHistory && !dryRun && paths.History != "" {
		h, err := store.Open(paths.History)
		if err != nil {
			logger.Warn("Run history disabled", zap.String("path", paths.History), zap.Error(err))
		} else {
			a.history = h
		}
	}

	logger.Debug("Project resolved",
		zap.String("config", path),
		zap.String("project", paths.Project),
		zap.String("drupal_root", paths.DrupalRoot),
		zap.String("site", paths.Site))
	return a, nil
}

func (a *app) env() *pipelines.Env {
	return &pipelines.Env{
		Config:   a.cfg,
		Paths:    a.paths,
		Executor: a.exec,
		Stdout:   a.stdout,
		Stderr:   a.stderr,
	}
}

func (a *app) close() {
	if a.history != nil {
		_ = a.history.Close()
	}
	m := a.audit.GetMetrics()
	if m.TotalExecutions > 0 {
		logger.Debug("Execution metrics",
			zap.Int64("total", m.TotalExecutions),
			zap.Int64("non_zero", m.NonZeroExecutions),
			zap.Int64("killed", m.KilledExecutions),
			zap.Int64("duration_ms", m.TotalDurationMs))
	}
	_ = a.audit.Close()
}
