package main

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/pipelines"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

// pipelineCommands returns one command per registered pipeline.
func pipelineCommands() []*cobra.Command {
	var cmds []*cobra.Command
	for _, def := range pipelines.All() {
		use := def.Name
		for _, a := range def.Args {
			use += " <" + a + ">"
		}
		cmds = append(cmds, &cobra.Command{
			Use:   use,
			Short: def.Summary,
			Args:  cobra.ExactArgs(len(def.Args)),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runPipeline(cmd, def.Name, args)
			},
		})
	}
	return cmds
}

// runPipeline builds and runs a pipeline, recording it in the history.
func runPipeline(cmd *cobra.Command, name string, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.close()

	runID := uuid.NewString()
	logger.Info("Running pipeline", zap.String("pipeline", name), zap.Strings("args", args), zap.String("run", runID))

	env := a.env()
	env.RunID = runID
	c, err := pipelines.Build(name, env, args)
	if errors.Is(err, pipelines.ErrNoSite) {
		a.printer.Warning(pipelines.NoSiteWarning)
		a.recordSkipped(ctx, runID, name, args, err)
		return nil
	}
	if err != nil {
		return err
	}

	a.printer.Header(name, runID, dryRun)

	var observer tasks.Observer = a.printer
	if a.history != nil {
		if err := a.history.BeginRun(ctx, runID, name, strings.Join(args, " "), time.Now()); err != nil {
			logger.Warn("Could not record run", zap.Error(err))
		} else {
			observer = tasks.Observers(a.printer, a.history)
		}
	}

	res, runErr := c.Run(ctx, tasks.RunOptions{RunID: runID, DryRun: dryRun, Observer: observer})
	if res == nil {
		return runErr
	}
	a.printer.Summary(res)

	if a.history != nil {
		// the run context may already be canceled; history must still be written
		if err := a.history.RecordResult(context.Background(), res); err != nil {
			logger.Warn("Could not record run result", zap.Error(err))
		}
	}

	if runErr != nil {
		logger.Error("Pipeline failed",
			zap.String("pipeline", name),
			zap.String("step", res.FailedStep()),
			zap.Int("exit_code", tasks.ExitCode(runErr)),
			zap.Error(runErr))
		return runErr
	}
	logger.Info("Pipeline finished", zap.String("pipeline", name), zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)))
	return nil
}

func (a *app) recordSkipped(ctx context.Context, runID, name string, args []string, reason error) {
	if a.history == nil {
		return
	}
	now := time.Now()
	if err := a.history.BeginRun(ctx, runID, name, strings.Join(args, " "), now); err != nil {
		logger.Warn("Could not record run", zap.Error(err))
		return
	}
	if err := a.history.FinishRun(ctx, runID, string(tasks.StatusSkipped), "", reason, now); err != nil {
		logger.Warn("Could not record run result", zap.Error(err))
	}
}
