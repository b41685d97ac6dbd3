package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/store"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

var historyLimit int

// historyCmd lists recorded runs
var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent pipeline runs",
	Long: `Lists the most recent pipeline runs recorded in the history database.
With a run id, shows every step of that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	if a.paths.History == "" {
		return fmt.Errorf("history.database_path is not configured")
	}
	h, err := store.Open(a.paths.History)
	if err != nil {
		return err
	}
	defer h.Close()

	ctx := context.Background()
	if len(args) == 0 {
		runs, err := h.Recent(ctx, historyLimit)
		if err != nil {
			return err
		}
		a.printer.History(runs)
		return nil
	}

	run, err := h.Get(ctx, args[0])
	if err != nil {
		return err
	}
	a.printer.History([]store.Run{*run})
	for _, s := range run.Steps {
		a.printer.StepFinished(run.ID, tasks.StepResult{
			Position:    s.Position,
			Name:        s.Name,
			Description: s.Description,
			Status:      tasks.StepStatus(s.Status),
			ExitCode:    s.ExitCode,
			Duration:    s.Duration,
		})
	}
	if run.Error != "" {
		fmt.Fprintln(cmd.OutOrStdout(), run.Error)
	}
	return nil
}
