package main

import (
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/preflight"
)

var doctorParallel int

// doctorCmd checks the project environment
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that drush, phpqa and the project layout are usable",
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().IntVar(&doctorParallel, "parallel", 4, "Checks to run at once")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	report := preflight.Run(ctx, preflight.DefaultChecks(a.env()), doctorParallel)
	a.printer.Preflight(report)

	if report.Failed() {
		logger.Debug("Preflight failed", zap.Int("checks", len(report.Results)))
		return errors.New("preflight checks failed")
	}
	return nil
}
