package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
)

var (
	// Global flags
	verbose    bool
	projectDir string
	configPath string
	dryRun     bool
	timeout    time.Duration
	noHistory  bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "checkup",
	Short: "Drupal checkup and deployment task runner",
	Long: `checkup runs the fixed maintenance pipelines of a Drupal project:
security updates and module reviews through drush, database restores,
static analysis with phpqa and scaffolding of settings files.

Each pipeline is an ordered list of named steps. Steps run one after
another and the pipeline stops at the first failure.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "Project root (default: project.root from config, or current directory)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <project>/checkup.yml)")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "Print the steps without running them")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Overall timeout for a run (0 = none)")
	rootCmd.PersistentFlags().BoolVar(&noHistory, "no-history", false, "Do not record the run in the history database")

	for _, cmd := range pipelineCommands() {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext returns a context canceled on SIGINT/SIGTERM or when the
// --timeout elapses.
func commandContext() (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			logger.Info("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}
