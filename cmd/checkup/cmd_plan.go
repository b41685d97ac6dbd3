package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/pipelines"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/ux"
)

var (
	planRaw   bool
	planWidth int
)

// planCmd renders the steps of a pipeline without running them
var planCmd = &cobra.Command{
	Use:   "plan <pipeline> [args...]",
	Short: "Show the steps and commands of a pipeline",
	Long: `Renders the ordered steps of a pipeline, with the exact command line
of each step, as markdown. Nothing is executed.

Example:
  checkup plan checkup:security
  checkup plan install:database backups/prod.sql.gz --raw`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().BoolVar(&planRaw, "raw", false, "Print markdown source instead of rendering it")
	planCmd.Flags().IntVar(&planWidth, "width", 100, "Word wrap width")
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()

	def, err := pipelines.Lookup(args[0])
	if err != nil {
		return err
	}
	c, err := pipelines.Build(def.Name, a.env(), args[1:])
	if errors.Is(err, pipelines.ErrNoSite) {
		a.printer.Warning(pipelines.NoSiteWarning)
		return nil
	}
	if err != nil {
		return err
	}

	md := ux.PlanMarkdown(def.Summary, c)
	if planRaw {
		fmt.Fprint(cmd.OutOrStdout(), md)
		return nil
	}

	style := "notty"
	if f, ok := cmd.OutOrStdout().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		style = ""
	}
	out, err := ux.RenderMarkdown(md, style, planWidth)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}
