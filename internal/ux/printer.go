package ux

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/preflight"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/store"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

var (
	colorAccent  = lipgloss.Color("#8BC34A")
	colorWarning = lipgloss.Color("#FFC107")
	colorError   = lipgloss.Color("#e53935")
	colorInfo    = lipgloss.Color("#2196F3")
	colorMuted   = lipgloss.Color("#6b7280")
)

// Printer writes styled progress and reports for humans.
// Styles degrade to plain text when w is not a terminal.
type Printer struct {
	w io.Writer

	title   lipgloss.Style
	step    lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	fail    lipgloss.Style
	muted   lipgloss.Style
	warnBox lipgloss.Style
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	r := lipgloss.NewRenderer(w)
	return &Printer{
		w:     w,
		title: r.NewStyle().Bold(true).Foreground(colorAccent),
		step:  r.NewStyle().Bold(true).Foreground(colorInfo),
		ok:    r.NewStyle().Foreground(colorAccent),
		warn:  r.NewStyle().Foreground(colorWarning),
		fail:  r.NewStyle().Bold(true).Foreground(colorError),
		muted: r.NewStyle().Foreground(colorMuted),
		warnBox: r.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(colorWarning).
			Foreground(colorWarning).
			Padding(0, 1),
	}
}

// Header announces a pipeline run.
func (p *Printer) Header(pipeline, runID string, dryRun bool) {
	line := p.title.Render(pipeline)
	if dryRun {
		line += " " + p.warn.Render("(dry run)")
	}
	fmt.Fprintf(p.w, "%s %s\n", line, p.muted.Render(runID))
}

// Warning prints a boxed warning.
func (p *Printer) Warning(msg string) {
	fmt.Fprintln(p.w, p.warnBox.Render("[WARNING] "+msg))
}

// Error prints an error line.
func (p *Printer) Error(err error) {
	fmt.Fprintln(p.w, p.fail.Render("[ERROR] ")+err.Error())
}

// StepStarted implements tasks.Observer.
func (p *Printer) StepStarted(runID string, position int, step tasks.Step) {
	fmt.Fprintf(p.w, "%s %s\n", p.step.Render(fmt.Sprintf("[%d] %s", position, step.Name)), p.muted.Render(step.Task.Describe()))
}

// StepFinished implements tasks.Observer.
func (p *Printer) StepFinished(runID string, result tasks.StepResult) {
	fmt.Fprintln(p.w, p.stepLine(result))
}

func (p *Printer) stepLine(r tasks.StepResult) string {
	switch r.Status {
	case tasks.StatusSucceeded:
		return p.ok.Render(" ok   ") + r.Name + p.muted.Render(" "+round(r.Duration))
	case tasks.StatusFailed:
		return p.fail.Render(" FAIL ") + r.Name + p.muted.Render(fmt.Sprintf(" exit %d", r.ExitCode))
	case tasks.StatusCanceled:
		return p.warn.Render(" stop ") + r.Name
	case tasks.StatusPlanned:
		return p.muted.Render(fmt.Sprintf(" [%d] ", r.Position)) + r.Name + "  " + p.muted.Render(r.Description)
	default:
		return p.muted.Render(" skip " + r.Name)
	}
}

// Summary prints the outcome of a run, listing steps the observer never saw.
func (p *Printer) Summary(res *tasks.Result) {
	for _, s := range res.Steps {
		if s.Status == tasks.StatusSkipped || s.Status == tasks.StatusPlanned {
			fmt.Fprintln(p.w, p.stepLine(s))
		}
	}

	elapsed := round(res.FinishedAt.Sub(res.StartedAt))
	switch res.Status {
	case tasks.StatusSucceeded:
		fmt.Fprintf(p.w, "%s %s\n", p.ok.Render("[OK] "+res.Name+" done"), p.muted.Render(elapsed))
	case tasks.StatusCanceled:
		fmt.Fprintf(p.w, "%s\n", p.warn.Render("[CANCELED] "+res.Name+" at "+res.FailedStep()))
	default:
		fmt.Fprintf(p.w, "%s\n", p.fail.Render("[FAILED] "+res.Name+" at "+res.FailedStep()))
	}
}

// History prints recorded runs as a table.
func (p *Printer) History(runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(p.w, p.muted.Render("No runs recorded."))
		return
	}
	for _, r := range runs {
		status := r.Status
		switch r.Status {
		case string(tasks.StatusSucceeded):
			status = p.ok.Render(fmt.Sprintf("%-9s", r.Status))
		case string(tasks.StatusFailed):
			status = p.fail.Render(fmt.Sprintf("%-9s", r.Status))
		default:
			status = p.warn.Render(fmt.Sprintf("%-9s", r.Status))
		}
		line := fmt.Sprintf("%s  %s  %-18s %s", r.StartedAt.Format("2006-01-02 15:04:05"), status, r.Pipeline, p.muted.Render(round(r.Duration())))
		if r.FailedStep != "" {
			line += "  " + p.fail.Render("at "+r.FailedStep)
		}
		fmt.Fprintln(p.w, line)
	}
}

// Preflight prints doctor results.
func (p *Printer) Preflight(report preflight.Report) {
	width := 0
	for _, r := range report.Results {
		width = max(width, len(r.Name))
	}
	for _, r := range report.Results {
		var mark string
		switch r.Status {
		case preflight.StatusOK:
			mark = p.ok.Render("ok  ")
		case preflight.StatusWarn:
			mark = p.warn.Render("warn")
		default:
			mark = p.fail.Render("FAIL")
		}
		fmt.Fprintf(p.w, "%s  %s  %s\n", mark, r.Name+strings.Repeat(" ", width-len(r.Name)), p.muted.Render(r.Detail))
	}
}

func round(d time.Duration) string {
	switch {
	case d <= 0:
		return ""
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(100 * time.Millisecond).String()
	}
}
