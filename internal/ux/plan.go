package ux

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

// PlanMarkdown describes the steps of a collection as markdown.
func PlanMarkdown(summary string, c *tasks.Collection) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", c.Name())
	if summary != "" {
		fmt.Fprintf(&b, "%s.\n\n", strings.TrimSuffix(summary, "."))
	}
	for i, s := range c.Steps() {
		fmt.Fprintf(&b, "%d. **%s**\n\n", i+1, s.Name)
		fmt.Fprintf(&b, "   ```sh\n   %s\n   ```\n\n", s.Task.Describe())
	}
	return b.String()
}

// RenderMarkdown renders md for the terminal. style is a glamour standard
// style name ("dark", "light", "notty"); empty means auto-detect.
func RenderMarkdown(md string, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}
