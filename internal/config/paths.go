package config

import (
	"fmt"
	"path/filepath"
)

// Paths holds absolute locations derived from ProjectConfig.
type Paths struct {
	Project      string
	DrupalRoot   string
	Site         string
	SiteDir      string
	Backups      string
	Checkup      string
	SecurityFile string
	Scaffold     string
	State        string
	Logs         string
	History      string
	AuditLog     string
}

// ResolvePaths computes Paths for the configured project.
// A non-empty override replaces project.root.
func (c *Config) ResolvePaths(override string) (Paths, error) {
	root := c.Project.Root
	if override != "" {
		root = override
	}
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return Paths{}, fmt.Errorf("failed to resolve project root %q: %w", root, err)
	}

	p := Paths{
		Project:    abs,
		DrupalRoot: under(abs, c.Project.DrupalRoot),
		Site:       c.Project.Site,
		Backups:    under(abs, c.Project.BackupsDir),
		Checkup:    under(abs, c.Project.CheckupDir),
		Scaffold:   under(abs, c.Project.ScaffoldDir),
		State:      under(abs, c.Project.StateDir),
	}
	p.SiteDir = filepath.Join(p.DrupalRoot, "sites", p.Site)
	p.SecurityFile = filepath.Join(p.Checkup, c.Checkup.ReportFile)
	p.Logs = filepath.Join(p.State, "logs")
	if c.History.DatabasePath != "" {
		p.History = under(p.State, c.History.DatabasePath)
	}
	if c.Execution.AuditLog != "" {
		p.AuditLog = under(p.State, c.Execution.AuditLog)
	}
	return p, nil
}

func under(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
