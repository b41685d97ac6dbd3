package pipelines

import (
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tactile"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

func buildAnalyzePHP(env *Env, _ []string) (*tasks.Collection, error) {
	a := env.Config.Analyze

	var argv []string
	opt := func(name, value string) {
		if value != "" {
			argv = append(argv, "--"+name, value)
		}
	}
	opt("analyzedDirs", a.AnalyzedDirs)
	opt("buildDir", a.BuildDir)
	opt("ignoredFiles", a.IgnoredFiles)
	opt("tools", a.Tools)
	opt("execution", a.Execution)
	if a.Report {
		argv = append(argv, "--report")
	}

	cmd := tactile.Command{
		Binary:           a.Binary,
		Arguments:        argv,
		WorkingDirectory: env.Paths.Project,
		Tags:             map[string]string{"tool": "phpqa"},
	}
	return tasks.NewCollection(AnalyzePHP).AddTask("phpqa", env.Exec(cmd)), nil
}
