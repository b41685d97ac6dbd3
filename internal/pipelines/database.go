package pipelines

import (
	"fmt"
	"path/filepath"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/dump"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

func buildInstallDatabase(env *Env, args []string) (*tasks.Collection, error) {
	path, err := dump.Resolve(args[0], env.Paths.Backups)
	if err != nil {
		return nil, fmt.Errorf("install:database: %w", err)
	}

	sqlCli := env.Exec(env.Drush().Drush("sql:cli")).
		WithStdin(filepath.Base(path), dump.Opener(path))

	return tasks.NewCollection(InstallDatabase).AddTaskList(
		tasks.Step{Name: "sqlDrop", Task: env.Exec(env.Drush().Drush("sql:drop"))},
		tasks.Step{Name: "sqlCli", Task: sqlCli},
		tasks.Step{Name: "cacheClear", Task: env.Exec(env.Drush().ClearCache())},
	), nil
}
