package pipelines

import (
	"path/filepath"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

func buildCheckupModules(env *Env, _ []string) (*tasks.Collection, error) {
	modules := env.Config.Checkup.Modules
	return tasks.NewCollection(CheckupModules).AddTaskList(
		tasks.Step{Name: "securityUpdates", Task: env.Exec(env.Drush().Option("security-only").Drush("ups"))},
		tasks.Step{Name: "listEnabledModules", Task: env.Exec(env.Drush().Option("status", "enabled").Drush("pml"))},
		tasks.Step{Name: "listDisabledModules", Task: env.Exec(env.Drush().Option("status", "disabled,not installed").Drush("pml"))},
		tasks.Step{Name: "enableModules", Task: env.Exec(env.Drush().Arg(modules...).Drush("en"))},
	), nil
}

func buildCheckupSecurity(env *Env, _ []string) (*tasks.Collection, error) {
	modules := env.Config.Checkup.Modules
	return tasks.NewCollection(CheckupSecurity).AddTaskList(
		tasks.Step{Name: "cacheClear", Task: env.Exec(env.Drush().ClearCache())},
		tasks.Step{Name: "downloadModules", Task: env.Exec(env.Drush().Arg(modules...).Drush("dl"))},
		tasks.Step{Name: "enableModules", Task: env.Exec(env.Drush().Arg(modules...).Drush("en"))},
		tasks.Step{Name: "hacked", Task: env.Exec(env.Drush().Option("force-rebuild").Drush("hlp"))},
		tasks.Step{Name: "securityReview", Task: env.Exec(env.Drush().Option("full").Option("store").Drush("secrev")).WithReport(env.Paths.SecurityFile)},
	), nil
}

func buildCheckupUninstall(env *Env, _ []string) (*tasks.Collection, error) {
	modules := env.Config.Checkup.Modules

	// drush dl puts modules in modules/contrib when it exists, else in modules
	var dirs []string
	for _, m := range modules {
		dirs = append(dirs,
			filepath.Join(env.Paths.DrupalRoot, "modules", "contrib", m),
			filepath.Join(env.Paths.DrupalRoot, "modules", m))
	}

	return tasks.NewCollection(CheckupUninstall).AddTaskList(
		tasks.Step{Name: "uninstallModules", Task: env.Exec(env.Drush().Arg(modules...).Drush("pmu"))},
		tasks.Step{Name: "deleteModules", Task: tasks.Filesystem().Remove(dirs...)},
		tasks.Step{Name: "cacheRebuild", Task: env.Exec(env.Drush().Drush("cache:rebuild"))},
	), nil
}
