package pipelines

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

// Scaffold template file names, relative to the scaffold directory.
const (
	OriginSettings   = "origin.settings.php"
	TemplateSettings = "tpl.settings.php"
	TemplateLocal    = "tpl.settings.local.php"
)

func buildScaffold(env *Env, _ []string) (*tasks.Collection, error) {
	base := env.Paths.SiteDir
	scaffold := env.Paths.Scaffold

	info, err := os.Stat(base)
	if err != nil || !info.IsDir() {
		logging.ScaffoldWarn("Site directory %s missing", base)
		return nil, fmt.Errorf("%w: %s", ErrNoSite, base)
	}

	settings := filepath.Join(base, "settings.php")
	origin := filepath.Join(scaffold, OriginSettings)

	c := tasks.NewCollection(Scaffold)

	// The pristine settings.php is kept once; later runs rebuild from it.
	if _, err := os.Stat(origin); os.IsNotExist(err) {
		c.AddTask("backup-settings-php", tasks.Filesystem().Copy(settings, origin))
	}

	c.AddTaskList(
		tasks.Step{Name: "add-settings-local-php", Task: tasks.Filesystem().Copy(filepath.Join(scaffold, TemplateLocal), filepath.Join(base, "settings.local.php"))},
		tasks.Step{Name: "set-permission-default", Task: tasks.Filesystem().Chmod(base, 0755)},
		tasks.Step{Name: "write-permission-settings-php", Task: tasks.Filesystem().Chmod(settings, 0644)},
		tasks.Step{Name: "append-settings-php", Task: tasks.Concat(origin, filepath.Join(scaffold, TemplateSettings)).To(settings)},
		tasks.Step{Name: "read-permission-settings-php", Task: tasks.Filesystem().Chmod(settings, 0444)},
	)
	return c, nil
}
