// Package pipelines holds the fixed task pipelines checkup can run.
// Each pipeline builds a tasks.Collection from the project configuration;
// nothing is executed until the collection is run.
package pipelines

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/config"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/drush"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tactile"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tasks"
)

// Pipeline names, as exposed on the command line.
const (
	CheckupModules   = "checkup:modules"
	CheckupSecurity  = "checkup:security"
	CheckupUninstall = "checkup:uninstall"
	InstallDatabase  = "install:database"
	AnalyzePHP       = "analyze:php"
	Scaffold         = "scaffold"
)

// NoSiteWarning is printed when scaffold finds no Drupal site directory.
const NoSiteWarning = "No website found! You have to copy Drupal codebase in /web folder."

// ErrNoSite is returned by the scaffold pipeline when the site directory
// does not exist. It is a warning, not a failure.
var ErrNoSite = errors.New("site directory not found")

// ErrUnknownPipeline is returned by Lookup for unregistered names.
var ErrUnknownPipeline = errors.New("unknown pipeline")

// Env is everything a pipeline needs to build its steps.
type Env struct {
	Config   *config.Config
	Paths    config.Paths
	Executor tactile.Executor

	// RunID tags every command with the pipeline run it belongs to.
	RunID string

	// Stdout and Stderr receive live process output.
	Stdout io.Writer
	Stderr io.Writer
}

// Drush returns a fresh drush stack bound to the project.
func (e *Env) Drush() *drush.Stack {
	return drush.FromConfig(e.Config.Drush, e.Paths)
}

// Exec wraps cmd in a task wired to the env's executor and output.
func (e *Env) Exec(cmd tactile.Command) *tasks.ExecTask {
	if cmd.SessionID == "" {
		cmd.SessionID = e.RunID
	}
	return tasks.Exec(e.Executor, cmd).WithOutput(e.Stdout, e.Stderr)
}

// Definition describes one pipeline.
type Definition struct {
	Name    string
	Summary string

	// Args names the positional arguments, all required.
	Args []string

	Build func(env *Env, args []string) (*tasks.Collection, error)
}

var registry = map[string]Definition{}

func register(d Definition) {
	if _, dup := registry[d.Name]; dup {
		panic("pipelines: duplicate registration of " + d.Name)
	}
	registry[d.Name] = d
}

func init() {
	register(Definition{Name: CheckupModules, Summary: "Run modules checkup", Build: buildCheckupModules})
	register(Definition{Name: CheckupSecurity, Summary: "Run security checkup", Build: buildCheckupSecurity})
	register(Definition{Name: CheckupUninstall, Summary: "Uninstall checkup's modules", Build: buildCheckupUninstall})
	register(Definition{Name: InstallDatabase, Summary: "Setup from database", Args: []string{"dump_file"}, Build: buildInstallDatabase})
	register(Definition{Name: AnalyzePHP, Summary: "Compute various metrics", Build: buildAnalyzePHP})
	register(Definition{Name: Scaffold, Summary: "Scaffold settings files for Drupal", Build: buildScaffold})
}

// All returns every pipeline sorted by name.
func All() []Definition {
	defs := make([]Definition, 0, len(registry))
	for _, d := range registry {
		defs = append(defs, d)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Lookup returns the named pipeline.
func Lookup(name string) (Definition, error) {
	d, ok := registry[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownPipeline, name)
	}
	return d, nil
}

// Build validates args and builds the named pipeline.
func Build(name string, env *Env, args []string) (*tasks.Collection, error) {
	d, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if len(args) != len(d.Args) {
		return nil, fmt.Errorf("%s expects %d argument(s) %v, got %d", name, len(d.Args), d.Args, len(args))
	}
	return d.Build(env, args)
}
