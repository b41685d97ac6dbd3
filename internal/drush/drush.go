// Package drush builds Drush command lines.
//
// Every command has the shape
//
//	<binary> -r <drupal root> -l <site> <command> [args...] [--options...] [-y]
//
// and is returned as a tactile.Command ready for an executor.
package drush

import (
	"strings"

	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/config"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/logging"
	"github.com/robertoperuzzo/checkup-drupal8-starter/internal/tactile"
)

// DefaultBinary is used when no binary is configured.
const DefaultBinary = "/usr/local/bin/drush"

// DefaultCacheClear is the Drupal 8+ cache clear command.
const DefaultCacheClear = "cache:rebuild"

type option struct {
	name  string
	value string
	set   bool
}

// Stack accumulates arguments and options for one drush command.
// Methods mutate the stack and return it so calls can be chained.
type Stack struct {
	binary     string
	root       string
	uri        string
	workDir    string
	cacheClear string
	assumeYes  bool
	args       []string
	options    []option
}

// New returns a stack for the given binary with --yes enabled.
func New(binary string) *Stack {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Stack{binary: binary, assumeYes: true, cacheClear: DefaultCacheClear}
}

// FromConfig returns a stack preconfigured with the project's drush
// binary, Drupal root and site.
func FromConfig(cfg config.DrushConfig, paths config.Paths) *Stack {
	s := New(cfg.Binary).
		DrupalRootDirectory(paths.DrupalRoot).
		URI(paths.Site).
		AssumeYes(cfg.AssumeYes).
		WorkingDirectory(paths.Project)
	if cfg.CacheClear != "" {
		s.cacheClear = cfg.CacheClear
	}
	logging.Drush("Using %s on %s (site %s, yes=%v)", s.binary, paths.DrupalRoot, paths.Site, s.assumeYes)
	return s
}

// DrupalRootDirectory sets -r.
func (s *Stack) DrupalRootDirectory(dir string) *Stack {
	s.root = dir
	return s
}

// URI sets -l, the site to operate on.
func (s *Stack) URI(site string) *Stack {
	s.uri = site
	return s
}

// AssumeYes toggles the trailing -y.
func (s *Stack) AssumeYes(yes bool) *Stack {
	s.assumeYes = yes
	return s
}

// WorkingDirectory sets the directory drush runs from.
func (s *Stack) WorkingDirectory(dir string) *Stack {
	s.workDir = dir
	return s
}

// Arg appends positional arguments.
func (s *Stack) Arg(args ...string) *Stack {
	s.args = append(s.args, args...)
	return s
}

// Option appends --name, or --name=value when a value is given.
// Values are passed as a single argv element and are never shell quoted.
func (s *Stack) Option(name string, value ...string) *Stack {
	o := option{name: strings.TrimLeft(name, "-")}
	if len(value) > 0 {
		o.value = strings.Join(value, ",")
		o.set = true
	}
	s.options = append(s.options, o)
	return s
}

// Drush finalizes the stack into a command running the given drush command.
func (s *Stack) Drush(command string) tactile.Command {
	argv := make([]string, 0, 6+len(s.args)+len(s.options))
	if s.root != "" {
		argv = append(argv, "-r", s.root)
	}
	if s.uri != "" {
		argv = append(argv, "-l", s.uri)
	}
	argv = append(argv, command)
	argv = append(argv, s.args...)
	for _, o := range s.options {
		if o.set {
			argv = append(argv, "--"+o.name+"="+o.value)
		} else {
			argv = append(argv, "--"+o.name)
		}
	}
	if s.assumeYes {
		argv = append(argv, "-y")
	}

	cmd := tactile.Command{
		Binary:           s.binary,
		Arguments:        argv,
		WorkingDirectory: s.workDir,
		Tags:             map[string]string{"tool": "drush", "drush_command": command},
	}
	logging.DrushDebug("Built drush command: %s", cmd.CommandString())
	return cmd
}

// ClearCache returns the configured cache clear command.
func (s *Stack) ClearCache() tactile.Command {
	return s.Drush(s.cacheClear)
}
