package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the project config looked up in the project root.
const DefaultFileName = "checkup.yml"

// Config holds all checkup configuration.
type Config struct {
	// Project layout
	Project ProjectConfig `yaml:"project"`

	// Drush invocation defaults
	Drush DrushConfig `yaml:"drush"`

	// Checkup modules and reports
	Checkup CheckupConfig `yaml:"checkup"`

	// Static analysis (phpqa)
	Analyze AnalyzeConfig `yaml:"analyze"`

	// Execution settings
	Execution ExecutionConfig `yaml:"execution"`

	// Run history
	History HistoryConfig `yaml:"history"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ProjectConfig describes where things live relative to the project root.
type ProjectConfig struct {
	Root        string `yaml:"root"`
	DrupalRoot  string `yaml:"drupal_root"`
	BackupsDir  string `yaml:"backups_dir"`
	CheckupDir  string `yaml:"checkup_dir"`
	ScaffoldDir string `yaml:"scaffold_dir"`
	StateDir    string `yaml:"state_dir"`
	Site        string `yaml:"site"`
}

// CheckupConfig lists the modules installed for a checkup run.
type CheckupConfig struct {
	Modules    []string `yaml:"modules"`
	ReportFile string   `yaml:"report_file"`
}

// HistoryConfig configures the SQLite run history.
type HistoryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DatabasePath string `yaml:"database_path"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Root:        ".",
			DrupalRoot:  "web",
			BackupsDir:  "backups",
			CheckupDir:  "checkup",
			ScaffoldDir: "scaffold",
			StateDir:    ".checkup",
			Site:        "default",
		},

		Drush: DrushConfig{
			Binary:     "/usr/local/bin/drush",
			CacheClear: "cache:rebuild",
			AssumeYes:  true,
		},

		Checkup: CheckupConfig{
			Modules:    []string{"hacked", "security_review"},
			ReportFile: "security.out",
		},

		Analyze: AnalyzeConfig{
			Binary:       "vendor/bin/phpqa",
			AnalyzedDirs: "web/modules/custom",
			BuildDir:     "reports",
			IgnoredFiles: `*\\.css,*\\.md,*\\.txt,*\\.info,*\\.yml`,
			Tools:        "phpcpd:0,phpcs:0,phpmd:0,phpmetrics,phploc,pdepend,security-checker,phpstan",
			Execution:    "no-parallel",
			Report:       true,
		},

		Execution: ExecutionConfig{
			DefaultTimeout:     "30m",
			MaxTimeout:         "2h",
			InheritEnvironment: true,
			AllowedEnvVars:     []string{"PATH", "HOME", "USER", "LANG", "LC_ALL", "TERM"},
			AuditLog:           "audit.jsonl",
		},

		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "history.db",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if root := os.Getenv("CHECKUP_PROJECT_ROOT"); root != "" {
		c.Project.Root = root
	}
	if site := os.Getenv("CHECKUP_SITE"); site != "" {
		c.Project.Site = site
	}
	if bin := os.Getenv("CHECKUP_DRUSH"); bin != "" {
		c.Drush.Binary = bin
	}
	if bin := os.Getenv("CHECKUP_PHPQA"); bin != "" {
		c.Analyze.Binary = bin
	}
}

// GetExecutionTimeout returns the default execution timeout as a duration.
func (c *Config) GetExecutionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.DefaultTimeout)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// GetMaxTimeout returns the timeout cap as a duration.
func (c *Config) GetMaxTimeout() time.Duration {
	d, err := time.ParseDuration(c.Execution.MaxTimeout)
	if err != nil {
		return 2 * time.Hour
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Project.Site == "" {
		return fmt.Errorf("project.site must not be empty")
	}
	if c.Project.DrupalRoot == "" {
		return fmt.Errorf("project.drupal_root must not be empty")
	}
	if c.Drush.Binary == "" {
		return fmt.Errorf("drush binary not configured (set drush.binary or CHECKUP_DRUSH)")
	}
	if c.Drush.CacheClear == "" {
		return fmt.Errorf("drush.cache_clear must not be empty")
	}
	if len(c.Checkup.Modules) == 0 {
		return fmt.Errorf("checkup.modules must list at least one module")
	}
	for name, value := range map[string]string{
		"execution.default_timeout": c.Execution.DefaultTimeout,
		"execution.max_timeout":     c.Execution.MaxTimeout,
	} {
		if value == "" {
			continue
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %q", name, value)
		}
	}
	return nil
}
