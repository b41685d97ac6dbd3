package config

// ExecutionConfig configures the tactile executor.
type ExecutionConfig struct {
	// Default timeout for a single command
	DefaultTimeout string `yaml:"default_timeout" json:"default_timeout,omitempty"`

	// Upper bound for any command timeout
	MaxTimeout string `yaml:"max_timeout" json:"max_timeout,omitempty"`

	// Pass the whole parent environment to commands (drush needs DB credentials, PHP settings)
	InheritEnvironment bool `yaml:"inherit_environment" json:"inherit_environment"`

	// Environment variables to pass when inherit_environment is false
	AllowedEnvVars []string `yaml:"allowed_env_vars" json:"allowed_env_vars,omitempty"`

	// JSONL audit log, relative to the state dir. Empty disables it.
	AuditLog string `yaml:"audit_log" json:"audit_log,omitempty"`
}
