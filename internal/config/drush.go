package config

// DrushConfig configures how drush is invoked.
type DrushConfig struct {
	// Binary is the drush executable.
	Binary string `yaml:"binary" json:"binary,omitempty"`

	// CacheClear is the command used for cache clears (cache:rebuild on Drupal 8+).
	CacheClear string `yaml:"cache_clear" json:"cache_clear,omitempty"`

	// AssumeYes appends -y to every command.
	AssumeYes bool `yaml:"assume_yes" json:"assume_yes"`
}
