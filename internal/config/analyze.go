package config

// AnalyzeConfig configures the phpqa run behind analyze:php.
type AnalyzeConfig struct {
	Binary       string `yaml:"binary" json:"binary,omitempty"`
	AnalyzedDirs string `yaml:"analyzed_dirs" json:"analyzed_dirs,omitempty"`
	BuildDir     string `yaml:"build_dir" json:"build_dir,omitempty"`
	IgnoredFiles string `yaml:"ignored_files" json:"ignored_files,omitempty"`
	Tools        string `yaml:"tools" json:"tools,omitempty"`
	Execution    string `yaml:"execution" json:"execution,omitempty"`
	Report       bool   `yaml:"report" json:"report"`
}
