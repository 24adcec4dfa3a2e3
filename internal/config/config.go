// Package config loads indexing and validation settings from a
// .graphlint.yaml file in the repository root.
package config

import (
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// FileName is the per-repository configuration file.
const FileName = ".graphlint.yaml"

// Config holds user-overridable graphlint settings.
type Config struct {
	Index    IndexConfig    `yaml:"index"`
	Validate ValidateConfig `yaml:"validate"`
}

// IndexConfig holds repository indexing settings.
type IndexConfig struct {
	// IncludeGlobs restricts indexing to matching rel paths when set.
	IncludeGlobs []string `yaml:"include"`

	// ExcludeGlobs drops matching rel paths (added to .graphlintignore).
	ExcludeGlobs []string `yaml:"exclude"`

	// Workers caps the parallel parse stage.
	// Default: runtime.NumCPU().
	Workers *int `yaml:"workers"`

	// Incremental skips files whose content hash is unchanged.
	// Default: true.
	Incremental *bool `yaml:"incremental"`
}

// ValidateConfig holds script validation settings.
type ValidateConfig struct {
	// Language of validated scripts. Default: "python".
	Language *string `yaml:"language"`

	// MaxInheritanceDepth caps the ancestor traversal for member lookup.
	// Default: 10.
	MaxInheritanceDepth *int `yaml:"max_inheritance_depth"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{}
}

// Load reads .graphlint.yaml from the given directory.
// Returns default config if the file doesn't exist or is invalid.
func Load(dir string) *Config {
	cfg := Default()

	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg // file not found or unreadable — use defaults
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return Default() // invalid YAML — use defaults
	}

	return cfg
}

// EffectiveWorkers returns the configured parse worker count,
// or the number of CPUs if not set.
func (c *Config) EffectiveWorkers() int {
	if c.Index.Workers != nil && *c.Index.Workers > 0 {
		return *c.Index.Workers
	}
	return runtime.NumCPU()
}

// EffectiveIncremental returns the configured incremental setting,
// or the default (true) if not set.
func (c *Config) EffectiveIncremental() bool {
	if c.Index.Incremental != nil {
		return *c.Index.Incremental
	}
	return true
}

// EffectiveLanguage returns the configured script language,
// or the default ("python") if not set.
func (c *Config) EffectiveLanguage() string {
	if c.Validate.Language != nil && *c.Validate.Language != "" {
		return *c.Validate.Language
	}
	return "python"
}

// EffectiveMaxInheritanceDepth returns the configured traversal depth cap,
// or the default (10) if not set.
func (c *Config) EffectiveMaxInheritanceDepth() int {
	if c.Validate.MaxInheritanceDepth != nil && *c.Validate.MaxInheritanceDepth > 0 {
		return *c.Validate.MaxInheritanceDepth
	}
	return 10
}
