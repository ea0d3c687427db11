package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk YAML configuration shape for Grepper.
// Every field is a pointer so the CLI can tell "unset" from "set to the
// zero value" when merging flags, local and global files.
type FileConfig struct {
	Include         *string `yaml:"include"`
	Exclude         *string `yaml:"exclude"`
	Types           *string `yaml:"types"`
	MaxBytes        *int64  `yaml:"max_bytes"`
	MaxDepth        *int    `yaml:"max_depth"`
	Threads         *int    `yaml:"threads"`
	Regex           *bool   `yaml:"regex"`
	CaseSensitive   *bool   `yaml:"case_sensitive"`
	WholeWord       *bool   `yaml:"whole_word"`
	Hidden          *bool   `yaml:"hidden"`
	NoIgnore        *bool   `yaml:"no_ignore"`
	DefaultExcludes *bool   `yaml:"default_excludes"`
	NoColor         *bool   `yaml:"no_color"`
	Editor          *string `yaml:"editor"`
	Backend         *string `yaml:"backend"`

	// Ripgrep integration config
	Ripgrep *RipgrepConfig `yaml:"ripgrep"`

	// Registry image search limits
	Image *ImageConfig `yaml:"image"`
}

// RipgrepConfig holds configuration for the ripgrep backend.
type RipgrepConfig struct {
	// BinaryPath is an explicit path to the rg binary. If empty, the
	// binary is searched in $PATH and ~/.grepper/bin.
	BinaryPath *string `yaml:"binary"`

	// Version pins the version that `grepper backend install` fetches.
	// If empty, the latest release is used.
	Version *string `yaml:"version"`
}

// ImageConfig bounds registry image searches.
type ImageConfig struct {
	MaxFileBytes  *int64  `yaml:"max_file_bytes"`
	MaxTotalBytes *int64  `yaml:"max_total_bytes"`
	MaxEntries    *int    `yaml:"max_entries"`
	TimeBudget    *string `yaml:"time_budget"`
}

// LoadFile reads a YAML config file from the provided path.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadLocal searches for a config file in the given root.
// It supports .grepper.yml/.yaml and grepper.yml/.yaml.
func LoadLocal(root string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range []string{".grepper.yml", ".grepper.yaml", "grepper.yml", "grepper.yaml"} {
		p := filepath.Join(root, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// LoadGlobal loads the global config file from the XDG base directory
// or ~/.config.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return cfg, errors.New("no config dir")
	}
	p := filepath.Join(base, "grepper", "config.yml")
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

// GetRipgrepConfig returns the ripgrep configuration, empty when unset.
func (fc FileConfig) GetRipgrepConfig() RipgrepConfig {
	if fc.Ripgrep == nil {
		return RipgrepConfig{}
	}
	return *fc.Ripgrep
}

// GetBinaryPath returns the custom rg path or empty string.
func (rc RipgrepConfig) GetBinaryPath() string {
	if rc.BinaryPath == nil {
		return ""
	}
	return *rc.BinaryPath
}

// GetVersion returns the pinned version or empty string for latest.
func (rc RipgrepConfig) GetVersion() string {
	if rc.Version == nil {
		return ""
	}
	return *rc.Version
}
