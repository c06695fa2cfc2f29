// Package config loads optional defaults from the user's configuration file.
// Command-line flags always override values found here.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// File mirrors config.yaml. Zero values mean "not set": the caller falls
// back to built-in defaults.
type File struct {
	// Format is the default output template; empty selects JSON output.
	Format string `yaml:"format"`

	// DebounceMS is the watcher quiet period in milliseconds.
	DebounceMS uint `yaml:"debounce_ms"`

	// DrainMS is the leader's post-signal drain window in milliseconds.
	// When unset it follows the debounce window.
	DrainMS uint `yaml:"drain_ms"`

	// AlwaysPrint disables deduplication of identical snapshots.
	AlwaysPrint bool `yaml:"always_print"`

	// StateDir overrides where shared state files live.
	StateDir string `yaml:"state_dir"`
}

// DefaultPath returns the config file location under the user config
// directory.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "git-status-watch", "config.yaml")
}

// Load reads the config file at path. A missing file is not an error; it
// yields the zero File.
func Load(path string) (File, error) {
	var cfg File
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
