// Package config provides configuration loading and management for Brandforge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete Brandforge build configuration
type Config struct {
	Layers  []LayerRef  `yaml:"layers"`
	Patches []string    `yaml:"patches"`
	Base    string      `yaml:"base"`
	Output  string      `yaml:"output"`
	Policy  string      `yaml:"policy"`
	Watch   WatchConfig `yaml:"watch"`
}

// LayerRef names one token layer file. Order in the config file is
// precedence order: first entry is the base, last overrides everything.
type LayerRef struct {
	// Name is the layer name used in diagnostics (core, fork, org, group,
	// personal, channel).
	Name string `yaml:"name"`
	// Path is the layer's YAML token file.
	Path string `yaml:"path"`
}

// WatchConfig configures watch-mode rebuilds
type WatchConfig struct {
	// DebounceDelay is how long to wait for more changes before rebuilding.
	DebounceDelay string `yaml:"debounce_delay"`
}

// GetDebounceDelay returns the debounce delay as a duration.
func (c *WatchConfig) GetDebounceDelay() time.Duration {
	if c.DebounceDelay == "" {
		return 500 * time.Millisecond
	}
	d, err := time.ParseDuration(c.DebounceDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Policy: "strict",
		Watch: WatchConfig{
			DebounceDelay: "500ms",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Policy != "strict" && c.Policy != "best-effort" {
		return fmt.Errorf("policy must be %q or %q, got %q", "strict", "best-effort", c.Policy)
	}
	seen := make(map[string]bool)
	for i, layer := range c.Layers {
		if layer.Name == "" {
			return fmt.Errorf("layers[%d].name is required", i)
		}
		if layer.Path == "" {
			return fmt.Errorf("layer %q: path is required", layer.Name)
		}
		if seen[layer.Name] {
			return fmt.Errorf("layer %q appears twice", layer.Name)
		}
		seen[layer.Name] = true
	}
	return nil
}

// ValidateForBuild additionally requires the fields a full build needs.
func (c *Config) ValidateForBuild() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.Layers) == 0 {
		return fmt.Errorf("at least one token layer is required")
	}
	if c.Base == "" {
		return fmt.Errorf("base package path is required")
	}
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for non-zero values)
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Layers) > 0 {
		c.Layers = other.Layers
	}
	if len(other.Patches) > 0 {
		c.Patches = other.Patches
	}
	if other.Base != "" {
		c.Base = other.Base
	}
	if other.Output != "" {
		c.Output = other.Output
	}
	if other.Policy != "" {
		c.Policy = other.Policy
	}
	if other.Watch.DebounceDelay != "" {
		c.Watch.DebounceDelay = other.Watch.DebounceDelay
	}
}
