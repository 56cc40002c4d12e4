package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// PermissionMode defines how copied hooks are marked executable
type PermissionMode string

const (
	PermissionsNative  PermissionMode = "native"
	PermissionsCommand PermissionMode = "command"
	PermissionsNone    PermissionMode = "none"
)

const (
	// DefaultSource is the directory holding the canonical hook scripts.
	DefaultSource = "./hooks"
	// DefaultDestination is the directory git reads hooks from.
	DefaultDestination = "./.git/hooks"
)

// Config represents the complete hooksync configuration
type Config struct {
	Source      string            `yaml:"source"`
	Destination string            `yaml:"destination"`
	Permissions PermissionsConfig `yaml:"permissions"`
}

// PermissionsConfig configures executable marking of deployed hooks
type PermissionsConfig struct {
	Mode PermissionMode `yaml:"mode"`
}

// Override transforms a configuration, typically the one returned by Default.
type Override func(Config) Config

// Default returns the built-in configuration. A fresh value is returned on
// every call, so callers may modify it freely.
func Default() Config {
	return Config{
		Source:      DefaultSource,
		Destination: DefaultDestination,
		Permissions: PermissionsConfig{Mode: PermissionsNative},
	}
}

// Load reads and parses the configuration file. Fields absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	// Expand environment variables in path
	path = os.ExpandEnv(path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.expandEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expandEnv expands environment variables in all string fields
func (c *Config) expandEnv() {
	c.Source = os.ExpandEnv(c.Source)
	c.Destination = os.ExpandEnv(c.Destination)
}

// applyDefaults fills in zero-value fields from Default.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Source == "" {
		c.Source = def.Source
	}
	if c.Destination == "" {
		c.Destination = def.Destination
	}
	if c.Permissions.Mode == "" {
		c.Permissions.Mode = def.Permissions.Mode
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source is required")
	}
	if c.Destination == "" {
		return fmt.Errorf("destination is required")
	}

	if filepath.Clean(c.Source) == filepath.Clean(c.Destination) {
		return fmt.Errorf("source and destination must differ: %s", c.Source)
	}

	switch c.Permissions.Mode {
	case PermissionsNative, PermissionsCommand, PermissionsNone:
		// valid
	default:
		return fmt.Errorf("invalid permissions.mode: %s (must be native, command, or none)", c.Permissions.Mode)
	}

	return nil
}

// Anchor returns a copy of c with relative paths resolved against root.
// Absolute paths are left untouched.
func (c Config) Anchor(root string) Config {
	if root == "" {
		return c
	}
	if !filepath.IsAbs(c.Source) {
		c.Source = filepath.Join(root, c.Source)
	}
	if !filepath.IsAbs(c.Destination) {
		c.Destination = filepath.Join(root, c.Destination)
	}
	return c
}

// Chain composes overrides left to right. Nil entries are skipped.
func Chain(overrides ...Override) Override {
	return func(c Config) Config {
		for _, o := range overrides {
			if o != nil {
				c = o(c)
			}
		}
		return c
	}
}

// FromFile returns an override replacing the configuration with the loaded file.
func FromFile(loaded *Config) Override {
	if loaded == nil {
		return nil
	}
	return func(Config) Config {
		return *loaded
	}
}
