// Package config handles application configuration management.
package config

import (
	"os"
	"path/filepath"
)

// Config holds all application configuration.
type Config struct {
	// Base directory for all Stride data (~/.stride)
	BaseDir string

	// Debug enables verbose database logging.
	Debug bool

	// RouteQueueLimit caps how many enrichment tasks one queue run
	// processes. 0 = unlimited.
	RouteQueueLimit int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseDir:         DefaultBaseDir(),
		RouteQueueLimit: 0,
	}
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if dir := os.Getenv("STRIDE_HOME"); dir != "" {
		cfg.BaseDir = dir
	}
	if os.Getenv("STRIDE_DEBUG") == "1" {
		cfg.Debug = true
	}

	if err := ensureDirectories(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ensureDirectories creates required directories if they don't exist.
func ensureDirectories(cfg *Config) error {
	dirs := []string{
		cfg.BaseDir,
		filepath.Join(cfg.BaseDir, "logs"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}
