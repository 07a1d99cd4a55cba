package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aristath/stepsched/internal/scheduler"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*Config, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// DefaultPaths returns the conventional global and project config paths.
// Global: ~/.stepsched/config.json
// Project: .stepsched/config.json (relative to cwd)
func DefaultPaths() (globalPath, projectPath string, err error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".stepsched", "config.json"), filepath.Join(".stepsched", "config.json"), nil
}

// LoadDefault loads configuration from the conventional paths.
func LoadDefault() (*Config, error) {
	globalPath, projectPath, err := DefaultPaths()
	if err != nil {
		return nil, err
	}
	return Load(globalPath, projectPath)
}

// Validate rejects configurations no run could use.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", scheduler.ErrInvalidConfiguration, c.Workers)
	}
	if c.BaseCost < 0 {
		return fmt.Errorf("%w: base_cost must be non-negative, got %d", scheduler.ErrInvalidConfiguration, c.BaseCost)
	}
	if c.Alphabet == "" {
		return fmt.Errorf("%w: alphabet is empty", scheduler.ErrInvalidConfiguration)
	}
	seen := make(map[rune]bool, len(c.Alphabet))
	for _, r := range c.Alphabet {
		if r > 0x7f {
			return fmt.Errorf("%w: alphabet must be ASCII, got %q", scheduler.ErrInvalidConfiguration, r)
		}
		if seen[r] {
			return fmt.Errorf("%w: alphabet repeats %q", scheduler.ErrInvalidConfiguration, r)
		}
		seen[r] = true
	}
	if c.SweepMax < 0 || c.ConcurrencyLimit < 0 {
		return fmt.Errorf("%w: sweep_max and concurrency_limit must be non-negative", scheduler.ErrInvalidConfiguration)
	}
	return nil
}

// Duration returns the duration function implied by the alphabet and base cost.
func (c *Config) Duration() scheduler.DurationFunc {
	return scheduler.AlphabetDuration(scheduler.Alphabet(c.Alphabet), c.BaseCost)
}

// mergeConfigFile reads a JSON config file and merges the keys it sets into base.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(base *Config, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded fileConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if loaded.Alphabet != nil {
		base.Alphabet = *loaded.Alphabet
	}
	if loaded.Workers != nil {
		base.Workers = *loaded.Workers
	}
	if loaded.BaseCost != nil {
		base.BaseCost = *loaded.BaseCost
	}
	if loaded.InputPath != nil {
		base.InputPath = *loaded.InputPath
	}
	if loaded.DBPath != nil {
		base.DBPath = *loaded.DBPath
	}
	if loaded.SweepMax != nil {
		base.SweepMax = *loaded.SweepMax
	}
	if loaded.ConcurrencyLimit != nil {
		base.ConcurrencyLimit = *loaded.ConcurrencyLimit
	}
	if loaded.ListenAddr != nil {
		base.ListenAddr = *loaded.ListenAddr
	}

	return nil
}
