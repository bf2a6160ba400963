package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v2"
)

// LedgerConfig stores common ledger configuration across all backends
type LedgerConfig struct {
	// --- Backend Selection ---
	Backend string `yaml:"backend"` // "chainmaker", "memory", "none"

	// --- Common Behavior Configuration ---
	RetryLimit     int `yaml:"retry_limit"`
	RetryInterval  int `yaml:"retry_interval"`
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// --- Memory Backend ---
	Owner    string `yaml:"owner"`    // Identity that owns the in-process ledger
	Identity string `yaml:"identity"` // Identity this service submits as

	// --- Backend-specific Configuration ---
	// Loaded separately based on the selected backend
	BackendSpecific any `yaml:"-"`
}

// LoadLedgerConfig loads ledger configuration from the specified YAML file path
func LoadLedgerConfig(path string) (*LedgerConfig, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of config file: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", absPath, err)
	}

	var cfg LedgerConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config file: %w", err)
	}

	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 15
	}

	return &cfg, nil
}
