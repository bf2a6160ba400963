package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the complete application configuration
type Config struct {
	Service *ServiceConfig
	Ledger  *LedgerConfig
}

// LoadConfig loads all configuration files from a directory
func LoadConfig(configDir string) (*Config, error) {
	absDir, err := filepath.Abs(configDir)
	if err != nil {
		return nil, fmt.Errorf("unable to get absolute path of config directory: %w", err)
	}

	config := &Config{}

	servicePath := filepath.Join(absDir, "witness.defaults.yml")
	if _, err := os.Stat(servicePath); err == nil {
		serviceCfg, err := LoadServiceConfig(servicePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load service config: %w", err)
		}
		config.Service = serviceCfg
	}

	ledgerPath := filepath.Join(absDir, "ledger.defaults.yml")
	if _, err := os.Stat(ledgerPath); err == nil {
		ledgerCfg, err := LoadLedgerConfig(ledgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load ledger config: %w", err)
		}
		config.Ledger = ledgerCfg
	}

	return config, nil
}
