package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// SchedulerConfig defines settlement scheduler behavior
type SchedulerConfig struct {
	TickInterval  string `yaml:"tick_interval"`  // Interval between settlement ticks
	LedgerTimeout string `yaml:"ledger_timeout"` // Bound on one ledger submission
}

// SetDefaults sets reasonable default values for scheduler configuration
func (c *SchedulerConfig) SetDefaults() {
	if c.TickInterval == "" {
		c.TickInterval = "10s"
		fmt.Printf("Warning: scheduler.tick_interval not set, defaulting to %s\n", c.TickInterval)
	}
	if c.LedgerTimeout == "" {
		c.LedgerTimeout = "15s"
		fmt.Printf("Warning: scheduler.ledger_timeout not set, defaulting to %s\n", c.LedgerTimeout)
	}
}

// HttpServerConfig defines HTTP server configuration
type HttpServerConfig struct {
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	MaxHeaderBytes int           `yaml:"max_header_bytes"`
}

// EventsConfig defines the Kafka settlement-event stream. Leaving brokers
// empty disables event publishing.
type EventsConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`

	// Batch settings for the writer
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	BatchBytes   int           `yaml:"batch_bytes"`

	// Reliability settings
	RequiredAcks string `yaml:"required_acks"`
	Async        bool   `yaml:"async"`

	// Performance settings
	WriteTimeout time.Duration `yaml:"write_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
}

// Enabled reports whether settlement events should be published.
func (c *EventsConfig) Enabled() bool {
	return len(c.Brokers) > 0 && c.Topic != ""
}

// ServiceConfig defines all configuration required by the witness service
type ServiceConfig struct {
	HttpListenAddr string `yaml:"http_listen_addr"`

	HttpServer HttpServerConfig `yaml:"http_server"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Database   DatabaseConfig   `yaml:"database"` // Optional settled-receipt archive
	Events     EventsConfig     `yaml:"events"`   // Optional settlement-event stream
}

// LoadServiceConfig loads service configuration from the specified YAML file path
func LoadServiceConfig(path string) (*ServiceConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read service config file '%s': %w", path, err)
	}

	var cfg ServiceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse service YAML config file: %w", err)
	}

	cfg.Scheduler.SetDefaults()
	cfg.Database.SetDefaults()

	if cfg.HttpListenAddr == "" {
		return nil, fmt.Errorf("configuration error: http_listen_addr must be configured")
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("database configuration error: %w", err)
	}

	return &cfg, nil
}
