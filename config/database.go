package config

import "fmt"

// DatabaseConfig defines the connection settings for the settled-receipt
// archive. Leaving the DSN empty disables archiving.
type DatabaseConfig struct {
	DSN            string `yaml:"dsn"`             // PostgreSQL connection string
	MaxConnections int    `yaml:"max_connections"` // Maximum number of connections
	MinConnections int    `yaml:"min_connections"` // Minimum number of connections
}

// Enabled reports whether the archive is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.DSN != ""
}

// SetDefaults sets sensible default values for the database configuration
func (c *DatabaseConfig) SetDefaults() {
	if !c.Enabled() {
		return
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
		fmt.Printf("Warning: database.max_connections not set or invalid, defaulting to %d\n", c.MaxConnections)
	}
	if c.MinConnections <= 0 {
		c.MinConnections = 2
		fmt.Printf("Warning: database.min_connections not set or invalid, defaulting to %d\n", c.MinConnections)
	}
}

// Validate validates the database configuration
func (c *DatabaseConfig) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.MinConnections > c.MaxConnections {
		return fmt.Errorf("database min_connections (%d) cannot be greater than max_connections (%d)",
			c.MinConnections, c.MaxConnections)
	}
	return nil
}
