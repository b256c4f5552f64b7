// Package main provides the AlertDesk server CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Database   DatabaseConfig   `yaml:"database"`
	OpenSearch OpenSearchConfig `yaml:"opensearch"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Auth       AuthConfig       `yaml:"auth"`
	Verbose    bool             `yaml:"-"` // set via CLI flag
}

// ServerConfig contains HTTP API settings.
type ServerConfig struct {
	Address string `yaml:"address"` // HTTP listen address (default: :8080)
}

// MetricsConfig contains Prometheus endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // metrics listen address (default: :9090)
}

// DatabaseConfig contains SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"` // database file path (default: data/alertdesk.db)
}

// OpenSearchConfig contains alert index connection settings.
// The password comes from ALERTDESK_OPENSEARCH_PASSWORD, never the file.
type OpenSearchConfig struct {
	Addresses          []string `yaml:"addresses"`
	Username           string   `yaml:"username"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify"`
}

// SchedulerConfig contains alert poller settings.
type SchedulerConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval"` // default: 1m
}

// AuthConfig contains token and login protection settings.
// The JWT secret comes from ALERTDESK_JWT_SECRET, never the file.
type AuthConfig struct {
	AccessTokenTTL   time.Duration `yaml:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `yaml:"refresh_token_ttl"`
	RateLimitPerIP   int           `yaml:"rate_limit_per_ip"`
	RateLimitPerUser int           `yaml:"rate_limit_per_user"`
	LockoutThreshold int           `yaml:"lockout_threshold"`
	LockoutDuration  time.Duration `yaml:"lockout_duration"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{
		Metrics:   MetricsConfig{Enabled: true},
		Scheduler: SchedulerConfig{Enabled: true},
	}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = ":8080"
	}
	if c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}
	if c.Database.Path == "" {
		c.Database.Path = "data/alertdesk.db"
	}
	if len(c.OpenSearch.Addresses) == 0 {
		c.OpenSearch.Addresses = []string{"https://localhost:9200"}
	}
	if c.Scheduler.PollInterval == 0 {
		c.Scheduler.PollInterval = time.Minute
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server.address is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if len(c.OpenSearch.Addresses) == 0 {
		return fmt.Errorf("opensearch.addresses is required")
	}
	if c.Scheduler.PollInterval < time.Second {
		return fmt.Errorf("scheduler.poll_interval must be at least 1s")
	}
	return nil
}
