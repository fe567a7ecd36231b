// Package config loads runtime configuration from a YAML file plus
// SYNAPSE_-prefixed environment variables, with the environment taking
// precedence. A .env file in the working directory is loaded first so
// local development does not need exported variables.
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	// DatabasePath locates the SQLite graph database.
	DatabasePath string `yaml:"database_path"`
	// BatchSize is the writer chunk size.
	BatchSize int `yaml:"batch_size"`
	// Workers caps concurrent file scans. Zero means GOMAXPROCS.
	Workers int `yaml:"workers"`
	// MaxRetries caps retries of transient write failures.
	MaxRetries int `yaml:"max_retries"`
	// PageSize is the default page size for traversal queries.
	PageSize int `yaml:"page_size"`
	// MaxDepth is the default depth limit for traversal queries.
	MaxDepth int `yaml:"max_depth"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level"`
	// MetricsAddr, when set, serves Prometheus metrics on this
	// address during long-running commands.
	MetricsAddr string `yaml:"metrics_addr"`
}

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DatabasePath: "synapse.db",
		BatchSize:    500,
		Workers:      runtime.GOMAXPROCS(0),
		MaxRetries:   3,
		PageSize:     100,
		MaxDepth:     5,
		LogLevel:     "info",
	}
}

// Load builds the configuration: defaults, then the YAML file at path
// (skipped when path is empty or missing), then the environment.
func Load(path string) (*Config, error) {
	// Best effort; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("SYNAPSE_DATABASE_PATH"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("SYNAPSE_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchSize = n
		}
	}
	if v := os.Getenv("SYNAPSE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv("SYNAPSE_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
	if v := os.Getenv("SYNAPSE_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.PageSize = n
		}
	}
	if v := os.Getenv("SYNAPSE_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxDepth = n
		}
	}
	if v := os.Getenv("SYNAPSE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("SYNAPSE_METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
}

// Validate checks value ranges. The first violation is returned as a
// ConfigError.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return &ConfigError{Field: "database_path", Reason: "must not be empty"}
	}
	if c.BatchSize <= 0 {
		return &ConfigError{Field: "batch_size", Reason: "must be positive"}
	}
	if c.Workers < 0 {
		return &ConfigError{Field: "workers", Reason: "must not be negative"}
	}
	if c.MaxRetries < 0 {
		return &ConfigError{Field: "max_retries", Reason: "must not be negative"}
	}
	if c.PageSize <= 0 {
		return &ConfigError{Field: "page_size", Reason: "must be positive"}
	}
	if c.MaxDepth <= 0 {
		return &ConfigError{Field: "max_depth", Reason: "must be positive"}
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return &ConfigError{Field: "log_level", Reason: "must be debug, info, warn, or error"}
	}
	return nil
}
