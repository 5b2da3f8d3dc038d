// Package config loads graphstore's runtime configuration from environment
// variables, with sensible defaults so the server and CLI both run with
// zero configuration for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds everything graphstore needs to start: where it keeps its
// data, how it listens, and how it logs.
//
// Use LoadFromEnv() to build one from the environment, or LoadFromFile() to
// read one from a YAML file; either can be followed by Validate().
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DatabaseConfig controls the backing storage.Engine.
type DatabaseConfig struct {
	// InMemory selects storage.NewMemoryEngine over BadgerDB; DataDir is
	// ignored when true.
	InMemory bool `yaml:"in_memory"`
	// DataDir is the directory BadgerDB stores its files under.
	DataDir string `yaml:"data_dir"`
	// TransactionTimeout is loaded from the environment or a config file
	// and carried here; neither the server nor the CLI reads it, so no
	// Store.Execute call is bounded by it.
	TransactionTimeout time.Duration `yaml:"transaction_timeout"`
}

// ServerConfig controls the HTTP front end in pkg/server.
type ServerConfig struct {
	// Address is the host:port the HTTP server listens on.
	Address string `yaml:"address"`
	// ShutdownTimeout bounds graceful shutdown on SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging settings. Validate checks Level; neither
// field is applied to the standard-library *log.Logger values the server
// and CLI use, which keep their fixed prefixes and flags.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `yaml:"level"`
	// Format is "json" or "console".
	Format string `yaml:"format"`
}

// LoadFromEnv builds a Config from environment variables, falling back to
// defaults for anything unset:
//
//	GRAPHSTORE_IN_MEMORY=false
//	GRAPHSTORE_DATA_DIR=./data
//	GRAPHSTORE_TRANSACTION_TIMEOUT=30s
//	GRAPHSTORE_ADDRESS=0.0.0.0:8080
//	GRAPHSTORE_SHUTDOWN_TIMEOUT=5s
//	GRAPHSTORE_LOG_LEVEL=info
//	GRAPHSTORE_LOG_FORMAT=json
func LoadFromEnv() *Config {
	return &Config{
		Database: DatabaseConfig{
			InMemory:           getEnvBool("GRAPHSTORE_IN_MEMORY", false),
			DataDir:            getEnv("GRAPHSTORE_DATA_DIR", "./data"),
			TransactionTimeout: getEnvDuration("GRAPHSTORE_TRANSACTION_TIMEOUT", 30*time.Second),
		},
		Server: ServerConfig{
			Address:         getEnv("GRAPHSTORE_ADDRESS", "0.0.0.0:8080"),
			ShutdownTimeout: getEnvDuration("GRAPHSTORE_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("GRAPHSTORE_LOG_LEVEL", "info"),
			Format: getEnv("GRAPHSTORE_LOG_FORMAT", "json"),
		},
	}
}

// LoadFromFile reads a YAML config file shaped like Config's field names
// lowercased (database.data_dir, server.address, ...), layering it over
// LoadFromEnv's defaults. A missing file is not an error; callers that want
// to require one should stat it themselves first.
func LoadFromFile(path string) (*Config, error) {
	cfg := LoadFromEnv()
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values that would prevent startup.
func (c *Config) Validate() error {
	if !c.Database.InMemory && c.Database.DataDir == "" {
		return fmt.Errorf("config: data dir must be set unless running in-memory")
	}
	if c.Server.Address == "" {
		return fmt.Errorf("config: server address must not be empty")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: invalid log level %q", c.Logging.Level)
	}
	return nil
}

// String returns a representation safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf("Config{InMemory: %v, DataDir: %s, Address: %s, LogLevel: %s}",
		c.Database.InMemory, c.Database.DataDir, c.Server.Address, c.Logging.Level)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		val = strings.ToLower(val)
		return val == "true" || val == "1" || val == "yes" || val == "on"
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
		if secs, err := strconv.Atoi(val); err == nil {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultVal
}
