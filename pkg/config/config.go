// Package config handles Neo4j-compatible configuration via environment
// variables and an optional YAML file.
//
// The OGM talks to an existing server, so configuration is about the
// connection and the client's own behavior, not server tuning. Neo4j
// environment variables are honored where they apply, plus OGM-specific
// extensions prefixed with NORNOGM_.
//
// Example Usage:
//
//	cfg := config.LoadFromEnv()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid config: %v", err)
//	}
//
//	gdb, err := nornogm.Open(ctx, cfg.Connection.URI, cfg.BoltOptions(logger))
//
// Environment Variables:
//
// Neo4j-Compatible:
//   - NEO4J_URI="bolt://localhost:7687"
//   - NEO4J_AUTH="username/password" or "none"
//   - NEO4J_DATABASE="neo4j"
//
// OGM-Specific:
//   - NORNOGM_SLOW_QUERY_THRESHOLD=300ms
//   - NORNOGM_RETRY_ON_SESSION_EXPIRE=true
//   - NORNOGM_HANDLE_UNIQUE=true
//   - NORNOGM_LOG_LEVEL="info"
//   - NORNOGM_LOG_FORMAT="console" or "json"
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/orneryd/nornogm/pkg/db"
)

// Config holds all OGM configuration.
//
// Configuration is organized into logical sections:
//   - Connection: server URI, credentials and target database
//   - Query: client-side query behavior
//   - Logging: log level and encoding
//
// Use LoadFromEnv() or LoadFile() to create a Config.
type Config struct {
	// Connection to the graph database server
	Connection ConnectionConfig `yaml:"connection"`

	// Query behavior (OGM-specific)
	Query QueryConfig `yaml:"query"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ConnectionConfig holds server connection settings.
type ConnectionConfig struct {
	// URI of the Bolt endpoint
	URI string `yaml:"uri"`
	// Username for basic auth, empty disables auth
	Username string `yaml:"username"`
	// Password for basic auth
	Password string `yaml:"password"`
	// Database is the target database name, empty for the server default
	Database string `yaml:"database"`
}

// QueryConfig holds client-side query behavior.
type QueryConfig struct {
	// SlowQueryThreshold promotes per-query debug logs to warnings
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold"`
	// RetryOnSessionExpire replays a query once on a fresh session
	RetryOnSessionExpire bool `yaml:"retry_on_session_expire"`
	// HandleUnique remaps uniqueness conflicts to a distinct error kind
	HandleUnique bool `yaml:"handle_unique"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `yaml:"level"`
	// Format is console or json
	Format string `yaml:"format"`
}

func defaults() *Config {
	return &Config{
		Connection: ConnectionConfig{
			URI: "bolt://localhost:7687",
		},
		Query: QueryConfig{
			SlowQueryThreshold: 300 * time.Millisecond,
			HandleUnique:       true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv builds a Config from environment variables, falling back to
// defaults for anything unset.
func LoadFromEnv() *Config {
	config := defaults()

	config.Connection.URI = getEnv("NEO4J_URI", config.Connection.URI)
	config.Connection.Database = getEnv("NEO4J_DATABASE", config.Connection.Database)

	// NEO4J_AUTH format: "username/password" or "none"
	authStr := getEnv("NEO4J_AUTH", "none")
	if authStr != "none" {
		parts := strings.SplitN(authStr, "/", 2)
		if len(parts) == 2 {
			config.Connection.Username = parts[0]
			config.Connection.Password = parts[1]
		} else {
			config.Connection.Username = "neo4j"
			config.Connection.Password = authStr
		}
	}

	config.Query.SlowQueryThreshold = getEnvDuration("NORNOGM_SLOW_QUERY_THRESHOLD", config.Query.SlowQueryThreshold)
	config.Query.RetryOnSessionExpire = getEnvBool("NORNOGM_RETRY_ON_SESSION_EXPIRE", config.Query.RetryOnSessionExpire)
	config.Query.HandleUnique = getEnvBool("NORNOGM_HANDLE_UNIQUE", config.Query.HandleUnique)

	config.Logging.Level = getEnv("NORNOGM_LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnv("NORNOGM_LOG_FORMAT", config.Logging.Format)

	return config
}

// LoadFile reads a YAML config file over the defaults. Environment
// variables are not consulted; combine with LoadFromEnv by loading the
// file first and overwriting fields as needed.
func LoadFile(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	config := defaults()
	if err := yaml.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return config, nil
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Connection.URI == "" {
		return fmt.Errorf("connection URI is required")
	}
	if !strings.Contains(c.Connection.URI, "://") {
		return fmt.Errorf("connection URI %q has no scheme", c.Connection.URI)
	}
	if c.Query.SlowQueryThreshold < 0 {
		return fmt.Errorf("invalid slow query threshold: %s", c.Query.SlowQueryThreshold)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.Logging.Format)
	}
	return nil
}

// String returns a safe representation of the Config. The password is NOT
// included, making this safe for logging.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{URI: %s, Database: %s, User: %s, SlowQuery: %s, Log: %s/%s}",
		c.Connection.URI,
		c.Connection.Database,
		c.Connection.Username,
		c.Query.SlowQueryThreshold,
		c.Logging.Level, c.Logging.Format,
	)
}

// BoltOptions converts the config into executor options.
func (c *Config) BoltOptions(logger *zap.Logger) db.BoltOptions {
	return db.BoltOptions{
		Username:             c.Connection.Username,
		Password:             c.Connection.Password,
		Database:             c.Connection.Database,
		HandleUnique:         c.Query.HandleUnique,
		RetryOnSessionExpire: c.Query.RetryOnSessionExpire,
		SlowQueryThreshold:   c.Query.SlowQueryThreshold,
		Logger:               logger,
	}
}

// BuildLogger constructs a zap logger from the logging section.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	var zcfg zap.Config
	if c.Logging.Format == "json" {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// Helper functions for environment variable parsing

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
	}
	return defaultVal
}
