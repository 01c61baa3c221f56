// Package config loads Pathway Core's configuration from layered sources:
// built-in defaults, an optional YAML file, then environment variables,
// each overriding the last — the same layering the teacher's koanf setup
// uses.
package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the top-level configuration for pathwayd.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port          int    `koanf:"port"`
	Host          string `koanf:"host"`
	MaxBodySizeMB int    `koanf:"max_body_size_mb"`
	Mode          string `koanf:"mode"` // "debug" or "release"
}

// DatabaseConfig holds the sqlite event store's connection settings.
// DBPath may be a filesystem path or ":memory:" for an ephemeral store.
type DatabaseConfig struct {
	DBPath string `koanf:"db_path"`
}

// IngestConfig holds append-path validation and auth settings.
type IngestConfig struct {
	APIKey             string `koanf:"api_key"`
	MaxPayloadBytes    int    `koanf:"max_payload_bytes"`
	SessionIDMaxLength int    `koanf:"session_id_max_length"`
	EventIDMaxLength   int    `koanf:"event_id_max_length"`
}

// LogConfig controls structured logging output.
type LogConfig struct {
	Level  string `koanf:"level"`  // debug | info | warn | error
	Format string `koanf:"format"` // json | text
}

// Load loads configuration from configPath (if non-empty) then overlays
// PATHWAY_-prefixed environment variables, e.g. PATHWAY_SERVER__PORT=9090
// overrides server.port.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                    8080,
		"server.host":                    "0.0.0.0",
		"server.max_body_size_mb":        1,
		"server.mode":                    "release",
		"database.db_path":               "pathway.db",
		"ingest.api_key":                 "",
		"ingest.max_payload_bytes":       1048576,
		"ingest.session_id_max_length":   128,
		"ingest.event_id_max_length":     128,
		"log.level":                      "info",
		"log.format":                     "json",
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("PATHWAY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "PATHWAY_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configuration combinations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.DBPath == "" {
		return fmt.Errorf("database.db_path must not be empty")
	}
	if c.Ingest.SessionIDMaxLength <= 0 {
		return fmt.Errorf("ingest.session_id_max_length must be positive")
	}
	if c.Ingest.EventIDMaxLength <= 0 {
		return fmt.Errorf("ingest.event_id_max_length must be positive")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log.format %q must be json or text", c.Log.Format)
	}
	return nil
}
