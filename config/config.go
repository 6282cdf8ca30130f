// Package config loads oxybridge configuration from an optional YAML file
// with environment-variable overrides for the deployment knobs.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level oxybridge configuration.
type Config struct {
	Port     string `yaml:"port"`
	DBPath   string `yaml:"db_path"`
	LogLevel string `yaml:"log_level"`

	// Builder is the external page-builder runtime this service fronts.
	Builder BuilderConfig `yaml:"builder"`

	// Auth bootstraps the first application password. Further credentials
	// are managed in the database.
	Auth AuthConfig `yaml:"auth"`

	// MCPTransport enables the MCP tool surface ("stdio" or empty).
	MCPTransport string `yaml:"mcp_transport"`

	// MaxBodyBytes caps JSON request bodies. Trees are a few hundred KB at
	// the very worst.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// BuilderConfig points at the builder's CSS regeneration endpoint.
type BuilderConfig struct {
	RegenerateURL string        `yaml:"regenerate_url"`
	Timeout       time.Duration `yaml:"timeout"`
	Retries       int           `yaml:"retries"`
}

// AuthConfig seeds the initial application password.
type AuthConfig struct {
	Name     string `yaml:"name"`
	Password string `yaml:"password"`
}

// Load reads the YAML file at path (skipped when path is empty), applies
// environment overrides, then defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrideStr(&c.Port, "PORT")
	overrideStr(&c.DBPath, "DB_PATH")
	overrideStr(&c.LogLevel, "LOG_LEVEL")
	overrideStr(&c.Builder.RegenerateURL, "BUILDER_URL")
	overrideStr(&c.Auth.Name, "AUTH_NAME")
	overrideStr(&c.Auth.Password, "AUTH_PASSWORD")
	overrideStr(&c.MCPTransport, "MCP_TRANSPORT")
}

func (c *Config) applyDefaults() {
	if c.Port == "" {
		c.Port = "8090"
	}
	if c.DBPath == "" {
		c.DBPath = "db/oxybridge.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Builder.Timeout <= 0 {
		c.Builder.Timeout = 60 * time.Second
	}
	if c.Builder.Retries <= 0 {
		c.Builder.Retries = 2
	}
	if c.Auth.Name == "" {
		c.Auth.Name = "admin"
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20 // 1 MB
	}
}

func overrideStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
