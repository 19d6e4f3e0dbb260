package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// Config holds all shell service configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Shell     ShellConfig     `toml:"shell"`
	Bundles   BundlesConfig   `toml:"bundles"`
	Logging   LogConfig       `toml:"logging"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8700" toml:"port"`
	Host string `envconfig:"HOST" default:"0.0.0.0" toml:"host"`
}

// ShellConfig holds home model configuration.
type ShellConfig struct {
	// ServicePrefix is the bus name prefix activity services claim,
	// followed by the decimal window id.
	ServicePrefix string `envconfig:"ACTIVITY_SERVICE_PREFIX" default:"org.hearth.Activity" toml:"service_prefix"`
	// LaunchTimeout bounds how long a launch intent may stay windowless
	// before it is reclaimed.
	LaunchTimeout time.Duration `envconfig:"LAUNCH_TIMEOUT" default:"30s" toml:"launch_timeout"`
}

// BundlesConfig holds bundle registry configuration.
type BundlesConfig struct {
	Dir string `envconfig:"BUNDLES_DIR" default:"./bundles" toml:"dir"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info" toml:"level"`
	Development bool   `envconfig:"LOG_DEV" default:"false" toml:"development"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100" toml:"requests_per_second"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200" toml:"burst"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true" toml:"enabled"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// FromFile loads configuration from a TOML file over the defaults.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8700",
			Host: "0.0.0.0",
		},
		Shell: ShellConfig{
			ServicePrefix: "org.hearth.Activity",
			LaunchTimeout: 30 * time.Second,
		},
		Bundles: BundlesConfig{
			Dir: "./bundles",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
