package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all service configuration.
type Config struct {
	Server    ServerConfig
	Resolver  ResolverConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8400"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// ResolverConfig holds shortcut-resolution configuration.
type ResolverConfig struct {
	SeedPath         string        `envconfig:"SEED_PATH" default:"seed.yaml"`
	PredictorEnabled bool          `envconfig:"PREDICTOR_ENABLED" default:"true"`
	WatchdogTimeout  time.Duration `envconfig:"PREDICTOR_WATCHDOG" default:"2s"`
	BreakerFailures  uint32        `envconfig:"PREDICTOR_BREAKER_FAILURES" default:"5"`
	BreakerTimeout   time.Duration `envconfig:"PREDICTOR_BREAKER_TIMEOUT" default:"30s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns defaults.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8400",
			Host: "0.0.0.0",
		},
		Resolver: ResolverConfig{
			SeedPath:         "seed.yaml",
			PredictorEnabled: true,
			WatchdogTimeout:  2 * time.Second,
			BreakerFailures:  5,
			BreakerTimeout:   30 * time.Second,
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
