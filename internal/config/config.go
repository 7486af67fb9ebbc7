// Package config loads client configuration from environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all client configuration.
type Config struct {
	API     APIConfig
	Retry   RetryConfig
	Logging LogConfig
}

// APIConfig holds REDCap endpoint configuration.
type APIConfig struct {
	URL     string        `envconfig:"REDCAP_URL"`
	Token   string        `envconfig:"REDCAP_TOKEN"`
	Timeout time.Duration `envconfig:"REDCAP_TIMEOUT" default:"30s"`
}

// RetryConfig holds the default retry policy. The original library kept
// differing per-endpoint defaults as global state; here they are explicit
// configuration handed to each call.
type RetryConfig struct {
	MaxAttempts int           `envconfig:"REDCAP_RETRY_ATTEMPTS" default:"3"`
	Wait        time.Duration `envconfig:"REDCAP_RETRY_WAIT" default:"5s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"REDCAP_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"REDCAP_LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that required fields for API access are present.
func (c *Config) Validate() error {
	if c.API.URL == "" {
		return fmt.Errorf("REDCAP_URL is required")
	}
	if c.API.Token == "" {
		return fmt.Errorf("REDCAP_TOKEN is required")
	}
	return nil
}

// Default returns default configuration without touching the environment.
func Default() *Config {
	return &Config{
		API: APIConfig{
			Timeout: 30 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			Wait:        5 * time.Second,
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
