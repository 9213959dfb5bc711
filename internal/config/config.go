// Package config loads client configuration from the environment, with an
// optional .env file for deployment overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the runtime configuration of the client.
type Config struct {
	// ServerURL is the base URL of the risk-calculation backend.
	ServerURL string

	// DataDir holds durable client state (the persisted credential).
	DataDir string

	// RequestTimeout bounds every backend round-trip.
	RequestTimeout time.Duration

	LogLevel  string
	LogFormat string
}

const (
	defaultServerURL = "http://localhost:3333"
	defaultTimeout   = 30 * time.Second
)

// Load reads configuration from the environment. A .env file in the data
// directory (or the current directory, for development) is loaded first.
func Load() (*Config, error) {
	dataDir := defaultDataDir()
	if dir := strings.TrimSpace(os.Getenv("LIGHTNING_DATA_DIR")); dir != "" {
		dataDir = dir
	}

	envFile := filepath.Join(dataDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Warn().Err(err).Str("file", envFile).Msg("Failed to load .env file")
		} else {
			log.Debug().Str("file", envFile).Msg("Loaded .env file for deployment overrides")
		}
	}
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded configuration from .env in current directory")
	}

	cfg := &Config{
		ServerURL:      defaultServerURL,
		DataDir:        dataDir,
		RequestTimeout: defaultTimeout,
		LogLevel:       "info",
		LogFormat:      "auto",
	}

	if v := strings.TrimSpace(os.Getenv("LIGHTNING_SERVER_URL")); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LIGHTNING_LOG_LEVEL")); v != "" {
		cfg.LogLevel = v
	}
	if v := strings.TrimSpace(os.Getenv("LIGHTNING_LOG_FORMAT")); v != "" {
		cfg.LogFormat = v
	}
	if v := strings.TrimSpace(os.Getenv("LIGHTNING_REQUEST_TIMEOUT")); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			log.Warn().Err(err).Str("value", v).Msg("Invalid LIGHTNING_REQUEST_TIMEOUT; using default")
		} else if timeout > 0 {
			cfg.RequestTimeout = timeout
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values that cannot work at runtime.
func (c *Config) Validate() error {
	parsed, err := url.Parse(c.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server URL %q: %w", c.ServerURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid server URL %q: scheme must be http or https", c.ServerURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid server URL %q: missing host", c.ServerURL)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data directory must not be empty")
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lightning"
	}
	return filepath.Join(home, ".lightning")
}
