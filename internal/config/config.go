// Package config provides configuration loading and validation from environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// MinSessionSecretLength matches the session sealer's minimum.
const MinSessionSecretLength = 16

// Config holds all portal configuration.
type Config struct {
	LogLevel          string        // debug, info, warn, error
	ListenAddr        string        // Portal listen address (e.g., ":8080")
	MetricsListenAddr string        // Metrics listener address (e.g., "localhost:9090")
	APIBaseURL        string        // Required: base URL of the freight API
	APITimeout        time.Duration // Per-call timeout for the freight API
	SessionBackend    string        // memory, sqlite or redis
	DatabasePath      string        // SQLite database path (sqlite backend)
	RedisAddr         string        // host:port (redis backend)
	RedisPassword     string
	RedisDB           int
	SessionSecret     string // Seals stored tokens (sqlite and redis backends)
	MaxBodyBytes      int64  // Request body limit for form posts
}

// LoadDotenv reads KEY=VALUE files into the environment without overriding
// variables that are already set. Missing files are ignored.
func LoadDotenv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: failed to read %s: %w", p, err)
		}
	}
	return nil
}

// Load parses configuration from environment variables.
// All configuration options except API_BASE_URL have defaults.
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:          strings.ToLower(getenv("LOG_LEVEL", "info")),
		ListenAddr:        getenv("LISTEN_ADDR", ":8080"),
		MetricsListenAddr: getenv("METRICS_LISTEN_ADDR", "localhost:9090"),
		APIBaseURL:        strings.TrimRight(os.Getenv("API_BASE_URL"), "/"),
		SessionBackend:    strings.ToLower(getenv("SESSION_BACKEND", BackendMemory)),
		DatabasePath:      getenv("DATABASE_PATH", "/data/portal.db"),
		RedisAddr:         getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		SessionSecret:     os.Getenv("SESSION_SECRET"),
	}

	var err error
	if cfg.APITimeout, err = durationEnv("API_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, err
	}
	maxBody, err := intEnv("MAX_BODY_BYTES", 1<<20)
	if err != nil {
		return nil, err
	}
	cfg.MaxBodyBytes = int64(maxBody)

	return cfg, nil
}

// Validate checks all configuration constraints.
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("API_BASE_URL environment variable is required")
	}
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute http(s) URL, got %q", c.APIBaseURL)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", c.LogLevel)
	}

	switch c.SessionBackend {
	case BackendMemory:
	case BackendSQLite:
		if c.DatabasePath == "" {
			return fmt.Errorf("DATABASE_PATH is required for the sqlite session backend")
		}
		if err := c.checkSecret(); err != nil {
			return err
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis session backend")
		}
		if err := c.checkSecret(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("SESSION_BACKEND must be memory, sqlite or redis, got %q", c.SessionBackend)
	}

	if c.APITimeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("MAX_BODY_BYTES must be positive")
	}
	return nil
}

func (c *Config) checkSecret() error {
	if len(c.SessionSecret) < MinSessionSecretLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters for the %s session backend",
			MinSessionSecretLength, c.SessionBackend)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
