package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"LOG_LEVEL", "LISTEN_ADDR", "METRICS_LISTEN_ADDR", "API_BASE_URL", "API_TIMEOUT",
	"SESSION_BACKEND", "DATABASE_PATH", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"SESSION_SECRET", "MAX_BODY_BYTES",
}

// clearEnv empties every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q (default)", cfg.LogLevel, "info")
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q, want %q (default)", cfg.ListenAddr, ":8080")
	}
	if cfg.MetricsListenAddr != "localhost:9090" {
		t.Errorf("MetricsListenAddr = %q, want %q (default)", cfg.MetricsListenAddr, "localhost:9090")
	}
	if cfg.SessionBackend != BackendMemory {
		t.Errorf("SessionBackend = %q, want %q (default)", cfg.SessionBackend, BackendMemory)
	}
	if cfg.APITimeout != 15*time.Second {
		t.Errorf("APITimeout = %v, want 15s (default)", cfg.APITimeout)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Errorf("MaxBodyBytes = %d, want %d (default)", cfg.MaxBodyBytes, 1<<20)
	}
	if cfg.APIBaseURL != "" {
		t.Errorf("APIBaseURL = %q, want empty (no default)", cfg.APIBaseURL)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("API_BASE_URL", "http://mockbackend:8081/")
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("SESSION_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MAX_BODY_BYTES", "4096")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}

	if cfg.APIBaseURL != "http://mockbackend:8081" {
		t.Errorf("APIBaseURL = %q, trailing slash should be trimmed", cfg.APIBaseURL)
	}
	if cfg.APITimeout != 3*time.Second {
		t.Errorf("APITimeout = %v", cfg.APITimeout)
	}
	if cfg.SessionBackend != BackendRedis {
		t.Errorf("SessionBackend = %q", cfg.SessionBackend)
	}
	if cfg.RedisAddr != "redis:6379" || cfg.RedisDB != 2 {
		t.Errorf("Redis = %q/%d", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.MaxBodyBytes != 4096 {
		t.Errorf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
}

func TestLoad_LogLevelIsCaseInsensitive(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("API_BASE_URL", "http://mockbackend:8081")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v, want nil", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestLoad_InvalidNumbers(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"API_TIMEOUT", "soon"},
		{"REDIS_DB", "one"},
		{"MAX_BODY_BYTES", "1MB"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Errorf("Load() error = %v, want one naming %s", err, tt.key)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LogLevel:       "info",
			APIBaseURL:     "https://api.example.com",
			APITimeout:     time.Second,
			SessionBackend: BackendMemory,
			DatabasePath:   "/data/portal.db",
			RedisAddr:      "localhost:6379",
			MaxBodyBytes:   1024,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid memory", func(*Config) {}, ""},
		{"missing api url", func(c *Config) { c.APIBaseURL = "" }, "API_BASE_URL"},
		{"relative api url", func(c *Config) { c.APIBaseURL = "/api" }, "API_BASE_URL"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "LOG_LEVEL"},
		{"unknown backend", func(c *Config) { c.SessionBackend = "etcd" }, "SESSION_BACKEND"},
		{"sqlite without secret", func(c *Config) { c.SessionBackend = BackendSQLite }, "SESSION_SECRET"},
		{"sqlite short secret", func(c *Config) {
			c.SessionBackend = BackendSQLite
			c.SessionSecret = "short"
		}, "SESSION_SECRET"},
		{"sqlite ok", func(c *Config) {
			c.SessionBackend = BackendSQLite
			c.SessionSecret = "0123456789abcdef"
		}, ""},
		{"redis without secret", func(c *Config) { c.SessionBackend = BackendRedis }, "SESSION_SECRET"},
		{"redis without addr", func(c *Config) {
			c.SessionBackend = BackendRedis
			c.RedisAddr = ""
			c.SessionSecret = "0123456789abcdef"
		}, "REDIS_ADDR"},
		{"zero timeout", func(c *Config) { c.APITimeout = 0 }, "API_TIMEOUT"},
		{"zero body limit", func(c *Config) { c.MaxBodyBytes = 0 }, "MAX_BODY_BYTES"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want one mentioning %s", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", ":7000")
	// godotenv skips keys that are present, even when empty. The cleanup
	// registered by clearEnv restores it afterwards.
	os.Unsetenv("API_BASE_URL") //nolint:errcheck

	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "API_BASE_URL=http://from-dotenv:8081\nLISTEN_ADDR=:9999\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := LoadDotenv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotenv() error = %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIBaseURL != "http://from-dotenv:8081" {
		t.Errorf("APIBaseURL = %q, want value from .env", cfg.APIBaseURL)
	}
	if cfg.ListenAddr != ":7000" {
		t.Errorf("ListenAddr = %q, existing env must win over .env", cfg.ListenAddr)
	}
}
