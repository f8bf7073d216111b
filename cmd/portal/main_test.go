package main

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/expressofrete/portal/internal/config"
	"github.com/expressofrete/portal/internal/metrics"
	"github.com/expressofrete/portal/internal/session"
	"github.com/expressofrete/portal/internal/testutil/mockbackend"
)

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	t.Setenv("API_BASE_URL", apiURL)
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("SESSION_BACKEND", "memory")
	t.Setenv("LISTEN_ADDR", ":8080")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid config: %v", err)
	}
	return cfg
}

func TestInitializeComponentsWithValidConfig(t *testing.T) {
	api := mockbackend.New()
	defer api.Close()

	components, err := initializeComponents(testConfig(t, api.URL()))
	if err != nil {
		t.Fatalf("failed to initialize components: %v", err)
	}
	defer components.store.Close()

	if components.logger == nil || components.logLevel == nil {
		t.Error("logger should be initialized")
	}
	if _, ok := components.store.(*session.MemoryStore); !ok {
		t.Errorf("expected memory store, got %T", components.store)
	}
	if components.apiClient == nil || components.handler == nil || components.mainRouter == nil {
		t.Error("client, handler and router should be initialized")
	}
	if components.logLevel.Level() != slog.LevelError {
		t.Errorf("expected error level, got %v", components.logLevel.Level())
	}
}

func TestInitializeComponentsSQLiteBackend(t *testing.T) {
	api := mockbackend.New()
	defer api.Close()

	cfg := testConfig(t, api.URL())
	cfg.SessionBackend = config.BackendSQLite
	cfg.DatabasePath = ":memory:"
	cfg.SessionSecret = "0123456789abcdef"

	components, err := initializeComponents(cfg)
	if err != nil {
		t.Fatalf("failed to initialize components: %v", err)
	}
	defer components.store.Close()

	if _, ok := components.store.(*session.SQLiteStore); !ok {
		t.Errorf("expected sqlite store, got %T", components.store)
	}
}

func TestInitializeComponentsWeakSecret(t *testing.T) {
	cfg := testConfig(t, "http://localhost:1")
	cfg.SessionBackend = config.BackendSQLite
	cfg.DatabasePath = ":memory:"
	cfg.SessionSecret = "short"

	if _, err := initializeComponents(cfg); !errors.Is(err, session.ErrWeakSecret) {
		t.Errorf("expected ErrWeakSecret, got %v", err)
	}
}

func TestInitializeComponentsInvalidLogLevel(t *testing.T) {
	cfg := testConfig(t, "http://localhost:1")
	cfg.LogLevel = "verbose"

	_, err := initializeComponents(cfg)
	if err == nil || !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("expected invalid log level error, got %v", err)
	}
}

func TestInitializeComponentsRouterSetup(t *testing.T) {
	api := mockbackend.New()
	defer api.Close()

	components, err := initializeComponents(testConfig(t, api.URL()))
	if err != nil {
		t.Fatalf("failed to initialize components: %v", err)
	}
	defer components.store.Close()

	for _, path := range []string{"/health", "/ready", "/"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		components.mainRouter.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, w.Code)
		}
	}

	text, err := metrics.GetMetricsText(components.registry)
	if err != nil {
		t.Fatalf("failed to read metrics: %v", err)
	}
	if !strings.Contains(text, "portal_http_requests_total") {
		t.Error("expected request counter to be exported")
	}
}

func TestMetricsServerServesOperatorRoutes(t *testing.T) {
	api := mockbackend.New()
	defer api.Close()

	cfg := testConfig(t, api.URL())
	components, err := initializeComponents(cfg)
	if err != nil {
		t.Fatalf("failed to initialize components: %v", err)
	}
	defer components.store.Close()

	server := createMetricsServer(cfg, components.registry, components.handler)
	if server.Addr != cfg.MetricsListenAddr {
		t.Errorf("expected addr %q, got %q", cfg.MetricsListenAddr, server.Addr)
	}

	w := httptest.NewRecorder()
	server.Handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "portal_info") {
		t.Errorf("metrics: got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/loglevel", strings.NewReader(`{"level":"debug"}`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	server.Handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("loglevel: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if components.logLevel.Level() != slog.LevelDebug {
		t.Errorf("expected debug level, got %v", components.logLevel.Level())
	}

	// The public router no longer exposes the switch.
	w = httptest.NewRecorder()
	components.mainRouter.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/loglevel", strings.NewReader("level=debug")))
	if w.Code == http.StatusOK {
		t.Error("public router must not serve the log level switch")
	}
}

func TestRunWithMissingAPIBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("LOG_LEVEL", "info")

	err := run()
	if err == nil || !strings.Contains(err.Error(), "API_BASE_URL") {
		t.Errorf("expected API_BASE_URL error, got %v", err)
	}
}

func TestRunWithInvalidLogLevel(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:1")
	t.Setenv("LOG_LEVEL", "invalid_level")

	err := run()
	if err == nil || !strings.Contains(err.Error(), "LOG_LEVEL") {
		t.Errorf("expected LOG_LEVEL error, got %v", err)
	}
}

func TestCreateServer(t *testing.T) {
	cfg := testConfig(t, "http://localhost:1")
	server := createServer(cfg, http.NotFoundHandler())

	if server.Addr != ":8080" {
		t.Errorf("expected server address :8080, got %s", server.Addr)
	}
	if server.ReadTimeout != 15*time.Second {
		t.Errorf("expected read timeout 15s, got %v", server.ReadTimeout)
	}
	if server.IdleTimeout != 60*time.Second {
		t.Errorf("expected idle timeout 60s, got %v", server.IdleTimeout)
	}
}

func TestStartServerAndWaitForShutdownServerStartupError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	server := &http.Server{
		Addr:    "invalid:address:99999",
		Handler: http.NotFoundHandler(),
	}

	err := startServerAndWaitForShutdown(logger, server)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, http.ErrServerClosed) {
		t.Errorf("error should not be http.ErrServerClosed, got %v", err)
	}
	if !strings.Contains(err.Error(), "server error") {
		t.Errorf("expected 'server error', got: %s", err)
	}
}

func TestStartServerAndWaitForShutdownGracefulSignalShutdown(t *testing.T) {
	var logBuffer bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logBuffer, &slog.HandlerOptions{Level: slog.LevelInfo}))
	server := &http.Server{
		Addr:              "127.0.0.1:0",
		Handler:           http.NotFoundHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		done <- startServerAndWaitForShutdown(logger, server)
	}()

	time.Sleep(100 * time.Millisecond)
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("failed to send SIGTERM: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected graceful shutdown, got %v", err)
		}
		out := logBuffer.String()
		if !strings.Contains(out, "Received signal, shutting down") {
			t.Errorf("missing shutdown log, got: %s", out)
		}
		if !strings.Contains(out, "Server shut down gracefully") {
			t.Errorf("missing graceful log, got: %s", out)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for graceful shutdown")
	}
}

func TestDoHealthCheck(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   int
	}{
		{"ok", http.StatusOK, 0},
		{"unavailable", http.StatusServiceUnavailable, 1},
		{"not found", http.StatusNotFound, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			if got := doHealthCheck(server.URL); got != tt.want {
				t.Errorf("doHealthCheck() = %d, want %d", got, tt.want)
			}
		})
	}

	if got := doHealthCheck("http://localhost:99999/health"); got != 1 {
		t.Errorf("expected 1 for connection error, got %d", got)
	}
}
