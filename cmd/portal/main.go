// Package main provides the entry point for the freight portal server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/config"
	"github.com/expressofrete/portal/internal/metrics"
	"github.com/expressofrete/portal/internal/middleware"
	"github.com/expressofrete/portal/internal/portal"
	"github.com/expressofrete/portal/internal/session"
)

const version = "0.1.0"

// logLevelMaxBody bounds the log level request body.
const logLevelMaxBody = 1 << 10

// serverComponents holds everything run wires together.
type serverComponents struct {
	logger     *slog.Logger
	logLevel   *slog.LevelVar
	store      session.Store
	apiClient  *backend.Client
	handler    *portal.Handler
	mainRouter http.Handler
	registry   *prometheus.Registry
}

func main() {
	// Health check subcommand for distroless container health checks
	if len(os.Args) > 1 && os.Args[1] == "health" {
		os.Exit(runHealthCheck())
	}

	if err := run(); err != nil {
		slog.Error("portal failed", "error", err)
		os.Exit(1)
	}
}

// run loads configuration, wires the components and serves until a signal
// arrives. Separated from main() to enable testing.
func run() error {
	if err := config.LoadDotenv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	components, err := initializeComponents(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := components.store.Close(); err != nil {
			components.logger.Error("failed to close session store", "error", err)
		}
	}()

	metricsServer := createMetricsServer(cfg, components.registry, components.handler)
	go func() {
		components.logger.Info("metrics listener starting", "addr", metricsServer.Addr)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			components.logger.Error("metrics listener failed", "error", err)
		}
	}()
	defer func() {
		//nolint:errcheck
		metricsServer.Close()
	}()

	server := createServer(cfg, components.mainRouter)
	components.logger.Info("portal starting",
		"version", version,
		"addr", cfg.ListenAddr,
		"api_base_url", cfg.APIBaseURL,
		"session_backend", cfg.SessionBackend,
	)
	return startServerAndWaitForShutdown(components.logger, server)
}

// initializeComponents builds the logger, session store, API client and
// router from cfg.
func initializeComponents(cfg *config.Config) (*serverComponents, error) {
	logLevel := new(slog.LevelVar)
	level, err := parseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logLevel.Set(level)

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := metrics.Init(registry, version); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{
		Transport: &backend.LoggingTransport{Transport: http.DefaultTransport, Logger: logger},
	}
	apiClient := backend.NewClient(cfg.APIBaseURL,
		backend.WithHTTPClient(httpClient),
		backend.WithTimeout(cfg.APITimeout),
		backend.WithLogger(logger),
	)

	handler, err := portal.NewHandler(apiClient, store,
		portal.WithLogger(logger),
		portal.WithLogLevel(logLevel),
		portal.WithMaxBodyBytes(cfg.MaxBodyBytes),
	)
	if err != nil {
		//nolint:errcheck
		store.Close()
		return nil, err
	}

	return &serverComponents{
		logger:     logger,
		logLevel:   logLevel,
		store:      store,
		apiClient:  apiClient,
		handler:    handler,
		mainRouter: handler.NewRouter(),
		registry:   registry,
	}, nil
}

// openStore opens the configured session backend.
func openStore(cfg *config.Config) (session.Store, error) {
	switch cfg.SessionBackend {
	case config.BackendSQLite:
		sealer, err := session.NewSealer(cfg.SessionSecret)
		if err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		store, err := session.OpenSQLite(ctx, cfg.DatabasePath, sealer)
		if err != nil {
			return nil, fmt.Errorf("failed to open session database: %w", err)
		}
		return store, nil

	case config.BackendRedis:
		sealer, err := session.NewSealer(cfg.SessionSecret)
		if err != nil {
			return nil, err
		}
		store := session.NewRedisStore(session.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB), sealer)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			//nolint:errcheck
			store.Close()
			return nil, fmt.Errorf("failed to reach session redis: %w", err)
		}
		return store, nil

	case config.BackendMemory, "":
		return session.NewMemoryStore(), nil

	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.SessionBackend)
	}
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %q", s)
	}
}

// createServer creates the portal http.Server.
func createServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// createMetricsServer creates the operator listener serving /metrics and the
// runtime log level switch, kept off the public address.
func createMetricsServer(cfg *config.Config, reg *prometheus.Registry, handler *portal.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", metrics.HandlerFor(reg))
	mux.Handle("POST /loglevel", middleware.MaxBodySize(logLevelMaxBody)(http.HandlerFunc(handler.HandleSetLogLevel)))
	return &http.Server{
		Addr:              cfg.MetricsListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// startServerAndWaitForShutdown serves until SIGINT or SIGTERM, then shuts
// down gracefully.
func startServerAndWaitForShutdown(logger *slog.Logger, server *http.Server) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err, ok := <-serverErr:
		if ok && err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-sigCh:
		logger.Info("Received signal, shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	logger.Info("Server shut down gracefully")
	return nil
}

// runHealthCheck checks the local server. Returns 0 on success, 1 on
// failure. Used by container HEALTHCHECK.
func runHealthCheck() int {
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return doHealthCheck("http://" + addr + "/health")
}

// doHealthCheck performs the health check request.
func doHealthCheck(url string) int {
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return 1
	}
	//nolint:errcheck // Response body close errors are unrecoverable in health check
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 1
	}
	return 0
}
