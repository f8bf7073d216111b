// Package main implements a standalone fake freight API for local
// development and end-to-end runs of the portal.
package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/testutil/mockbackend"
)

// getPort returns the port from the PORT environment variable or the default.
func getPort() string {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}
	return port
}

// getPortAddr formats the port into a server address.
func getPortAddr(port string) string {
	return ":" + port
}

// createServer creates the fake API without a listener of its own.
func createServer(logger *slog.Logger) *mockbackend.Server {
	return mockbackend.NewHandler(mockbackend.WithLogger(logger))
}

// seedDemoData adds the accounts and pickup listed in the startup log so
// the portal can be clicked through right away.
func seedDemoData(server *mockbackend.Server) backend.Coleta {
	server.AddStaff("Administrador", "admin@expressofrete.test", "admin123", "admin")
	server.AddStaff("Motorista", "motorista@expressofrete.test", "motorista123", "motorista")
	server.AddClient("Cliente Demo", "cliente@expressofrete.test", "12345678909", "cliente123")
	return server.AddColeta("cliente@expressofrete.test", backend.Coleta{
		Destinatario:    "Maria Souza",
		EnderecoColeta:  "Rua das Flores, 100 - São Paulo/SP",
		EnderecoEntrega: "Av. Brasil, 2000 - Campinas/SP",
		DataColeta:      time.Now().Format("2006-01-02"),
		Volumes:         1,
	})
}

// createHTTPServer creates an http.Server with the given port and handler.
func createHTTPServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              getPortAddr(port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// setupShutdownHandler sets up graceful shutdown handling.
func setupShutdownHandler(logger *slog.Logger, httpServer *http.Server) <-chan bool {
	done := make(chan bool)
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		logger.Info("shutting down mockbackend server")
		//nolint:errcheck
		httpServer.Close()
		close(done)
	}()
	return done
}

// runHealthCheck performs an HTTP health check against the local server.
// Returns 0 on success, 1 on failure. Used by container HEALTHCHECK.
func runHealthCheck() int {
	return doHealthCheck("http://localhost:" + getPort() + "/admin/state")
}

// doHealthCheck performs the actual health check HTTP request.
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

func main() {
	// Handle health check subcommand for distroless container health checks
	if len(os.Args) > 1 && os.Args[1] == "health" {
		os.Exit(runHealthCheck())
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	port := getPort()
	server := createServer(logger)
	coleta := seedDemoData(server)

	httpServer := createHTTPServer(port, server.Handler())
	done := setupShutdownHandler(logger, httpServer)

	logger.Info("mockbackend listening",
		"port", port,
		"admin", "admin@expressofrete.test",
		"client", "cliente@expressofrete.test",
		"numero_encomenda", coleta.NumeroEncomenda,
	)
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		logger.Error("HTTP server error", "error", err)
		os.Exit(1)
	}

	<-done
	logger.Info("mockbackend stopped")
}
