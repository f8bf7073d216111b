package backend

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/expressofrete/portal/internal/session"
)

func newDebugLogger(buf *bytes.Buffer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: level}))
}

func TestLoggingTransport_MasksSecrets(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "hunter2-password") {
			t.Errorf("transport altered the request body: %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"eyJhbGciOiJIUzI1NiJ9.payload.signature"}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := newDebugLogger(&buf, slog.LevelDebug)
	hc := &http.Client{Transport: &LoggingTransport{Logger: logger}}
	area := newArea(t, map[session.Kind]string{session.KindAdmin: "very-long-bearer-token-1234"})
	client := NewClient(server.URL, WithHTTPClient(hc)).WithTokens(area)

	_, err := client.Request(context.Background(), http.MethodPost, "/api/admin/login",
		Credentials{Email: "a@b.c", Senha: "hunter2-password"}, session.KindAdmin)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	out := buf.String()
	for _, secret := range []string{"hunter2-password", "very-long-bearer-token-1234", "payload.signature"} {
		if strings.Contains(out, secret) {
			t.Errorf("log leaks %q:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, "api request") || !strings.Contains(out, "api response") {
		t.Errorf("expected request and response entries, got:\n%s", out)
	}
	if !strings.Contains(out, "****1234") {
		t.Errorf("expected masked bearer suffix, got:\n%s", out)
	}
}

func TestLoggingTransport_SilentAboveDebug(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	hc := &http.Client{Transport: &LoggingTransport{Logger: newDebugLogger(&buf, slog.LevelInfo)}}
	client := NewClient(server.URL, WithHTTPClient(hc))

	if _, err := client.Request(context.Background(), http.MethodGet, "/api/x", nil, session.KindNone); err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output at info level, got:\n%s", buf.String())
	}
}

func TestLoggingTransport_BinaryBody(t *testing.T) {
	t.Parallel()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4 binary"))
	}))
	defer server.Close()

	var buf bytes.Buffer
	hc := &http.Client{Transport: &LoggingTransport{Logger: newDebugLogger(&buf, slog.LevelDebug)}}
	client := NewClient(server.URL, WithHTTPClient(hc))

	blob, err := client.RequestBlob(context.Background(), http.MethodGet, "/api/x", nil, session.KindNone)
	if err != nil {
		t.Fatalf("RequestBlob failed: %v", err)
	}
	if string(blob.Data) != "%PDF-1.4 binary" {
		t.Errorf("Data = %q", blob.Data)
	}
	if !strings.Contains(buf.String(), "[BINARY: 15 bytes]") {
		t.Errorf("expected binary placeholder, got:\n%s", buf.String())
	}
}
