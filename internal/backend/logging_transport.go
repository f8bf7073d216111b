package backend

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/expressofrete/portal/internal/logging"
)

// LoggingTransport wraps an http.RoundTripper and logs every API exchange at
// debug level. Headers and JSON bodies pass through the logging masks, so
// bearer tokens, passwords and reset codes never reach the log.
type LoggingTransport struct {
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// RoundTrip implements http.RoundTripper.
func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.Logger.Enabled(req.Context(), slog.LevelDebug) {
		return t.transport().RoundTrip(req)
	}

	start := time.Now()

	var reqBody []byte
	if req.Body != nil {
		var err error
		reqBody, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	t.Logger.Debug("api request",
		"method", req.Method,
		"url", req.URL.String(),
		"headers", maskedHeaders(req.Header),
		"body", string(logging.MaskJSONBody(reqBody)),
	)

	resp, err := t.transport().RoundTrip(req)
	duration := time.Since(start)
	if err != nil {
		t.Logger.Debug("api request failed",
			"method", req.Method,
			"url", req.URL.String(),
			"duration_ms", duration.Milliseconds(),
			"error", err,
		)
		return nil, err
	}

	respBody, err := io.ReadAll(resp.Body)
	//nolint:errcheck
	resp.Body.Close()
	if err != nil {
		return nil, err
	}
	resp.Body = io.NopCloser(bytes.NewReader(respBody))

	logged := string(logging.MaskJSONBody(respBody))
	if !strings.Contains(resp.Header.Get("Content-Type"), "json") && !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/") {
		logged = logging.FormatBinaryData(respBody)
	}

	t.Logger.Debug("api response",
		"method", req.Method,
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"duration_ms", duration.Milliseconds(),
		"headers", maskedHeaders(resp.Header),
		"body", logged,
	)

	return resp, nil
}

func (t *LoggingTransport) transport() http.RoundTripper {
	if t.Transport != nil {
		return t.Transport
	}
	return http.DefaultTransport
}

func maskedHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		out[name] = logging.MaskHeader(name, strings.Join(values, ", "))
	}
	return out
}
