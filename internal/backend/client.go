// Package backend is the gateway to the freight REST API. Every data
// operation of the portal goes through Client.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/expressofrete/portal/internal/metrics"
	"github.com/expressofrete/portal/internal/session"
)

// DefaultTimeout bounds a single API call.
const DefaultTimeout = 15 * time.Second

// TokenSource supplies session tokens. *session.Area satisfies it.
type TokenSource interface {
	Get(ctx context.Context, kind session.Kind) (string, error)
}

// Client is an HTTP client for the freight API.
//
// It never retries and never caches; each call is independent. Callers that
// mutate state must keep the triggering control disabled while a call is in
// flight (see request.Controls).
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithLogger sets the logger used for failed calls.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTimeout sets the per-call timeout on a private copy of the HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// NewClient creates a client for the API at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithTokens returns a copy of c reading tokens from ts, usually the
// requesting browser's session area.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the API base address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request performs a JSON call and returns the raw JSON body. A nil body is
// sent without payload. When kind is not session.KindNone and a token of
// that kind is stored, it is sent as a bearer credential; without one the
// call goes out unauthenticated and the API decides.
//
// An empty 2xx body yields a nil result.
func (c *Client) Request(ctx context.Context, method, path string, body any, kind session.Kind) (json.RawMessage, error) {
	resp, respBody, err := c.do(ctx, method, path, body, kind, "application/json")
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return nil, nil
	}

	if !json.Valid(respBody) {
		return nil, &DecodeError{Status: resp.StatusCode, Err: errors.New("body is not valid JSON")}
	}

	return json.RawMessage(respBody), nil
}

// Blob is a downloaded file.
type Blob struct {
	Data        []byte
	ContentType string
	Filename    string
}

// RequestBlob performs a call whose answer is a file (PDF invoices and
// labels). The body is returned as-is, without JSON parsing.
func (c *Client) RequestBlob(ctx context.Context, method, path string, body any, kind session.Kind) (*Blob, error) {
	resp, respBody, err := c.do(ctx, method, path, body, kind, "application/pdf, application/octet-stream")
	if err != nil {
		return nil, err
	}

	blob := &Blob{
		Data:        respBody,
		ContentType: resp.Header.Get("Content-Type"),
	}
	if blob.ContentType == "" {
		blob.ContentType = "application/octet-stream"
	}
	if disposition := resp.Header.Get("Content-Disposition"); disposition != "" {
		if _, params, err := mime.ParseMediaType(disposition); err == nil {
			blob.Filename = params["filename"]
		}
	}
	return blob, nil
}

// requestJSON performs a call and decodes the answer into out (if non-nil).
func (c *Client) requestJSON(ctx context.Context, method, path string, body any, kind session.Kind, out any) error {
	raw, err := c.Request(ctx, method, path, body, kind)
	if err != nil {
		return err
	}
	if out == nil || raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Status: http.StatusOK, Err: err}
	}
	return nil
}

// do sends the request and reads the whole answer. Non-2xx statuses come
// back as *HTTPError, transport failures as *NetworkError.
func (c *Client) do(ctx context.Context, method, path string, body any, kind session.Kind, accept string) (*http.Response, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, fmt.Errorf("backend: failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, fmt.Errorf("backend: failed to create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	token, err := c.token(ctx, kind)
	if err != nil {
		return nil, nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	route := routeOf(path)
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamCall(method, route, "network", time.Since(start).Seconds())
		c.logger.Warn("api call failed", "method", method, "path", path, "error", err)
		return nil, nil, &NetworkError{Method: method, Path: path, Err: err}
	}
	defer func() {
		//nolint:errcheck
		resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	duration := time.Since(start).Seconds()
	if err != nil {
		metrics.RecordUpstreamCall(method, route, "network", duration)
		return nil, nil, &NetworkError{Method: method, Path: path, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.RecordUpstreamCall(method, route, strconv.Itoa(resp.StatusCode), duration)
		c.logger.Debug("api call rejected", "method", method, "path", path, "status", resp.StatusCode)
		return nil, nil, parseError(resp.StatusCode, respBody)
	}

	metrics.RecordUpstreamCall(method, route, "ok", duration)
	return resp, respBody, nil
}

// token returns the bearer token for kind, or "" when the call must go out
// unauthenticated.
func (c *Client) token(ctx context.Context, kind session.Kind) (string, error) {
	if kind == session.KindNone || c.tokens == nil {
		return "", nil
	}

	token, err := c.tokens.Get(ctx, kind)
	if errors.Is(err, session.ErrNoToken) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("backend: failed to read %s token: %w", kind, err)
	}
	return token, nil
}
