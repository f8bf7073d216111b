package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GenericFailureMessage is shown when the API answered with something that
// is not a JSON error, usually an HTML page from a proxy or load balancer.
const GenericFailureMessage = "Erro de conexão ou permissão. Tente novamente mais tarde."

// NetworkError means the request never got an HTTP answer (offline, DNS,
// refused connection, timeout).
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("backend: %s %s: network error: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError is a non-2xx answer. Message is the API's human readable text
// when the body carried one, GenericFailureMessage otherwise.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// DecodeError is a 2xx answer whose body is not the expected JSON.
type DecodeError struct {
	Status int
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("backend: status %d: failed to decode response: %v", e.Status, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// errorPayload covers the message fields the API uses across endpoints.
type errorPayload struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Mensagem string `json:"mensagem"`
}

func (p errorPayload) text() string {
	for _, s := range []string{p.Error, p.Message, p.Mensagem} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// parseError turns a failed response into an *HTTPError. It never fails:
// bodies that aren't JSON get the generic message instead of a parse error.
func parseError(statusCode int, body []byte) error {
	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := payload.text(); msg != "" {
			return &HTTPError{Status: statusCode, Message: msg}
		}
	}
	return &HTTPError{Status: statusCode, Message: GenericFailureMessage}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// IsUnauthorized reports a 401 answer (token missing, stale or revoked).
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsForbidden reports a 403 answer (token accepted, operation denied).
func IsForbidden(err error) bool {
	return StatusOf(err) == http.StatusForbidden
}

// IsNotFound reports a 404 answer.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}
