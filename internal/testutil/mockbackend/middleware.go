package mockbackend

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/expressofrete/portal/internal/logging"
)

type ctxKey int

const principalKey ctxKey = iota

type principal struct {
	kind  string
	email string
}

// LoggingMiddleware logs every request and response with secrets masked.
// It does nothing when logger is nil.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			var reqBody []byte
			if r.Body != nil {
				var err error
				reqBody, err = io.ReadAll(r.Body)
				if err != nil {
					logger.Error("failed to read request body", "error", err)
					http.Error(w, "failed to read request body", http.StatusInternalServerError)
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(reqBody))
			}

			headers := make(map[string]string, len(r.Header))
			for name, values := range r.Header {
				headers[name] = logging.MaskHeader(name, strings.Join(values, ", "))
			}
			logger.Info("mockbackend received request",
				"method", r.Method,
				"url", r.URL.String(),
				"headers", headers,
				"body", string(logging.MaskJSONBody(reqBody)),
			)

			rec := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, body: new(bytes.Buffer)}
			next.ServeHTTP(rec, r)

			body := string(logging.MaskJSONBody(rec.body.Bytes()))
			if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/pdf") {
				body = logging.FormatBinaryData(rec.body.Bytes())
			}
			logger.Info("mockbackend sent response",
				"method", r.Method,
				"url", r.URL.String(),
				"status_code", rec.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"body", body,
			)
		})
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.state.mu.Lock()
		s.state.requests[r.Method+" "+r.URL.Path]++
		s.state.lastAuthz = r.Header.Get("Authorization")
		s.state.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// injectFailures answers with the scripted failure while one is pending.
// The /admin endpoints of the mock itself are never affected.
func (s *Server) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		s.state.mu.Lock()
		f := s.state.failure
		var scripted failure
		if f != nil && f.remaining > 0 {
			scripted = *f
			f.remaining--
			if f.remaining == 0 {
				s.state.failure = nil
			}
		}
		s.state.mu.Unlock()

		if scripted.status == 0 {
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Content-Type", scripted.contentType)
		w.WriteHeader(scripted.status)
		//nolint:errcheck
		io.WriteString(w, scripted.body)
	})
}

// requireKind checks the bearer token: 401 when missing or invalid, 403
// when it belongs to another kind of account.
func (s *Server) requireKind(kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !found || raw == "" {
				writeError(w, http.StatusUnauthorized, "Token não fornecido")
				return
			}
			tokenKind, email, ok := parseToken(raw)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Token inválido ou expirado")
				return
			}
			if tokenKind != kind {
				writeError(w, http.StatusForbidden, "Acesso negado")
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, principal{kind: tokenKind, email: email})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func principalFrom(r *http.Request) principal {
	p, _ := r.Context().Value(principalKey).(principal)
	return p
}
