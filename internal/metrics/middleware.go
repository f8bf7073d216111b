package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// UnmatchedRoute labels requests that matched no route.
const UnmatchedRoute = "unmatched"

// statusRecorder wraps http.ResponseWriter to capture the status code
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.written {
		r.statusCode = code
		r.written = true
		r.ResponseWriter.WriteHeader(code)
	}
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.written {
		r.statusCode = http.StatusOK
		r.written = true
	}
	return r.ResponseWriter.Write(b)
}

// Middleware records request count and latency for each portal request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}
		startTime := time.Now()

		defer func() {
			duration := time.Since(startTime).Seconds()
			statusCode := recorder.statusCode

			// A panic below us becomes a 500; chi's Recoverer sits outside
			// this middleware and is left to write the response.
			if err := recover(); err != nil {
				statusCode = http.StatusInternalServerError
				defer panic(err)
			}

			route := routePattern(r)
			statusStr := http.StatusText(statusCode)
			if statusStr == "" {
				statusStr = "UNKNOWN"
			}

			RecordRequest(r.Method, route, statusStr)
			RecordRequestDuration(r.Method, route, statusStr, duration)
		}()

		next.ServeHTTP(recorder, r)
	})
}

// routePattern labels a request by the chi route that served it, so the
// label set is bounded by the router and never by client input.
//
//	/admin/coletas/123/etiqueta -> /admin/coletas/{id}/etiqueta
//	/wp-login.php               -> unmatched
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return UnmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return UnmatchedRoute
}
