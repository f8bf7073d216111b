// Package portal serves the server-rendered web portal: public pages, the
// client portal, password recovery, the staff back-office and the driver
// update link. Every data operation is delegated to the freight API through
// backend.Client; the only state kept here is the per-browser session area.
package portal

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/expressofrete/portal/internal/auth"
	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/middleware"
	"github.com/expressofrete/portal/internal/request"
	"github.com/expressofrete/portal/internal/session"
)

// DefaultMaxBodyBytes bounds form posts when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// MsgBusy is shown when the same form is submitted again while the first
// submission is still pending.
const MsgBusy = "Aguarde: a solicitação anterior ainda está em andamento."

// Handler serves the portal.
type Handler struct {
	api      *backend.Client
	store    session.Store
	controls *request.Controls
	pages    pageSet
	logger   *slog.Logger
	logLevel *slog.LevelVar
	maxBody  int64
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// WithLogLevel sets the level variable changed by POST /loglevel on the metrics listener.
func WithLogLevel(level *slog.LevelVar) Option {
	return func(h *Handler) {
		h.logLevel = level
	}
}

// WithMaxBodyBytes sets the request body limit.
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		h.maxBody = n
	}
}

// NewHandler creates the portal handler. Templates are parsed here, so a
// broken template fails at startup rather than on first render.
func NewHandler(api *backend.Client, store session.Store, opts ...Option) (*Handler, error) {
	h := &Handler{
		api:      api,
		store:    store,
		controls: request.NewControls(),
		logger:   slog.Default(),
		logLevel: new(slog.LevelVar),
		maxBody:  DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(h)
	}

	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("portal: failed to parse templates: %w", err)
	}
	h.pages = pages

	return h, nil
}

// area returns the browser's session area. Routes outside the session
// middleware get a throwaway empty area.
func (h *Handler) area(r *http.Request) *session.Area {
	if area, ok := session.AreaFromContext(r.Context()); ok {
		return area
	}
	return session.NewArea(session.NewMemoryStore(), "anonymous")
}

// apiFor returns the API client bound to the browser's tokens.
func (h *Handler) apiFor(r *http.Request) *backend.Client {
	return h.api.WithTokens(h.area(r))
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	return middleware.Logger(r.Context(), h.logger)
}

// acquire marks a form control of this browser busy. The returned release
// must be deferred by the caller.
func (h *Handler) acquire(r *http.Request, control string) (func(), error) {
	return h.controls.Acquire(h.area(r).BrowserID() + "/" + control)
}

// parseForm parses the posted form, answering 413 or 400 on failure.
func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseForm(); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
			return false
		}
		http.Error(w, "Formulário inválido.", http.StatusBadRequest)
		return false
	}
	return true
}

// isBusy reports a double submission.
func isBusy(err error) bool {
	return errors.Is(err, request.ErrBusy) || errors.Is(err, auth.ErrSubmitting)
}
