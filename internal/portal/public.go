package portal

import (
	"context"
	"net/http"
	"strings"

	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/request"
)

// HandleHome shows the landing page
// GET /
func (h *Handler) HandleHome(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageHome, Page{Title: "Início"})
}

// HandleServices shows the services page
// GET /servicos
func (h *Handler) HandleServices(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageServices, Page{Title: "Serviços"})
}

type trackingView struct {
	Numero string
	Coleta *backend.Coleta
}

// HandleTracking shows the public tracking form and, when a shipment number
// is given, its history.
// GET /rastreio?numero=
func (h *Handler) HandleTracking(w http.ResponseWriter, r *http.Request) {
	view := trackingView{Numero: strings.TrimSpace(r.URL.Query().Get("numero"))}
	page := Page{Title: "Rastreio", Data: &view}

	if view.Numero == "" {
		h.render(w, r, http.StatusOK, pageTracking, page)
		return
	}

	state := request.Run(r.Context(), func(ctx context.Context) (*backend.Coleta, error) {
		return h.apiFor(r).TrackShipment(ctx, view.Numero)
	})
	if abandoned(r) {
		return
	}
	if state.Err != nil {
		h.fail(w, r, pageTracking, page, state.Err)
		return
	}

	view.Coleta = state.Data
	h.render(w, r, http.StatusOK, pageTracking, page)
}

// HandleNotFound renders the not-found page.
func (h *Handler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, pageError, Page{Title: "Página não encontrada"})
}

// abandoned reports a client that went away mid-request. Nothing is
// rendered for it.
func abandoned(r *http.Request) bool {
	return r.Context().Err() != nil
}
