package portal

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/expressofrete/portal/internal/auth"
	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/notice"
	"github.com/expressofrete/portal/internal/request"
	"github.com/expressofrete/portal/internal/session"
)

// Client portal messages.
const (
	MsgPickupRequested = "Coleta solicitada! Número da encomenda: %s"
	MsgReturnRequested = "Devolução solicitada para a encomenda %s."
	MsgInvalidNumber   = "Informe um número válido."
)

type clientLoginView struct {
	Mode auth.Mode
	Form *auth.RegistrationForm
}

type clientDashboardView struct {
	Coletas   []backend.Coleta
	ExpiresAt *time.Time
}

// HandleClientPortal shows the dashboard when a client session exists and
// the login or registration form otherwise.
// GET /portal?modo=login|cadastro
func (h *Handler) HandleClientPortal(w http.ResponseWriter, r *http.Request) {
	ok, err := h.area(r).Has(r.Context(), session.KindClient)
	if err != nil {
		h.unavailable(w, r, err)
		return
	}
	if ok {
		h.clientDashboard(w, r, "", nil)
		return
	}

	h.clientLogin(w, r, http.StatusOK, auth.ParseMode(r.URL.Query().Get("modo")), &auth.RegistrationForm{}, "", nil)
}

// HandleClientLogin authenticates a client
// POST /portal/login
func (h *Handler) HandleClientLogin(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	creds := backend.Credentials{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Senha: r.PostFormValue("senha"),
	}
	form := &auth.RegistrationForm{Registration: backend.Registration{Email: creds.Email}}

	release, err := h.acquire(r, "portal-login")
	if err != nil {
		h.clientLogin(w, r, 0, auth.ModeLogin, form, "", err)
		return
	}
	defer release()

	flow := auth.NewClientPortal(h.apiFor(r), h.area(r), h.log(r), auth.ModeLogin)
	flow.OnLoginSuccess = func(context.Context) {
		h.log(r).Info("client logged in", "browser_id", h.area(r).BrowserID())
	}
	if err := flow.Login(r.Context(), creds); err != nil {
		h.clientLogin(w, r, 0, flow.Mode(), form, "", err)
		return
	}

	http.Redirect(w, r, ClientPortalPath, http.StatusSeeOther)
}

// HandleClientRegister creates a client account
// POST /portal/cadastro
func (h *Handler) HandleClientRegister(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	form := &auth.RegistrationForm{
		Registration: backend.Registration{
			Nome:     strings.TrimSpace(r.PostFormValue("nome")),
			Email:    strings.TrimSpace(r.PostFormValue("email")),
			CPFCNPJ:  strings.TrimSpace(r.PostFormValue("cpfCnpj")),
			Telefone: strings.TrimSpace(r.PostFormValue("telefone")),
			Endereco: strings.TrimSpace(r.PostFormValue("endereco")),
			Senha:    r.PostFormValue("senha"),
		},
		ConfirmarSenha: r.PostFormValue("confirmarSenha"),
	}

	release, err := h.acquire(r, "portal-cadastro")
	if err != nil {
		form.Senha, form.ConfirmarSenha = "", ""
		h.clientLogin(w, r, 0, auth.ModeRegister, form, "", err)
		return
	}
	defer release()

	flow := auth.NewClientPortal(h.apiFor(r), h.area(r), h.log(r), auth.ModeRegister)
	if err := flow.Register(r.Context(), form); err != nil {
		h.clientLogin(w, r, 0, flow.Mode(), form, "", err)
		return
	}

	// Only the e-mail carries over to the login form.
	login := &auth.RegistrationForm{Registration: backend.Registration{Email: form.Email}}
	h.clientLogin(w, r, http.StatusOK, flow.Mode(), login, auth.MsgRegistered, nil)
}

// HandleClientLogout ends the client session
// POST /portal/logout
func (h *Handler) HandleClientLogout(w http.ResponseWriter, r *http.Request) {
	flow := auth.NewClientPortal(h.apiFor(r), h.area(r), h.log(r), auth.ModeLogin)
	if err := flow.Logout(r.Context()); err != nil {
		h.unavailable(w, r, err)
		return
	}
	http.Redirect(w, r, ClientPortalPath, http.StatusSeeOther)
}

// HandleRequestPickup asks for a new collection
// POST /portal/coletas
func (h *Handler) HandleRequestPickup(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	req, err := pickupFromForm(r)
	if err != nil {
		h.clientDashboard(w, r, "", err)
		return
	}

	release, err := h.acquire(r, "portal-coletas")
	if err != nil {
		h.clientDashboard(w, r, "", err)
		return
	}
	defer release()

	coleta, err := h.apiFor(r).RequestPickup(r.Context(), req)
	if err != nil {
		h.clientDashboard(w, r, "", err)
		return
	}

	h.log(r).Info("pickup requested", "numero_encomenda", coleta.NumeroEncomenda)
	h.clientDashboard(w, r, fmt.Sprintf(MsgPickupRequested, coleta.NumeroEncomenda), nil)
}

// HandleRequestReturn asks for a return
// POST /portal/devolucoes
func (h *Handler) HandleRequestReturn(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	req := backend.ReturnRequest{
		NumeroEncomenda: strings.TrimSpace(r.PostFormValue("numeroEncomenda")),
		Motivo:          strings.TrimSpace(r.PostFormValue("motivo")),
	}
	if req.NumeroEncomenda == "" || req.Motivo == "" {
		h.clientDashboard(w, r, "", notice.Invalid("", auth.MsgRequiredFields))
		return
	}

	release, err := h.acquire(r, "portal-devolucoes")
	if err != nil {
		h.clientDashboard(w, r, "", err)
		return
	}
	defer release()

	if _, err := h.apiFor(r).RequestReturn(r.Context(), req); err != nil {
		h.clientDashboard(w, r, "", err)
		return
	}

	h.clientDashboard(w, r, fmt.Sprintf(MsgReturnRequested, req.NumeroEncomenda), nil)
}

// HandleClientInvoice downloads the invoice of one of the client's shipments
// GET /portal/coletas/{numero}/fatura
func (h *Handler) HandleClientInvoice(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")

	blob, err := h.apiFor(r).ClientInvoice(r.Context(), numero)
	if err != nil {
		h.clientDashboard(w, r, "", err)
		return
	}
	sendBlob(w, blob, "fatura-"+numero+".pdf")
}

// clientLogin renders the anonymous portal. A zero status is derived from
// err.
func (h *Handler) clientLogin(w http.ResponseWriter, r *http.Request, status int, mode auth.Mode, form *auth.RegistrationForm, success string, err error) {
	page := Page{
		Title:   "Portal do Cliente",
		Success: success,
		Data:    clientLoginView{Mode: mode, Form: form},
	}
	if err != nil {
		h.fail(w, r, pageClientLogin, page, err)
		return
	}
	if status == 0 {
		status = http.StatusOK
	}
	h.render(w, r, status, pageClientLogin, page)
}

// clientDashboard renders the dashboard with a fresh shipment list. An
// action error takes precedence over a failure to load the list. A 401 is
// shown as a notice; the stored token stays until the client logs out.
func (h *Handler) clientDashboard(w http.ResponseWriter, r *http.Request, success string, actionErr error) {
	api := h.apiFor(r)
	state := request.Run(r.Context(), api.ListMyShipments)
	if abandoned(r) {
		return
	}

	view := clientDashboardView{Coletas: state.Data, ExpiresAt: h.expiry(r, session.KindClient)}
	page := Page{Title: "Minhas coletas", Success: success, Data: view}

	switch {
	case actionErr != nil:
		h.fail(w, r, pageClientDashboard, page, actionErr)
	case state.Err != nil:
		h.fail(w, r, pageClientDashboard, page, state.Err)
	default:
		h.render(w, r, http.StatusOK, pageClientDashboard, page)
	}
}

// expiry reads the display-only expiry of the stored token.
func (h *Handler) expiry(r *http.Request, kind session.Kind) *time.Time {
	token, err := h.area(r).Get(r.Context(), kind)
	if err != nil {
		return nil
	}
	info, ok := session.Inspect(token)
	if !ok || info.ExpiresAt.IsZero() {
		return nil
	}
	return &info.ExpiresAt
}

func pickupFromForm(r *http.Request) (backend.PickupRequest, error) {
	req := backend.PickupRequest{
		EnderecoColeta:  strings.TrimSpace(r.PostFormValue("enderecoColeta")),
		EnderecoEntrega: strings.TrimSpace(r.PostFormValue("enderecoEntrega")),
		Destinatario:    strings.TrimSpace(r.PostFormValue("destinatario")),
		DataColeta:      strings.TrimSpace(r.PostFormValue("dataColeta")),
		Observacoes:     strings.TrimSpace(r.PostFormValue("observacoes")),
	}
	if req.EnderecoColeta == "" || req.EnderecoEntrega == "" || req.Destinatario == "" || req.DataColeta == "" {
		return req, notice.Invalid("", auth.MsgRequiredFields)
	}

	if v := strings.TrimSpace(r.PostFormValue("pesoKg")); v != "" {
		peso, err := strconv.ParseFloat(strings.ReplaceAll(v, ",", "."), 64)
		if err != nil || peso < 0 {
			return req, notice.Invalid("pesoKg", MsgInvalidNumber)
		}
		req.PesoKg = peso
	}
	if v := strings.TrimSpace(r.PostFormValue("volumes")); v != "" {
		volumes, err := strconv.Atoi(v)
		if err != nil || volumes < 0 {
			return req, notice.Invalid("volumes", MsgInvalidNumber)
		}
		req.Volumes = volumes
	}
	return req, nil
}
