package portal

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/expressofrete/portal/internal/auth"
	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/driver"
	"github.com/expressofrete/portal/internal/guard"
	"github.com/expressofrete/portal/internal/notice"
	"github.com/expressofrete/portal/internal/request"
	"github.com/expressofrete/portal/internal/session"
)

// Back-office messages.
const (
	MsgStatusUpdated    = "Status da coleta atualizado."
	MsgEmployeeCreated  = "Funcionário cadastrado."
	MsgInvalidID        = "Coleta inválida."
	MsgNoDriverToken    = "Esta coleta ainda não possui token de motorista."
	msgCollectionAbsent = "Coleta não encontrada."
)

type staffLoginView struct {
	Heading  string
	Action   string
	Redirect string
	Email    string
}

type adminDashboardView struct {
	Coletas   []backend.Coleta
	ExpiresAt *time.Time
}

type employeesView struct {
	Funcionarios []backend.Funcionario
	Form         backend.NewEmployee
}

type qrView struct {
	NumeroEncomenda string
	Link            string
}

// HandleAdminLoginForm shows the staff login form
// GET /admin/login
func (h *Handler) HandleAdminLoginForm(w http.ResponseWriter, r *http.Request) {
	ok, err := h.area(r).Has(r.Context(), session.KindAdmin)
	if err != nil {
		h.unavailable(w, r, err)
		return
	}
	if ok {
		http.Redirect(w, r, auth.AdminDashboard, http.StatusSeeOther)
		return
	}
	h.render(w, r, http.StatusOK, pageStaffLogin, Page{
		Title: "Área restrita",
		Data:  staffLoginView{Heading: "Área restrita", Action: AdminLoginPath},
	})
}

// HandleAdminLogin authenticates a staff member
// POST /admin/login
func (h *Handler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	h.staffLogin(w, r, staffLoginView{Heading: "Área restrita", Action: AdminLoginPath})
}

// HandleAdminLogout ends the staff session
// POST /admin/logout
func (h *Handler) HandleAdminLogout(w http.ResponseWriter, r *http.Request) {
	flow := auth.NewStaffLogin(h.apiFor(r), h.area(r), h.log(r))
	next, err := flow.Logout(r.Context())
	if err != nil {
		h.unavailable(w, r, err)
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// staffLogin runs the staff flow for both the admin and the driver login
// pages. The redirect field is honoured only when it is a local path.
func (h *Handler) staffLogin(w http.ResponseWriter, r *http.Request, view staffLoginView) {
	if !h.parseForm(w, r) {
		return
	}
	creds := backend.Credentials{
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Senha: r.PostFormValue("senha"),
	}
	view.Email = creds.Email
	view.Redirect = r.PostFormValue(guard.RedirectParam)
	page := Page{Title: view.Heading, Data: view}

	release, err := h.acquire(r, "staff-login")
	if err != nil {
		h.fail(w, r, pageStaffLogin, page, err)
		return
	}
	defer release()

	flow := auth.NewStaffLogin(h.apiFor(r), h.area(r), h.log(r))
	next, err := flow.Submit(r.Context(), creds, view.Redirect)
	if err != nil {
		h.fail(w, r, pageStaffLogin, page, err)
		return
	}
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// HandleAdminDashboard lists collections
// GET /admin
func (h *Handler) HandleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.adminDashboard(w, r, "", nil)
}

// HandleUpdateCollectionStatus changes the status of a collection
// POST /admin/coletas/{id}/status
func (h *Handler) HandleUpdateCollectionStatus(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	id, err := collectionID(r)
	if err != nil {
		h.adminDashboard(w, r, "", err)
		return
	}
	status := driver.Status(r.PostFormValue("status"))
	if !status.Valid() {
		h.adminDashboard(w, r, "", notice.Invalid("status", driver.MsgInvalidStatus))
		return
	}

	release, err := h.acquire(r, "coleta-status-"+strconv.FormatInt(id, 10))
	if err != nil {
		h.adminDashboard(w, r, "", err)
		return
	}
	defer release()

	if err := h.apiFor(r).UpdateCollectionStatus(r.Context(), id, string(status)); err != nil {
		h.adminDashboard(w, r, "", err)
		return
	}

	h.log(r).Info("collection status changed", "coleta_id", id, "status", string(status))
	h.adminDashboard(w, r, MsgStatusUpdated, nil)
}

// HandleCollectionLabel downloads the shipping label
// GET /admin/coletas/{id}/etiqueta
func (h *Handler) HandleCollectionLabel(w http.ResponseWriter, r *http.Request) {
	id, err := collectionID(r)
	if err != nil {
		h.adminDashboard(w, r, "", err)
		return
	}
	blob, err := h.apiFor(r).CollectionLabel(r.Context(), id)
	if err != nil {
		h.adminDashboard(w, r, "", err)
		return
	}
	sendBlob(w, blob, "etiqueta-"+strconv.FormatInt(id, 10)+".pdf")
}

// HandleCollectionInvoice downloads the invoice
// GET /admin/coletas/{id}/fatura
func (h *Handler) HandleCollectionInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := collectionID(r)
	if err != nil {
		h.adminDashboard(w, r, "", err)
		return
	}
	blob, err := h.apiFor(r).CollectionInvoice(r.Context(), id)
	if err != nil {
		h.adminDashboard(w, r, "", err)
		return
	}
	sendBlob(w, blob, "fatura-"+strconv.FormatInt(id, 10)+".pdf")
}

// HandleCollectionQR shows the driver deep link of a collection, the URL
// encoded in the QR code of its label.
// GET /admin/coletas/{id}/qr
func (h *Handler) HandleCollectionQR(w http.ResponseWriter, r *http.Request) {
	id, err := collectionID(r)
	if err != nil {
		h.adminDashboard(w, r, "", err)
		return
	}

	coletas, err := h.apiFor(r).ListCollections(r.Context())
	if err != nil {
		h.adminDashboard(w, r, "", err)
		return
	}

	for _, c := range coletas {
		if c.ID != id {
			continue
		}
		if c.DriverToken == "" {
			h.adminDashboard(w, r, "", notice.Invalid("", MsgNoDriverToken))
			return
		}
		h.render(w, r, http.StatusOK, pageAdminQR, Page{
			Title: "Link do motorista",
			Data:  qrView{NumeroEncomenda: c.NumeroEncomenda, Link: driver.DeepLink(c.NumeroEncomenda, c.DriverToken)},
		})
		return
	}

	h.adminDashboard(w, r, "", &backend.HTTPError{Status: http.StatusNotFound, Message: msgCollectionAbsent})
}

// HandleAdminReturns lists return requests
// GET /admin/devolucoes
func (h *Handler) HandleAdminReturns(w http.ResponseWriter, r *http.Request) {
	state := request.Run(r.Context(), h.apiFor(r).ListReturns)
	if abandoned(r) {
		return
	}
	page := Page{Title: "Devoluções", Data: state.Data}
	if state.Err != nil {
		h.fail(w, r, pageAdminReturns, page, state.Err)
		return
	}
	h.render(w, r, http.StatusOK, pageAdminReturns, page)
}

// HandleAdminClients lists client accounts
// GET /admin/clientes
func (h *Handler) HandleAdminClients(w http.ResponseWriter, r *http.Request) {
	state := request.Run(r.Context(), h.apiFor(r).ListClients)
	if abandoned(r) {
		return
	}
	page := Page{Title: "Clientes", Data: state.Data}
	if state.Err != nil {
		h.fail(w, r, pageAdminClients, page, state.Err)
		return
	}
	h.render(w, r, http.StatusOK, pageAdminClients, page)
}

// HandleAdminEmployees lists staff members
// GET /admin/funcionarios
func (h *Handler) HandleAdminEmployees(w http.ResponseWriter, r *http.Request) {
	h.employees(w, r, backend.NewEmployee{Cargo: "motorista"}, "", nil)
}

// HandleCreateEmployee registers a staff member
// POST /admin/funcionarios
func (h *Handler) HandleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	emp := backend.NewEmployee{
		Nome:  strings.TrimSpace(r.PostFormValue("nome")),
		Email: strings.TrimSpace(r.PostFormValue("email")),
		Cargo: strings.TrimSpace(r.PostFormValue("cargo")),
		Senha: r.PostFormValue("senha"),
	}
	// The form is re-rendered without the password.
	form := emp
	form.Senha = ""

	if emp.Nome == "" || emp.Email == "" || emp.Cargo == "" {
		h.employees(w, r, form, "", notice.Invalid("", auth.MsgRequiredFields))
		return
	}
	if len([]rune(emp.Senha)) < auth.MinPasswordLength {
		h.employees(w, r, form, "", notice.Invalid("senha", auth.MsgPasswordTooShort))
		return
	}

	release, err := h.acquire(r, "funcionarios")
	if err != nil {
		h.employees(w, r, form, "", err)
		return
	}
	defer release()

	if _, err := h.apiFor(r).CreateEmployee(r.Context(), emp); err != nil {
		h.employees(w, r, form, "", err)
		return
	}

	h.log(r).Info("employee created", "cargo", emp.Cargo)
	h.employees(w, r, backend.NewEmployee{Cargo: "motorista"}, MsgEmployeeCreated, nil)
}

func (h *Handler) employees(w http.ResponseWriter, r *http.Request, form backend.NewEmployee, success string, actionErr error) {
	state := request.Run(r.Context(), h.apiFor(r).ListEmployees)
	if abandoned(r) {
		return
	}
	page := Page{
		Title:   "Funcionários",
		Success: success,
		Data:    employeesView{Funcionarios: state.Data, Form: form},
	}
	switch {
	case actionErr != nil:
		h.fail(w, r, pageAdminEmployees, page, actionErr)
	case state.Err != nil:
		h.fail(w, r, pageAdminEmployees, page, state.Err)
	default:
		h.render(w, r, http.StatusOK, pageAdminEmployees, page)
	}
}

// adminDashboard renders the collection list. As on the client dashboard,
// an action error wins over a list failure and a 401 never clears the token.
func (h *Handler) adminDashboard(w http.ResponseWriter, r *http.Request, success string, actionErr error) {
	state := request.Run(r.Context(), h.apiFor(r).ListCollections)
	if abandoned(r) {
		return
	}
	page := Page{
		Title:   "Painel",
		Success: success,
		Data:    adminDashboardView{Coletas: state.Data, ExpiresAt: h.expiry(r, session.KindAdmin)},
	}
	switch {
	case actionErr != nil:
		h.fail(w, r, pageAdminDashboard, page, actionErr)
	case state.Err != nil:
		h.fail(w, r, pageAdminDashboard, page, state.Err)
	default:
		h.render(w, r, http.StatusOK, pageAdminDashboard, page)
	}
}

func collectionID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, notice.Invalid("id", MsgInvalidID)
	}
	return id, nil
}
