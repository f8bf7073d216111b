package portal

import (
	"net/http"
	"strings"

	"github.com/expressofrete/portal/internal/auth"
	"github.com/expressofrete/portal/internal/driver"
	"github.com/expressofrete/portal/internal/guard"
	"github.com/expressofrete/portal/internal/session"
)

type driverView struct {
	Screen          string
	NumeroEncomenda string
	Action          string
	Localizacao     string
	Status          driver.Status
}

// requireLink renders the terminal invalid-link page when the update link
// lacks its shipment number or token. No API call is made.
func (h *Handler) requireLink(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := driver.ParseLink(r.URL.Query()); err != nil {
			h.log(r).Info("driver link rejected", "error", err)
			h.render(w, r, http.StatusBadRequest, pageDriverUpdate, Page{
				Title: "Link inválido",
				Data:  driverView{Screen: driver.ScreenInvalidLink.String()},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleDriverLoginForm shows the login page reached from a label's QR
// code. A driver who is already signed in goes straight to the target.
// GET /driver/login?redirect=
func (h *Handler) HandleDriverLoginForm(w http.ResponseWriter, r *http.Request) {
	redirect := r.URL.Query().Get(guard.RedirectParam)

	ok, err := h.area(r).Has(r.Context(), session.KindAdmin)
	if err != nil {
		h.unavailable(w, r, err)
		return
	}
	if ok {
		http.Redirect(w, r, guard.SafeRedirect(redirect, auth.AdminDashboard), http.StatusSeeOther)
		return
	}

	h.render(w, r, http.StatusOK, pageStaffLogin, Page{
		Title: "Acesso do motorista",
		Data: staffLoginView{
			Heading:  "Acesso do motorista",
			Action:   driver.LoginPath,
			Redirect: guard.SafeRedirect(redirect, ""),
		},
	})
}

// HandleDriverLogin signs the driver in and returns to the update link
// POST /driver/login
func (h *Handler) HandleDriverLogin(w http.ResponseWriter, r *http.Request) {
	h.staffLogin(w, r, staffLoginView{Heading: "Acesso do motorista", Action: driver.LoginPath})
}

// HandleDriverUpdateForm shows the status update form
// GET /driver/update?id=&token=
func (h *Handler) HandleDriverUpdateForm(w http.ResponseWriter, r *http.Request) {
	c, _ := driver.ParseLink(r.URL.Query())
	h.render(w, r, http.StatusOK, pageDriverUpdate, Page{
		Title: "Atualizar encomenda",
		Data:  formView(c, driver.Update{}),
	})
}

// HandleDriverUpdate posts a tracking event with the link's capability pair
// POST /driver/update?id=&token=
func (h *Handler) HandleDriverUpdate(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	c, _ := driver.ParseLink(r.URL.Query())
	upd := driver.Update{
		Localizacao: strings.TrimSpace(r.PostFormValue("localizacao")),
		Status:      driver.Status(r.PostFormValue("status")),
	}
	page := Page{Title: "Atualizar encomenda", Data: formView(c, upd)}

	release, err := h.acquire(r, "driver-"+c.NumeroEncomenda)
	if err != nil {
		h.fail(w, r, pageDriverUpdate, page, err)
		return
	}
	defer release()

	if err := driver.Submit(r.Context(), h.apiFor(r), c, upd); err != nil {
		h.fail(w, r, pageDriverUpdate, page, err)
		return
	}

	h.log(r).Info("driver update sent", "numero_encomenda", c.NumeroEncomenda, "status", string(upd.Status))
	h.render(w, r, http.StatusOK, pageDriverUpdate, Page{
		Title: "Status atualizado",
		Data:  driverView{Screen: driver.ScreenSuccess.String(), NumeroEncomenda: c.NumeroEncomenda},
	})
}

func formView(c driver.Capability, upd driver.Update) driverView {
	return driverView{
		Screen:          driver.ScreenForm.String(),
		NumeroEncomenda: c.NumeroEncomenda,
		Action:          c.UpdateURL(),
		Localizacao:     upd.Localizacao,
		Status:          upd.Status,
	}
}
