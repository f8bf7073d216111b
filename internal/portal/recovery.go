package portal

import (
	"net/http"
	"strings"

	"github.com/expressofrete/portal/internal/auth"
)

type recoveryView struct {
	Step    auth.Step
	Email   string
	CPFCNPJ string
	Codigo  string
}

// HandleRecoveryForm shows step one of password recovery
// GET /recuperar-senha
func (h *Handler) HandleRecoveryForm(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, pageRecovery, Page{
		Title: "Recuperar senha",
		Data:  recoveryView{Step: auth.StepRequest},
	})
}

// HandleRecoveryRequest asks the API for a reset code. The answer is the
// same whether or not the account exists.
// POST /recuperar-senha
func (h *Handler) HandleRecoveryRequest(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	cpfCnpj := strings.TrimSpace(r.PostFormValue("cpfCnpj"))
	page := Page{Title: "Recuperar senha"}

	release, err := h.acquire(r, "recuperar-senha")
	if err != nil {
		page.Data = recoveryView{Step: auth.StepRequest, Email: email, CPFCNPJ: cpfCnpj}
		h.fail(w, r, pageRecovery, page, err)
		return
	}
	defer release()

	flow := auth.NewRecovery(h.apiFor(r), h.log(r))
	if err := flow.RequestCode(r.Context(), email, cpfCnpj); err != nil {
		page.Data = recoveryView{Step: flow.Step(), Email: email, CPFCNPJ: cpfCnpj}
		h.fail(w, r, pageRecovery, page, err)
		return
	}

	page.Success = auth.MsgCodeSent
	page.Data = recoveryView{Step: flow.Step(), Email: flow.Email()}
	h.render(w, r, http.StatusOK, pageRecovery, page)
}

// HandleRecoveryReset sets the new password with the received code
// POST /recuperar-senha/redefinir
func (h *Handler) HandleRecoveryReset(w http.ResponseWriter, r *http.Request) {
	if !h.parseForm(w, r) {
		return
	}
	email := strings.TrimSpace(r.PostFormValue("email"))
	form := &auth.ResetForm{
		Codigo:         strings.TrimSpace(r.PostFormValue("codigo")),
		NovaSenha:      r.PostFormValue("novaSenha"),
		ConfirmarSenha: r.PostFormValue("confirmarSenha"),
	}
	page := Page{Title: "Recuperar senha"}

	release, err := h.acquire(r, "recuperar-senha")
	if err != nil {
		page.Data = recoveryView{Step: auth.StepReset, Email: email, Codigo: form.Codigo}
		h.fail(w, r, pageRecovery, page, err)
		return
	}
	defer release()

	flow := auth.ResumeRecovery(h.apiFor(r), h.log(r), email)
	if err := flow.Reset(r.Context(), form); err != nil {
		page.Data = recoveryView{Step: flow.Step(), Email: email, Codigo: form.Codigo}
		h.fail(w, r, pageRecovery, page, err)
		return
	}

	page.Success = auth.MsgPasswordReset
	page.Data = recoveryView{Step: flow.Step(), Email: email}
	h.render(w, r, http.StatusOK, pageRecovery, page)
}
