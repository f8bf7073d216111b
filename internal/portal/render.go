package portal

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/driver"
	"github.com/expressofrete/portal/internal/notice"
	"github.com/expressofrete/portal/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page names, one per file under templates/.
const (
	pageHome            = "home.html"
	pageServices        = "servicos.html"
	pageTracking        = "rastreio.html"
	pageClientLogin     = "portal_login.html"
	pageClientDashboard = "portal_dashboard.html"
	pageRecovery        = "recuperar.html"
	pageStaffLogin      = "staff_login.html"
	pageAdminDashboard  = "admin_dashboard.html"
	pageAdminReturns    = "admin_devolucoes.html"
	pageAdminClients    = "admin_clientes.html"
	pageAdminEmployees  = "admin_funcionarios.html"
	pageAdminQR         = "admin_qr.html"
	pageDriverUpdate    = "driver_update.html"
	pageError           = "erro.html"
)

// pageSet holds one template per page, each combined with the layout.
type pageSet map[string]*template.Template

// Page is the data every template receives.
type Page struct {
	Title   string
	Notice  *notice.Notice
	Success string
	Nav     Nav
	Data    any
}

// Nav tells the layout which sessions are open.
type Nav struct {
	Admin  bool
	Client bool
}

var templateFuncs = template.FuncMap{
	"statusLabel": func(s string) string { return driver.Status(s).Label() },
	"statuses":    func() []driver.Status { return driver.Statuses },
	"deepLink":    driver.DeepLink,
	"lower":       strings.ToLower,
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("02/01/2006 15:04")
	},
}

func parsePages() (pageSet, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(pageSet, len(names))
	for _, name := range names {
		base := path.Base(name)
		if base == "layout.html" {
			continue
		}
		tmpl, err := template.New(base).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, err
		}
		pages[base] = tmpl
	}
	return pages, nil
}

// render writes a page. Execution happens into a buffer first so a
// template error never leaves a half-written page behind.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, page Page) {
	tmpl, ok := h.pages[name]
	if !ok {
		h.log(r).Error("unknown page", "page", name)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	page.Nav = h.nav(r.Context(), h.area(r))

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", page); err != nil {
		h.log(r).Error("template error", "page", name, "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	//nolint:errcheck
	buf.WriteTo(w)
}

// nav reads which sessions are open. Storage errors show as logged out;
// guarded routes surface them properly.
func (h *Handler) nav(ctx context.Context, area *session.Area) Nav {
	admin, _ := area.Has(ctx, session.KindAdmin)
	client, _ := area.Has(ctx, session.KindClient)
	return Nav{Admin: admin, Client: client}
}

// fail renders page with the notice derived from err.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, name string, page Page, err error) {
	n := h.noticeFor(r, err)
	page.Notice = &n
	h.render(w, r, statusFor(n, err), name, page)
}

// noticeFor classifies err and logs it at a level matching its category.
func (h *Handler) noticeFor(r *http.Request, err error) notice.Notice {
	if isBusy(err) {
		return notice.Notice{Category: notice.Rejected, Message: MsgBusy, Dismissible: true}
	}

	n := notice.FromError(err)
	log := h.log(r)
	switch n.Category {
	case notice.Transport:
		log.Warn("request failed", "path", r.URL.Path, "error", err)
	case notice.Validation:
		log.Debug("form rejected", "path", r.URL.Path, "error", err)
	default:
		log.Info("api refused request", "path", r.URL.Path, "category", n.Category.String(), "error", err)
	}
	return n
}

// statusFor maps a notice to the HTTP status of the page showing it.
func statusFor(n notice.Notice, err error) int {
	if isBusy(err) {
		return http.StatusConflict
	}
	switch n.Category {
	case notice.Validation:
		return http.StatusUnprocessableEntity
	case notice.Auth:
		return http.StatusUnauthorized
	case notice.Permission:
		return http.StatusForbidden
	case notice.NotFound:
		return http.StatusNotFound
	case notice.Rejected:
		if status := backend.StatusOf(err); status >= 400 && status < 500 {
			return status
		}
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// sendBlob streams a downloaded document to the browser.
func sendBlob(w http.ResponseWriter, blob *backend.Blob, fallbackName string) {
	name := blob.Filename
	if name == "" {
		name = fallbackName
	}
	w.Header().Set("Content-Type", blob.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(name, `"`, "")+`"`)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	w.Write(blob.Data)
}

// MsgUnavailable is shown when the session store cannot be reached.
const MsgUnavailable = "Serviço temporariamente indisponível."

// unavailable answers 503 for session storage failures.
func (h *Handler) unavailable(w http.ResponseWriter, r *http.Request, err error) {
	h.log(r).Error("session store unavailable", "path", r.URL.Path, "error", err)
	n := notice.Notice{Category: notice.Transport, Message: MsgUnavailable}
	h.render(w, r, http.StatusServiceUnavailable, pageError, Page{Title: "Serviço indisponível", Notice: &n})
}
