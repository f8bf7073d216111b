package portal

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/expressofrete/portal/internal/driver"
	"github.com/expressofrete/portal/internal/guard"
	"github.com/expressofrete/portal/internal/metrics"
	"github.com/expressofrete/portal/internal/middleware"
	"github.com/expressofrete/portal/internal/session"
)

// Login pages of the two session kinds.
const (
	AdminLoginPath   = "/admin/login"
	ClientPortalPath = "/portal"
)

// NewRouter creates the portal router.
func (h *Handler) NewRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)

	// Probes stay outside the session middleware so they never mint cookies.
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)

	static, err := fs.Sub(staticFS, "static")
	if err == nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	}

	r.Group(func(r chi.Router) {
		// The limit wraps the body before debug logging reads it.
		r.Use(middleware.MaxBodySize(h.maxBody))
		r.Use(middleware.HTTPLogging(h.logger))
		r.Use(session.Middleware(h.store, h.logger))

		// Public pages
		r.Get("/", h.HandleHome)
		r.Get("/servicos", h.HandleServices)
		r.Get("/rastreio", h.HandleTracking)

		// Client portal: login, registration and dashboard share one route
		r.Route(ClientPortalPath, func(r chi.Router) {
			r.Get("/", h.HandleClientPortal)
			r.Post("/login", h.HandleClientLogin)
			r.Post("/cadastro", h.HandleClientRegister)
			r.Post("/logout", h.HandleClientLogout)

			r.Group(func(r chi.Router) {
				r.Use(guard.Require(session.KindClient, ClientPortalPath, h.logger))
				r.Post("/coletas", h.HandleRequestPickup)
				r.Post("/devolucoes", h.HandleRequestReturn)
				r.Get("/coletas/{numero}/fatura", h.HandleClientInvoice)
			})
		})

		// Password recovery
		r.Get("/recuperar-senha", h.HandleRecoveryForm)
		r.Post("/recuperar-senha", h.HandleRecoveryRequest)
		r.Post("/recuperar-senha/redefinir", h.HandleRecoveryReset)

		// Back-office
		r.Get(AdminLoginPath, h.HandleAdminLoginForm)
		r.Post(AdminLoginPath, h.HandleAdminLogin)
		r.Post("/admin/logout", h.HandleAdminLogout)

		r.Group(func(r chi.Router) {
			r.Use(guard.Require(session.KindAdmin, AdminLoginPath, h.logger))
			r.Get("/admin", h.HandleAdminDashboard)
			r.Post("/admin/coletas/{id}/status", h.HandleUpdateCollectionStatus)
			r.Get("/admin/coletas/{id}/etiqueta", h.HandleCollectionLabel)
			r.Get("/admin/coletas/{id}/fatura", h.HandleCollectionInvoice)
			r.Get("/admin/coletas/{id}/qr", h.HandleCollectionQR)
			r.Get("/admin/devolucoes", h.HandleAdminReturns)
			r.Get("/admin/clientes", h.HandleAdminClients)
			r.Get("/admin/funcionarios", h.HandleAdminEmployees)
			r.Post("/admin/funcionarios", h.HandleCreateEmployee)
		})

		// Driver update link. The capability pair is checked before the
		// guard so a broken link never bounces through the login page.
		r.Get(driver.LoginPath, h.HandleDriverLoginForm)
		r.Post(driver.LoginPath, h.HandleDriverLogin)
		r.Group(func(r chi.Router) {
			r.Use(h.requireLink)
			r.Use(guard.RequireWithRedirect(session.KindAdmin, driver.LoginPath, h.logger))
			r.Get(driver.UpdatePath, h.HandleDriverUpdateForm)
			r.Post(driver.UpdatePath, h.HandleDriverUpdate)
		})
	})

	r.NotFound(h.HandleNotFound)

	return r
}
