package mockbackend

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/expressofrete/portal/internal/backend"
)

// tokenTTL is the lifetime of issued session tokens.
const tokenTTL = 8 * time.Hour

var signingKey = []byte("mockbackend-signing-key")

// Server is a fake freight API.
type Server struct {
	*httptest.Server
	state  *State
	router chi.Router
	logger *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger logs every exchange through LoggingMiddleware.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler builds the fake API without starting a listener.
func NewHandler(opts ...Option) *Server {
	s := &Server{state: NewState()}
	for _, opt := range opts {
		opt(s)
	}
	s.router = s.routes()
	return s
}

// New starts the fake API on a local httptest listener.
func New(opts ...Option) *Server {
	s := NewHandler(opts...)
	s.Server = httptest.NewServer(s.router)
	return s
}

// URL returns the base URL of a started server.
func (s *Server) URL() string {
	return s.Server.URL
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(s.logger))
	r.Use(s.countRequests)
	r.Use(s.injectFailures)

	r.Route("/api", func(r chi.Router) {
		r.Post("/admin/login", s.handleAdminLogin)
		r.Post("/cliente/login", s.handleClientLogin)
		r.Post("/cliente/cadastro", s.handleRegister)
		r.Post("/clientes/solicitar-recuperacao", s.handleRecoveryRequest)
		r.Post("/clientes/redefinir-senha", s.handleRecoveryReset)
		r.Post("/driver/update", s.handleDriverUpdate)
		r.Get("/rastreio/{numero}", s.handleTrack)

		r.Group(func(r chi.Router) {
			r.Use(s.requireKind(kindCliente))
			r.Get("/cliente/minhas-coletas", s.handleMyShipments)
			r.Post("/cliente/coletas", s.handleRequestPickup)
			r.Post("/cliente/devolucoes", s.handleRequestReturn)
			r.Get("/cliente/coletas/{numero}/fatura", s.handleClientInvoice)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.requireKind(kindAdmin))
			r.Get("/admin/coletas", s.handleListCollections)
			r.Put("/admin/coletas/{id}/status", s.handleUpdateStatus)
			r.Get("/admin/coletas/{id}/etiqueta", s.handleLabel)
			r.Get("/admin/coletas/{id}/fatura", s.handleAdminInvoice)
			r.Get("/admin/devolucoes", s.handleListReturns)
			r.Get("/admin/clientes", s.handleListClients)
			r.Get("/admin/funcionarios", s.handleListEmployees)
			r.Post("/admin/funcionarios", s.handleCreateEmployee)
		})
	})

	r.Get("/admin/state", s.handleAdminState)
	r.Delete("/admin/reset", s.handleAdminReset)

	return r
}

// AddStaff seeds a staff account and returns its id.
func (s *Server) AddStaff(nome, email, senha, cargo string) int64 {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	id := s.state.id()
	s.state.staff[strings.ToLower(email)] = &account{id: id, nome: nome, email: email, senha: senha, cargo: cargo}
	return id
}

// AddClient seeds a client account and returns its id.
func (s *Server) AddClient(nome, email, cpfCnpj, senha string) int64 {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	id := s.state.id()
	s.state.clients[strings.ToLower(email)] = &account{id: id, nome: nome, email: email, senha: senha, cpf: cpfCnpj}
	return id
}

// AddColeta seeds a pickup owned by clienteEmail. ID, number, status and
// driver token are filled in when empty.
func (s *Server) AddColeta(clienteEmail string, c backend.Coleta) backend.Coleta {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return s.addColetaLocked(clienteEmail, c)
}

func (s *Server) addColetaLocked(clienteEmail string, c backend.Coleta) backend.Coleta {
	c.ID = s.state.id()
	if c.NumeroEncomenda == "" {
		c.NumeroEncomenda = fmt.Sprintf("EF%06dBR", c.ID)
	}
	if c.Status == "" {
		c.Status = "pendente"
	}
	if c.DriverToken == "" {
		c.DriverToken = uuid.NewString()
	}
	s.state.coletas[c.ID] = &coleta{Coleta: c, clienteEmail: strings.ToLower(clienteEmail)}
	return c
}

// GetColeta returns a copy of a pickup, or nil.
func (s *Server) GetColeta(id int64) *backend.Coleta {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	c, ok := s.state.coletas[id]
	if !ok {
		return nil
	}
	cp := c.Coleta
	cp.Historico = append([]backend.TrackingEvent(nil), c.Historico...)
	return &cp
}

// ResetCode returns the recovery code issued for email, or "".
func (s *Server) ResetCode(email string) string {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.resetCodes[strings.ToLower(email)]
}

// SetNextError makes the next count requests fail with status and a JSON
// error message.
func (s *Server) SetNextError(status int, message string, count int) {
	body := fmt.Sprintf(`{"error":%q}`, message)
	s.setFailure(&failure{status: status, contentType: "application/json", body: body, remaining: count})
}

// SetNextHTMLError makes the next count requests fail with an HTML page, as
// a proxy in front of the API would.
func (s *Server) SetNextHTMLError(status int, count int) {
	body := fmt.Sprintf("<html><body><h1>%d %s</h1></body></html>", status, http.StatusText(status))
	s.setFailure(&failure{status: status, contentType: "text/html", body: body, remaining: count})
}

func (s *Server) setFailure(f *failure) {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	s.state.failure = f
}

// RequestCount returns how many requests reached method and path.
func (s *Server) RequestCount(method, path string) int {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.requests[method+" "+path]
}

// TotalRequests returns the number of requests received under /api.
func (s *Server) TotalRequests() int {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	total := 0
	for key, n := range s.state.requests {
		if strings.Contains(key, " /api/") {
			total += n
		}
	}
	return total
}

// LastAuthorization returns the Authorization header of the last request.
func (s *Server) LastAuthorization() string {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()
	return s.state.lastAuthz
}

// issueToken signs a session token for email.
func issueToken(kind, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  email,
		"kind": kind,
		"iat":  now.Unix(),
		"exp":  now.Add(tokenTTL).Unix(),
		"jti":  uuid.NewString(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
}

// parseToken verifies a token issued by issueToken.
func parseToken(raw string) (kind, email string, ok bool) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", "", false
	}
	kind, _ = claims["kind"].(string)
	email, _ = claims["sub"].(string)
	return kind, email, kind != "" && email != ""
}

// newResetCode returns a six digit code.
func newResetCode() string {
	return fmt.Sprintf("%06d", rand.IntN(1_000_000))
}
