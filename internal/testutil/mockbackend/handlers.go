package mockbackend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/expressofrete/portal/internal/backend"
)

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	s.login(w, r, kindAdmin)
}

func (s *Server) handleClientLogin(w http.ResponseWriter, r *http.Request) {
	s.login(w, r, kindCliente)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request, kind string) {
	var creds backend.Credentials
	if !decode(w, r, &creds) {
		return
	}

	s.state.mu.RLock()
	accounts := s.state.clients
	if kind == kindAdmin {
		accounts = s.state.staff
	}
	acc, ok := accounts[strings.ToLower(creds.Email)]
	valid := ok && acc.senha == creds.Senha
	s.state.mu.RUnlock()

	if !valid {
		writeError(w, http.StatusUnauthorized, "Credenciais inválidas")
		return
	}

	token, err := issueToken(kind, acc.email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Falha ao emitir token")
		return
	}
	writeJSON(w, http.StatusOK, backend.LoginResponse{Token: token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var reg backend.Registration
	if !decode(w, r, &reg) {
		return
	}
	if reg.Nome == "" || reg.Email == "" || reg.CPFCNPJ == "" || reg.Senha == "" {
		writeError(w, http.StatusBadRequest, "Campos obrigatórios ausentes.")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	for _, acc := range s.state.clients {
		if acc.cpf == reg.CPFCNPJ {
			writeError(w, http.StatusBadRequest, "CPF/CNPJ já cadastrado.")
			return
		}
	}
	if _, exists := s.state.clients[strings.ToLower(reg.Email)]; exists {
		writeError(w, http.StatusBadRequest, "Email já cadastrado.")
		return
	}

	id := s.state.id()
	s.state.clients[strings.ToLower(reg.Email)] = &account{
		id: id, nome: reg.Nome, email: reg.Email, senha: reg.Senha, cpf: reg.CPFCNPJ, tel: reg.Telefone,
	}
	writeJSON(w, http.StatusCreated, backend.Message{Message: "Cadastro realizado com sucesso."})
}

// handleRecoveryRequest always answers 200 so callers cannot probe for
// accounts.
func (s *Server) handleRecoveryRequest(w http.ResponseWriter, r *http.Request) {
	var req backend.RecoveryRequest
	if !decode(w, r, &req) {
		return
	}

	s.state.mu.Lock()
	if acc, ok := s.state.clients[strings.ToLower(req.Email)]; ok && acc.cpf == req.CPFCNPJ {
		s.state.resetCodes[strings.ToLower(req.Email)] = newResetCode()
	}
	s.state.mu.Unlock()

	writeJSON(w, http.StatusOK, backend.Message{Message: "Se os dados estiverem corretos, um código foi enviado."})
}

func (s *Server) handleRecoveryReset(w http.ResponseWriter, r *http.Request) {
	var req backend.PasswordReset
	if !decode(w, r, &req) {
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	key := strings.ToLower(req.Email)
	code, ok := s.state.resetCodes[key]
	if !ok || code != req.Codigo {
		writeError(w, http.StatusBadRequest, "Código inválido")
		return
	}
	if len([]rune(req.NovaSenha)) < 6 {
		writeError(w, http.StatusBadRequest, "A senha deve ter pelo menos 6 caracteres.")
		return
	}
	s.state.clients[key].senha = req.NovaSenha
	delete(s.state.resetCodes, key)

	writeJSON(w, http.StatusOK, backend.Message{Message: "Senha redefinida."})
}

func (s *Server) handleDriverUpdate(w http.ResponseWriter, r *http.Request) {
	var upd backend.DriverUpdate
	if !decode(w, r, &upd) {
		return
	}
	if upd.Localizacao == "" || upd.Status == "" {
		writeError(w, http.StatusBadRequest, "Localização e status são obrigatórios.")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	c := s.findByNumeroLocked(upd.NumeroEncomenda)
	if c == nil || c.DriverToken != upd.Token {
		writeError(w, http.StatusForbidden, "Link de atualização inválido.")
		return
	}
	c.Status = upd.Status
	c.Historico = append(c.Historico, backend.TrackingEvent{
		Status:      upd.Status,
		Localizacao: upd.Localizacao,
		DataHora:    time.Now().UTC().Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, backend.Message{Message: "Status atualizado."})
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	c := s.findByNumeroLocked(chi.URLParam(r, "numero"))
	if c == nil {
		writeError(w, http.StatusNotFound, "Encomenda não encontrada.")
		return
	}
	public := c.Coleta
	public.DriverToken = ""
	writeJSON(w, http.StatusOK, public)
}

func (s *Server) handleMyShipments(w http.ResponseWriter, r *http.Request) {
	email := strings.ToLower(principalFrom(r).email)

	s.state.mu.RLock()
	out := make([]backend.Coleta, 0)
	for _, c := range s.state.coletas {
		if c.clienteEmail == email {
			own := c.Coleta
			own.DriverToken = ""
			out = append(out, own)
		}
	}
	s.state.mu.RUnlock()

	sortColetas(out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRequestPickup(w http.ResponseWriter, r *http.Request) {
	var req backend.PickupRequest
	if !decode(w, r, &req) {
		return
	}
	if req.EnderecoColeta == "" || req.EnderecoEntrega == "" || req.Destinatario == "" {
		writeError(w, http.StatusBadRequest, "Endereços e destinatário são obrigatórios.")
		return
	}

	p := principalFrom(r)
	s.state.mu.Lock()
	remetente := p.email
	if acc, ok := s.state.clients[strings.ToLower(p.email)]; ok {
		remetente = acc.nome
	}
	c := s.addColetaLocked(p.email, backend.Coleta{
		Remetente:       remetente,
		Destinatario:    req.Destinatario,
		EnderecoColeta:  req.EnderecoColeta,
		EnderecoEntrega: req.EnderecoEntrega,
		DataColeta:      req.DataColeta,
		PesoKg:          req.PesoKg,
		Volumes:         req.Volumes,
		Observacoes:     req.Observacoes,
	})
	s.state.mu.Unlock()

	c.DriverToken = ""
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleRequestReturn(w http.ResponseWriter, r *http.Request) {
	var req backend.ReturnRequest
	if !decode(w, r, &req) {
		return
	}
	if req.NumeroEncomenda == "" || req.Motivo == "" {
		writeError(w, http.StatusBadRequest, "Número da encomenda e motivo são obrigatórios.")
		return
	}

	email := strings.ToLower(principalFrom(r).email)
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	c := s.findByNumeroLocked(req.NumeroEncomenda)
	if c == nil || c.clienteEmail != email {
		writeError(w, http.StatusNotFound, "Encomenda não encontrada.")
		return
	}

	d := &backend.Devolucao{
		ID:              s.state.id(),
		NumeroEncomenda: req.NumeroEncomenda,
		Motivo:          req.Motivo,
		Status:          "solicitada",
		DataSolicitacao: time.Now().UTC().Format(time.RFC3339),
	}
	s.state.devolucoes[d.ID] = d
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleClientInvoice(w http.ResponseWriter, r *http.Request) {
	numero := chi.URLParam(r, "numero")
	email := strings.ToLower(principalFrom(r).email)

	s.state.mu.RLock()
	c := s.findByNumeroLocked(numero)
	owned := c != nil && c.clienteEmail == email
	s.state.mu.RUnlock()

	if !owned {
		writeError(w, http.StatusNotFound, "Fatura não encontrada.")
		return
	}
	writePDF(w, "fatura-"+numero+".pdf", "Fatura "+numero)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	out := make([]backend.Coleta, 0, len(s.state.coletas))
	for _, c := range s.state.coletas {
		out = append(out, c.Coleta)
	}
	s.state.mu.RUnlock()

	sortColetas(out)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req backend.StatusChange
	if !decode(w, r, &req) {
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "Status é obrigatório.")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	c, exists := s.state.coletas[id]
	if !exists {
		writeError(w, http.StatusNotFound, "Coleta não encontrada.")
		return
	}
	c.Status = req.Status
	writeJSON(w, http.StatusOK, c.Coleta)
}

func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	s.adminDocument(w, r, "etiqueta")
}

func (s *Server) handleAdminInvoice(w http.ResponseWriter, r *http.Request) {
	s.adminDocument(w, r, "fatura")
}

func (s *Server) adminDocument(w http.ResponseWriter, r *http.Request, doc string) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	s.state.mu.RLock()
	c, exists := s.state.coletas[id]
	var numero string
	if exists {
		numero = c.NumeroEncomenda
	}
	s.state.mu.RUnlock()

	if !exists {
		writeError(w, http.StatusNotFound, "Coleta não encontrada.")
		return
	}
	writePDF(w, fmt.Sprintf("%s-%d.pdf", doc, id), doc+" "+numero)
}

func (s *Server) handleListReturns(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	out := make([]backend.Devolucao, 0, len(s.state.devolucoes))
	for _, d := range s.state.devolucoes {
		out = append(out, *d)
	}
	s.state.mu.RUnlock()

	slices.SortFunc(out, func(a, b backend.Devolucao) int { return int(b.ID - a.ID) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListClients(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	out := make([]backend.Cliente, 0, len(s.state.clients))
	for _, acc := range s.state.clients {
		out = append(out, backend.Cliente{ID: acc.id, Nome: acc.nome, Email: acc.email, CPFCNPJ: acc.cpf, Telefone: acc.tel})
	}
	s.state.mu.RUnlock()

	slices.SortFunc(out, func(a, b backend.Cliente) int { return int(a.ID - b.ID) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	out := make([]backend.Funcionario, 0, len(s.state.staff))
	for _, acc := range s.state.staff {
		out = append(out, backend.Funcionario{ID: acc.id, Nome: acc.nome, Email: acc.email, Cargo: acc.cargo})
	}
	s.state.mu.RUnlock()

	slices.SortFunc(out, func(a, b backend.Funcionario) int { return int(a.ID - b.ID) })
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req backend.NewEmployee
	if !decode(w, r, &req) {
		return
	}
	if req.Nome == "" || req.Email == "" || req.Senha == "" {
		writeError(w, http.StatusBadRequest, "Nome, e-mail e senha são obrigatórios.")
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	key := strings.ToLower(req.Email)
	if _, exists := s.state.staff[key]; exists {
		writeError(w, http.StatusBadRequest, "Email já cadastrado.")
		return
	}
	acc := &account{id: s.state.id(), nome: req.Nome, email: req.Email, senha: req.Senha, cargo: req.Cargo}
	s.state.staff[key] = acc
	writeJSON(w, http.StatusCreated, backend.Funcionario{ID: acc.id, Nome: acc.nome, Email: acc.email, Cargo: acc.cargo})
}

// handleAdminReset handles DELETE /admin/reset.
func (s *Server) handleAdminReset(w http.ResponseWriter, r *http.Request) {
	fresh := NewState()
	s.state.mu.Lock()
	s.state.staff = fresh.staff
	s.state.clients = fresh.clients
	s.state.coletas = fresh.coletas
	s.state.devolucoes = fresh.devolucoes
	s.state.resetCodes = fresh.resetCodes
	s.state.requests = fresh.requests
	s.state.nextID = fresh.nextID
	s.state.failure = nil
	s.state.lastAuthz = ""
	s.state.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// handleAdminState handles GET /admin/state.
func (s *Server) handleAdminState(w http.ResponseWriter, r *http.Request) {
	s.state.mu.RLock()
	resp := StateResponse{
		Staff:      len(s.state.staff),
		Clients:    len(s.state.clients),
		Coletas:    make([]backend.Coleta, 0, len(s.state.coletas)),
		Devolucoes: len(s.state.devolucoes),
		Requests:   make(map[string]int, len(s.state.requests)),
	}
	for _, c := range s.state.coletas {
		resp.Coletas = append(resp.Coletas, c.Coleta)
	}
	for k, v := range s.state.requests {
		resp.Requests[k] = v
	}
	s.state.mu.RUnlock()

	sortColetas(resp.Coletas)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) findByNumeroLocked(numero string) *coleta {
	for _, c := range s.state.coletas {
		if c.NumeroEncomenda == numero {
			return c
		}
	}
	return nil
}

// sortColetas orders newest first.
func sortColetas(cs []backend.Coleta) {
	slices.SortFunc(cs, func(a, b backend.Coleta) int { return int(b.ID - a.ID) })
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "ID inválido.")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Corpo da requisição inválido.")
		return false
	}
	return true
}

// writeJSON writes a JSON response with no trailing newline.
func writeJSON(w http.ResponseWriter, status int, v any) {
	//nolint:errcheck
	data, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	//nolint:errcheck
	w.Write(data)
}

// writeError writes an error in the API's {"error": "..."} format.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writePDF writes a minimal one-page PDF.
func writePDF(w http.ResponseWriter, filename, title string) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck
	fmt.Fprintf(w, "%%PDF-1.4\n%% %s\n1 0 obj << /Type /Catalog >> endobj\ntrailer << /Root 1 0 R >>\n%%%%EOF\n", title)
}
