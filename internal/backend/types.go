package backend

// Credentials is the body of both login endpoints.
type Credentials struct {
	Email string `json:"email"`
	Senha string `json:"senha"`
}

// LoginResponse carries the session token issued by the API.
type LoginResponse struct {
	Token string `json:"token"`
}

// Registration is the body of POST /api/cliente/cadastro.
type Registration struct {
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	CPFCNPJ  string `json:"cpfCnpj"`
	Telefone string `json:"telefone,omitempty"`
	Endereco string `json:"endereco,omitempty"`
	Senha    string `json:"senha"`
}

// RecoveryRequest asks for a one-time reset code sent by e-mail.
type RecoveryRequest struct {
	Email   string `json:"email"`
	CPFCNPJ string `json:"cpfCnpj"`
}

// PasswordReset finalises a recovery with the code received out of band.
type PasswordReset struct {
	Email     string `json:"email"`
	Codigo    string `json:"codigo"`
	NovaSenha string `json:"novaSenha"`
}

// Message is the success body of endpoints that only acknowledge.
type Message struct {
	Message string `json:"message,omitempty"`
}

// TrackingEvent is one entry of a shipment's history.
type TrackingEvent struct {
	Status      string `json:"status"`
	Localizacao string `json:"localizacao"`
	DataHora    string `json:"dataHora"`
}

// Coleta is a pickup (collection) and the shipment it produced.
type Coleta struct {
	ID              int64           `json:"id"`
	NumeroEncomenda string          `json:"numeroEncomenda"`
	Status          string          `json:"status"`
	Remetente       string          `json:"remetente,omitempty"`
	Destinatario    string          `json:"destinatario,omitempty"`
	EnderecoColeta  string          `json:"enderecoColeta,omitempty"`
	EnderecoEntrega string          `json:"enderecoEntrega,omitempty"`
	DataColeta      string          `json:"dataColeta,omitempty"`
	PesoKg          float64         `json:"pesoKg,omitempty"`
	Volumes         int             `json:"volumes,omitempty"`
	Observacoes     string          `json:"observacoes,omitempty"`
	DriverToken     string          `json:"driverToken,omitempty"`
	Historico       []TrackingEvent `json:"historico,omitempty"`
}

// PickupRequest is the body of POST /api/cliente/coletas.
type PickupRequest struct {
	EnderecoColeta  string  `json:"enderecoColeta"`
	EnderecoEntrega string  `json:"enderecoEntrega"`
	Destinatario    string  `json:"destinatario"`
	DataColeta      string  `json:"dataColeta"`
	PesoKg          float64 `json:"pesoKg,omitempty"`
	Volumes         int     `json:"volumes,omitempty"`
	Observacoes     string  `json:"observacoes,omitempty"`
}

// Devolucao is a return request.
type Devolucao struct {
	ID              int64  `json:"id"`
	NumeroEncomenda string `json:"numeroEncomenda"`
	Motivo          string `json:"motivo"`
	Status          string `json:"status"`
	DataSolicitacao string `json:"dataSolicitacao,omitempty"`
}

// ReturnRequest is the body of POST /api/cliente/devolucoes.
type ReturnRequest struct {
	NumeroEncomenda string `json:"numeroEncomenda"`
	Motivo          string `json:"motivo"`
}

// Cliente is a client account as listed in the back-office.
type Cliente struct {
	ID       int64  `json:"id"`
	Nome     string `json:"nome"`
	Email    string `json:"email"`
	CPFCNPJ  string `json:"cpfCnpj"`
	Telefone string `json:"telefone,omitempty"`
}

// Funcionario is a staff member (administrators and drivers).
type Funcionario struct {
	ID    int64  `json:"id"`
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Cargo string `json:"cargo"`
}

// NewEmployee is the body of POST /api/admin/funcionarios.
type NewEmployee struct {
	Nome  string `json:"nome"`
	Email string `json:"email"`
	Cargo string `json:"cargo"`
	Senha string `json:"senha"`
}

// StatusChange is the body of PUT /api/admin/coletas/{id}/status.
type StatusChange struct {
	Status string `json:"status"`
}

// DriverUpdate is the body of POST /api/driver/update. The capability pair
// (NumeroEncomenda, Token) is the only authorisation it carries.
type DriverUpdate struct {
	NumeroEncomenda string `json:"numeroEncomenda"`
	Token           string `json:"token"`
	Localizacao     string `json:"localizacao"`
	Status          string `json:"status"`
}
