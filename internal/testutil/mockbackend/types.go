// Package mockbackend is an in-memory fake of the freight REST API used by
// tests and by the standalone mock server in cmd/mockbackend.
package mockbackend

import (
	"sync"

	"github.com/expressofrete/portal/internal/backend"
)

// Principal kinds carried by issued tokens.
const (
	kindAdmin   = "admin"
	kindCliente = "cliente"
)

type account struct {
	id    int64
	nome  string
	email string
	senha string
	cargo string
	cpf   string
	tel   string
}

type coleta struct {
	backend.Coleta
	clienteEmail string
}

// failure is a scripted error returned instead of the next responses.
type failure struct {
	status      int
	contentType string
	body        string
	remaining   int
}

// State holds the fake API state.
type State struct {
	mu sync.RWMutex

	staff      map[string]*account // by email
	clients    map[string]*account // by email
	coletas    map[int64]*coleta
	devolucoes map[int64]*backend.Devolucao
	resetCodes map[string]string // email -> code

	nextID    int64
	failure   *failure
	requests  map[string]int // "METHOD /path" -> count
	lastAuthz string
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		staff:      make(map[string]*account),
		clients:    make(map[string]*account),
		coletas:    make(map[int64]*coleta),
		devolucoes: make(map[int64]*backend.Devolucao),
		resetCodes: make(map[string]string),
		requests:   make(map[string]int),
		nextID:     1,
	}
}

func (st *State) id() int64 {
	id := st.nextID
	st.nextID++
	return id
}

// StateResponse is the body of GET /admin/state.
type StateResponse struct {
	Staff      int              `json:"staff"`
	Clients    int              `json:"clients"`
	Coletas    []backend.Coleta `json:"coletas"`
	Devolucoes int              `json:"devolucoes"`
	Requests   map[string]int   `json:"requests"`
}
