// Package driver implements the driver's status update link.
//
// A driver never holds a portal session of their own kind. The QR code on a
// label carries a capability pair (shipment number, driver token) that
// authorises appending tracking events to that one shipment and nothing
// else. The pair lives only in the link; it is never persisted.
package driver

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/guard"
	"github.com/expressofrete/portal/internal/notice"
)

// Routes of the driver flow.
const (
	LoginPath  = "/driver/login"
	UpdatePath = "/driver/update"
)

// ErrInvalidLink means the link lacks the shipment number or the token.
var ErrInvalidLink = errors.New("driver: invalid update link")

// Capability is the (shipment, token) pair carried by an update link.
type Capability struct {
	NumeroEncomenda string
	Token           string
}

// ParseLink reads the pair from the id and token query parameters.
func ParseLink(q url.Values) (Capability, error) {
	c := Capability{
		NumeroEncomenda: strings.TrimSpace(q.Get("id")),
		Token:           strings.TrimSpace(q.Get("token")),
	}
	if c.NumeroEncomenda == "" || c.Token == "" {
		return Capability{}, ErrInvalidLink
	}
	return c, nil
}

// UpdateURL returns the update page for c.
func (c Capability) UpdateURL() string {
	q := url.Values{"id": {c.NumeroEncomenda}, "token": {c.Token}}
	return UpdatePath + "?" + q.Encode()
}

// DeepLink is the URL printed in the QR code of a label: the driver login
// page, returning to the update page after login.
func DeepLink(numeroEncomenda, token string) string {
	return guard.LoginURL(LoginPath, Capability{NumeroEncomenda: numeroEncomenda, Token: token}.UpdateURL())
}

// Status is a tracking status a driver may report.
type Status string

const (
	StatusCollected      Status = "coletado"
	StatusInTransit      Status = "em_transito"
	StatusOutForDelivery Status = "em_rota_entrega"
	StatusDelivered      Status = "entregue"
	StatusFailedAttempt  Status = "tentativa_falha"
	StatusReturned       Status = "devolvido"
)

// Statuses lists the reportable statuses in workflow order.
var Statuses = []Status{
	StatusCollected,
	StatusInTransit,
	StatusOutForDelivery,
	StatusDelivered,
	StatusFailedAttempt,
	StatusReturned,
}

var statusLabels = map[Status]string{
	StatusCollected:      "Coletado",
	StatusInTransit:      "Em trânsito",
	StatusOutForDelivery: "Saiu para entrega",
	StatusDelivered:      "Entregue",
	StatusFailedAttempt:  "Tentativa de entrega sem sucesso",
	StatusReturned:       "Devolvido ao remetente",
}

// Valid reports whether s is one of Statuses.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label returns the Portuguese label of s, or s itself when unknown.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Update is the form a driver submits.
type Update struct {
	Localizacao string
	Status      Status
}

// Validation messages of the update form.
const (
	MsgLocationRequired = "Informe a localização atual."
	MsgInvalidStatus    = "Selecione um status válido."
)

// Validate checks the form without calling the API.
func (u Update) Validate() error {
	if strings.TrimSpace(u.Localizacao) == "" {
		return notice.Invalid("localizacao", MsgLocationRequired)
	}
	if !u.Status.Valid() {
		return notice.Invalid("status", MsgInvalidStatus)
	}
	return nil
}

// API is the slice of the API client used by the driver flow.
type API interface {
	UpdateDriverStatus(ctx context.Context, upd backend.DriverUpdate) error
}

// Submit validates u and posts it with the capability pair.
func Submit(ctx context.Context, api API, c Capability, u Update) error {
	if c.NumeroEncomenda == "" || c.Token == "" {
		return ErrInvalidLink
	}
	if err := u.Validate(); err != nil {
		return err
	}
	return api.UpdateDriverStatus(ctx, backend.DriverUpdate{
		NumeroEncomenda: c.NumeroEncomenda,
		Token:           c.Token,
		Localizacao:     strings.TrimSpace(u.Localizacao),
		Status:          string(u.Status),
	})
}

// Screen is what the update page shows. InvalidLink and Success are
// terminal: neither offers a form.
type Screen int

const (
	ScreenForm Screen = iota
	ScreenInvalidLink
	ScreenSuccess
)

func (s Screen) String() string {
	switch s {
	case ScreenInvalidLink:
		return "invalid"
	case ScreenSuccess:
		return "success"
	default:
		return "form"
	}
}
