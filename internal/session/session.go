// Package session holds the per-browser session storage area of the portal.
//
// Every browser owns one storage area, addressed by the opaque id carried in
// the portal_browser cookie. An area holds at most one admin token and one
// client token. Tokens are opaque bearer strings: the portal never decides
// whether a token is valid, the remote API does.
package session

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies which session a token belongs to.
type Kind string

const (
	// KindNone marks an unauthenticated call.
	KindNone Kind = ""
	// KindAdmin is the back-office session (administrators and drivers).
	KindAdmin Kind = "admin"
	// KindClient is the client portal session.
	KindClient Kind = "cliente"
)

// Kinds lists every storable kind.
var Kinds = []Kind{KindAdmin, KindClient}

// Valid reports whether k is a storable kind.
func (k Kind) Valid() bool {
	return k == KindAdmin || k == KindClient
}

// StorageKey is the key the token is stored under (admin_token, cliente_token).
func (k Kind) StorageKey() string {
	return string(k) + "_token"
}

func (k Kind) String() string {
	if k == KindNone {
		return "none"
	}
	return string(k)
}

var (
	// ErrNoToken is returned by Get when no token of the kind is stored.
	ErrNoToken = errors.New("session: no token stored")

	// ErrInvalidKind is returned for kinds other than admin and cliente.
	ErrInvalidKind = errors.New("session: invalid token kind")

	// ErrEmptyToken is returned when storing an empty token.
	ErrEmptyToken = errors.New("session: empty token")

	// ErrEmptyBrowser is returned when the browser id is missing.
	ErrEmptyBrowser = errors.New("session: empty browser id")
)

// Store persists tokens for many browsers.
//
// Set overwrites any previous token of the same kind for the browser. Clear
// does not fail when nothing is stored.
type Store interface {
	Get(ctx context.Context, browserID string, kind Kind) (string, error)
	Set(ctx context.Context, browserID string, kind Kind, token string) error
	Clear(ctx context.Context, browserID string, kind Kind) error
	Ping(ctx context.Context) error
	Close() error
}

// Area is the storage area of a single browser.
type Area struct {
	store     Store
	browserID string
}

// NewArea binds store to one browser.
func NewArea(store Store, browserID string) *Area {
	return &Area{store: store, browserID: browserID}
}

// BrowserID returns the id of the browser owning this area.
func (a *Area) BrowserID() string {
	return a.browserID
}

// Get returns the token stored for kind, or ErrNoToken.
func (a *Area) Get(ctx context.Context, kind Kind) (string, error) {
	return a.store.Get(ctx, a.browserID, kind)
}

// Set stores token for kind, replacing any previous one.
func (a *Area) Set(ctx context.Context, kind Kind, token string) error {
	return a.store.Set(ctx, a.browserID, kind, token)
}

// Clear removes the token of kind. Clearing twice is fine.
func (a *Area) Clear(ctx context.Context, kind Kind) error {
	return a.store.Clear(ctx, a.browserID, kind)
}

// Has reports whether a token of kind is present. Storage failures are
// returned so callers can tell "logged out" from "cannot tell".
func (a *Area) Has(ctx context.Context, kind Kind) (bool, error) {
	_, err := a.Get(ctx, kind)
	if errors.Is(err, ErrNoToken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func checkKey(browserID string, kind Kind) error {
	if browserID == "" {
		return ErrEmptyBrowser
	}
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, string(kind))
	}
	return nil
}

func checkEntry(browserID string, kind Kind, token string) error {
	if err := checkKey(browserID, kind); err != nil {
		return err
	}
	if token == "" {
		return ErrEmptyToken
	}
	return nil
}
