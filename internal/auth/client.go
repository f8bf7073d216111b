package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/metrics"
	"github.com/expressofrete/portal/internal/session"
)

// Mode is the sub-mode of the client portal's anonymous view.
type Mode string

const (
	ModeLogin    Mode = "login"
	ModeRegister Mode = "cadastro"
)

// ParseMode maps a form or query value to a Mode, defaulting to login.
func ParseMode(s string) Mode {
	if Mode(s) == ModeRegister {
		return ModeRegister
	}
	return ModeLogin
}

// MsgRegistered is shown after a successful registration.
const MsgRegistered = "Cadastro realizado com sucesso! Faça login para continuar."

// ClientAPI is the slice of the API client used by the client portal.
type ClientAPI interface {
	ClientLogin(ctx context.Context, creds backend.Credentials) (string, error)
	RegisterClient(ctx context.Context, reg backend.Registration) error
}

// RegistrationForm is the registration form as submitted.
type RegistrationForm struct {
	backend.Registration
	ConfirmarSenha string
}

// clearPasswords blanks the password fields so a failed form is
// re-rendered without them.
func (f *RegistrationForm) clearPasswords() {
	f.Senha = ""
	f.ConfirmarSenha = ""
}

// ClientPortal is the client login and registration flow. Both modes live
// on the same page; a successful login flips the page to the dashboard
// without navigating elsewhere.
type ClientPortal struct {
	api     ClientAPI
	area    *session.Area
	logger  *slog.Logger
	machine *Machine
	mode    Mode

	// OnLoginSuccess runs after the client token is stored. Switching
	// modes never replaces it.
	OnLoginSuccess func(ctx context.Context)
}

// NewClientPortal creates the flow in the given mode.
func NewClientPortal(api ClientAPI, area *session.Area, logger *slog.Logger, mode Mode) *ClientPortal {
	machine := NewMachine(StateAnonymous)
	machine.OnTransition = logTransitions(logger, "cliente")
	return &ClientPortal{
		api:     api,
		area:    area,
		logger:  logger,
		machine: machine,
		mode:    mode,
	}
}

// Machine exposes the flow state.
func (p *ClientPortal) Machine() *Machine {
	return p.machine
}

// Mode returns the current sub-mode.
func (p *ClientPortal) Mode() Mode {
	return p.mode
}

// SetMode switches between login and registration.
func (p *ClientPortal) SetMode(m Mode) {
	p.mode = m
}

// Toggle flips between login and registration.
func (p *ClientPortal) Toggle() {
	if p.mode == ModeRegister {
		p.mode = ModeLogin
		return
	}
	p.mode = ModeRegister
}

// Authenticated reports whether a client token is stored.
func (p *ClientPortal) Authenticated(ctx context.Context) (bool, error) {
	return p.area.Has(ctx, session.KindClient)
}

// Login authenticates the client. Only the client token is written, and
// only on success.
func (p *ClientPortal) Login(ctx context.Context, creds backend.Credentials) error {
	if err := checkCredentials(creds.Email, creds.Senha); err != nil {
		return err
	}
	if err := p.machine.Begin(); err != nil {
		return err
	}

	token, err := p.api.ClientLogin(ctx, creds)
	if err != nil {
		metrics.RecordLogin(session.KindClient.String(), "failure")
		p.logger.Info("client login failed", "status", backend.StatusOf(err), "error", err)
		p.machine.Fail(err)
		return err
	}

	if err := p.area.Set(ctx, session.KindClient, token); err != nil {
		err = fmt.Errorf("auth: failed to store client token: %w", err)
		p.machine.Fail(err)
		return err
	}

	metrics.RecordLogin(session.KindClient.String(), "success")
	p.machine.Succeed()
	if p.OnLoginSuccess != nil {
		p.OnLoginSuccess(ctx)
	}
	return nil
}

// Register creates the account. Success switches to login mode without
// authenticating; failure stays in registration mode with the password
// fields of form cleared.
func (p *ClientPortal) Register(ctx context.Context, form *RegistrationForm) error {
	p.mode = ModeRegister

	if err := required(form.Nome, form.Email, form.CPFCNPJ); err != nil {
		form.clearPasswords()
		return err
	}
	if err := checkNewPassword("senha", form.Senha, form.ConfirmarSenha); err != nil {
		form.clearPasswords()
		return err
	}
	if err := p.machine.Begin(); err != nil {
		return err
	}

	if err := p.api.RegisterClient(ctx, form.Registration); err != nil {
		p.logger.Info("client registration failed", "status", backend.StatusOf(err), "error", err)
		form.clearPasswords()
		p.machine.Fail(err)
		return err
	}

	p.logger.Info("client registered")
	p.machine.Reset()
	p.mode = ModeLogin
	return nil
}

// Logout clears the client token. Safe to call when logged out.
func (p *ClientPortal) Logout(ctx context.Context) error {
	if err := p.area.Clear(ctx, session.KindClient); err != nil {
		return fmt.Errorf("auth: failed to clear client token: %w", err)
	}
	p.machine.Reset()
	return nil
}
