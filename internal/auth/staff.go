package auth

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/expressofrete/portal/internal/backend"
	"github.com/expressofrete/portal/internal/guard"
	"github.com/expressofrete/portal/internal/metrics"
	"github.com/expressofrete/portal/internal/session"
)

// Fixed destinations of the staff flow.
const (
	AdminDashboard = "/admin"
	LandingPage    = "/"
)

// StaffAPI is the slice of the API client used by staff login.
type StaffAPI interface {
	AdminLogin(ctx context.Context, creds backend.Credentials) (string, error)
}

// StaffLogin is the admin login flow. Drivers log in through it too: their
// login page passes the redirect target of the scanned link.
type StaffLogin struct {
	api     StaffAPI
	area    *session.Area
	logger  *slog.Logger
	machine *Machine
}

// NewStaffLogin creates the flow for one browser area.
func NewStaffLogin(api StaffAPI, area *session.Area, logger *slog.Logger) *StaffLogin {
	machine := NewMachine(StateAnonymous)
	machine.OnTransition = logTransitions(logger, "staff")
	return &StaffLogin{
		api:     api,
		area:    area,
		logger:  logger,
		machine: machine,
	}
}

// Machine exposes the flow state.
func (f *StaffLogin) Machine() *Machine {
	return f.machine
}

// Submit logs in and returns where to navigate next: the dashboard, or
// redirect when it is a safe local path. On failure the session store is
// left untouched.
func (f *StaffLogin) Submit(ctx context.Context, creds backend.Credentials, redirect string) (string, error) {
	if err := checkCredentials(creds.Email, creds.Senha); err != nil {
		return "", err
	}
	if err := f.machine.Begin(); err != nil {
		return "", err
	}

	token, err := f.api.AdminLogin(ctx, creds)
	if err != nil {
		metrics.RecordLogin(session.KindAdmin.String(), "failure")
		f.logger.Info("staff login failed", "status", backend.StatusOf(err), "error", err)
		f.machine.Fail(err)
		return "", err
	}

	if err := f.area.Set(ctx, session.KindAdmin, token); err != nil {
		err = fmt.Errorf("auth: failed to store admin token: %w", err)
		f.machine.Fail(err)
		return "", err
	}

	metrics.RecordLogin(session.KindAdmin.String(), "success")
	f.logger.Info("staff login succeeded", "browser_id", f.area.BrowserID())
	f.machine.Succeed()

	return guard.SafeRedirect(redirect, AdminDashboard), nil
}

// Logout clears the admin token and returns the landing page. Logging out
// without a session is not an error.
func (f *StaffLogin) Logout(ctx context.Context) (string, error) {
	if err := f.area.Clear(ctx, session.KindAdmin); err != nil {
		return "", fmt.Errorf("auth: failed to clear admin token: %w", err)
	}
	f.machine.Reset()
	return LandingPage, nil
}
