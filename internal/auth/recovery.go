package auth

import (
	"context"
	"log/slog"

	"github.com/expressofrete/portal/internal/backend"
)

// Step is the phase of a password recovery.
type Step string

const (
	StepRequest Step = "awaiting_request"
	StepReset   Step = "awaiting_reset"
	StepDone    Step = "done"
)

// Recovery messages.
const (
	MsgCodeSent      = "Se os dados estiverem corretos, você receberá um código por e-mail."
	MsgPasswordReset = "Senha redefinida com sucesso! Faça login com a nova senha."
)

// RecoveryAPI is the slice of the API client used by password recovery.
type RecoveryAPI interface {
	RequestPasswordReset(ctx context.Context, req backend.RecoveryRequest) error
	ResetPassword(ctx context.Context, req backend.PasswordReset) error
}

// ResetForm is the step-two form as submitted.
type ResetForm struct {
	Codigo         string
	NovaSenha      string
	ConfirmarSenha string
}

func (f *ResetForm) clearPasswords() {
	f.NovaSenha = ""
	f.ConfirmarSenha = ""
}

// Recovery is the two-step password reset. The first step answers the same
// way whether or not the identity matched an account.
type Recovery struct {
	api    RecoveryAPI
	logger *slog.Logger
	step   Step
	email  string
}

// NewRecovery starts a recovery at step one.
func NewRecovery(api RecoveryAPI, logger *slog.Logger) *Recovery {
	return &Recovery{api: api, logger: logger, step: StepRequest}
}

// ResumeRecovery continues a recovery at step two for email, as carried by
// the step-two form.
func ResumeRecovery(api RecoveryAPI, logger *slog.Logger, email string) *Recovery {
	return &Recovery{api: api, logger: logger, step: StepReset, email: email}
}

// Step returns the current step.
func (r *Recovery) Step() Step {
	return r.step
}

// Email returns the address the code was requested for.
func (r *Recovery) Email() string {
	return r.email
}

// RequestCode asks the API to send a reset code. A 404 is treated as
// success so the page never reveals whether the account exists.
func (r *Recovery) RequestCode(ctx context.Context, email, cpfCnpj string) error {
	if err := required(email, cpfCnpj); err != nil {
		return err
	}

	err := r.api.RequestPasswordReset(ctx, backend.RecoveryRequest{Email: email, CPFCNPJ: cpfCnpj})
	if err != nil && !backend.IsNotFound(err) {
		r.logger.Info("password reset request failed", "status", backend.StatusOf(err), "error", err)
		return err
	}

	r.email = email
	r.step = StepReset
	return nil
}

// Reset finalises the recovery. The new password is checked locally first;
// a failing check makes no call. Password fields of form are cleared on any
// failure.
func (r *Recovery) Reset(ctx context.Context, form *ResetForm) error {
	if err := required(r.email, form.Codigo); err != nil {
		form.clearPasswords()
		return err
	}
	if err := checkNewPassword("novaSenha", form.NovaSenha, form.ConfirmarSenha); err != nil {
		form.clearPasswords()
		return err
	}

	err := r.api.ResetPassword(ctx, backend.PasswordReset{
		Email:     r.email,
		Codigo:    form.Codigo,
		NovaSenha: form.NovaSenha,
	})
	if err != nil {
		r.logger.Info("password reset failed", "status", backend.StatusOf(err), "error", err)
		form.clearPasswords()
		return err
	}

	r.step = StepDone
	return nil
}
