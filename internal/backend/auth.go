package backend

import (
	"context"
	"errors"
	"net/http"

	"github.com/expressofrete/portal/internal/session"
)

// Paths of the unauthenticated account endpoints.
const (
	PathAdminLogin       = "/api/admin/login"
	PathClientLogin      = "/api/cliente/login"
	PathClientRegister   = "/api/cliente/cadastro"
	PathRecoveryRequest  = "/api/clientes/solicitar-recuperacao"
	PathRecoveryFinalize = "/api/clientes/redefinir-senha"
)

var errMissingToken = errors.New("login response carries no token")

// AdminLogin exchanges staff credentials for an admin session token.
func (c *Client) AdminLogin(ctx context.Context, creds Credentials) (string, error) {
	return c.login(ctx, PathAdminLogin, creds)
}

// ClientLogin exchanges client credentials for a client session token.
func (c *Client) ClientLogin(ctx context.Context, creds Credentials) (string, error) {
	return c.login(ctx, PathClientLogin, creds)
}

func (c *Client) login(ctx context.Context, path string, creds Credentials) (string, error) {
	var resp LoginResponse
	if err := c.requestJSON(ctx, http.MethodPost, path, creds, session.KindNone, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &DecodeError{Status: http.StatusOK, Err: errMissingToken}
	}
	return resp.Token, nil
}

// RegisterClient creates a client account. It does not log the client in.
func (c *Client) RegisterClient(ctx context.Context, reg Registration) error {
	return c.requestJSON(ctx, http.MethodPost, PathClientRegister, reg, session.KindNone, nil)
}

// RequestPasswordReset asks the API to e-mail a one-time code. The API
// answers the same way whether or not the identity matched an account.
func (c *Client) RequestPasswordReset(ctx context.Context, req RecoveryRequest) error {
	return c.requestJSON(ctx, http.MethodPost, PathRecoveryRequest, req, session.KindNone, nil)
}

// ResetPassword sets a new password using the one-time code.
func (c *Client) ResetPassword(ctx context.Context, req PasswordReset) error {
	return c.requestJSON(ctx, http.MethodPost, PathRecoveryFinalize, req, session.KindNone, nil)
}
