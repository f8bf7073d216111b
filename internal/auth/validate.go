package auth

import (
	"strings"

	"github.com/expressofrete/portal/internal/notice"
)

// MinPasswordLength is the shortest password accepted at registration and
// reset.
const MinPasswordLength = 6

// Local validation messages.
const (
	MsgRequiredFields   = "Preencha todos os campos obrigatórios."
	MsgPasswordTooShort = "A senha deve ter pelo menos 6 caracteres."
	MsgPasswordMismatch = "As senhas não coincidem."
)

func checkCredentials(email, senha string) error {
	if strings.TrimSpace(email) == "" || senha == "" {
		return notice.Invalid("", MsgRequiredFields)
	}
	return nil
}

// checkNewPassword validates a password chosen by the user and its
// confirmation. Length is counted in characters, not bytes.
func checkNewPassword(field, senha, confirmacao string) error {
	if len([]rune(senha)) < MinPasswordLength {
		return notice.Invalid(field, MsgPasswordTooShort)
	}
	if senha != confirmacao {
		return notice.Invalid(field, MsgPasswordMismatch)
	}
	return nil
}

func required(values ...string) error {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return notice.Invalid("", MsgRequiredFields)
		}
	}
	return nil
}
