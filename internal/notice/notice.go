// Package notice turns errors from forms and API calls into the messages the
// portal shows. Every view reports failures through FromError so the same
// failure reads the same way on every page.
package notice

import (
	"errors"
	"net/http"

	"github.com/expressofrete/portal/internal/backend"
)

// Category classifies a failure by what the user can do about it.
type Category int

const (
	// Validation is a local form check; nothing was sent.
	Validation Category = iota
	// Auth means the API rejected the credentials or the session token.
	Auth
	// Permission means the token was accepted but the operation is denied.
	// Logging in again will not help.
	Permission
	// NotFound means the requested record or document does not exist.
	NotFound
	// Rejected is any other refusal by the API, usually its own validation.
	Rejected
	// Transport covers network failures, 5xx answers and unreadable bodies.
	Transport
)

func (c Category) String() string {
	switch c {
	case Validation:
		return "validation"
	case Auth:
		return "auth"
	case Permission:
		return "permission"
	case NotFound:
		return "not_found"
	case Rejected:
		return "rejected"
	case Transport:
		return "transport"
	default:
		return "unknown"
	}
}

// Fallback messages, used when the API gave no text of its own.
const (
	AuthMessage       = "Sessão inválida ou expirada. Faça login novamente."
	PermissionMessage = "Permissão negada. Sua conta não tem acesso a esta operação."
	NotFoundMessage   = "Registro não encontrado."
	RejectedMessage   = "Não foi possível concluir a operação."
)

// Translations maps API messages to the wording shown in the portal.
var Translations = map[string]string{
	"CPF/CNPJ já cadastrado.": "Este CPF/CNPJ já possui um cadastro.",
	"Email já cadastrado.":    "Este e-mail já possui um cadastro.",
	"Credenciais inválidas":   "E-mail ou senha incorretos.",
	"Código inválido":         "Código inválido ou expirado.",
}

// Notice is a message ready to render.
type Notice struct {
	Category    Category
	Message     string
	Dismissible bool
}

// ValidationError is a failed local check. It blocks the submission and is
// shown next to the form instead of as a dismissible notice.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Invalid returns a *ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a local validation failure.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// FromError classifies err. A nil err yields the zero Notice.
func FromError(err error) Notice {
	if err == nil {
		return Notice{}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return Notice{Category: Validation, Message: ve.Message}
	}

	var httpErr *backend.HTTPError
	if errors.As(err, &httpErr) {
		return fromHTTP(httpErr)
	}

	// NetworkError, DecodeError and anything unexpected (a failing session
	// store) read the same: the details belong in the log.
	return Notice{Category: Transport, Message: backend.GenericFailureMessage, Dismissible: true}
}

func fromHTTP(e *backend.HTTPError) Notice {
	n := Notice{Dismissible: true}
	switch {
	case e.Status == http.StatusUnauthorized:
		n.Category = Auth
		n.Message = apiText(e.Message, AuthMessage)
	case e.Status == http.StatusForbidden:
		n.Category = Permission
		n.Message = PermissionMessage
	case e.Status == http.StatusNotFound:
		n.Category = NotFound
		n.Message = apiText(e.Message, NotFoundMessage)
	case e.Status >= 400 && e.Status < 500:
		n.Category = Rejected
		n.Message = apiText(e.Message, RejectedMessage)
	default:
		n.Category = Transport
		n.Message = backend.GenericFailureMessage
	}
	return n
}

// apiText prefers the API's own message, translated when known.
func apiText(msg, fallback string) string {
	if msg == "" || msg == backend.GenericFailureMessage {
		return fallback
	}
	if translated, ok := Translations[msg]; ok {
		return translated
	}
	return msg
}

// Message returns FromError(err).Message.
func Message(err error) string {
	return FromError(err).Message
}
