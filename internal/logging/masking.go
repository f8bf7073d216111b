// Package logging provides masking helpers so credentials and session tokens
// never reach the logs.
package logging

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
)

// Redacted replaces secret values in logs.
const Redacted = "[REDACTED]"

// SecretFields lists JSON and form field names that are always redacted.
// Matching is case-insensitive.
var SecretFields = []string{
	"senha",
	"novaSenha",
	"confirmarSenha",
	"password",
	"token",
	"codigo",
}

// MaskHeader redacts sensitive header values based on header name.
//
// Rules:
//   - Cookie/Set-Cookie: "[REDACTED]" (carry the browser id)
//   - Authorization: scheme kept, credential reduced to "****" + last 4 chars
//   - Other headers: returned unchanged
func MaskHeader(name, value string) string {
	lowerName := strings.ToLower(name)

	if lowerName == "cookie" || lowerName == "set-cookie" ||
		strings.Contains(lowerName, "password") ||
		strings.Contains(lowerName, "secret") {
		return Redacted
	}

	if lowerName == "authorization" {
		scheme, credential, found := strings.Cut(value, " ")
		if !found {
			return MaskToken(value)
		}
		return scheme + " " + MaskToken(credential)
	}

	return value
}

// MaskToken shows only the last 4 characters of a token.
// Tokens shorter than 12 characters are fully hidden.
func MaskToken(token string) string {
	if len(token) < 12 {
		return "****"
	}
	return "****" + token[len(token)-4:]
}

// MaskJSONBody redacts every field named in SecretFields, at any depth.
// Bodies that are not JSON are returned unchanged.
func MaskJSONBody(body []byte) []byte {
	if len(body) == 0 {
		return body
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return body
	}

	result, err := json.Marshal(maskJSONValue(data))
	if err != nil {
		return body
	}
	return result
}

func maskJSONValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		result := make(map[string]any, len(v))
		for key, val := range v {
			if IsSecretField(key) {
				result[key] = Redacted
				continue
			}
			result[key] = maskJSONValue(val)
		}
		return result
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			result[i] = maskJSONValue(item)
		}
		return result
	default:
		return value
	}
}

// MaskForm redacts secret fields of a URL-encoded form or query string.
// Values that are themselves URLs with a query (the driver login's
// redirect=/driver/update?id=..&token=..) are masked the same way.
func MaskForm(values url.Values) string {
	masked := make(url.Values, len(values))
	for key, vals := range values {
		if IsSecretField(key) {
			masked[key] = []string{Redacted}
			continue
		}
		out := make([]string, len(vals))
		for i, v := range vals {
			out[i] = maskNestedQuery(v)
		}
		masked[key] = out
	}
	return masked.Encode()
}

func maskNestedQuery(value string) string {
	path, rawQuery, found := strings.Cut(value, "?")
	if !found {
		return value
	}
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return path + "?" + Redacted
	}
	return path + "?" + MaskForm(query)
}

// IsSecretField reports whether a field must be redacted.
func IsSecretField(name string) bool {
	for _, field := range SecretFields {
		if strings.EqualFold(name, field) {
			return true
		}
	}
	return false
}

// FormatBinaryData formats binary data (PDF downloads) for logging.
func FormatBinaryData(data []byte) string {
	return fmt.Sprintf("[BINARY: %d bytes]", len(data))
}
