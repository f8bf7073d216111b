// Package guard protects routes that need a session token.
//
// A guard only checks that a token of the required kind is stored for the
// browser. It never validates the token: the API stays the only judge, and
// a stale token surfaces as an Auth notice on the first call that uses it.
package guard

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/expressofrete/portal/internal/metrics"
	"github.com/expressofrete/portal/internal/session"
)

// RedirectParam is the query parameter carrying the post-login target.
const RedirectParam = "redirect"

// Require lets the request through when a token of kind is stored and
// otherwise sends the browser to loginPath with 303 See Other. The
// attempted destination is discarded: after login the user lands on the
// fixed dashboard of that kind.
func Require(kind session.Kind, loginPath string, logger *slog.Logger) func(http.Handler) http.Handler {
	return guard(kind, logger, func(*http.Request) string {
		return loginPath
	})
}

// RequireWithRedirect is Require for the driver flow: the login URL carries
// the attempted request URI so the login page can return to it.
func RequireWithRedirect(kind session.Kind, loginPath string, logger *slog.Logger) func(http.Handler) http.Handler {
	return guard(kind, logger, func(r *http.Request) string {
		return LoginURL(loginPath, r.URL.RequestURI())
	})
}

// LoginURL returns loginPath with target as its redirect parameter.
func LoginURL(loginPath, target string) string {
	return loginPath + "?" + url.Values{RedirectParam: {target}}.Encode()
}

func guard(kind session.Kind, logger *slog.Logger, loginURL func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			area, ok := session.AreaFromContext(r.Context())
			if !ok {
				logger.Error("guard: no session area in context", "path", r.URL.Path)
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}

			present, err := area.Has(r.Context(), kind)
			if err != nil {
				logger.Error("guard: session store unavailable",
					"kind", kind.String(),
					"path", r.URL.Path,
					"error", err,
				)
				http.Error(w, "Serviço temporariamente indisponível.", http.StatusServiceUnavailable)
				return
			}

			if !present {
				metrics.RecordGuardRedirect(kind.String())
				logger.Debug("guard: no token, redirecting to login",
					"kind", kind.String(),
					"path", r.URL.Path,
				)
				http.Redirect(w, r, loginURL(r), http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SafeRedirect returns target when it is a local absolute path and fallback
// otherwise. Anything with a scheme, a host, or a leading "//" or "/\" is
// refused so a crafted link cannot send the user off-site after login.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") {
		return fallback
	}
	if strings.HasPrefix(target, "//") || strings.HasPrefix(target, `/\`) {
		return fallback
	}
	if strings.ContainsAny(target, "\r\n\t") {
		return fallback
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return fallback
	}
	return target
}
