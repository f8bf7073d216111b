package session

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// BrowserCookie names the cookie carrying the browser id.
const BrowserCookie = "portal_browser"

// browserCookieMaxAge is the longest lifetime browsers honour (400 days).
const browserCookieMaxAge = 400 * 24 * 60 * 60

type ctxKey int

const areaKey ctxKey = iota

// WithArea returns a context carrying area.
func WithArea(ctx context.Context, area *Area) context.Context {
	return context.WithValue(ctx, areaKey, area)
}

// AreaFromContext returns the browser area set by Middleware.
func AreaFromContext(ctx context.Context) (*Area, bool) {
	area, ok := ctx.Value(areaKey).(*Area)
	return area, ok && area != nil
}

// Middleware identifies the browser and puts its storage Area in the request
// context. Browsers without a valid portal_browser cookie get a fresh id.
func Middleware(store Store, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			browserID := browserIDFromRequest(r)
			if browserID == "" {
				browserID = uuid.New().String()
				http.SetCookie(w, &http.Cookie{
					Name:     BrowserCookie,
					Value:    browserID,
					Path:     "/",
					MaxAge:   browserCookieMaxAge,
					HttpOnly: true,
					Secure:   r.TLS != nil,
					SameSite: http.SameSiteLaxMode,
				})
				logger.Debug("new browser area", "browser_id", browserID)
			}

			ctx := WithArea(r.Context(), NewArea(store, browserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func browserIDFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(BrowserCookie)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}
