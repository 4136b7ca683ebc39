package middleware

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/heartmarshall/promptly/internal/config"
	"github.com/heartmarshall/promptly/pkg/ctxutil"
)

// SessionOrigin keeps the local signed-in session to the app's own origin and
// the front ends listed in cfg.AllowedOrigins. Browser requests from any other
// site get 403 before they can fall back to the session. Requests already
// authenticated by a bearer token go through.
func SessionOrigin(cfg config.CORSConfig) Middleware {
	trusted := parseOrigins(cfg.AllowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ctxutil.UserIDFromCtx(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}
			if crossSite(r, trusted) {
				writeError(w, http.StatusForbidden, "cross-site request")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// crossSite reports whether r was sent by a page outside the trusted set.
// The Origin header decides when present; otherwise Sec-Fetch-Site does.
// Requests with neither come from non-browser clients.
func crossSite(r *http.Request, trusted []string) bool {
	if origin := r.Header.Get("Origin"); origin != "" {
		if slices.Contains(trusted, origin) {
			return false
		}
		u, err := url.Parse(origin)
		return err != nil || u.Host == "" || u.Host != r.Host
	}
	return r.Header.Get("Sec-Fetch-Site") == "cross-site"
}
