package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/session"
	"github.com/heartmarshall/promptly/pkg/ctxutil"
)

type tokenValidator interface {
	ValidateToken(token string) (uuid.UUID, error)
}

type sessionSource interface {
	Snapshot() session.Snapshot
}

type accessTokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Auth authenticates API clients that bring their own provider access token.
// Requests without a bearer token pass through anonymously.
func Auth(validator tokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := validator.ValidateToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := ctxutil.WithUserID(r.Context(), userID)
			ctx = ctxutil.WithAccessToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireIdentity gates a route on a resolved identity. Requests already
// authenticated by Auth go through. Otherwise the local session decides:
// 503 while it is still loading, 401 when signed out.
func RequireIdentity(sessions sessionSource, tokens accessTokenSource) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ctxutil.UserIDFromCtx(r.Context()); ok {
				next.ServeHTTP(w, r)
				return
			}

			snap := sessions.Snapshot()
			switch {
			case snap.Loading():
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusServiceUnavailable, "session loading")
				return
			case !snap.Authenticated():
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			token, err := tokens.AccessToken(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := ctxutil.WithUserID(r.Context(), snap.Identity.ID)
			ctx = ctxutil.WithAccessToken(ctx, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
