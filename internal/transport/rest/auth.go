package rest

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/heartmarshall/promptly/internal/auth"
	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/internal/session"
)

type authProvider interface {
	SignInURL() (string, error)
	ExchangeCode(ctx context.Context, code string) (*auth.Session, error)
}

type sessionStore interface {
	Snapshot() session.Snapshot
	Cached() *domain.Identity
	SignOut(ctx context.Context)
}

// AuthHandler serves the sign-in flow and the session endpoint.
type AuthHandler struct {
	provider authProvider
	sessions sessionStore
	log      *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(provider authProvider, sessions sessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{provider: provider, sessions: sessions, log: logger.With("handler", "auth")}
}

type identityResponse struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Avatar     string    `json:"avatar,omitempty"`
	LastSignIn time.Time `json:"lastSignIn"`
}

type sessionResponse struct {
	State    string            `json:"state"`
	Identity *identityResponse `json:"identity"`
	// Cached is the last known identity, shown as a placeholder while
	// the session is loading.
	Cached *identityResponse `json:"cached,omitempty"`
}

func toIdentityResponse(ident *domain.Identity) *identityResponse {
	if ident == nil {
		return nil
	}
	return &identityResponse{
		ID:         ident.ID.String(),
		Email:      ident.Email,
		Name:       ident.Name,
		Avatar:     ident.AvatarURL,
		LastSignIn: ident.LastSignIn,
	}
}

// SignIn handles GET /auth/signin by redirecting to the provider.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	target, err := h.provider.SignInURL()
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// Callback handles GET /auth/callback, the provider's redirect target.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error_description"); reason != "" || q.Get("error") != "" {
		if reason == "" {
			reason = q.Get("error")
		}
		h.log.WarnContext(r.Context(), "sign-in rejected by provider", slog.String("reason", reason))
		writeError(w, http.StatusUnauthorized, "sign-in rejected: "+reason)
		return
	}

	code := q.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing code")
		return
	}

	if _, err := h.provider.ExchangeCode(r.Context(), code); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

// SignOut handles POST /auth/signout. Local state is always cleared.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.sessions.SignOut(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Session handles GET /api/session.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	snap := h.sessions.Snapshot()
	state := snap.State
	if snap.Loading() {
		state = session.StateLoading
	}

	resp := sessionResponse{State: state.String(), Identity: toIdentityResponse(snap.Identity)}
	if snap.Loading() {
		resp.Cached = toIdentityResponse(h.sessions.Cached())
	}
	writeJSON(w, http.StatusOK, resp)
}
