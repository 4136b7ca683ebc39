package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/config"
	"github.com/heartmarshall/promptly/internal/transport/middleware"
)

// RouterDeps holds everything the HTTP surface needs.
type RouterDeps struct {
	Logger   *slog.Logger
	Health   *HealthHandler
	Auth     *AuthHandler
	Prompts  *PromptHandler
	Sessions sessionStore
	Tokens interface {
		AccessToken(ctx context.Context) (string, error)
	}
	Validator interface {
		ValidateToken(token string) (uuid.UUID, error)
	}
	Limiter *middleware.RateLimiter
	CORS    config.CORSConfig
	// SaveRateLimit caps POST /api/prompts per caller per minute.
	SaveRateLimit int
}

// NewRouter builds the HTTP handler.
func NewRouter(d RouterDeps) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /live", d.Health.Live)
	mux.HandleFunc("GET /ready", d.Health.Ready)
	mux.HandleFunc("GET /health", d.Health.Health)

	mux.HandleFunc("GET /auth/signin", d.Auth.SignIn)
	mux.HandleFunc("GET /auth/callback", d.Auth.Callback)

	sameOrigin := middleware.SessionOrigin(d.CORS)
	mux.Handle("POST /auth/signout", sameOrigin(http.HandlerFunc(d.Auth.SignOut)))
	mux.Handle("GET /api/session", sameOrigin(http.HandlerFunc(d.Auth.Session)))

	protected := middleware.Chain(
		middleware.Auth(d.Validator),
		sameOrigin,
		middleware.RequireIdentity(d.Sessions, d.Tokens),
	)
	guard := func(h http.HandlerFunc) http.Handler { return protected(h) }

	var saveLimit middleware.Middleware
	if d.Limiter != nil {
		saveLimit = d.Limiter.Limit(d.SaveRateLimit)
	}

	mux.Handle("GET /api/prompts/recent", guard(d.Prompts.Recent))
	mux.Handle("GET /api/prompts", guard(d.Prompts.Library))
	mux.Handle("GET /api/prompts/{id}", guard(d.Prompts.Get))
	mux.Handle("POST /api/prompts", middleware.Chain(protected, saveLimit)(http.HandlerFunc(d.Prompts.Create)))
	mux.Handle("DELETE /api/prompts/{id}", guard(d.Prompts.Delete))
	mux.Handle("GET /api/tags", guard(d.Prompts.Tags))
	mux.HandleFunc("GET /api/compose", d.Prompts.Compose)

	return middleware.Chain(
		middleware.RequestID(),
		middleware.Logger(d.Logger),
		middleware.Recovery(d.Logger),
		middleware.CORS(d.CORS),
	)(mux)
}
