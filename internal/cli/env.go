package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/app"
	"github.com/heartmarshall/promptly/internal/auth"
	"github.com/heartmarshall/promptly/internal/config"
	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/internal/library"
	"github.com/heartmarshall/promptly/internal/service/prompt"
	"github.com/heartmarshall/promptly/internal/session"
	"github.com/heartmarshall/promptly/pkg/ctxutil"
)

type promptService interface {
	Recent(ctx context.Context) (prompt.ListResult, error)
	Library(ctx context.Context, q library.Query) (library.View, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Prompt, error)
	Save(ctx context.Context, input prompt.SaveInput) (prompt.SaveResult, error)
	Delete(ctx context.Context, input prompt.DeleteInput) error
	Tags(ctx context.Context) ([]string, error)
	Location() *time.Location
}

type sessionManager interface {
	Initialize(ctx context.Context) error
	Snapshot() session.Snapshot
	SignOut(ctx context.Context)
}

type tokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

type profileSource interface {
	GetUser(ctx context.Context) (*auth.User, error)
}

// Env is what the diary commands run against.
type Env struct {
	Prompts  promptService
	Sessions sessionManager
	Tokens   tokenSource
	Profiles profileSource
	Confirm  Confirmer
	Close    func()
}

// EnvFactory builds an Env from loaded configuration.
type EnvFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Env, error)

// AppEnv wires an Env from the application container.
func AppEnv(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Env, error) {
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Env{
		Prompts:  a.Prompts,
		Sessions: a.Sessions,
		Tokens:   a.Auth,
		Profiles: a.Auth,
		Confirm:  NewSurveyConfirmer(),
		Close:    a.Close,
	}, nil
}

// resolve loads the stored session. Unlike the server, the terminal client
// resolves synchronously, so there is no loading state to report.
func (e *Env) resolve(ctx context.Context) (session.Snapshot, error) {
	if err := e.Sessions.Initialize(ctx); err != nil {
		return session.Snapshot{}, fmt.Errorf("load session: %w", err)
	}
	return e.Sessions.Snapshot(), nil
}

// authorize returns ctx carrying the signed-in user and access token.
func (e *Env) authorize(ctx context.Context) (context.Context, error) {
	snap, err := e.resolve(ctx)
	if err != nil {
		return nil, err
	}
	if !snap.Authenticated() {
		return nil, fmt.Errorf("not signed in: %w", domain.ErrUnauthorized)
	}
	token, err := e.Tokens.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	ctx = ctxutil.WithUserID(ctx, snap.Identity.ID)
	return ctxutil.WithAccessToken(ctx, token), nil
}

// profile asks the provider for the signed-in user's current profile. It
// falls back to the session identity when the provider cannot answer.
func (e *Env) profile(ctx context.Context, snap session.Snapshot, logger *slog.Logger) *domain.Identity {
	if !snap.Authenticated() || e.Profiles == nil {
		return snap.Identity
	}
	u, err := e.Profiles.GetUser(ctx)
	if err != nil {
		logger.WarnContext(ctx, "fetch profile", slog.String("error", err.Error()))
		return snap.Identity
	}
	ident, ok := u.Identity()
	if !ok || ident.ID != snap.Identity.ID {
		return snap.Identity
	}
	if ident.LastSignIn.IsZero() {
		ident.LastSignIn = snap.Identity.LastSignIn
	}
	return &ident
}

func (e *Env) close() {
	if e.Close != nil {
		e.Close()
	}
}

func (e *Env) renderer(w io.Writer) *Renderer {
	return NewRenderer(w, e.Prompts.Location())
}
