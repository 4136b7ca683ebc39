package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/heartmarshall/promptly/internal/adapter/localstore"
	"github.com/heartmarshall/promptly/internal/adapter/postgres"
	pgprompt "github.com/heartmarshall/promptly/internal/adapter/postgres/prompt"
	"github.com/heartmarshall/promptly/internal/adapter/provider/summarizer"
	"github.com/heartmarshall/promptly/internal/adapter/supabase"
	"github.com/heartmarshall/promptly/internal/auth"
	"github.com/heartmarshall/promptly/internal/config"
	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/internal/service/prompt"
	"github.com/heartmarshall/promptly/internal/session"
	"github.com/heartmarshall/promptly/internal/transport/middleware"
	"github.com/heartmarshall/promptly/internal/transport/rest"
)

type promptRepo interface {
	List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Prompt, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Prompt, error)
	Insert(ctx context.Context, userID uuid.UUID, p domain.NewPrompt) (*domain.Prompt, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// App holds the wired components shared by the server and the terminal
// client.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Tokens   *auth.TokenParser
	Auth     *supabase.AuthClient
	Sessions *session.Store
	Prompts  *prompt.Service

	checks  map[string]rest.Pinger
	closers []func()
}

// New wires every component from cfg. Nothing is started; call
// Sessions.Start (or Initialize) before serving requests.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, checks: make(map[string]rest.Pinger)}

	store := localstore.New(cfg.Storage, logger)
	logger.Debug("local storage ready", slog.String("mode", store.Mode()))

	client := supabase.NewClient(cfg.Supabase, logger)
	a.checks["supabase"] = client

	a.Tokens = auth.NewTokenParser(cfg.Supabase.JWTSecret, cfg.Supabase.Issuer())
	if !a.Tokens.Verifies() {
		logger.Warn("supabase.jwt_secret not set, bearer tokens are decoded without signature verification")
	}
	a.Auth = supabase.NewAuthClient(client, store, a.Tokens, cfg.Supabase, logger)
	a.Sessions = session.NewStore(logger, a.Auth, session.NewIdentityCache(store))
	a.closers = append(a.closers, a.Sessions.Close)

	repo, err := a.newPromptRepo(ctx, client)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Prompts = prompt.NewService(
		logger,
		repo,
		summarizer.NewProvider(cfg.Summarizer, logger),
		cfg.Library.Location,
		cfg.Library.RecentLimit,
	)

	unsubscribe := a.Sessions.Subscribe(func(snap session.Snapshot) {
		if !snap.Loading() && !snap.Authenticated() {
			a.Prompts.Forget()
		}
	})
	a.closers = append(a.closers, unsubscribe)

	return a, nil
}

func (a *App) newPromptRepo(ctx context.Context, client *supabase.Client) (promptRepo, error) {
	switch a.Config.Database.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, a.Config.Database)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.checks["database"] = pool
		a.closers = append(a.closers, pool.Close)
		a.Logger.Info("prompt repository: postgres")
		return pgprompt.New(pool), nil
	default:
		a.Logger.Info("prompt repository: supabase rest")
		return supabase.NewPromptRepo(client, a.Logger), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// Handler builds the HTTP surface. The returned stop func releases the
// rate limiter.
func (a *App) Handler() (http.Handler, func()) {
	limiter := middleware.NewRateLimiter(time.Minute)
	h := rest.NewRouter(rest.RouterDeps{
		Logger:        a.Logger,
		Health:        rest.NewHealthHandler(Version, a.checks),
		Auth:          rest.NewAuthHandler(a.Auth, a.Sessions, a.Logger),
		Prompts:       rest.NewPromptHandler(a.Prompts, a.Logger),
		Sessions:      a.Sessions,
		Tokens:        a.Auth,
		Validator:     a.Tokens,
		Limiter:       limiter,
		CORS:          a.Config.CORS,
		SaveRateLimit: a.Config.Server.SaveRateLimit,
	})
	return h, limiter.Stop
}

// Run starts the session store and serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("driver", cfg.Database.Driver),
	)

	a, err := New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Sessions.Start(ctx)

	handler, stopLimiter := a.Handler()
	defer stopLimiter()

	srv := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
