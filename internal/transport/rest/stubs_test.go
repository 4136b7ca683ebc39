package rest

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/auth"
	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/internal/library"
	"github.com/heartmarshall/promptly/internal/service/prompt"
	"github.com/heartmarshall/promptly/internal/session"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type promptServiceStub struct {
	RecentFunc  func(ctx context.Context) (prompt.ListResult, error)
	LibraryFunc func(ctx context.Context, q library.Query) (library.View, error)
	GetFunc     func(ctx context.Context, id uuid.UUID) (*domain.Prompt, error)
	SaveFunc    func(ctx context.Context, input prompt.SaveInput) (prompt.SaveResult, error)
	DeleteFunc  func(ctx context.Context, input prompt.DeleteInput) error
	TagsFunc    func(ctx context.Context) ([]string, error)

	lastQuery  library.Query
	lastDelete prompt.DeleteInput
}

func (s *promptServiceStub) Recent(ctx context.Context) (prompt.ListResult, error) {
	return s.RecentFunc(ctx)
}

func (s *promptServiceStub) Library(ctx context.Context, q library.Query) (library.View, error) {
	s.lastQuery = q
	return s.LibraryFunc(ctx, q)
}

func (s *promptServiceStub) Get(ctx context.Context, id uuid.UUID) (*domain.Prompt, error) {
	return s.GetFunc(ctx, id)
}

func (s *promptServiceStub) Save(ctx context.Context, input prompt.SaveInput) (prompt.SaveResult, error) {
	return s.SaveFunc(ctx, input)
}

func (s *promptServiceStub) Delete(ctx context.Context, input prompt.DeleteInput) error {
	s.lastDelete = input
	return s.DeleteFunc(ctx, input)
}

func (s *promptServiceStub) Tags(ctx context.Context) ([]string, error) {
	return s.TagsFunc(ctx)
}

func (s *promptServiceStub) Compose(initial string) prompt.Draft {
	return prompt.Draft{Prompt: initial, Tags: []string{}, Status: prompt.SaveStatusIdle}
}

func (s *promptServiceStub) Location() *time.Location { return time.UTC }

type authProviderStub struct {
	url      string
	urlErr   error
	exchange func(ctx context.Context, code string) (*auth.Session, error)
	codes    []string
}

func (a *authProviderStub) SignInURL() (string, error) { return a.url, a.urlErr }

func (a *authProviderStub) ExchangeCode(ctx context.Context, code string) (*auth.Session, error) {
	a.codes = append(a.codes, code)
	return a.exchange(ctx, code)
}

type sessionStoreStub struct {
	snap     session.Snapshot
	cached   *domain.Identity
	token    string
	signOuts int
}

func (s *sessionStoreStub) Snapshot() session.Snapshot { return s.snap }
func (s *sessionStoreStub) Cached() *domain.Identity   { return s.cached }
func (s *sessionStoreStub) SignOut(context.Context)    { s.signOuts++ }

func (s *sessionStoreStub) AccessToken(context.Context) (string, error) {
	return s.token, nil
}

type validatorStub struct {
	userID uuid.UUID
	err    error
}

func (v validatorStub) ValidateToken(string) (uuid.UUID, error) { return v.userID, v.err }
