package prompt

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/internal/library"
	"github.com/heartmarshall/promptly/pkg/ctxutil"
)

// ListStatus distinguishes a successful empty listing from a loaded one.
// A failed listing is reported as an error, never as empty.
type ListStatus string

const (
	ListStatusLoaded ListStatus = "loaded"
	ListStatusEmpty  ListStatus = "empty"
)

// ListResult is the outcome of a successful listing.
type ListResult struct {
	Prompts []domain.Prompt
	Status  ListStatus
}

// List returns the current user's prompts, newest first.
func (s *Service) List(ctx context.Context, input ListInput) (ListResult, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return ListResult{}, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return ListResult{}, err
	}

	prompts, err := s.prompts.List(ctx, userID, input.Limit)
	if err != nil {
		return ListResult{}, fmt.Errorf("list prompts: %w", err)
	}

	status := ListStatusLoaded
	if len(prompts) == 0 {
		status = ListStatusEmpty
	}
	return ListResult{Prompts: prompts, Status: status}, nil
}

// Recent returns the latest prompts for the home dashboard.
func (s *Service) Recent(ctx context.Context) (ListResult, error) {
	return s.List(ctx, ListInput{Limit: s.recentLimit})
}

// Library fetches every prompt of the current user into their collection
// and renders the timeline for q.
func (s *Service) Library(ctx context.Context, q library.Query) (library.View, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return library.View{}, domain.ErrUnauthorized
	}

	prompts, err := s.load(ctx, userID)
	if err != nil {
		return library.View{}, err
	}
	return library.Build(prompts, q, s.loc), nil
}

// Tags returns every tag the current user has used, sorted.
func (s *Service) Tags(ctx context.Context) ([]string, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	c := s.collection(userID)
	if c.Loaded() {
		return library.AllTags(c.Prompts()), nil
	}
	prompts, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return library.AllTags(prompts), nil
}

// Get returns a single prompt of the current user.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Prompt, error) {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	if id == uuid.Nil {
		return nil, domain.NewValidationError("id", "required")
	}

	p, err := s.prompts.GetByID(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("get prompt: %w", err)
	}
	return p, nil
}

// load refreshes the user's collection. A fetch superseded by a newer one
// or by a local change yields the collection's current contents instead.
func (s *Service) load(ctx context.Context, userID uuid.UUID) ([]domain.Prompt, error) {
	c := s.collection(userID)
	ticket := c.Begin()

	prompts, err := s.prompts.List(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("list prompts: %w", err)
	}

	if c.Commit(ticket, prompts) || c.Loaded() {
		return c.Prompts(), nil
	}
	return prompts, nil
}
