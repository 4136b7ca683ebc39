package prompt

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/internal/library"
)

// DefaultRecentLimit is the number of prompts shown on the home dashboard.
const DefaultRecentLimit = 10

type promptRepo interface {
	List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Prompt, error)
	GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Prompt, error)
	Insert(ctx context.Context, userID uuid.UUID, np domain.NewPrompt) (*domain.Prompt, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Service implements the prompt diary: saving with summaries, listing,
// the library timeline and confirmed deletion.
type Service struct {
	prompts     promptRepo
	summarizer  summarizer
	log         *slog.Logger
	loc         *time.Location
	recentLimit int

	mu          sync.Mutex
	collections map[uuid.UUID]*library.Collection
}

// NewService creates a new prompt service. loc is the timezone of timeline
// day labels; recentLimit <= 0 means DefaultRecentLimit.
func NewService(
	log *slog.Logger,
	prompts promptRepo,
	summarizer summarizer,
	loc *time.Location,
	recentLimit int,
) *Service {
	if loc == nil {
		loc = time.Local
	}
	if recentLimit <= 0 {
		recentLimit = DefaultRecentLimit
	}
	return &Service{
		prompts:     prompts,
		summarizer:  summarizer,
		log:         log.With("service", "prompt"),
		loc:         loc,
		recentLimit: recentLimit,
		collections: make(map[uuid.UUID]*library.Collection),
	}
}

// Location is the timezone used for timeline labels.
func (s *Service) Location() *time.Location { return s.loc }

// Forget drops every locally held collection. Fetches still in flight are
// discarded when they complete. Called when the identity changes.
func (s *Service) Forget() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.collections {
		c.Reset()
		delete(s.collections, id)
	}
}

func (s *Service) collection(userID uuid.UUID) *library.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[userID]
	if !ok {
		c = library.NewCollection()
		s.collections[userID] = c
	}
	return c
}

// SummaryText builds the text sent for summarization: the prompt body,
// followed by the response when one is present.
func SummaryText(body string, response *string) string {
	if response == nil || *response == "" {
		return body
	}
	return body + "\n\nResponse:\n" + *response
}

// trimOrNil trims whitespace. Returns nil if result is empty.
func trimOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
