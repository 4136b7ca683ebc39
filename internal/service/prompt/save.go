package prompt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/pkg/ctxutil"
)

// SaveStatus is the composer's save indicator.
type SaveStatus string

const (
	SaveStatusIdle   SaveStatus = "idle"
	SaveStatusSaving SaveStatus = "saving"
	SaveStatusSaved  SaveStatus = "saved"
)

// SaveResult is the outcome of Save. On failure Draft holds the input so
// the composer can be restored and Prompt is nil.
type SaveResult struct {
	Prompt *domain.Prompt
	Draft  SaveInput
	Status SaveStatus
}

// Save validates the draft, summarizes it and stores it. Nothing is stored
// when validation or summarization fails.
func (s *Service) Save(ctx context.Context, input SaveInput) (SaveResult, error) {
	failed := SaveResult{Draft: input, Status: SaveStatusIdle}

	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return failed, domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return failed, err
	}

	body := strings.TrimSpace(input.Prompt)
	response := trimOrNil(input.Response)
	tags := domain.NormalizeTags(input.Tags)

	summary, err := s.summarizer.Summarize(ctx, SummaryText(body, response))
	if err != nil {
		s.log.WarnContext(ctx, "summarization failed, prompt not saved",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()),
		)
		return failed, fmt.Errorf("summarize prompt: %w", err)
	}

	p, err := s.prompts.Insert(ctx, userID, domain.NewPrompt{
		Prompt:   body,
		Response: response,
		Summary:  summary,
		Tags:     tags,
	})
	if err != nil {
		return failed, fmt.Errorf("insert prompt: %w", err)
	}

	s.collection(userID).Add(*p)

	s.log.InfoContext(ctx, "prompt saved",
		slog.String("user_id", userID.String()),
		slog.String("prompt_id", p.ID.String()),
		slog.Int("tags", len(tags)),
	)

	return SaveResult{Prompt: p, Draft: SaveInput{}, Status: SaveStatusSaved}, nil
}

// Draft is a composer skeleton.
type Draft struct {
	Prompt string
	Tags   []string
	Status SaveStatus
}

// Compose returns a fresh draft prefilled with initial, as used by the
// dashboard's quick-prompt box.
func (s *Service) Compose(initial string) Draft {
	return Draft{
		Prompt: strings.TrimSpace(initial),
		Tags:   []string{},
		Status: SaveStatusIdle,
	}
}
