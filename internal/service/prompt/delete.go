package prompt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/pkg/ctxutil"
)

// Delete removes a prompt. Without Confirmed it returns
// domain.ErrConfirmationRequired and touches nothing. A prompt that is
// already gone counts as deleted.
func (s *Service) Delete(ctx context.Context, input DeleteInput) error {
	userID, ok := ctxutil.UserIDFromCtx(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}

	if err := input.Validate(); err != nil {
		return err
	}
	if !input.Confirmed {
		return domain.ErrConfirmationRequired
	}

	err := s.prompts.Delete(ctx, userID, input.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.log.InfoContext(ctx, "prompt already deleted",
			slog.String("user_id", userID.String()),
			slog.String("prompt_id", input.ID.String()),
		)
	case err != nil:
		return fmt.Errorf("delete prompt: %w", err)
	default:
		s.log.InfoContext(ctx, "prompt deleted",
			slog.String("user_id", userID.String()),
			slog.String("prompt_id", input.ID.String()),
		)
	}

	s.collection(userID).Remove(input.ID)
	return nil
}
