package prompt

import (
	"strings"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/domain"
)

// SaveInput is the composer draft.
type SaveInput struct {
	Prompt   string
	Response *string
	Tags     []string
}

// Validate checks all fields and collects all errors.
func (i SaveInput) Validate() error {
	var errs []domain.FieldError

	if strings.TrimSpace(i.Prompt) == "" {
		errs = append(errs, domain.FieldError{Field: "prompt", Message: "required"})
	}
	if len(domain.NormalizeTags(i.Tags)) == 0 {
		errs = append(errs, domain.FieldError{Field: "tags", Message: "at least one tag required"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}

// ListInput holds the parameters for listing prompts.
type ListInput struct {
	// Limit <= 0 lists everything.
	Limit int
}

// Validate checks all fields and collects all errors.
func (i ListInput) Validate() error {
	if i.Limit < 0 {
		return domain.NewValidationError("limit", "must be non-negative")
	}
	return nil
}

// DeleteInput holds the parameters for deleting a prompt. Deletion is
// destructive and requires explicit confirmation.
type DeleteInput struct {
	ID        uuid.UUID
	Confirmed bool
}

// Validate checks all fields and collects all errors.
func (i DeleteInput) Validate() error {
	if i.ID == uuid.Nil {
		return domain.NewValidationError("id", "required")
	}
	return nil
}
