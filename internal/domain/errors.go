package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors used across all layers.
var (
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation error")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrForbidden     = errors.New("forbidden")
	ErrSummarization = errors.New("summarization failed")
	ErrRepository    = errors.New("repository error")
	ErrAuth          = errors.New("auth error")

	// ErrConfirmationRequired is returned by destructive operations invoked
	// without explicit user confirmation.
	ErrConfirmationRequired = errors.New("confirmation required")
)

// FieldError describes a validation error for a specific field.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError contains a list of field-level validation errors.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation: %s: %s", e.Errors[0].Field, e.Errors[0].Message)
	}
	return fmt.Sprintf("validation: %d errors", len(e.Errors))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Errors: []FieldError{{Field: field, Message: message}},
	}
}

// NewValidationErrors creates a ValidationError from multiple field errors.
func NewValidationErrors(errs []FieldError) *ValidationError {
	return &ValidationError{Errors: errs}
}

// AuthError wraps failures of the auth provider: session fetch, code
// exchange, refresh and sign-out.
type AuthError struct {
	Op     string
	Status int
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("auth %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("auth %s: %v", e.Op, e.Err)
}

func (e *AuthError) Unwrap() []error { return []error{ErrAuth, e.Err} }

// RepositoryError wraps list/insert/delete failures of the prompt store.
// Status is the backend HTTP status when one was received.
type RepositoryError struct {
	Op     string
	Status int
	Err    error
}

func (e *RepositoryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("repository %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("repository %s: %v", e.Op, e.Err)
}

func (e *RepositoryError) Unwrap() []error { return []error{ErrRepository, e.Err} }

// SummarizationError is returned when the summarizer responds with a failure
// or without a summary.
type SummarizationError struct {
	Status int
	Err    error
}

func (e *SummarizationError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("summarize: status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("summarize: %v", e.Err)
}

func (e *SummarizationError) Unwrap() []error { return []error{ErrSummarization, e.Err} }
