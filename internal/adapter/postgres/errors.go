package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/heartmarshall/promptly/internal/domain"
)

// MapError converts pgx/pgconn errors to a *domain.RepositoryError.
// context.DeadlineExceeded and context.Canceled are NOT mapped; they pass
// through wrapped only with the operation.
func MapError(err error, op string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &domain.RepositoryError{Op: op, Err: err}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.RepositoryError{Op: op, Err: domain.ErrNotFound}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503": // foreign_key_violation
			return &domain.RepositoryError{Op: op, Err: domain.ErrNotFound}
		case "23505", "23514", "23502", "22P02": // unique, check, not_null, invalid_text_representation
			return &domain.RepositoryError{Op: op, Err: errors.Join(domain.ErrValidation, err)}
		case "42501": // insufficient_privilege, row level security
			return &domain.RepositoryError{Op: op, Err: errors.Join(domain.ErrForbidden, err)}
		}
	}

	return &domain.RepositoryError{Op: op, Err: err}
}
