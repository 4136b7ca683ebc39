// Package prompt implements the prompt repository on a self-hosted
// PostgreSQL database. Every statement runs in a transaction scoped to the
// acting user so the row level security policies of the schema apply.
package prompt

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/adapter/postgres"
	"github.com/heartmarshall/promptly/internal/domain"
)

const table = "prompts"

var (
	columns = []string{"id", "user_id", "prompt", "response", "summary", "tags", "created_at"}
	psql    = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
)

// Repo provides prompt persistence backed by PostgreSQL.
type Repo struct {
	db postgres.DB
	tx *postgres.TxManager
}

// New creates a new prompt repository.
func New(db postgres.DB) *Repo {
	return &Repo{db: db, tx: postgres.NewTxManager(db)}
}

type row struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id"`
	Prompt    string    `db:"prompt"`
	Response  *string   `db:"response"`
	Summary   string    `db:"summary"`
	Tags      []string  `db:"tags"`
	CreatedAt time.Time `db:"created_at"`
}

func (r row) toDomain() domain.Prompt {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return domain.Prompt{
		ID:        r.ID,
		UserID:    r.UserID,
		Prompt:    r.Prompt,
		Response:  r.Response,
		Summary:   r.Summary,
		Tags:      tags,
		CreatedAt: r.CreatedAt,
	}
}

// List returns the user's prompts, newest first. limit <= 0 lists all.
func (r *Repo) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Prompt, error) {
	query := psql.Select(columns...).
		From(table).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "list")
	}

	var rows []row
	err = r.tx.RunAsUser(ctx, userID, func(ctx context.Context) error {
		return pgxscan.Select(ctx, postgres.QuerierFromCtx(ctx, r.db), &rows, sql, args...)
	})
	if err != nil {
		return nil, postgres.MapError(err, "list")
	}

	out := make([]domain.Prompt, len(rows))
	for i, rw := range rows {
		out[i] = rw.toDomain()
	}
	return out, nil
}

// GetByID returns one prompt of the user.
// Returns domain.ErrNotFound if it does not exist or belongs to someone else.
func (r *Repo) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Prompt, error) {
	sql, args, err := psql.Select(columns...).
		From(table).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "get")
	}

	var rw row
	err = r.tx.RunAsUser(ctx, userID, func(ctx context.Context) error {
		return pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &rw, sql, args...)
	})
	if err != nil {
		return nil, postgres.MapError(err, "get")
	}

	p := rw.toDomain()
	return &p, nil
}

// Insert stores a new prompt and returns it as persisted.
func (r *Repo) Insert(ctx context.Context, userID uuid.UUID, np domain.NewPrompt) (*domain.Prompt, error) {
	tags := np.Tags
	if tags == nil {
		tags = []string{}
	}

	sql, args, err := psql.Insert(table).
		Columns("user_id", "prompt", "response", "summary", "tags").
		Values(userID, np.Prompt, np.Response, np.Summary, tags).
		Suffix("RETURNING " + strings.Join(columns, ", ")).
		ToSql()
	if err != nil {
		return nil, postgres.MapError(err, "insert")
	}

	var rw row
	err = r.tx.RunAsUser(ctx, userID, func(ctx context.Context) error {
		return pgxscan.Get(ctx, postgres.QuerierFromCtx(ctx, r.db), &rw, sql, args...)
	})
	if err != nil {
		return nil, postgres.MapError(err, "insert")
	}

	p := rw.toDomain()
	return &p, nil
}

// Delete removes one prompt of the user.
// Returns domain.ErrNotFound if nothing was deleted.
func (r *Repo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	sql, args, err := psql.Delete(table).
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		ToSql()
	if err != nil {
		return postgres.MapError(err, "delete")
	}

	err = r.tx.RunAsUser(ctx, userID, func(ctx context.Context) error {
		tag, err := postgres.QuerierFromCtx(ctx, r.db).Exec(ctx, sql, args...)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return &domain.RepositoryError{Op: "delete", Err: domain.ErrNotFound}
		}
		return nil
	})
	if err != nil {
		var re *domain.RepositoryError
		if errors.As(err, &re) {
			return err
		}
		return postgres.MapError(err, "delete")
	}
	return nil
}
