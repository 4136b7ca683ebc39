package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/pkg/ctxutil"
)

const promptsPath = restPath + "/prompts"

// PromptRepo stores prompts in the "prompts" table through PostgREST.
// Requests carry the caller's access token from the context so row-level
// security applies; every query also filters by user_id.
type PromptRepo struct {
	client *Client
	log    *slog.Logger
}

// NewPromptRepo creates a PromptRepo.
func NewPromptRepo(client *Client, logger *slog.Logger) *PromptRepo {
	return &PromptRepo{
		client: client,
		log:    logger.With("adapter", "supabase_prompts"),
	}
}

type promptRow struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Prompt    string    `json:"prompt"`
	Response  *string   `json:"response"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
}

type insertRow struct {
	UserID   uuid.UUID `json:"user_id"`
	Prompt   string    `json:"prompt"`
	Response *string   `json:"response"`
	Summary  string    `json:"summary"`
	Tags     []string  `json:"tags"`
}

func (r promptRow) toDomain() domain.Prompt {
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

// List returns the user's prompts, newest first. limit <= 0 returns all.
func (r *PromptRepo) List(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Prompt, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("user_id", "eq."+userID.String())
	q.Set("order", "created_at.desc")
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	rows, err := r.query(ctx, "list", request{method: http.MethodGet, path: promptsPath, query: q, retry: true})
	if err != nil {
		return nil, err
	}

	out := make([]domain.Prompt, len(rows))
	for i, row := range rows {
		out[i] = row.toDomain()
	}
	r.log.DebugContext(ctx, "prompts listed", slog.Int("count", len(out)))
	return out, nil
}

// GetByID returns a single prompt. A missing or foreign id is domain.ErrNotFound.
func (r *PromptRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*domain.Prompt, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("id", "eq."+id.String())
	q.Set("user_id", "eq."+userID.String())
	q.Set("limit", "1")

	rows, err := r.query(ctx, "get", request{method: http.MethodGet, path: promptsPath, query: q, retry: true})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.RepositoryError{Op: "get", Err: domain.ErrNotFound}
	}
	p := rows[0].toDomain()
	return &p, nil
}

// Insert creates a prompt and returns the stored row.
func (r *PromptRepo) Insert(ctx context.Context, userID uuid.UUID, np domain.NewPrompt) (*domain.Prompt, error) {
	tags := np.Tags
	if tags == nil {
		tags = []string{}
	}
	rows, err := r.query(ctx, "insert", request{
		method: http.MethodPost,
		path:   promptsPath,
		query:  url.Values{"select": {"*"}},
		body: []insertRow{{
			UserID:   userID,
			Prompt:   np.Prompt,
			Response: np.Response,
			Summary:  np.Summary,
			Tags:     tags,
		}},
		header: map[string]string{"Prefer": "return=representation"},
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &domain.RepositoryError{Op: "insert", Err: fmt.Errorf("no row returned")}
	}
	p := rows[0].toDomain()
	r.log.InfoContext(ctx, "prompt inserted", slog.String("prompt_id", p.ID.String()))
	return &p, nil
}

// Delete removes a prompt. Deleting a missing or foreign id reports
// domain.ErrNotFound.
func (r *PromptRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	q := url.Values{}
	q.Set("id", "eq."+id.String())
	q.Set("user_id", "eq."+userID.String())
	q.Set("select", "id")

	rows, err := r.query(ctx, "delete", request{
		method: http.MethodDelete,
		path:   promptsPath,
		query:  q,
		header: map[string]string{"Prefer": "return=representation"},
		retry:  true,
	})
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return &domain.RepositoryError{Op: "delete", Err: domain.ErrNotFound}
	}
	r.log.InfoContext(ctx, "prompt deleted", slog.String("prompt_id", id.String()))
	return nil
}

func (r *PromptRepo) query(ctx context.Context, op string, req request) ([]promptRow, error) {
	req.token = ctxutil.AccessTokenFromCtx(ctx)
	if req.token == "" {
		return nil, &domain.RepositoryError{Op: op, Err: domain.ErrUnauthorized}
	}

	status, body, err := r.client.do(ctx, req)
	if err != nil {
		r.log.ErrorContext(ctx, "postgrest request failed",
			slog.String("op", op),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
		return nil, &domain.RepositoryError{Op: op, Status: status, Err: mapStatus(status, err)}
	}

	var rows []promptRow
	if len(body) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &domain.RepositoryError{Op: op, Status: status, Err: fmt.Errorf("decode rows: %w", err)}
	}
	return rows, nil
}

func mapStatus(status int, err error) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", domain.ErrUnauthorized, err)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %w", domain.ErrForbidden, err)
	case http.StatusNotFound, http.StatusNotAcceptable:
		return fmt.Errorf("%w: %w", domain.ErrNotFound, err)
	case http.StatusBadRequest, http.StatusUnprocessableEntity, http.StatusConflict:
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	default:
		return err
	}
}
