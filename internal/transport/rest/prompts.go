package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/internal/library"
	"github.com/heartmarshall/promptly/internal/service/prompt"
)

const maxBodyBytes = 1 << 20

type promptService interface {
	Recent(ctx context.Context) (prompt.ListResult, error)
	Library(ctx context.Context, q library.Query) (library.View, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Prompt, error)
	Save(ctx context.Context, input prompt.SaveInput) (prompt.SaveResult, error)
	Delete(ctx context.Context, input prompt.DeleteInput) error
	Tags(ctx context.Context) ([]string, error)
	Compose(initial string) prompt.Draft
	Location() *time.Location
}

// PromptHandler serves the diary endpoints.
type PromptHandler struct {
	svc promptService
	log *slog.Logger
}

// NewPromptHandler creates a PromptHandler.
func NewPromptHandler(svc promptService, logger *slog.Logger) *PromptHandler {
	return &PromptHandler{svc: svc, log: logger.With("handler", "prompt")}
}

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

type promptResponse struct {
	ID        string    `json:"id"`
	Prompt    string    `json:"prompt"`
	Response  *string   `json:"response,omitempty"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`
	Time      string    `json:"time"`
}

type groupResponse struct {
	Label   string           `json:"label"`
	Prompts []promptResponse `json:"prompts"`
}

type listResponse struct {
	Status  string           `json:"status"`
	Prompts []promptResponse `json:"prompts"`
}

type libraryResponse struct {
	Status string          `json:"status"`
	Total  int             `json:"total"`
	Groups []groupResponse `json:"groups"`
	Tags   []string        `json:"tags"`
}

type saveRequest struct {
	Prompt   string   `json:"prompt"`
	Response *string  `json:"response"`
	Tags     []string `json:"tags"`
}

type draftResponse struct {
	Prompt   string   `json:"prompt"`
	Response *string  `json:"response,omitempty"`
	Tags     []string `json:"tags"`
	Status   string   `json:"status"`
}

type saveResponse struct {
	Status string          `json:"status"`
	Prompt *promptResponse `json:"prompt"`
}

type saveErrorResponse struct {
	errorResponse
	Draft draftResponse `json:"draft"`
}

func (h *PromptHandler) toPromptResponse(p domain.Prompt) promptResponse {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return promptResponse{
		ID:        p.ID.String(),
		Prompt:    p.Prompt,
		Response:  p.Response,
		Summary:   p.Summary,
		Tags:      tags,
		CreatedAt: p.CreatedAt,
		Time:      library.TimeLabel(p.CreatedAt, h.svc.Location()),
	}
}

func (h *PromptHandler) toPromptResponses(prompts []domain.Prompt) []promptResponse {
	out := make([]promptResponse, len(prompts))
	for i, p := range prompts {
		out[i] = h.toPromptResponse(p)
	}
	return out
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

// Recent handles GET /api/prompts/recent.
// A failed fetch is reported with status "error" rather than as empty.
func (h *PromptHandler) Recent(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Recent(r.Context())
	if err != nil {
		if isFetchFailure(err) {
			h.log.WarnContext(r.Context(), "recent prompts unavailable", slog.String("error", err.Error()))
			writeJSON(w, http.StatusOK, listResponse{Status: "error", Prompts: []promptResponse{}})
			return
		}
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{
		Status:  string(res.Status),
		Prompts: h.toPromptResponses(res.Prompts),
	})
}

// Library handles GET /api/prompts?q=&tag=&sort=.
func (h *PromptHandler) Library(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := library.Query{
		Search: q.Get("q"),
		Tags:   q["tag"],
		Sort:   library.ParseSort(q.Get("sort")),
	}

	view, err := h.svc.Library(r.Context(), query)
	if err != nil {
		if isFetchFailure(err) {
			h.log.WarnContext(r.Context(), "library unavailable", slog.String("error", err.Error()))
			writeJSON(w, http.StatusOK, libraryResponse{Status: "error", Groups: []groupResponse{}, Tags: []string{}})
			return
		}
		handleError(h.log, w, r, err)
		return
	}

	groups := make([]groupResponse, len(view.Groups))
	for i, g := range view.Groups {
		groups[i] = groupResponse{Label: g.Label, Prompts: h.toPromptResponses(g.Prompts)}
	}
	status := string(prompt.ListStatusLoaded)
	if view.Empty() {
		status = string(prompt.ListStatusEmpty)
	}
	tags := view.Tags
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, libraryResponse{Status: status, Total: view.Total, Groups: groups, Tags: tags})
}

// Get handles GET /api/prompts/{id}.
func (h *PromptHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.toPromptResponse(*p))
}

// Create handles POST /api/prompts. On failure the draft is echoed back so
// the composer can be restored.
func (h *PromptHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.Save(r.Context(), prompt.SaveInput{
		Prompt:   req.Prompt,
		Response: req.Response,
		Tags:     req.Tags,
	})
	if err != nil {
		status, body := toErrorResponse(h.log, r, err)
		tags := res.Draft.Tags
		if tags == nil {
			tags = []string{}
		}
		writeJSON(w, status, saveErrorResponse{
			errorResponse: body,
			Draft: draftResponse{
				Prompt:   res.Draft.Prompt,
				Response: res.Draft.Response,
				Tags:     tags,
				Status:   string(res.Status),
			},
		})
		return
	}

	out := h.toPromptResponse(*res.Prompt)
	writeJSON(w, http.StatusCreated, saveResponse{Status: string(res.Status), Prompt: &out})
}

// Delete handles DELETE /api/prompts/{id}?confirm=true.
func (h *PromptHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))

	if err := h.svc.Delete(r.Context(), prompt.DeleteInput{ID: id, Confirmed: confirmed}); err != nil {
		handleError(h.log, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Tags handles GET /api/tags.
func (h *PromptHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		handleError(h.log, w, r, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tags": tags})
}

// Compose handles GET /api/compose?initial=.
func (h *PromptHandler) Compose(w http.ResponseWriter, r *http.Request) {
	d := h.svc.Compose(r.URL.Query().Get("initial"))
	writeJSON(w, http.StatusOK, draftResponse{Prompt: d.Prompt, Tags: d.Tags, Status: string(d.Status)})
}

func (h *PromptHandler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:  "validation failed",
			Fields: []fieldErrorResponse{{Field: "id", Message: "invalid id"}},
		})
		return uuid.Nil, false
	}
	return id, true
}

// isFetchFailure reports whether a listing failed on the data source side,
// as opposed to the caller being unauthenticated or sending bad input.
func isFetchFailure(err error) bool {
	return errors.Is(err, domain.ErrRepository) && !errors.Is(err, domain.ErrUnauthorized)
}
