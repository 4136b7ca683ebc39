package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/promptly/internal/domain"
)

type fieldErrorResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error  string               `json:"error"`
	Fields []fieldErrorResponse `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// toErrorResponse maps err onto a status code and a client-safe body.
// Unexpected errors are logged.
func toErrorResponse(log *slog.Logger, r *http.Request, err error) (int, errorResponse) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		fields := make([]fieldErrorResponse, len(ve.Errors))
		for i, fe := range ve.Errors {
			fields[i] = fieldErrorResponse{Field: fe.Field, Message: fe.Message}
		}
		return http.StatusBadRequest, errorResponse{Error: "validation failed", Fields: fields}
	case errors.Is(err, domain.ErrConfirmationRequired):
		return http.StatusConflict, errorResponse{Error: "confirmation required"}
	case errors.Is(err, domain.ErrUnauthorized), errors.Is(err, domain.ErrAuth):
		log.WarnContext(r.Context(), "unauthorized", slog.String("error", err.Error()))
		return http.StatusUnauthorized, errorResponse{Error: "unauthorized"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "forbidden"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found"}
	case errors.Is(err, domain.ErrSummarization):
		log.WarnContext(r.Context(), "summarization failed", slog.String("error", err.Error()))
		return http.StatusBadGateway, errorResponse{Error: "summarization failed"}
	case errors.Is(err, domain.ErrRepository):
		log.ErrorContext(r.Context(), "repository failed", slog.String("error", err.Error()))
		return http.StatusBadGateway, errorResponse{Error: "repository unavailable"}
	default:
		log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

func handleError(log *slog.Logger, w http.ResponseWriter, r *http.Request, err error) {
	status, body := toErrorResponse(log, r, err)
	writeJSON(w, status, body)
}
