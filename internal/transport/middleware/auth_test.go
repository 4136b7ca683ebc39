package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/heartmarshall/promptly/internal/domain"
	"github.com/heartmarshall/promptly/internal/session"
	"github.com/heartmarshall/promptly/pkg/ctxutil"
)

//go:generate moq -out token_validator_mock_test.go -pkg middleware . tokenValidator

func okHandler(t *testing.T, wantUser uuid.UUID, wantToken string) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID, ok := ctxutil.UserIDFromCtx(r.Context())
		if !ok {
			t.Error("expected userID in context")
		}
		if gotUserID != wantUser {
			t.Errorf("expected userID %v, got %v", wantUser, gotUserID)
		}
		if got := ctxutil.AccessTokenFromCtx(r.Context()); got != wantToken {
			t.Errorf("expected access token %q, got %q", wantToken, got)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_ValidToken(t *testing.T) {
	userID := uuid.New()
	validator := &tokenValidatorMock{
		ValidateTokenFunc: func(token string) (uuid.UUID, error) {
			if token == "valid-token" {
				return userID, nil
			}
			return uuid.Nil, errors.New("invalid token")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	Auth(validator)(okHandler(t, userID, "valid-token")).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	validator := &tokenValidatorMock{
		ValidateTokenFunc: func(token string) (uuid.UUID, error) {
			return uuid.Nil, errors.New("invalid token")
		},
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called for invalid token")
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()

	Auth(validator)(handler).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected JSON error, got content type %q", ct)
	}
}

func TestAuth_Anonymous(t *testing.T) {
	headers := []string{"", "Basic dXNlcjpwYXNz", "Bearer "}
	for _, h := range headers {
		validator := &tokenValidatorMock{}

		handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := ctxutil.UserIDFromCtx(r.Context()); ok {
				t.Errorf("expected no userID in context for %q", h)
			}
			w.WriteHeader(http.StatusOK)
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if h != "" {
			req.Header.Set("Authorization", h)
		}
		rec := httptest.NewRecorder()

		Auth(validator)(handler).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("%q: expected status %d, got %d", h, http.StatusOK, rec.Code)
		}
		if len(validator.ValidateTokenCalls()) > 0 {
			t.Errorf("%q: ValidateToken should not be called", h)
		}
	}
}

func TestExtractBearerToken_Cases(t *testing.T) {
	cases := []struct {
		name   string
		header string
		want   string
	}{
		{"empty header", "", ""},
		{"bearer with token", "Bearer valid-token", "valid-token"},
		{"bearer lowercase", "bearer valid-token", "valid-token"},
		{"bearer mixed case", "BEARER valid-token", "valid-token"},
		{"basic auth", "Basic dXNlcjpwYXNz", ""},
		{"bearer no space", "Bearertoken", ""},
		{"bearer empty token", "Bearer ", ""},
		{"just bearer", "Bearer", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if got := extractBearerToken(req); got != tc.want {
				t.Errorf("extractBearerToken(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

func TestRequireIdentity(t *testing.T) {
	ident := &domain.Identity{ID: uuid.New(), Email: "ada@example.com"}

	tests := []struct {
		name       string
		snap       session.Snapshot
		tokenErr   error
		wantStatus int
	}{
		{name: "uninitialized", snap: session.Snapshot{State: session.StateUninitialized}, wantStatus: http.StatusServiceUnavailable},
		{name: "loading", snap: session.Snapshot{State: session.StateLoading}, wantStatus: http.StatusServiceUnavailable},
		{name: "anonymous", snap: session.Snapshot{State: session.StateAnonymous}, wantStatus: http.StatusUnauthorized},
		{name: "token unavailable", snap: session.Snapshot{State: session.StateAuthenticated, Identity: ident}, tokenErr: domain.ErrUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "authenticated", snap: session.Snapshot{State: session.StateAuthenticated, Identity: ident}, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := &accessTokenSourceStub{token: "session-token", err: tt.tokenErr}
			mw := RequireIdentity(sessionSourceStub{snap: tt.snap}, tokens)

			called := false
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				okHandler(t, ident.ID, "session-token").ServeHTTP(w, r)
			})

			rec := httptest.NewRecorder()
			mw(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/prompts", nil))

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if called != (tt.wantStatus == http.StatusOK) {
				t.Errorf("handler called = %v", called)
			}
			if tt.wantStatus == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
				t.Error("expected Retry-After while loading")
			}
		})
	}
}

func TestRequireIdentity_BearerWins(t *testing.T) {
	userID := uuid.New()
	tokens := &accessTokenSourceStub{}
	mw := RequireIdentity(sessionSourceStub{snap: session.Snapshot{State: session.StateAnonymous}}, tokens)

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	ctx := ctxutil.WithAccessToken(ctxutil.WithUserID(context.Background(), userID), "api-token")
	rec := httptest.NewRecorder()

	mw(okHandler(t, userID, "api-token")).ServeHTTP(rec, req.WithContext(ctx))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if tokens.calls != 0 {
		t.Error("session token must not be consulted for bearer requests")
	}
}
