package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type pingerStub struct {
	err error
}

func (m *pingerStub) Ping(_ context.Context) error {
	return m.err
}

func decodeHealth(t *testing.T, rec *httptest.ResponseRecorder) HealthResponse {
	t.Helper()
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestLive_Always200(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler("test-version", map[string]Pinger{"supabase": &pingerStub{err: errors.New("down")}})

	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got %q", resp.Status)
	}
	if resp.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestReady(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantCode   int
		wantStatus string
	}{
		{name: "no dependencies", checks: nil, wantCode: http.StatusOK, wantStatus: "ok"},
		{name: "all up", checks: map[string]Pinger{"supabase": &pingerStub{}, "database": &pingerStub{}}, wantCode: http.StatusOK, wantStatus: "ok"},
		{name: "one down", checks: map[string]Pinger{"supabase": &pingerStub{}, "database": &pingerStub{err: errors.New("refused")}}, wantCode: http.StatusServiceUnavailable, wantStatus: "down"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			NewHealthHandler("v", tt.checks).Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d", tt.wantCode, rec.Code)
			}
			if got := decodeHealth(t, rec).Status; got != tt.wantStatus {
				t.Errorf("expected status %q, got %q", tt.wantStatus, got)
			}
		})
	}
}

func TestHealth_Components(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler("v1.0.0", map[string]Pinger{
		"supabase":   &pingerStub{},
		"summarizer": &pingerStub{err: errors.New("timeout")},
	})

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
	resp := decodeHealth(t, rec)
	if resp.Version != "v1.0.0" {
		t.Errorf("expected version 'v1.0.0', got %q", resp.Version)
	}
	if c := resp.Components["supabase"]; c.Status != "ok" || c.Latency == "" {
		t.Errorf("unexpected supabase component: %+v", c)
	}
	if c := resp.Components["summarizer"]; c.Status != "down" || c.Latency != "" {
		t.Errorf("unexpected summarizer component: %+v", c)
	}
}
