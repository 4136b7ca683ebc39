package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func tracing(name string, trace *[]string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*trace = append(*trace, name+">")
			next.ServeHTTP(w, r)
			*trace = append(*trace, "<"+name)
		})
	}
}

func TestChain(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		mws  func(trace *[]string) []Middleware
		want []string
	}{
		{
			name: "first is outermost",
			mws: func(trace *[]string) []Middleware {
				return []Middleware{tracing("a", trace), tracing("b", trace)}
			},
			want: []string{"a>", "b>", "handler", "<b", "<a"},
		},
		{
			name: "nil entries skipped",
			mws: func(trace *[]string) []Middleware {
				return []Middleware{nil, tracing("a", trace), nil}
			},
			want: []string{"a>", "handler", "<a"},
		},
		{
			name: "empty",
			mws:  func(*[]string) []Middleware { return nil },
			want: []string{"handler"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var trace []string
			h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				trace = append(trace, "handler")
				w.WriteHeader(http.StatusNoContent)
			})

			rec := httptest.NewRecorder()
			Chain(tt.mws(&trace)...)(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.want, trace)
			assert.Equal(t, http.StatusNoContent, rec.Code)
		})
	}
}
