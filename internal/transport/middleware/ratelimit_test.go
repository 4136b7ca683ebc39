package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/heartmarshall/promptly/pkg/ctxutil"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(t *testing.T) (*RateLimiter, *fakeClock) {
	t.Helper()
	rl := NewRateLimiter(time.Hour)
	t.Cleanup(rl.Stop)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	rl.now = clock.Now
	return rl, clock
}

func hit(h http.Handler, remote string, ctx context.Context) int {
	req := httptest.NewRequest(http.MethodPost, "/api/prompts", nil).WithContext(ctx)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

var okStatus = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRateLimiter_BlocksOverLimit(t *testing.T) {
	rl, _ := newTestLimiter(t)
	h := rl.Limit(5)(okStatus)

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "1.2.3.4:1234", context.Background()), "request %d", i)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/prompts", nil)
	req.RemoteAddr = "1.2.3.4:9999"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "ports of one host share a bucket")
	assert.Equal(t, "13", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_KeysByUser(t *testing.T) {
	rl, _ := newTestLimiter(t)
	h := rl.Limit(1)(okStatus)

	alice := ctxutil.WithUserID(context.Background(), uuid.New())
	bob := ctxutil.WithUserID(context.Background(), uuid.New())

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", alice))
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "10.0.0.2:1", alice), "same user from another host")
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1:1", bob), "other user from the same host")
}

func TestRateLimiter_Refill(t *testing.T) {
	rl, clock := newTestLimiter(t)
	h := rl.Limit(60)(okStatus)

	for i := 0; i < 60; i++ {
		hit(h, "3.3.3.3:1234", context.Background())
	}
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "3.3.3.3:1234", context.Background()))

	clock.Advance(time.Second)
	assert.Equal(t, http.StatusOK, hit(h, "3.3.3.3:1234", context.Background()))
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl, _ := newTestLimiter(t)
	h := rl.Limit(0)(okStatus)

	for i := 0; i < 100; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "1.1.1.1:1", context.Background()))
	}
}

func TestRateLimiter_SweepDropsIdle(t *testing.T) {
	rl, clock := newTestLimiter(t)
	h := rl.Limit(10)(okStatus)
	hit(h, "4.4.4.4:1", context.Background())

	clock.Advance(idleBucketTTL + time.Second)
	rl.sweep()

	count := 0
	rl.buckets.Range(func(_, _ any) bool { count++; return true })
	assert.Zero(t, count)
	rl.Stop()
}
