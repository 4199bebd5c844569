package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"github.com/tallerhub/tallerhub/internal/observability/metrics"
)

func TestRateLimit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg := metrics.New()
	h := RateLimit(RateLimitConfig{
		Rate:    rate.Every(time.Minute),
		Burst:   2,
		Logger:  discardLogger(),
		Metrics: reg,
		Now:     func() time.Time { return now },
	})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusFound, do("10.0.0.1:1111").Code)
	assert.Equal(t, http.StatusFound, do("10.0.0.1:2222").Code)

	rec := do("10.0.0.1:3333")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate_limited")

	// Another client has its own bucket.
	assert.Equal(t, http.StatusFound, do("10.0.0.2:1111").Code)

	// A rejected request does not consume the token that refills next.
	now = now.Add(time.Minute)
	assert.Equal(t, http.StatusFound, do("10.0.0.1:4444").Code)

	assert.NoError(t, testutil.GatherAndCompare(reg.Gatherer(), strings.NewReader(`
# HELP tallerhub_login_throttled_total Login attempts rejected by the rate limiter.
# TYPE tallerhub_login_throttled_total counter
tallerhub_login_throttled_total 1
`), "tallerhub_login_throttled_total"))
}

func TestClientLimiters_PrunesIdleClients(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c := &clientLimiters{
		clients: map[string]*client{},
		rate:    1,
		burst:   1,
		now:     func() time.Time { return now },
	}
	ok, _ := c.allow("a")
	assert.True(t, ok)

	now = now.Add(clientIdleTTL + time.Second)
	ok, _ = c.allow("b")
	assert.True(t, ok)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.NotContains(t, c.clients, "a")
	assert.Contains(t, c.clients, "b")
}
