package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentifier(t *testing.T) {
	t.Run("first forwarded entry wins", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1, 10.0.0.2")
		r.Header.Set("X-Real-IP", "198.51.100.1")
		assert.Equal(t, "203.0.113.9", Identifier(r))
	})

	t.Run("single forwarded entry", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-For", " 203.0.113.9 ")
		assert.Equal(t, "203.0.113.9", Identifier(r))
	})

	t.Run("falls back to real ip", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Real-IP", "198.51.100.1")
		assert.Equal(t, "198.51.100.1", Identifier(r))
	})

	t.Run("unknown when no headers", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Equal(t, "unknown", Identifier(r))
	})
}

func TestMiddleware(t *testing.T) {
	cfg := Config{Window: time.Minute, MaxRequests: 2}

	handler := func(limiter *Limiter) http.Handler {
		return Middleware(limiter, cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
	}

	do := func(h http.Handler, ip string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/v1/things", nil)
		r.Header.Set("X-Real-IP", ip)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, r)
		return w
	}

	t.Run("allowed requests carry rate limit headers", func(t *testing.T) {
		l, _ := newTestLimiter(time.Now())
		h := handler(l)

		w := do(h, "1.1.1.1")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))

		reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
		require.NoError(t, err)
		assert.Greater(t, reset, time.Now().UnixMilli())
	})

	t.Run("rejection returns 429 with retry guidance", func(t *testing.T) {
		l, _ := newTestLimiter(time.Now())
		h := handler(l)

		do(h, "2.2.2.2")
		do(h, "2.2.2.2")
		w := do(h, "2.2.2.2")

		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var body struct {
			Error      string `json:"error"`
			Message    string `json:"message"`
			RetryAfter int    `json:"retryAfter"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "Too many requests", body.Error)
		assert.Equal(t, "Rate limit exceeded. Please try again later.", body.Message)
		assert.GreaterOrEqual(t, body.RetryAfter, 1)
	})

	t.Run("identities are limited independently", func(t *testing.T) {
		l, _ := newTestLimiter(time.Now())
		h := handler(l)

		do(h, "3.3.3.3")
		do(h, "3.3.3.3")
		assert.Equal(t, http.StatusTooManyRequests, do(h, "3.3.3.3").Code)
		assert.Equal(t, http.StatusOK, do(h, "4.4.4.4").Code)
	})
}
