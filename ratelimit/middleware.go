package ratelimit

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

/* HTTP integration: identity extraction, rate limit headers, and the
 * 429 error body handlers must emit on rejection
 */

// errorBody is the structured 429 response
type errorBody struct {
	Error      string `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

/* Identifier derives the request identity: first entry of X-Forwarded-For,
 * then X-Real-IP, then the "unknown" sentinel. Never fails to produce a key.
 */
func Identifier(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if first, _, ok := strings.Cut(forwarded, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(forwarded)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return "unknown"
}

// Middleware enforces the given policy per (identity, route path).
// Allowed requests carry X-RateLimit-* headers on the normal response;
// rejected ones short-circuit with 429 and retry guidance.
func Middleware(limiter *Limiter, cfg Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result := limiter.Check(Identifier(r), r.URL.Path, cfg)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset, 10))

			if !result.Success {
				retryAfter := result.RetryAfter(time.Now())
				w.Header().Set("X-RateLimit-Remaining", "0")
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(errorBody{
					Error:      "Too many requests",
					Message:    "Rate limit exceeded. Please try again later.",
					RetryAfter: retryAfter,
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
