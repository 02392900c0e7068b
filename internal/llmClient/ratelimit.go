package llmclient

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitError is returned on HTTP 429. RetryAfter is zero when the
// provider did not say how long to wait.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Body       string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Provider, e.Body)
}

// retryAfterFromHeaders reads Retry-After (seconds) and falls back to the
// OpenAI-style x-ratelimit-reset-requests duration ("2s", "1m30s").
func retryAfterFromHeaders(h http.Header) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(h.Get("x-ratelimit-reset-requests")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return 0
}
