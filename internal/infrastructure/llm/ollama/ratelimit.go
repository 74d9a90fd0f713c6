package ollama

import (
	"net/http"
	"strconv"
	"time"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// interpretRateLimitSignal converts provider 429 metadata into a wait hint.
// Precedence: Retry-After in seconds, Retry-After as an HTTP date, then
// X-RateLimit-Reset as a unix timestamp. Absent headers leave both hint
// fields zero and the caller falls back to its default wait.
func interpretRateLimitSignal(h http.Header, now time.Time) *domain.RateLimitError {
	rl := &domain.RateLimitError{}

	if v := h.Get("Retry-After"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds >= 0 {
			rl.RetryAfter = time.Duration(seconds) * time.Second
			return rl
		}
		if at, err := http.ParseTime(v); err == nil {
			rl.ResetAt = at
			return rl
		}
	}

	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if unix, err := strconv.ParseInt(v, 10, 64); err == nil && unix > now.Unix() {
			rl.ResetAt = time.Unix(unix, 0)
		}
	}
	return rl
}
