package ollama

import (
	"net/http"
	"strconv"
	"testing"
	"time"
)

func TestInterpretRateLimitSignalRetryAfterSeconds(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "20")

	rl := interpretRateLimitSignal(h, time.Now())
	if rl.RetryAfter != 20*time.Second {
		t.Fatalf("expected 20s retry-after, got %s", rl.RetryAfter)
	}
	wait, ok := rl.WaitHint(time.Now())
	if !ok || wait != 20*time.Second {
		t.Fatalf("expected usable 20s hint, got %s ok=%v", wait, ok)
	}
}

func TestInterpretRateLimitSignalRetryAfterDate(t *testing.T) {
	now := time.Now()
	resetAt := now.Add(45 * time.Second).UTC()
	h := http.Header{}
	h.Set("Retry-After", resetAt.Format(http.TimeFormat))

	rl := interpretRateLimitSignal(h, now)
	if rl.ResetAt.IsZero() {
		t.Fatalf("expected reset time from HTTP date")
	}
	wait, ok := rl.WaitHint(now)
	if !ok || wait <= 0 || wait > 46*time.Second {
		t.Fatalf("expected wait close to 45s, got %s ok=%v", wait, ok)
	}
}

func TestInterpretRateLimitSignalResetHeader(t *testing.T) {
	now := time.Now()
	reset := now.Add(90 * time.Second).Unix()
	h := http.Header{}
	h.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))

	rl := interpretRateLimitSignal(h, now)
	wait, ok := rl.WaitHint(now)
	if !ok || wait <= 0 || wait > 91*time.Second {
		t.Fatalf("expected wait close to 90s, got %s ok=%v", wait, ok)
	}
}

func TestInterpretRateLimitSignalRetryAfterWinsOverReset(t *testing.T) {
	now := time.Now()
	h := http.Header{}
	h.Set("Retry-After", "10")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(time.Hour).Unix(), 10))

	rl := interpretRateLimitSignal(h, now)
	wait, ok := rl.WaitHint(now)
	if !ok || wait != 10*time.Second {
		t.Fatalf("Retry-After must take precedence, got %s ok=%v", wait, ok)
	}
}

func TestInterpretRateLimitSignalNoHeaders(t *testing.T) {
	rl := interpretRateLimitSignal(http.Header{}, time.Now())
	if _, ok := rl.WaitHint(time.Now()); ok {
		t.Fatalf("absent headers must yield no hint")
	}
}

func TestInterpretRateLimitSignalStaleReset(t *testing.T) {
	now := time.Now()
	h := http.Header{}
	h.Set("X-RateLimit-Reset", strconv.FormatInt(now.Add(-time.Minute).Unix(), 10))

	rl := interpretRateLimitSignal(h, now)
	if _, ok := rl.WaitHint(now); ok {
		t.Fatalf("a reset in the past must yield no hint")
	}
}
