package httpadapter

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

func TestMapError(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"invalid query", domain.WrapError(domain.ErrInvalidQuery, "classify", errors.New("empty")), http.StatusBadRequest, "invalid query, rephrase and retry"},
		{"card not found", domain.WrapError(domain.ErrCardNotFound, "get card", errors.New("c1")), http.StatusNotFound, "card not found"},
		{"job not found", domain.WrapError(domain.ErrJobNotFound, "get job", errors.New("j1")), http.StatusNotFound, "extraction job not found"},
		{"rate limit exceeded", domain.WrapError(domain.ErrRateLimitExceeded, "generate", errors.New("quota")), http.StatusTooManyRequests, "extraction provider rate limit reached, retry later"},
		{"rate limited", &domain.RateLimitError{}, http.StatusTooManyRequests, "extraction provider rate limit reached, retry later"},
		{"parse failure", domain.WrapError(domain.ErrParse, "parse", errors.New("bad json")), http.StatusBadGateway, "extraction produced unusable output"},
		{"validation failure", domain.WrapError(domain.ErrValidation, "validate", errors.New("unknown tag")), http.StatusBadGateway, "extraction produced unusable output"},
		{"backend down", domain.WrapError(domain.ErrSearchUnavailable, "text search", errors.New("refused")), http.StatusServiceUnavailable, "search backend unavailable, try again"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal error"},
	}

	for _, tc := range cases {
		status, msg := mapError(tc.err)
		if status != tc.wantStatus {
			t.Fatalf("%s: expected status %d, got %d", tc.name, tc.wantStatus, status)
		}
		if msg != tc.wantMsg {
			t.Fatalf("%s: expected message %q, got %q", tc.name, tc.wantMsg, msg)
		}
	}
}

func TestMapErrorNeverEchoesWrappedDetail(t *testing.T) {
	err := domain.WrapError(domain.ErrSearchUnavailable, "text search",
		errors.New("dial tcp 10.0.0.7:5432: connect: connection refused (dsn postgres://svc:hunter2@db/cards)"))

	_, msg := mapError(err)
	for _, leaked := range []string{"dial tcp", "hunter2", "postgres://", "10.0.0.7"} {
		if strings.Contains(msg, leaked) {
			t.Fatalf("user-facing message must not carry %q, got %q", leaked, msg)
		}
	}
}
