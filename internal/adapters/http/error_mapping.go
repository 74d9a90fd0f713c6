package httpadapter

import (
	"net/http"

	"github.com/deckhaven/cardsearch/internal/core/domain"
)

// mapError translates the domain error taxonomy into a response code and a
// fixed user-facing message. The wrapped chain carries backend addresses and
// DSNs, so the raw error text never reaches the body; the detail stays in the
// server log. Provider-content failures (parse, validation) are upstream
// faults, hence 502 rather than 500.
func mapError(err error) (int, string) {
	switch {
	case domain.IsKind(err, domain.ErrInvalidQuery):
		return http.StatusBadRequest, "invalid query, rephrase and retry"
	case domain.IsKind(err, domain.ErrCardNotFound):
		return http.StatusNotFound, "card not found"
	case domain.IsKind(err, domain.ErrJobNotFound):
		return http.StatusNotFound, "extraction job not found"
	case domain.IsKind(err, domain.ErrRateLimitExceeded), domain.IsKind(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "extraction provider rate limit reached, retry later"
	case domain.IsKind(err, domain.ErrParse), domain.IsKind(err, domain.ErrValidation):
		return http.StatusBadGateway, "extraction produced unusable output"
	case domain.IsKind(err, domain.ErrSearchUnavailable):
		return http.StatusServiceUnavailable, "search backend unavailable, try again"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
