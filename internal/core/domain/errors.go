package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidQuery      = errors.New("invalid query")
	ErrSearchUnavailable = errors.New("search backend unavailable")
	ErrRateLimited       = errors.New("rate limited")
	ErrRateLimitExceeded = errors.New("rate limit retries exceeded")
	ErrParse             = errors.New("malformed extraction output")
	ErrValidation        = errors.New("extracted tag not in taxonomy")
	ErrCardNotFound      = errors.New("card not found")
	ErrJobNotFound       = errors.New("extraction job not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// RateLimitError carries the provider's wait hint. Either RetryAfter or
// ResetAt may be zero when the provider did not say.
type RateLimitError struct {
	RetryAfter time.Duration
	ResetAt    time.Time
}

func (e *RateLimitError) Error() string {
	switch {
	case e == nil:
		return "rate limited"
	case e.RetryAfter > 0:
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	case !e.ResetAt.IsZero():
		return fmt.Sprintf("rate limited until %s", e.ResetAt.Format(time.RFC3339))
	default:
		return "rate limited"
	}
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// WaitHint converts the provider signal into a wait duration relative to now.
// Returns false when the provider gave no usable hint.
func (e *RateLimitError) WaitHint(now time.Time) (time.Duration, bool) {
	if e == nil {
		return 0, false
	}
	if e.RetryAfter > 0 {
		return e.RetryAfter, true
	}
	if !e.ResetAt.IsZero() {
		if wait := e.ResetAt.Sub(now); wait > 0 {
			return wait, true
		}
	}
	return 0, false
}
