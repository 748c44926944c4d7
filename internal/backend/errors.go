package backend

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthorized indicates the backend rejected the session token.
	// Callers should treat it as a signal to re-authenticate rather than retry.
	ErrUnauthorized = errors.New("backend: unauthorized")
	// ErrUnavailable indicates the backend could not be reached at the
	// transport level.
	ErrUnavailable = errors.New("backend: unavailable")
)

// RateLimitError reports a 429 from the backend along with the
// Retry-After hint when one was supplied.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("backend: rate limited, retry after %s", e.RetryAfter)
	}
	return "backend: rate limited"
}

// APIError carries a non-2xx backend status that is not covered by a
// more specific error value.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend: status %d: %s", e.StatusCode, e.Message)
}

// IsRateLimited reports whether err is a rate-limit rejection.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
