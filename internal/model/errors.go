package model

import (
	"errors"
	"fmt"
	"time"
)

// ErrVacancyNotFound is returned by store update methods when the target ID
// does not exist. Surfaced to callers as a per-record failure, never swallowed.
var ErrVacancyNotFound = errors.New("vacancy not found")

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
