package rates

import (
	"context"
	"sync"
	"time"
)

// CachingSource memoizes Resolve results keyed by (date, currency code) so a
// batch with many records on the same day hits the external service once per
// pair. Concurrent lookups for the same key share one in-flight call instead
// of each going to the service. The cache is process-local and lives only for
// the run; failures are not cached, so a later call retries. Safe for
// concurrent use by the normalize worker pool.
type CachingSource struct {
	inner Source

	mu      sync.Mutex
	entries map[cacheKey]*cacheEntry
}

type cacheKey struct {
	day  string // yyyy-mm-dd
	code string
}

// cacheEntry holds one lookup's result; done is closed when rate and err are
// set and must not be read before then.
type cacheEntry struct {
	done chan struct{}
	rate float64
	err  error
}

// NewCachingSource wraps inner with a (date, currency) memo.
func NewCachingSource(inner Source) *CachingSource {
	return &CachingSource{
		inner:   inner,
		entries: make(map[cacheKey]*cacheEntry),
	}
}

// Resolve returns the cached rate when available. The first caller for a key
// performs the lookup; concurrent callers for the same key wait on its result.
func (c *CachingSource) Resolve(ctx context.Context, date time.Time, code string) (float64, error) {
	key := cacheKey{day: date.Format("2006-01-02"), code: code}

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-e.done:
		}
		return e.rate, e.err
	}

	e := &cacheEntry{done: make(chan struct{})}
	c.entries[key] = e
	c.mu.Unlock()

	e.rate, e.err = c.inner.Resolve(ctx, date, code)
	if e.err != nil {
		// Drop the entry so the next call retries; waiters on this
		// attempt still observe its error.
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
	}
	close(e.done)

	return e.rate, e.err
}
