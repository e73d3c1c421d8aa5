// Package ratelimit paces outbound calls to external services.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Pacer enforces a minimum delay between consecutive requests to the same
// external service. The listing API throttles clients that hammer it, so the
// inter-page delay is a correctness requirement, not an optimization.
type Pacer struct {
	mu       sync.Mutex
	lastCall map[string]time.Time // key: service name
	minDelay time.Duration
}

// NewPacer creates a Pacer that enforces minDelay between consecutive
// requests to the same service key.
func NewPacer(minDelay time.Duration) *Pacer {
	return &Pacer{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until enough time has passed since the last request to the
// given service. Returns an error if the context is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context, service string) error {
	p.mu.Lock()
	last, ok := p.lastCall[service]
	now := time.Now()

	if !ok {
		// First request for this service — no wait needed.
		p.lastCall[service] = now
		p.mu.Unlock()
		return nil
	}

	elapsed := now.Sub(last)
	if elapsed >= p.minDelay {
		p.lastCall[service] = now
		p.mu.Unlock()
		return nil
	}

	// Need to wait for the remainder.
	remaining := p.minDelay - elapsed
	p.mu.Unlock()

	select {
	case <-ctx.Done():
		return fmt.Errorf("pacer wait for %s: %w", service, ctx.Err())
	case <-time.After(remaining):
	}

	p.mu.Lock()
	p.lastCall[service] = time.Now()
	p.mu.Unlock()

	return nil
}
