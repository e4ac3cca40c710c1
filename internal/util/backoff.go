package util

import (
	"sync"
	"time"
)

// Backoff produces exponentially growing retry delays, doubling from an
// initial delay up to a fixed limit. Safe for concurrent use.
type Backoff struct {
	mu      sync.Mutex
	next    time.Duration
	initial time.Duration
	limit   time.Duration
}

// NewBackoff returns a backoff starting at initial and capped at limit.
func NewBackoff(initial, limit time.Duration) *Backoff {
	return &Backoff{
		next:    initial,
		initial: initial,
		limit:   limit,
	}
}

// Next returns the delay to wait before the next attempt and doubles the
// delay for the attempt after it.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	d := b.next
	b.next *= 2
	if b.next > b.limit {
		b.next = b.limit
	}
	return d
}

// Reset returns the delay sequence to its starting value.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = b.initial
}
