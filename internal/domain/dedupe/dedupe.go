// Package dedupe tracks submission idempotency tokens.
//
// A client that retries a timed-out submit must not double-append the
// ledger; the coordinator consults the deduper with the client-generated
// token before any write.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen submission tokens for at-most-once acceptance.
type Deduper interface {
	// SeenAndRecord atomically checks whether token was seen and records
	// it if not. Returns true if the token was already seen.
	SeenAndRecord(ctx context.Context, token string) bool

	// Unrecord forgets a token so the submission can be retried. Used
	// when a token was recorded but the write path failed afterwards.
	Unrecord(ctx context.Context, token string)

	// Size returns the number of tracked tokens.
	Size() int64
}

// tokenCache implements Deduper with a map plus a FIFO eviction ring so
// memory stays bounded under sustained traffic. Eviction drops the oldest
// token, which is the one least likely to still be retried.
type tokenCache struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string // FIFO ring of tokens in arrival order
	head    int      // index of the oldest live token in order
	maxSize int      // 0 or negative disables eviction
	size    atomic.Int64
}

// NewTokenCache creates a deduper with the given options.
func NewTokenCache(opts ...Option) Deduper {
	d := &tokenCache{
		maxSize: defaultMaxSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

func (d *tokenCache) SeenAndRecord(ctx context.Context, token string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[token]; ok {
		return true
	}

	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[token] = struct{}{}
	d.order = append(d.order, token)
	d.size.Add(1)
	return false
}

func (d *tokenCache) Unrecord(ctx context.Context, token string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[token]; !ok {
		return
	}
	delete(d.seen, token)
	d.size.Add(-1)
	// The stale order slot is skipped lazily during eviction.
}

// evictOldest drops the oldest still-live token. Must hold d.mu.
func (d *tokenCache) evictOldest() {
	for d.head < len(d.order) {
		token := d.order[d.head]
		d.head++
		if _, ok := d.seen[token]; ok {
			delete(d.seen, token)
			d.size.Add(-1)
			break
		}
	}
	// Compact once the dead prefix dominates the ring.
	if d.head > len(d.order)/2 {
		d.order = append([]string(nil), d.order[d.head:]...)
		d.head = 0
	}
}

func (d *tokenCache) Size() int64 {
	return d.size.Load()
}
