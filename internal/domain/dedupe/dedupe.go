// Package dedupe tracks claimed (climber, route) keys so that at most one
// submission per pair can be in flight or persisted at a time.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records claimed keys.
type Deduper interface {
	// SeenAndRecord atomically checks if key was claimed and claims it if not.
	// Returns true if key was already claimed, false if it was newly claimed.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord releases a claim so the key can be submitted again.
	// Only used when a claimed submission failed to persist.
	Unrecord(ctx context.Context, key string)

	// Seed claims keys that are already persisted. Existing claims are kept.
	Seed(ctx context.Context, keys []string)

	Size() int64
}

// inMemoryDeduper is an unbounded claim set. Entries are never evicted:
// forgetting a persisted key would let a duplicate through.
type inMemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
	hint int
	size atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}
	for _, opt := range opts {
		opt(d)
	}
	if d.hint < 0 {
		d.hint = 0
	}
	d.seen = make(map[string]struct{}, d.hint)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

func (d *inMemoryDeduper) Seed(_ context.Context, keys []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, k := range keys {
		if _, exists := d.seen[k]; exists {
			continue
		}
		d.seen[k] = struct{}{}
		d.size.Add(1)
	}
}

// Size returns the current number of claimed keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
