// Package cache provides a keyed in-memory store whose entries expire a
// fixed time after they were last written.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sipeed/cinebot/pkg/logger"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTL is a mutex-guarded map with write-armed expiry. Reads never extend an
// entry's lifetime. Expired entries behave as absent immediately and are
// physically removed by Sweep or by the next write to the same key.
type TTL[K comparable, V any] struct {
	ttl   time.Duration
	items map[K]entry[V]
	now   func() time.Time
	mu    sync.Mutex
}

// Option configures a TTL store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewTTL creates a store whose entries live ttl after their last write.
// ttl must be positive.
func NewTTL[K comparable, V any](ttl time.Duration, opts ...Option) *TTL[K, V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTL[K, V]{
		ttl:   ttl,
		items: make(map[K]entry[V]),
		now:   o.now,
	}
}

// TTL returns the configured lifetime.
func (c *TTL[K, V]) TTL() time.Duration { return c.ttl }

// Get returns the live value for key.
func (c *TTL[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(key)
}

func (c *TTL[K, V]) getLocked(key K) (V, bool) {
	e, ok := c.items[key]
	if !ok {
		var zero V
		return zero, false
	}
	if !c.now().Before(e.expiresAt) {
		delete(c.items, key)
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value and arms its expiry to now+ttl.
func (c *TTL[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// Update atomically replaces the value for key with fn(current, found) and
// re-arms its expiry. found is false when the key is absent or expired.
func (c *TTL[K, V]) Update(key K, fn func(current V, found bool) V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	current, found := c.getLocked(key)
	next := fn(current, found)
	c.items[key] = entry[V]{value: next, expiresAt: c.now().Add(c.ttl)}
	return next
}

// Delete removes key.
func (c *TTL[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

// Len counts live entries.
func (c *TTL[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for _, e := range c.items {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

// Sweep removes every expired entry and returns how many were removed.
func (c *TTL[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	removed := 0
	for k, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// Run sweeps every period until ctx is done.
func (c *TTL[K, V]) Run(ctx context.Context, name string, period time.Duration) {
	if period <= 0 {
		return
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.Sweep(); removed > 0 {
				logger.DebugCF("cache", "Swept expired entries", map[string]interface{}{
					"cache":   name,
					"removed": removed,
				})
			}
		}
	}
}
