// Package cache implements the two-tier TTL cache used by the resolver, the
// route planner and the nearby ranker. Values live in process memory and in a
// durable key-value store; durable entries survive restarts and are promoted
// to memory on first read.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tripreel/pkg/store"
	"tripreel/pkg/tracker"
)

// DefaultTTL applies when Set is called with a non-positive ttl.
const DefaultTTL = 6 * time.Hour

// envelope is the durable wire format: {"value": ..., "expiresAt": <unix ms>}.
type envelope struct {
	Value     json.RawMessage `json:"value"`
	ExpiresAt int64           `json:"expiresAt"`
}

type memEntry struct {
	value     json.RawMessage
	expiresAt int64
}

// Tiered is a memory tier in front of a durable store. Safe for concurrent use.
type Tiered struct {
	mu      sync.RWMutex
	mem     map[string]memEntry
	durable store.KVStore
	ttl     time.Duration
	now     func() time.Time
	tracker *tracker.Tracker
}

// Option configures a Tiered cache.
type Option func(*Tiered)

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(c *Tiered) { c.now = now }
}

// WithTracker records hits and misses per key family.
func WithTracker(t *tracker.Tracker) Option {
	return func(c *Tiered) { c.tracker = t }
}

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Tiered) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// New creates a Tiered cache. durable may be nil for a memory-only cache.
func New(durable store.KVStore, opts ...Option) *Tiered {
	c := &Tiered{
		mem:     make(map[string]memEntry),
		durable: durable,
		ttl:     DefaultTTL,
		now:     time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns the cached value for key if a valid entry exists in either tier.
// A value that cannot be decoded into T counts as a miss.
func Get[T any](ctx context.Context, c *Tiered, key string) (T, bool) {
	var zero T
	raw, ok := c.lookup(ctx, key)
	if !ok {
		return zero, false
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		slog.Debug("Cache value decode failed", "key", key, "error", err)
		return zero, false
	}
	return v, true
}

// Set stores v under key in both tiers. ttl <= 0 uses the default TTL.
// Durable failures are logged and swallowed.
func Set[T any](ctx context.Context, c *Tiered, key string, v T, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Debug("Cache value encode failed", "key", key, "error", err)
		return
	}
	c.store(ctx, key, raw, ttl)
}

func (c *Tiered) lookup(ctx context.Context, key string) (json.RawMessage, bool) {
	now := c.now().UnixMilli()
	family := keyFamily(key)

	c.mu.RLock()
	e, ok := c.mem[key]
	c.mu.RUnlock()
	if ok && !expired(e.expiresAt, now) {
		c.track(func(t *tracker.Tracker) { t.TrackMemoryHit(family) })
		return e.value, true
	}

	if c.durable == nil {
		c.track(func(t *tracker.Tracker) { t.TrackCacheMiss(family) })
		return nil, false
	}

	s, found, err := c.durable.Get(ctx, key)
	if err != nil {
		slog.Debug("Durable cache read failed", "key", key, "error", err)
	}
	if err != nil || !found {
		c.track(func(t *tracker.Tracker) { t.TrackCacheMiss(family) })
		return nil, false
	}

	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil || env.Value == nil {
		slog.Debug("Durable cache entry unreadable", "key", key, "error", err)
		c.track(func(t *tracker.Tracker) { t.TrackCacheMiss(family) })
		return nil, false
	}
	if expired(env.ExpiresAt, now) {
		c.track(func(t *tracker.Tracker) { t.TrackCacheMiss(family) })
		return nil, false
	}

	c.mu.Lock()
	c.mem[key] = memEntry{value: env.Value, expiresAt: env.ExpiresAt}
	c.mu.Unlock()

	c.track(func(t *tracker.Tracker) { t.TrackDurableHit(family) })
	return env.Value, true
}

func (c *Tiered) store(ctx context.Context, key string, raw json.RawMessage, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	expiresAt := c.now().Add(ttl).UnixMilli()

	c.mu.Lock()
	c.mem[key] = memEntry{value: raw, expiresAt: expiresAt}
	c.mu.Unlock()

	if c.durable == nil {
		return
	}
	data, err := json.Marshal(envelope{Value: raw, ExpiresAt: expiresAt})
	if err != nil {
		slog.Debug("Cache envelope encode failed", "key", key, "error", err)
		return
	}
	if err := c.durable.Set(ctx, key, string(data)); err != nil {
		slog.Debug("Durable cache write failed", "key", key, "error", err)
	}
}

// Len returns the number of entries in the memory tier, expired ones included.
func (c *Tiered) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.mem)
}

func (c *Tiered) track(fn func(*tracker.Tracker)) {
	if c.tracker != nil {
		fn(c.tracker)
	}
}

// expired is strict: an entry is still valid at exactly its expiry instant.
func expired(expiresAt, now int64) bool {
	return now > expiresAt
}

// keyFamily groups keys for statistics: "directions:2:..." -> "directions".
func keyFamily(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return key
}
