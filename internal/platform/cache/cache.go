// Package cache provides an in-process key/value store with per-entry
// expiry, used to memoize read-heavy computations for a bounded window.
package cache

import (
	"context"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTTL applies when a caller passes a non-positive TTL.
	DefaultTTL = 5 * time.Minute

	// DefaultCleanupInterval is the sweep period used by the server.
	DefaultCleanupInterval = 10 * time.Minute

	// KeySeparator joins name:value pairs in GenerateKey.
	KeySeparator = "|"
)

// entry holds a cached value and its expiration time.
type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// expired reports whether the entry is stale at now. An entry stays valid
// through the exact expiry instant.
func (e entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Sets      int64 `json:"sets"`
	Evictions int64 `json:"evictions"`
}

// Cache is a thread-safe TTL cache. The zero value is not usable; call New.
type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[V]
	defaultTTL time.Duration
	now        func() time.Time
	logger     zerolog.Logger
	flight     singleflight.Group
	// gen counts removals; GetOrSet drops a result computed across one.
	gen atomic.Uint64

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	evictions atomic.Int64
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	defaultTTL time.Duration
	now        func() time.Time
	logger     zerolog.Logger
}

// WithDefaultTTL sets the TTL used when Set or GetOrSet receive ttl <= 0.
func WithDefaultTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.defaultTTL = d
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger attaches a logger used by the background sweeper.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates an empty cache.
func New[V any](opts ...Option) *Cache[V] {
	o := options{
		defaultTTL: DefaultTTL,
		now:        time.Now,
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		defaultTTL: o.defaultTTL,
		now:        o.now,
		logger:     o.logger,
	}
}

// DefaultTTL returns the TTL applied when callers omit one.
func (c *Cache[V]) DefaultTTL() time.Duration {
	return c.defaultTTL
}

// Set stores value under key, replacing any existing entry.
// A ttl <= 0 means the cache's default TTL.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	c.sets.Add(1)
}

// SetIfAbsent stores value under key unless a live entry is already there,
// and reports whether it stored. A ttl <= 0 means the default TTL.
func (c *Cache[V]) SetIfAbsent(key string, value V, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && !e.expired(now) {
		return false
	}
	c.entries[key] = entry[V]{value: value, expiresAt: now.Add(ttl)}
	c.sets.Add(1)
	return true
}

// Get returns the value for key if present and not expired. An expired
// entry is removed on the spot.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return zero, false
	}

	now := c.now()
	if e.expired(now) {
		c.mu.Lock()
		// Re-check under the write lock: a concurrent Set may have
		// replaced the entry in between.
		if cur, ok := c.entries[key]; ok && cur.expired(now) {
			delete(c.entries, key)
			c.evictions.Add(1)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return zero, false
	}

	c.hits.Add(1)
	return e.value, true
}

// Delete removes key. Unknown keys are ignored.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.gen.Add(1)
	c.mu.Unlock()
}

// Clear removes every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.gen.Add(1)
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones that
// have not been swept yet.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes every entry that has expired as of now and returns how
// many were removed.
func (c *Cache[V]) Cleanup() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			removed++
		}
	}
	c.evictions.Add(int64(removed))
	return removed
}

// StartCleanup runs Cleanup every interval in a background goroutine until
// ctx is cancelled.
func (c *Cache[V]) StartCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.logger.Debug().Msg("cache cleanup stopped")
				return
			case <-ticker.C:
				if n := c.Cleanup(); n > 0 {
					c.logger.Debug().Int("removed", n).Int("remaining", c.Len()).Msg("cache cleanup")
				}
			}
		}
	}()
}

// GetOrSet returns the cached value for key, or runs compute, stores its
// result for ttl and returns it. Concurrent callers missing on the same key
// wait for a single compute call and share its result. A compute error is
// returned to every waiting caller and nothing is stored.
//
// A result is not stored if Delete, Clear or InvalidatePattern ran while it
// was being computed. A caller that saw such a removal before joining an
// older compute starts a fresh one instead of taking the older result.
func (c *Cache[V]) GetOrSet(ctx context.Context, key string, compute func(ctx context.Context) (V, error), ttl time.Duration) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	gen := c.gen.Load()
	res, err := c.computeOnce(ctx, key, compute, ttl)
	if err == nil && res.gen < gen {
		c.flight.Forget(key)
		res, err = c.computeOnce(ctx, key, compute, ttl)
	}
	if err != nil {
		var zero V
		return zero, err
	}
	return res.value, nil
}

// flightResult carries a computed value and the removal generation it was
// computed under.
type flightResult[V any] struct {
	value V
	gen   uint64
}

func (c *Cache[V]) computeOnce(ctx context.Context, key string, compute func(ctx context.Context) (V, error), ttl time.Duration) (flightResult[V], error) {
	res, err, _ := c.flight.Do(key, func() (any, error) {
		gen := c.gen.Load()
		// Another flight for this key may have finished between our miss
		// and acquiring the flight slot.
		if v, ok := c.peek(key); ok {
			return flightResult[V]{value: v, gen: gen}, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.setIfUnchanged(key, v, ttl, gen)
		return flightResult[V]{value: v, gen: gen}, nil
	})
	if err != nil {
		return flightResult[V]{}, err
	}
	return res.(flightResult[V]), nil
}

// setIfUnchanged stores value only if no removal happened since gen.
func (c *Cache[V]) setIfUnchanged(key string, value V, ttl time.Duration, gen uint64) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen.Load() != gen {
		return
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
	c.sets.Add(1)
}

// peek reads without touching counters or evicting.
func (c *Cache[V]) peek(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || e.expired(c.now()) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// InvalidatePattern deletes every key matching pattern, where "*" matches
// any run of characters and everything else is literal. It returns the
// number of deleted keys.
func (c *Cache[V]) InvalidatePattern(pattern string) int {
	re := globToRegexp(pattern)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen.Add(1)

	removed := 0
	for k := range c.entries {
		if re.MatchString(k) {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

// Keys returns the current keys in lexical order.
func (c *Cache[V]) Keys() []string {
	c.mu.RLock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	return Stats{
		Entries:   c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Sets:      c.sets.Load(),
		Evictions: c.evictions.Load(),
	}
}

func globToRegexp(pattern string) *regexp.Regexp {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile("^" + strings.Join(parts, ".*") + "$")
}

// GenerateKey builds a deterministic key from prefix and params. Param
// names are sorted, so callers get the same key regardless of map or
// query-string ordering. Names and values are query-escaped, so ":", "|"
// and "*" inside them cannot make two param sets collide or act as a
// wildcard. The prefix is always followed by ":" so that "prefix:*"
// matches every key built from it.
func GenerateKey(prefix string, params map[string]string) string {
	if len(params) == 0 {
		return prefix + ":"
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, len(names))
	for i, name := range names {
		pairs[i] = url.QueryEscape(name) + ":" + url.QueryEscape(params[name])
	}
	return prefix + ":" + strings.Join(pairs, KeySeparator)
}
