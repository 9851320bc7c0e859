// Package ttlcache keeps JSON payloads in a key-value store with a per-entry
// lifetime. Expiry is checked lazily on read; there is no background sweep.
package ttlcache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/logger"
	"github.com/majdjadalhaq/MovieValut/internal/metrics"
)

// Store is the subset of kvstore.Adapter the cache needs.
type Store interface {
	Available() bool
	Backend() string
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string) bool
	Remove(ctx context.Context, key string)
	Keys(ctx context.Context) []string
}

// Entry is the persisted record. Timestamp and TTL are in milliseconds.
type Entry struct {
	Timestamp int64           `json:"timestamp"`
	TTL       int64           `json:"ttl"`
	Data      json.RawMessage `json:"data"`
}

// Expired reports whether now is past the entry's lifetime. An entry exactly
// at its TTL is still valid.
func (e Entry) Expired(now time.Time) bool {
	return now.UnixMilli()-e.Timestamp > e.TTL
}

// StoredAt returns the write time.
func (e Entry) StoredAt() time.Time { return time.UnixMilli(e.Timestamp) }

// ExpiresAt returns the last instant at which the entry is served.
func (e Entry) ExpiresAt() time.Time { return time.UnixMilli(e.Timestamp + e.TTL) }

// Options configures a Cache. Zero values fall back to the defaults.
type Options struct {
	Prefix     string
	IndexKey   string
	DefaultTTL time.Duration
	Now        func() time.Time
}

// OptionsFromConfig maps application config onto cache options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Prefix:     cfg.CachePrefix,
		IndexKey:   cfg.CacheIndexKey,
		DefaultTTL: cfg.CacheTTL,
	}
}

// Cache is safe for concurrent use. Writes and deletes hold mu across the entry
// write and the index update so the index never loses a live key.
type Cache struct {
	store      Store
	prefix     string
	indexKey   string
	defaultTTL time.Duration
	now        func() time.Time
	log        *slog.Logger

	mu sync.Mutex
}

// New returns a cache over store.
func New(store Store, opts Options) *Cache {
	if opts.Prefix == "" {
		opts.Prefix = "movievault:cache:"
	}
	if opts.IndexKey == "" {
		opts.IndexKey = "movievault:cache-index"
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = config.DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Cache{
		store:      store,
		prefix:     opts.Prefix,
		indexKey:   opts.IndexKey,
		defaultTTL: opts.DefaultTTL,
		now:        opts.Now,
		log:        logger.WithComponent("ttlcache"),
	}
}

// DefaultTTL returns the lifetime applied when a caller passes ttl <= 0.
func (c *Cache) DefaultTTL() time.Duration { return c.defaultTTL }

// Prefix returns the store key prefix for entries.
func (c *Cache) Prefix() string { return c.prefix }

// Set stores data under key for ttl. Empty keys and an unavailable store are no-ops.
func (c *Cache) Set(ctx context.Context, key string, data json.RawMessage, ttl time.Duration) {
	if key == "" || !c.store.Available() {
		return
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	raw, err := json.Marshal(Entry{
		Timestamp: c.now().UnixMilli(),
		TTL:       ttl.Milliseconds(),
		Data:      data,
	})
	if err != nil {
		c.log.Warn("cache payload not serializable, skipping", "key", key, "error", err)
		return
	}

	// The index is written first: if the entry write then fails the index
	// holds a stale key, which readers tolerate, never a live key it omits.
	full := c.prefix + key
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.updateIndex(ctx, func(idx map[string]struct{}) { idx[full] = struct{}{} }) {
		c.log.Warn("cache index not writable, skipping entry", "key", key)
		return
	}
	if !c.store.Set(ctx, full, string(raw)) {
		return
	}
	metrics.CacheWrites.Inc()
}

// Get returns the payload stored under key. Corrupt and expired entries are
// deleted and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	if key == "" || !c.store.Available() {
		return nil, false
	}
	full := c.prefix + key
	raw, ok := c.store.Get(ctx, full)
	if !ok {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		c.log.Warn("discarding corrupt cache entry", "key", key, "error", err)
		metrics.CacheLookups.WithLabelValues("corrupt").Inc()
		c.discard(ctx, full, raw)
		return nil, false
	}
	if e.Expired(c.now()) {
		metrics.CacheLookups.WithLabelValues("expired").Inc()
		c.discard(ctx, full, raw)
		return nil, false
	}
	metrics.CacheLookups.WithLabelValues("hit").Inc()
	if e.Data == nil {
		return json.RawMessage("null"), true
	}
	return e.Data, true
}

// Peek returns the raw entry without checking expiry or deleting anything.
func (c *Cache) Peek(ctx context.Context, key string) (Entry, bool) {
	raw, ok := c.store.Get(ctx, c.prefix+key)
	if !ok {
		return Entry{}, false
	}
	var e Entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return Entry{}, false
	}
	return e, true
}

// Remove invalidates a single entry and its index slot.
func (c *Cache) Remove(ctx context.Context, key string) {
	if key == "" || !c.store.Available() {
		return
	}
	c.remove(ctx, c.prefix+key)
}

func (c *Cache) remove(ctx context.Context, full string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.Remove(ctx, full)
	c.updateIndex(ctx, func(idx map[string]struct{}) { delete(idx, full) })
}

// discard removes full only if it still holds seen. Get reads without the
// lock, so a Set may have replaced the entry since.
func (c *Cache) discard(ctx context.Context, full, seen string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.store.Get(ctx, full); ok && cur != seen {
		return
	}
	c.store.Remove(ctx, full)
	c.updateIndex(ctx, func(idx map[string]struct{}) { delete(idx, full) })
}

// ClearAll deletes every store key carrying the cache prefix, then the index.
// It scans the store rather than trusting the index, and is safe to repeat.
func (c *Cache) ClearAll(ctx context.Context) int {
	if !c.store.Available() {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.store.Keys(ctx) {
		if strings.HasPrefix(k, c.prefix) {
			c.store.Remove(ctx, k)
			n++
		}
	}
	c.store.Remove(ctx, c.indexKey)
	metrics.CacheClears.Inc()
	metrics.CacheIndexedEntries.Set(0)
	c.log.Info("cache cleared", "removed", n)
	return n
}

// Keys returns the unprefixed keys currently tracked by the index, sorted.
// The index may still list entries that have expired but not yet been read.
func (c *Cache) Keys(ctx context.Context) []string {
	if !c.store.Available() {
		return nil
	}
	c.mu.Lock()
	idx := c.readIndex(ctx)
	c.mu.Unlock()
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, strings.TrimPrefix(k, c.prefix))
	}
	sort.Strings(keys)
	return keys
}

// CollectStats implements metrics.StatsSource.
func (c *Cache) CollectStats(ctx context.Context) (metrics.CacheStats, error) {
	stats := metrics.CacheStats{
		StoreBackend:   c.store.Backend(),
		StoreAvailable: c.store.Available(),
	}
	if stats.StoreAvailable {
		c.mu.Lock()
		stats.IndexedEntries = len(c.readIndex(ctx))
		c.mu.Unlock()
	}
	return stats, ctx.Err()
}

// readIndex must be called with mu held. A corrupt index reads as empty.
func (c *Cache) readIndex(ctx context.Context) map[string]struct{} {
	idx := make(map[string]struct{})
	raw, ok := c.store.Get(ctx, c.indexKey)
	if !ok {
		return idx
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		c.log.Warn("cache index unreadable, rebuilding", "error", err)
		return idx
	}
	for _, k := range keys {
		idx[k] = struct{}{}
	}
	return idx
}

// updateIndex must be called with mu held. It reports whether the index was
// written.
func (c *Cache) updateIndex(ctx context.Context, mutate func(map[string]struct{})) bool {
	idx := c.readIndex(ctx)
	mutate(idx)
	keys := make([]string, 0, len(idx))
	for k := range idx {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	raw, err := json.Marshal(keys)
	if err != nil {
		return false
	}
	if !c.store.Set(ctx, c.indexKey, string(raw)) {
		return false
	}
	metrics.CacheIndexedEntries.Set(float64(len(keys)))
	return true
}
