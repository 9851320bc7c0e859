package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/majdjadalhaq/MovieValut/internal/config"
	"github.com/majdjadalhaq/MovieValut/internal/metrics"
)

// LRUCache is a size-bounded cache backed by ristretto. Expiry is checked on
// read; ristretto's own admission policy decides evictions.
type LRUCache struct {
	cache      *ristretto.Cache
	defaultTTL time.Duration
	name       string
	now        func() time.Time
	evicted    uint64
}

type cacheItem struct {
	data      []byte
	expiresAt time.Time
}

// NewLRU creates a cache bounded by maxSizeMB megabytes and roughly
// maxEntries items. name labels its metrics.
func NewLRU(name string, maxSizeMB, maxEntries int64, defaultTTL time.Duration) (*LRUCache, error) {
	// NumCounters should be ~10x the number of entries
	numCounters := maxEntries * 10
	if numCounters < 1000 {
		numCounters = 1000
	}
	maxCost := maxSizeMB * 1024 * 1024
	if maxCost <= 0 {
		maxCost = 1 << 10
	}

	rc, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}
	return &LRUCache{
		cache:      rc,
		defaultTTL: defaultTTL,
		name:       name,
		now:        time.Now,
	}, nil
}

// NewFromConfig returns the response cache described by cfg, or Nop when
// RESPONSE_CACHE_MB is zero.
func NewFromConfig(cfg *config.Config) (Cache, error) {
	if cfg.ResponseCacheMB <= 0 || cfg.ResponseCacheTTL <= 0 {
		return Nop{}, nil
	}
	return NewLRU("api_response", cfg.ResponseCacheMB, cfg.ResponseCacheEntries, cfg.ResponseCacheTTL)
}

func (c *LRUCache) Get(key string) ([]byte, bool) {
	val, found := c.cache.Get(key)
	if !found {
		metrics.APICacheMisses.WithLabelValues(c.name).Inc()
		return nil, false
	}
	item, ok := val.(*cacheItem)
	if !ok || c.now().After(item.expiresAt) {
		c.cache.Del(key)
		metrics.APICacheMisses.WithLabelValues(c.name).Inc()
		return nil, false
	}
	metrics.APICacheHits.WithLabelValues(c.name).Inc()
	return item.data, true
}

func (c *LRUCache) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	item := &cacheItem{data: value, expiresAt: c.now().Add(ttl)}
	// ristretto may reject the item; that only costs a future miss
	_ = c.cache.Set(key, item, int64(len(value)))
	c.cache.Wait()
	c.publish()
}

func (c *LRUCache) Delete(key string) {
	c.cache.Del(key)
}

func (c *LRUCache) Clear() {
	c.cache.Clear()
	c.publish()
}

func (c *LRUCache) Stats() Stats {
	m := c.cache.Metrics
	return Stats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		Evictions: m.KeysEvicted(),
		Size:      int64(m.CostAdded() - m.CostEvicted()),
		Items:     int64(m.KeysAdded() - m.KeysEvicted()),
	}
}

// publish mirrors ristretto's counters into the prometheus gauges.
func (c *LRUCache) publish() {
	s := c.Stats()
	metrics.APICacheSizeBytes.WithLabelValues(c.name).Set(float64(s.Size))
	metrics.APICacheItems.WithLabelValues(c.name).Set(float64(s.Items))
	if s.Evictions > c.evicted {
		metrics.APICacheEvictions.WithLabelValues(c.name).Add(float64(s.Evictions - c.evicted))
		c.evicted = s.Evictions
	}
}

// Close releases ristretto's goroutines.
func (c *LRUCache) Close() {
	c.cache.Close()
}
