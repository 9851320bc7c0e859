package metrics

import (
	"context"
	"log/slog"
	"time"
)

// CacheStats is a point-in-time snapshot of the persistent cache.
type CacheStats struct {
	IndexedEntries int
	StoreBackend   string
	StoreAvailable bool
}

// StatsSource is implemented by the TTL cache.
type StatsSource interface {
	CollectStats(ctx context.Context) (CacheStats, error)
}

// Collector periodically collects and updates Prometheus metrics
type Collector struct {
	source   StatsSource
	interval time.Duration
	stop     chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(source StatsSource, interval time.Duration) *Collector {
	return &Collector{
		source:   source,
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collectCacheStats(ctx)

	for {
		select {
		case <-ticker.C:
			c.collectCacheStats(ctx)
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	close(c.stop)
}

func (c *Collector) collectCacheStats(ctx context.Context) {
	stats, err := c.source.CollectStats(ctx)
	if err != nil {
		slog.Warn("error collecting cache stats", "error", err)
		MetricsCollectionErrors.WithLabelValues("ttlcache").Inc()
		CacheIndexedEntries.Set(-1) // signal stale data
		return
	}
	CacheIndexedEntries.Set(float64(stats.IndexedEntries))
	avail := 0.0
	if stats.StoreAvailable {
		avail = 1
	}
	StoreAvailable.WithLabelValues(stats.StoreBackend).Set(avail)
}
