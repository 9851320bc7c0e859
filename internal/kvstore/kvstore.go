// Package kvstore is a best-effort string key-value store. Backend failures
// are logged and counted, never returned: a broken store degrades the cache to
// pass-through instead of failing requests.
package kvstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/majdjadalhaq/MovieValut/internal/logger"
	"github.com/majdjadalhaq/MovieValut/internal/metrics"
)

// ErrQuotaExceeded is returned by backends that enforce a size budget.
var ErrQuotaExceeded = errors.New("kvstore: quota exceeded")

// Backend is a raw persistent store. Get reports absence with ok=false and a nil error.
type Backend interface {
	Name() string
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

const probePrefix = "__kvstore_probe__:"

// Adapter wraps a Backend and never surfaces its errors.
type Adapter struct {
	backend   Backend
	available bool
	log       *slog.Logger
}

// New probes b with a throwaway write and delete. If either fails the adapter
// is permanently disabled and every operation becomes a no-op.
func New(ctx context.Context, b Backend) *Adapter {
	a := &Adapter{backend: b, log: logger.WithComponent("kvstore").With("backend", b.Name())}
	probe := probePrefix + uuid.NewString()
	if err := b.Set(ctx, probe, "1"); err != nil {
		a.log.Warn("store unavailable, caching disabled", "error", err)
		metrics.StoreAvailable.WithLabelValues(b.Name()).Set(0)
		return a
	}
	if err := b.Delete(ctx, probe); err != nil {
		a.log.Warn("store unavailable, caching disabled", "error", err)
		metrics.StoreAvailable.WithLabelValues(b.Name()).Set(0)
		return a
	}
	a.available = true
	metrics.StoreAvailable.WithLabelValues(b.Name()).Set(1)
	return a
}

// Available reports the probe result.
func (a *Adapter) Available() bool { return a != nil && a.available }

// Backend returns the backend name.
func (a *Adapter) Backend() string { return a.backend.Name() }

// Get returns the stored value. Errors are reported as a miss.
func (a *Adapter) Get(ctx context.Context, key string) (string, bool) {
	if !a.Available() {
		return "", false
	}
	v, ok, err := a.backend.Get(ctx, key)
	if err != nil {
		a.fail("get", key, err)
		return "", false
	}
	return v, ok
}

// Set stores value under key and reports whether it was written. Failures
// are logged and swallowed.
func (a *Adapter) Set(ctx context.Context, key, value string) bool {
	if !a.Available() {
		return false
	}
	if err := a.backend.Set(ctx, key, value); err != nil {
		a.fail("set", key, err)
		return false
	}
	return true
}

// Remove deletes key. Removing an absent key is not an error.
func (a *Adapter) Remove(ctx context.Context, key string) {
	if !a.Available() {
		return
	}
	if err := a.backend.Delete(ctx, key); err != nil {
		a.fail("delete", key, err)
	}
}

// Keys lists every key in the store, or nothing if listing fails.
func (a *Adapter) Keys(ctx context.Context) []string {
	if !a.Available() {
		return nil
	}
	keys, err := a.backend.Keys(ctx)
	if err != nil {
		a.fail("keys", "", err)
		return nil
	}
	return keys
}

// Close releases the backend.
func (a *Adapter) Close() error {
	if a == nil || a.backend == nil {
		return nil
	}
	return a.backend.Close()
}

func (a *Adapter) fail(op, key string, err error) {
	metrics.StoreErrors.WithLabelValues(a.backend.Name(), op).Inc()
	a.log.Warn("store operation failed", "op", op, "key", key, "error", err)
}
