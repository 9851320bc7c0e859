package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/majdjadalhaq/MovieValut/internal/apierr"
	"github.com/majdjadalhaq/MovieValut/internal/cache"
	"github.com/majdjadalhaq/MovieValut/internal/logger"
	"github.com/majdjadalhaq/MovieValut/internal/ttlcache"
)

// CacheAdminHandler handles cache administration endpoints.
type CacheAdminHandler struct {
	store     *ttlcache.Cache
	responses cache.Cache
}

// NewCacheAdminHandler creates a new cache admin handler.
func NewCacheAdminHandler(store *ttlcache.Cache, responses cache.Cache) *CacheAdminHandler {
	if responses == nil {
		responses = cache.Nop{}
	}
	return &CacheAdminHandler{store: store, responses: responses}
}

func (h *CacheAdminHandler) storeAvailable(r *http.Request) bool {
	stats, err := h.store.CollectStats(r.Context())
	return err == nil && stats.StoreAvailable
}

// tracked reports whether key has a readable entry or an index slot, so that
// corrupt entries can still be removed.
func (h *CacheAdminHandler) tracked(r *http.Request, key string) bool {
	if _, ok := h.store.Peek(r.Context(), key); ok {
		return true
	}
	for _, k := range h.store.Keys(r.Context()) {
		if k == key {
			return true
		}
	}
	return false
}

// ClearCache wipes the persistent cache and the response cache.
// POST /api/admin/cache/clear
func (h *CacheAdminHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.responses.Clear()
	if !h.storeAvailable(r) {
		apierr.WriteErrorWithContext(w, r, apierr.CacheUnavailable())
		return
	}
	removed := h.store.ClearAll(r.Context())
	logger.WithRequestID(r.Context()).Info("cache cleared by admin", "removed", removed)

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"removed": removed,
	})
}

// DeleteEntry removes one entry by its unprefixed cache key.
// DELETE /api/admin/cache/entries?key=
func (h *CacheAdminHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	if key == "" {
		apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("key"))
		return
	}
	if !h.storeAvailable(r) {
		apierr.WriteErrorWithContext(w, r, apierr.CacheUnavailable())
		return
	}
	if !h.tracked(r, key) {
		apierr.WriteErrorWithContext(w, r, apierr.CacheKeyNotFound(key))
		return
	}
	h.store.Remove(r.Context(), key)
	// rendered responses may embed the entry
	h.responses.Clear()

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"key":    key,
	})
}

type entrySummary struct {
	Key       string    `json:"key"`
	StoredAt  time.Time `json:"storedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Expired   bool      `json:"expired"`
	Bytes     int       `json:"bytes"`
}

// ListEntries lists indexed entries with their age. Expired entries stay listed
// until read or cleared.
// GET /api/admin/cache/entries
func (h *CacheAdminHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	keys := h.store.Keys(r.Context())
	out := make([]entrySummary, 0, len(keys))
	for _, k := range keys {
		e, ok := h.store.Peek(r.Context(), k)
		if !ok {
			continue
		}
		out = append(out, entrySummary{
			Key:       k,
			StoredAt:  e.StoredAt(),
			ExpiresAt: e.ExpiresAt(),
			Expired:   e.Expired(now),
			Bytes:     len(e.Data),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": out})
}

// GetCacheStats returns current cache statistics.
// GET /api/admin/cache/stats
func (h *CacheAdminHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	store, err := h.store.CollectStats(r.Context())
	if err != nil {
		apierr.WriteErrorWithContext(w, r, apierr.SystemUnavailable("cache statistics unavailable"))
		return
	}
	resp := h.responses.Stats()

	writeJSON(w, http.StatusOK, map[string]any{
		"store": map[string]any{
			"backend":        store.StoreBackend,
			"available":      store.StoreAvailable,
			"indexedEntries": store.IndexedEntries,
			"defaultTtlMs":   h.store.DefaultTTL().Milliseconds(),
		},
		"responses": map[string]any{
			"hits":      resp.Hits,
			"misses":    resp.Misses,
			"keysAdded": resp.KeysAdded,
			"evictions": resp.Evictions,
			"sizeBytes": resp.Size,
			"items":     resp.Items,
		},
	})
}
