package ttlcache

import (
	"context"
	"encoding/json"
	"time"
)

// Codec converts a payload to and from the bytes stored in an entry's data
// field. Encode must produce valid JSON.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec is the default Codec.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v T) ([]byte, error) { return json.Marshal(v) }

func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var v T
	err := json.Unmarshal(data, &v)
	return v, err
}

// Typed is a view of a Cache for one payload type.
type Typed[T any] struct {
	cache *Cache
	codec Codec[T]
}

// NewTyped wraps c. A nil codec selects JSONCodec.
func NewTyped[T any](c *Cache, codec Codec[T]) *Typed[T] {
	if codec == nil {
		codec = JSONCodec[T]{}
	}
	return &Typed[T]{cache: c, codec: codec}
}

// Get decodes the entry under key. A payload that no longer decodes into T
// is treated like a corrupt entry.
func (t *Typed[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, ok := t.cache.Get(ctx, key)
	if !ok {
		return zero, false
	}
	v, err := t.codec.Decode(raw)
	if err != nil {
		t.cache.log.Warn("cached payload does not decode, discarding", "key", key, "error", err)
		t.cache.Remove(ctx, key)
		return zero, false
	}
	return v, true
}

// Set encodes v and stores it for ttl.
func (t *Typed[T]) Set(ctx context.Context, key string, v T, ttl time.Duration) {
	raw, err := t.codec.Encode(v)
	if err != nil {
		t.cache.log.Warn("payload does not encode, not caching", "key", key, "error", err)
		return
	}
	t.cache.Set(ctx, key, raw, ttl)
}

// Remove invalidates key.
func (t *Typed[T]) Remove(ctx context.Context, key string) { t.cache.Remove(ctx, key) }
