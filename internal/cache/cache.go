// Package cache holds rendered API responses in process memory so repeated
// requests skip both the persistent TTL cache and JSON encoding.
package cache

import "time"

// Cache stores serialized responses with a TTL.
type Cache interface {
	// Get returns the value and true if found and not expired.
	Get(key string) ([]byte, bool)

	// Set stores value under key. A TTL of 0 means the cache default.
	Set(key string, value []byte, ttl time.Duration)

	Delete(key string)

	// Clear removes all values.
	Clear()

	Stats() Stats
}

// Stats represents cache statistics.
type Stats struct {
	Hits      uint64
	Misses    uint64
	KeysAdded uint64
	Evictions uint64
	Size      int64 // approximate bytes held
	Items     int64
}

// Nop never stores anything. It is used when the response cache is disabled.
type Nop struct{}

func (Nop) Get(string) ([]byte, bool)          { return nil, false }
func (Nop) Set(string, []byte, time.Duration) {}
func (Nop) Delete(string)                     {}
func (Nop) Clear()                            {}
func (Nop) Stats() Stats                      { return Stats{} }
