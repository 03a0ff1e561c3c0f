package cache

import "time"

// Cache is a byte-value cache with TTLs. Values are stored as raw bytes so
// the memory and Redis implementations are interchangeable.
type Cache interface {
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, bool)
	Delete(key string) error
	Clear() error
	Stats() map[string]interface{}
	Close() error
}
