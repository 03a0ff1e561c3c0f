package cache

import (
	"sync"
	"sync/atomic"
	"time"
)

// MemoryCache is an in-process Cache backed by a sync.Map with a background
// janitor that evicts expired entries.
type MemoryCache struct {
	store  sync.Map
	hits   int64
	misses int64
	done   chan struct{}
	once   sync.Once
}

type memoryItem struct {
	value      []byte
	expiration time.Time
}

func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{done: make(chan struct{})}
	go c.janitor()
	return c
}

func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.store.Store(key, &memoryItem{
		value:      value,
		expiration: time.Now().Add(ttl),
	})
	return nil
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	v, ok := c.store.Load(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	item := v.(*memoryItem)
	if time.Now().After(item.expiration) {
		c.store.Delete(key)
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}

	atomic.AddInt64(&c.hits, 1)
	return item.value, true
}

func (c *MemoryCache) Delete(key string) error {
	c.store.Delete(key)
	return nil
}

func (c *MemoryCache) Clear() error {
	c.store.Range(func(key, _ interface{}) bool {
		c.store.Delete(key)
		return true
	})
	return nil
}

func (c *MemoryCache) Stats() map[string]interface{} {
	count := 0
	c.store.Range(func(_, _ interface{}) bool {
		count++
		return true
	})
	return map[string]interface{}{
		"backend": "memory",
		"entries": count,
		"hits":    atomic.LoadInt64(&c.hits),
		"misses":  atomic.LoadInt64(&c.misses),
	}
}

func (c *MemoryCache) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *MemoryCache) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			now := time.Now()
			c.store.Range(func(key, value interface{}) bool {
				if now.After(value.(*memoryItem).expiration) {
					c.store.Delete(key)
				}
				return true
			})
		}
	}
}
