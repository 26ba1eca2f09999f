// Package cache remembers where each acquired photo URL was stored so a
// URL is fetched at most once per process.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

// entry holds a stored path with its creation timestamp.
type entry struct {
	path      string
	createdAt time.Time
}

// Cache is an in-memory URL → local path index.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache holding at most maxEntries paths, each for at most
// ttl. A ttl of zero keeps entries until they are evicted for space.
// When ttl is set, a background goroutine evicts expired entries until
// Stop is called.
func New(maxEntries int, ttl time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		stop:       make(chan struct{}),
	}
	if ttl > 0 {
		go c.cleanupLoop(ttl)
	}
	return c
}

// Key derives the index key for a photo URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Get returns the path stored for key if it has not expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return "", false
	}
	if c.ttl > 0 && time.Since(e.createdAt) > c.ttl {
		return "", false
	}
	return e.path, true
}

// Set stores a path. If the cache is at capacity, a random entry is
// evicted to make room.
func (c *Cache) Set(key, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && c.maxEntries > 0 && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		path:      path,
		createdAt: time.Now(),
	}
}

// Delete drops key, for example when its file has disappeared.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	delete(c.store, key)
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// cleanupLoop evicts expired entries every ttl.
func (c *Cache) cleanupLoop(ttl time.Duration) {
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.evictBefore(time.Now().Add(-ttl))
		}
	}
}

func (c *Cache) evictBefore(cutoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
