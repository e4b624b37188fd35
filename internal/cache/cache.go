// Package cache is the bounded in-process store behind the job status channel.
package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultSize is used when a non-positive size is configured.
const DefaultSize = 4096

// Cache is an LRU string cache. It is safe for concurrent use; the least
// recently used key is evicted once Size entries are held.
type Cache struct {
	entries *lru.Cache
}

// New creates a cache holding at most size entries.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create status cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Set overwrites the value for key.
func (c *Cache) Set(key, value string) {
	c.entries.Add(key, value)
}

// Get returns the value for key, if it has not been evicted.
func (c *Cache) Get(key string) (string, bool) {
	v, ok := c.entries.Get(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.entries.Len()
}
