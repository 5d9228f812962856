// Package cache memoizes class labels by feature vector.
package cache

import (
	"sync"
	"sync/atomic"

	"github.com/iris-ai/irisd/pkg/models"
)

// Cache maps a feature vector to a previously computed class label.
type Cache interface {
	// Get returns the cached label for f, if present.
	Get(f models.Features) (int, bool)
	// Put records the label for f.
	Put(f models.Features, label int)
}

// Memory is an unbounded in-process Cache. Entries live for the lifetime of
// the process and are never evicted, so memory grows with the number of
// distinct vectors seen. Safe for concurrent use.
type Memory struct {
	mu      sync.RWMutex
	entries map[models.Features]int
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemory returns an empty Memory cache.
func NewMemory() *Memory {
	return &Memory{entries: make(map[models.Features]int)}
}

// Get retrieves a cached label.
func (c *Memory) Get(f models.Features) (int, bool) {
	c.mu.RLock()
	label, ok := c.entries[f]
	c.mu.RUnlock()

	if !ok {
		c.misses.Add(1)
		return 0, false
	}
	c.hits.Add(1)
	return label, true
}

// Put stores a label, replacing any previous value for f.
func (c *Memory) Put(f models.Features, label int) {
	c.mu.Lock()
	c.entries[f] = label
	c.mu.Unlock()
}

// Len returns the number of cached vectors.
func (c *Memory) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns cache performance metrics.
func (c *Memory) Stats() models.CacheStats {
	return models.CacheStats{
		Entries: int64(c.Len()),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

var _ Cache = (*Memory)(nil)
