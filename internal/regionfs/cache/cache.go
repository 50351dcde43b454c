// Package cache provides a bounded, concurrency-safe LRU cache of encoded
// chunk blobs keyed by absolute chunk coordinates, along with the hit/miss
// counters the benchmark reporter surfaces.
package cache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCapacity is used when a non-positive capacity is requested, mirroring
// the fallback the engine historically used for a misconfigured cache size.
const DefaultCapacity = 500

// Pos is the absolute chunk coordinate key used by the cache.
type Pos struct {
	X, Z int32
}

// ChunkCache is a bounded LRU cache of encoded (framed, compressed) chunk
// blobs, safe for concurrent use.
type ChunkCache struct {
	inner *lru.Cache[Pos, []byte]
	hits  atomic.Uint64
	miss  atomic.Uint64
}

// New creates a ChunkCache holding at most capacity entries.
func New(capacity int) (*ChunkCache, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	inner, err := lru.New[Pos, []byte](capacity)
	if err != nil {
		return nil, err
	}
	return &ChunkCache{inner: inner}, nil
}

// Get returns the cached blob for pos, recording a hit or miss.
func (c *ChunkCache) Get(pos Pos) ([]byte, bool) {
	blob, ok := c.inner.Get(pos)
	if ok {
		c.hits.Add(1)
	} else {
		c.miss.Add(1)
	}
	return blob, ok
}

// Put stores blob under pos, evicting the least recently used entry if the
// cache is at capacity.
func (c *ChunkCache) Put(pos Pos, blob []byte) {
	c.inner.Add(pos, blob)
}

// Remove evicts pos from the cache, if present.
func (c *ChunkCache) Remove(pos Pos) {
	c.inner.Remove(pos)
}

// Len returns the number of entries currently cached.
func (c *ChunkCache) Len() int {
	return c.inner.Len()
}

// Stats returns the cumulative hit and miss counts observed by Get.
func (c *ChunkCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.miss.Load()
}
