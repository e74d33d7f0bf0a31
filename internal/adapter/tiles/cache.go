package tiles

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/paulmach/orb/maptile"

	"github.com/jbakerGIS/maine-wildfire-analysis/internal/observability"
)

// CachedFetcher wraps a Fetcher with an in-memory LRU cache. The overlay
// renderer revisits tiles when figures share an extent, and basemap servers
// rate-limit aggressively.
type CachedFetcher struct {
	inner   Fetcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedFetcher creates a cache decorator around a tile fetcher.
// metrics may be nil.
func NewCachedFetcher(inner Fetcher, maxEntries int, metrics *observability.Metrics) *CachedFetcher {
	return &CachedFetcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedFetcher) Tile(ctx context.Context, t maptile.Tile) (image.Image, error) {
	key := fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
	if img, ok := c.cache.get(key); ok {
		c.count("hit")
		return img, nil
	}
	c.count("miss")

	img, err := c.inner.Tile(ctx, t)
	if err != nil {
		return nil, err
	}
	c.cache.put(key, img)
	return img, nil
}

func (c *CachedFetcher) count(result string) {
	if c.metrics != nil {
		c.metrics.TileCache.WithLabelValues(result).Inc()
	}
}

// lruCache is a simple thread-safe LRU cache for decoded tiles.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value image.Image
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (image.Image, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
