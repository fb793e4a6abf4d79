package gbif

import (
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/invasive-risk-service/internal/domain"
	"github.com/couchcryptid/invasive-risk-service/internal/observability"
)

// Cached wraps an OccurrenceSearcher with an in-memory LRU cache. Successful
// lookups are cached; errors are not, so a transient upstream fault can be
// retried on the next request.
type Cached struct {
	inner   domain.OccurrenceSearcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCached creates a cache decorator around an occurrence searcher.
func NewCached(inner domain.OccurrenceSearcher, maxEntries int, metrics *observability.Metrics) *Cached {
	return &Cached{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *Cached) Search(ctx context.Context, scientificName string, box domain.BoundingBox) (domain.OccurrenceResult, error) {
	key := fmt.Sprintf("%s|%.4f,%.4f,%.4f,%.4f", scientificName, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon)
	if result, ok := c.cache.get(key); ok {
		c.metrics.OccurrenceCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.OccurrenceCache.WithLabelValues("miss").Inc()

	result, err := c.inner.Search(ctx, scientificName, box)
	if err != nil {
		return result, err
	}
	c.cache.put(key, result)
	return result, nil
}

var _ domain.OccurrenceSearcher = (*Cached)(nil)

// lruCache is a simple thread-safe LRU cache for occurrence results.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.OccurrenceResult
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.OccurrenceResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.OccurrenceResult{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.OccurrenceResult) {
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
