package tags

import (
	"container/list"
	"sync"
	"time"
)

// classificationCache is an LRU cache with TTL for classification results.
// Classification is a pure function of the text, so results are shared
// across requests until they expire.
type classificationCache struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex

	entries map[string]*cacheEntry
	order   *list.List // front is most recently used
}

type cacheEntry struct {
	key       string
	value     Classification
	expiresAt time.Time
	element   *list.Element
}

func newClassificationCache(capacity int, ttl time.Duration) *classificationCache {
	if capacity <= 0 {
		capacity = 1000
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &classificationCache{
		capacity: capacity,
		ttl:      ttl,
		entries:  make(map[string]*cacheEntry),
		order:    list.New(),
	}
}

// Get returns a copy of the cached classification.
func (c *classificationCache) Get(key string) (*Classification, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.removeEntry(e)
		return nil, false
	}
	c.order.MoveToFront(e.element)
	value := e.value
	return &value, true
}

func (c *classificationCache) Set(key string, value *Classification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = *value
		e.expiresAt = time.Now().Add(c.ttl)
		c.order.MoveToFront(e.element)
		return
	}

	for len(c.entries) >= c.capacity {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.removeEntry(oldest.Value.(*cacheEntry))
	}

	e := &cacheEntry{key: key, value: *value, expiresAt: time.Now().Add(c.ttl)}
	e.element = c.order.PushFront(e)
	c.entries[key] = e
}

func (c *classificationCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// removeEntry must be called with the lock held.
func (c *classificationCache) removeEntry(e *cacheEntry) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}
