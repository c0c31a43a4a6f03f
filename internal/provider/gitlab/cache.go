package gitlab

import (
	"container/list"
	"sync"

	"github.com/gregjones/httpcache"
)

// DefaultCacheBytes caps the response cache when no size is configured.
const DefaultCacheBytes int64 = 32 << 20

var _ httpcache.Cache = (*lruCache)(nil)

// lruCache is an httpcache.Cache holding at most maxBytes of responses.
// The least recently used entries are evicted first, and a response larger
// than the whole budget is never stored.
type lruCache struct {
	mu       sync.Mutex
	maxBytes int64
	size     int64
	order    *list.List
	entries  map[string]*list.Element
}

type cacheEntry struct {
	key   string
	value []byte
}

func newLRUCache(maxBytes int64) *lruCache {
	if maxBytes <= 0 {
		maxBytes = DefaultCacheBytes
	}
	return &lruCache{
		maxBytes: maxBytes,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
	}
}

func (c *lruCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

func (c *lruCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.remove(key)
	if int64(len(value)) > c.maxBytes {
		return
	}

	c.entries[key] = c.order.PushFront(&cacheEntry{key: key, value: value})
	c.size += int64(len(value))

	for c.size > c.maxBytes {
		oldest := c.order.Back()
		c.remove(oldest.Value.(*cacheEntry).key)
	}
}

func (c *lruCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(key)
}

// remove drops key. Callers hold mu.
func (c *lruCache) remove(key string) {
	el, ok := c.entries[key]
	if !ok {
		return
	}
	c.order.Remove(el)
	delete(c.entries, key)
	c.size -= int64(len(el.Value.(*cacheEntry).value))
}

// stats reports the number of cached responses and their total size.
func (c *lruCache) stats() (entries int, bytes int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries), c.size
}
