package metric

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// HandleCache caches constructed IndexMetric handles keyed by
// (metric, encoding, dim, MIPS injection), so repeated lookups for
// the same combination (the common case: one search path reusing one
// metric across many queries) skip the dispatch-table lookup and
// kernel-closure allocation in New.
//
// Grounded on pkg/cache.QueryCache: an LRU list plus a
// map for O(1) lookup, hit/miss counters, bounded size. Unlike query
// plans, metric handles have no staleness concept, so there is no TTL
// here — only capacity-driven LRU eviction.
type HandleCache struct {
	mu      sync.Mutex
	maxSize int
	list    *list.List
	items   map[uint64]*list.Element

	hits   uint64
	misses uint64
}

type handleEntry struct {
	key    uint64
	handle *IndexMetric
}

// NewHandleCache creates a handle cache holding up to maxSize
// constructed metrics. maxSize <= 0 defaults to 64.
func NewHandleCache(maxSize int) *HandleCache {
	if maxSize <= 0 {
		maxSize = 64
	}
	return &HandleCache{
		maxSize: maxSize,
		list:    list.New(),
		items:   make(map[uint64]*list.Element, maxSize),
	}
}

// Key derives the cache key for a (metric, encoding, dim, options)
// combination using xxhash over its serialized fields. The metric
// name is written in full (not truncated) so distinct names never
// collide regardless of length.
func (c *HandleCache) Key(name Name, enc Encoding, dim int, opts Options) uint64 {
	buf := make([]byte, 0, len(name)+6)
	buf = append(buf, name...)
	buf = append(buf, 0) // separator, so "Cosine"+"\x01" can't collide with a name prefix
	buf = append(buf, byte(enc))
	buf = append(buf, byte(dim), byte(dim>>8), byte(dim>>16), byte(dim>>24))
	buf = append(buf, byte(opts.MipsInjection))
	return xxhash.Sum64(buf)
}

// GetOrNew returns the cached handle for (name, enc, dim, opts),
// constructing and inserting one via New on a miss.
func (c *HandleCache) GetOrNew(name Name, enc Encoding, dim int, opts Options) (*IndexMetric, error) {
	key := c.Key(name, enc, dim, opts)

	c.mu.Lock()
	if elem, ok := c.items[key]; ok {
		c.list.MoveToFront(elem)
		c.mu.Unlock()
		atomic.AddUint64(&c.hits, 1)
		return elem.Value.(*handleEntry).handle, nil
	}
	c.mu.Unlock()

	atomic.AddUint64(&c.misses, 1)
	handle, err := New(name, enc, dim, opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.list.MoveToFront(elem)
		return elem.Value.(*handleEntry).handle, nil
	}
	for c.list.Len() >= c.maxSize {
		oldest := c.list.Back()
		if oldest == nil {
			break
		}
		c.list.Remove(oldest)
		delete(c.items, oldest.Value.(*handleEntry).key)
	}
	elem := c.list.PushFront(&handleEntry{key: key, handle: handle})
	c.items[key] = elem
	return handle, nil
}

// Stats reports cumulative hit/miss counts.
func (c *HandleCache) Stats() (hits, misses uint64) {
	return atomic.LoadUint64(&c.hits), atomic.LoadUint64(&c.misses)
}

// Clear empties the cache.
func (c *HandleCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Init()
	c.items = make(map[uint64]*list.Element, c.maxSize)
}
