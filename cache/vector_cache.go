// Package cache implements a read-through decoded-vector cache built
// on github.com/dgraph-io/ristretto/v2: a cache sitting above
// bufferpool.Pool's block-level ref-counted pinning, in front of
// IndexProvider.GetVector, so repeated re-ranking or group-by lookups
// of the same key don't re-decode or re-fetch the same block.
//
// This is a different layer than the buffer pool's lock-free
// ref-counting (a block with a live acquire must never be evicted,
// which Ristretto's policy-driven eviction can't guarantee); VectorCache
// only ever holds already-decoded vector bytes behind a
// get_vector(key) call, never a pinned disk block.
package cache

import (
	"github.com/dgraph-io/ristretto/v2"
)

// Source is the minimal read-side a VectorCache wraps: anything that
// can answer get_vector(key) by dense NodeId, i.e. index.Provider.
type Source interface {
	GetVector(id uint32) ([]byte, bool)
}

// VectorCache wraps a Source with a bounded Ristretto cache keyed by
// NodeId, admitting entries by estimated byte cost so a cache sized
// for N megabytes holds roughly N megabytes of decoded vectors
// regardless of dimension.
type VectorCache struct {
	src   Source
	cache *ristretto.Cache[uint32, []byte]
}

// New wraps src with a cache budgeted at maxCostBytes total admitted
// cost (roughly total decoded-vector bytes retained).
func New(src Source, maxCostBytes int64) (*VectorCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[uint32, []byte]{
		NumCounters: maxCostBytes / 8, // one counter per 8 budget bytes: at least 10x the vectors that fit, for vectors of 80+ bytes
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &VectorCache{src: src, cache: c}, nil
}

// GetVector returns the cached vector for id if present, otherwise
// pulls it from the wrapped Source and admits it into the cache keyed
// by its own byte length as cost.
func (v *VectorCache) GetVector(id uint32) ([]byte, bool) {
	if vec, ok := v.cache.Get(id); ok {
		return vec, true
	}
	vec, ok := v.src.GetVector(id)
	if !ok {
		return nil, false
	}
	v.cache.Set(id, vec, int64(len(vec)))
	return vec, true
}

// Invalidate drops id from the cache, for use after Remove so a stale
// decoded copy doesn't outlive the underlying vector.
func (v *VectorCache) Invalidate(id uint32) {
	v.cache.Del(id)
}

// Close releases the cache's background goroutines.
func (v *VectorCache) Close() {
	v.cache.Close()
}
