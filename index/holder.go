package index

import (
	"sync"

	"github.com/orneryd/annlite/metric"
	"github.com/orneryd/annlite/quantize"
)

// Holder is the producer-side view of an index under construction
// (IndexHolder): it records every vector Emplace'd
// under its key in insertion order, independent of whatever Provider
// core eventually indexes them, so a caller can replay the whole set
// once with Iterate — the "IndexHolder.Iterator passes" a one-pass fit
// like quantize.Stats needs before the index itself is queryable.
//
// Holder keeps its own copy of each vector rather than reading back
// through a core's GetVector: hnsw_rabitq's core never retains raw
// vectors at all (GetVector always reports false), so a Holder fed
// alongside Context.Add is the only way such a core's training pass
// can see the data it's about to quantize.
type Holder struct {
	mu       sync.RWMutex
	dim      int
	encoding metric.Encoding
	ids      []uint32
	vectors  [][]byte
}

// NewHolder creates an empty Holder for vectors of the given dimension
// and wire encoding.
func NewHolder(dim int, encoding metric.Encoding) *Holder {
	return &Holder{dim: dim, encoding: encoding}
}

// Emplace appends vector under key, in whatever order callers insert.
// Holder never deduplicates or removes entries — it is a replay log
// of everything a Context ever added, not a live mirror of it.
func (h *Holder) Emplace(key uint32, vector []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ids = append(h.ids, key)
	h.vectors = append(h.vectors, vector)
	return nil
}

// Len reports how many vectors have been emplaced.
func (h *Holder) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.ids)
}

// Iterate replays every emplaced (key, vector) pair in insertion order,
// stopping early if fn returns false. This is the create_iterator
// analogue: a single forward pass over the producer-side data,
// used by quantizer fitting and dump rebuilding rather than by query
// paths (those go through Provider/Context instead).
func (h *Holder) Iterate(fn func(key uint32, vector []byte) bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for i := range h.ids {
		if !fn(h.ids[i], h.vectors[i]) {
			return
		}
	}
}

// FitQuantizerStats runs one Iterate pass over h, decoding each stored
// vector (FP32 encoding only, matching quantize's float32 sample
// contract) and feeding its elements into q. q should have TrackStats
// or explicit bounds configured before calling Train afterward; this
// only performs the feed pass.
func (h *Holder) FitQuantizerStats(q *quantize.EntropyQuantizer) {
	if h.encoding != metric.FP32 {
		return
	}
	h.Iterate(func(_ uint32, vector []byte) bool {
		q.Feed(decodeFP32(vector, h.dim))
		return true
	})
}
