// Package flat implements a brute-force exhaustive index: exact search
// with no graph or quantization, scored under an arbitrary
// metric.IndexMetric — the baseline every approximate index is
// measured for recall against.
//
// Grounded on pkg/search/vector_index.go (VectorIndex):
// same O(n) linear scan under a RWMutex, generalized from a
// cosine-only, string-keyed map to dense NodeIds and any
// metric.IndexMetric, and from "normalize + dot product" to the
// batched column-major kernel when the metric supports one.
package flat

import (
	"sync"

	"github.com/orneryd/annlite/annerr"
	"github.com/orneryd/annlite/container"
	"github.com/orneryd/annlite/metric"
)

// NodeId identifies a vector within one Index.
type NodeId uint32

// Index is an exact nearest-neighbor index over vectors of one fixed
// encoding/dimension, scored under a single metric.IndexMetric.
type Index struct {
	metric *metric.IndexMetric

	mu     sync.RWMutex
	ids    []NodeId
	blocks [][]byte // vectors, parallel to ids
	nextID NodeId
	byID   map[NodeId]int // id -> index into ids/blocks
}

// New creates an empty flat index scored under m.
func New(m *metric.IndexMetric) *Index {
	return &Index{metric: m, byID: make(map[NodeId]int)}
}

// Size returns the number of stored vectors.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// Add stores vec (already encoded in the index metric's encoding) and
// returns its assigned id.
func (idx *Index) Add(vec []byte) NodeId {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	id := idx.nextID
	idx.nextID++
	idx.byID[id] = len(idx.ids)
	idx.ids = append(idx.ids, id)
	idx.blocks = append(idx.blocks, vec)
	return id
}

// Get returns the raw encoded vector stored under id, for the
// read-side get_vector(key) contract of IndexProvider. The returned
// slice is the index's own backing array and must not be mutated by
// the caller.
func (idx *Index) Get(id NodeId) ([]byte, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	pos, ok := idx.byID[id]
	if !ok {
		return nil, false
	}
	return idx.blocks[pos], true
}

// Remove deletes a vector by id via swap-with-last, so Add/Remove stay
// O(1) amortized at the cost of id order not being insertion order.
func (idx *Index) Remove(id NodeId) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	pos, ok := idx.byID[id]
	if !ok {
		return annerr.New("flat.Remove", annerr.KindNoExist)
	}
	last := len(idx.ids) - 1
	idx.ids[pos] = idx.ids[last]
	idx.blocks[pos] = idx.blocks[last]
	idx.byID[idx.ids[pos]] = pos
	idx.ids = idx.ids[:last]
	idx.blocks = idx.blocks[:last]
	delete(idx.byID, id)
	return nil
}

// Search scans every stored vector and returns the k closest to
// query, using the metric's batched kernel when the metric supports
// one and the stored set is large enough to benefit, falling back to
// the scalar kernel per candidate otherwise (this: flat
// search has no candidate pruning, only kernel selection).
func (idx *Index) Search(query []byte, k int) []container.ScoredItem {
	idx.mu.RLock()
	ids := append([]NodeId{}, idx.ids...)
	blocks := append([][]byte{}, idx.blocks...)
	idx.mu.RUnlock()

	if len(ids) == 0 {
		return nil
	}

	top := container.NewBoundedHeap(k)
	if idx.metric.SupportsBatch() {
		idx.searchBatched(query, ids, blocks, top)
	} else {
		for i, id := range ids {
			top.Push(container.ScoredItem{ID: uint32(id), Score: idx.metric.Distance(query, blocks[i])})
		}
	}
	return top.Sorted()
}

func (idx *Index) searchBatched(query []byte, ids []NodeId, blocks [][]byte, top *container.BoundedHeap) {
	dim := idx.metric.Dim
	pos := 0
	for pos < len(ids) {
		width := bestBatchWidth(len(ids) - pos)
		if width == 1 {
			top.Push(container.ScoredItem{ID: uint32(ids[pos]), Score: idx.metric.Distance(query, blocks[pos])})
			pos++
			continue
		}
		chunk := blocks[pos : pos+width]
		block := metric.InterleaveColumnMajor(chunk, dim, width)
		scores := make([]float32, width)
		if err := idx.metric.DistanceBatch(query, block, width, scores); err != nil {
			for i := 0; i < width; i++ {
				top.Push(container.ScoredItem{ID: uint32(ids[pos+i]), Score: idx.metric.Distance(query, blocks[pos+i])})
			}
		} else {
			for i := 0; i < width; i++ {
				top.Push(container.ScoredItem{ID: uint32(ids[pos+i]), Score: scores[i]})
			}
		}
		pos += width
	}
}

// bestBatchWidth picks the largest registered batch width not
// exceeding remaining, or 1 if even the smallest width doesn't fit.
func bestBatchWidth(remaining int) int {
	best := 1
	for _, w := range metric.BatchWidths {
		if w <= remaining {
			best = w
		}
	}
	return best
}
