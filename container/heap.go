package container

import (
	"container/heap"
	"math"
)

// ScoredItem is one entry in a BoundedHeap: an opaque id plus the
// distance/score it was ranked by.
type ScoredItem struct {
	ID    uint32
	Score float32
}

// innerHeap adapts []ScoredItem to container/heap. maxFirst selects
// between a max-heap (candidates' "largest first" pop order used by
// the result set) and a min-heap (used for the search frontier).
type innerHeap struct {
	items    []ScoredItem
	maxFirst bool
}

func (h innerHeap) Len() int { return len(h.items) }
func (h innerHeap) Less(i, j int) bool {
	if h.maxFirst {
		return h.items[i].Score > h.items[j].Score
	}
	return h.items[i].Score < h.items[j].Score
}
func (h innerHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *innerHeap) Push(x any)   { h.items = append(h.items, x.(ScoredItem)) }
func (h *innerHeap) Pop() any {
	old := h.items
	n := len(old)
	x := old[n-1]
	h.items = old[:n-1]
	return x
}

// BoundedHeap is a limit-capped heap that collapses transparently into
// a sorted result list, as: push/emplace
// evict the current worst entry once the heap is at capacity.
//
// By default BoundedHeap keeps the limit smallest scores (a min-problem
// max-heap: the root is the current worst/largest score, evicted first
// on overflow) which is what HNSW's topk result set and the flat
// index's candidate shortlist both want for a "smaller distance wins"
// metric.
type BoundedHeap struct {
	h     innerHeap
	limit int
}

// NewBoundedHeap creates a heap that retains at most limit entries,
// always keeping the limit lowest-scoring ones.
func NewBoundedHeap(limit int) *BoundedHeap {
	return &BoundedHeap{h: innerHeap{maxFirst: true}, limit: limit}
}

// Len returns the number of entries currently held.
func (b *BoundedHeap) Len() int { return b.h.Len() }

// Full reports whether the heap is at its limit.
func (b *BoundedHeap) Full() bool { return b.limit > 0 && b.h.Len() >= b.limit }

// Worst returns the current worst (largest) score held, or +Inf if
// empty. Callers use this to short-circuit candidate generation once
// a new candidate cannot possibly improve the result set.
func (b *BoundedHeap) Worst() float32 {
	if b.h.Len() == 0 {
		return float32(math.Inf(1))
	}
	return b.h.items[0].Score
}

// Push inserts item, evicting the current worst entry if the heap is
// already at its limit and item is better than that worst entry.
// Reports whether item was kept.
func (b *BoundedHeap) Push(item ScoredItem) bool {
	if b.limit <= 0 {
		heap.Push(&b.h, item)
		return true
	}
	if b.h.Len() < b.limit {
		heap.Push(&b.h, item)
		return true
	}
	if item.Score >= b.h.items[0].Score {
		return false
	}
	heap.Pop(&b.h)
	heap.Push(&b.h, item)
	return true
}

// Pop removes and returns the current worst entry.
func (b *BoundedHeap) Pop() (ScoredItem, bool) {
	if b.h.Len() == 0 {
		return ScoredItem{}, false
	}
	return heap.Pop(&b.h).(ScoredItem), true
}

// Reset empties the heap so it can be reused across queries without a
// fresh allocation (IndexContext reuses one per worker thread).
func (b *BoundedHeap) Reset() {
	b.h.items = b.h.items[:0]
}

// Sorted drains the heap into a slice ordered best-first (ascending
// score), matching the "push/pop/sort collapse transparently into
// sorted results" contract .
func (b *BoundedHeap) Sorted() []ScoredItem {
	out := make([]ScoredItem, b.h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&b.h).(ScoredItem)
	}
	return out
}

// MinHeap is the unbounded min-first counterpart used for the HNSW
// search frontier ("candidates" in this), where the
// smallest estimated distance must be expanded next.
type MinHeap struct {
	h innerHeap
}

// NewMinHeap creates an empty min-heap.
func NewMinHeap() *MinHeap { return &MinHeap{h: innerHeap{maxFirst: false}} }

func (m *MinHeap) Len() int { return m.h.Len() }

func (m *MinHeap) Push(item ScoredItem) { heap.Push(&m.h, item) }

func (m *MinHeap) Pop() (ScoredItem, bool) {
	if m.h.Len() == 0 {
		return ScoredItem{}, false
	}
	return heap.Pop(&m.h).(ScoredItem), true
}

// Peek returns the current minimum without removing it.
func (m *MinHeap) Peek() (ScoredItem, bool) {
	if m.h.Len() == 0 {
		return ScoredItem{}, false
	}
	return m.h.items[0], true
}

func (m *MinHeap) Reset() { m.h.items = m.h.items[:0] }
