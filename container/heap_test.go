package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundedHeap_KeepsLowestScores(t *testing.T) {
	h := NewBoundedHeap(3)
	for _, s := range []float32{5, 1, 9, 2, 8, 0.5} {
		h.Push(ScoredItem{ID: uint32(s * 10), Score: s})
	}
	require.Equal(t, 3, h.Len())

	sorted := h.Sorted()
	assert.Equal(t, float32(0.5), sorted[0].Score)
	assert.Equal(t, float32(1), sorted[1].Score)
	assert.Equal(t, float32(2), sorted[2].Score)
}

func TestBoundedHeap_RejectsWorseThanFull(t *testing.T) {
	h := NewBoundedHeap(2)
	assert.True(t, h.Push(ScoredItem{ID: 1, Score: 1}))
	assert.True(t, h.Push(ScoredItem{ID: 2, Score: 2}))
	assert.False(t, h.Push(ScoredItem{ID: 3, Score: 5}))
	assert.True(t, h.Push(ScoredItem{ID: 4, Score: 0.1}))
	assert.Equal(t, 2, h.Len())
}

func TestBoundedHeap_Unbounded(t *testing.T) {
	h := NewBoundedHeap(0)
	for i := 0; i < 100; i++ {
		h.Push(ScoredItem{ID: uint32(i), Score: float32(i)})
	}
	assert.Equal(t, 100, h.Len())
}

func TestMinHeap_PopsAscending(t *testing.T) {
	h := NewMinHeap()
	h.Push(ScoredItem{ID: 1, Score: 5})
	h.Push(ScoredItem{ID: 2, Score: 1})
	h.Push(ScoredItem{ID: 3, Score: 3})

	var order []float32
	for h.Len() > 0 {
		item, _ := h.Pop()
		order = append(order, item.Score)
	}
	assert.Equal(t, []float32{1, 3, 5}, order)
}
