package hnsw

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/annlite/container"
	"github.com/orneryd/annlite/metric"
)

func encodeFP32(vs []float32) []byte {
	out := make([]byte, len(vs)*4)
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func newTestGraph(t *testing.T) *Graph {
	t.Helper()
	m, err := metric.New(metric.SquaredEuclidean, metric.FP32, 2, metric.Options{})
	require.NoError(t, err)
	return New(m, Config{M: 4, M0: 8, EfConstruction: 32, EfSearch: 32})
}

func TestGraph_SearchFindsNearestAmongGrid(t *testing.T) {
	g := newTestGraph(t)

	points := [][2]float32{
		{0, 0}, {10, 0}, {0, 10}, {10, 10}, {5, 5}, {1, 1}, {9, 9}, {4, 6},
	}
	ids := make([]NodeId, len(points))
	for i, p := range points {
		id, err := g.Add(encodeFP32(p[:]))
		require.NoError(t, err)
		ids[i] = id
	}

	query := encodeFP32([]float32{0.9, 0.9})
	results := g.Search(query, 1)
	require.Len(t, results, 1)
	assert.Equal(t, uint32(ids[5]), results[0].ID) // {1,1} is nearest to {0.9,0.9}
}

func TestGraph_SizeTracksInsertsAndRemoves(t *testing.T) {
	g := newTestGraph(t)
	id1, _ := g.Add(encodeFP32([]float32{0, 0}))
	_, _ = g.Add(encodeFP32([]float32{1, 1}))
	assert.Equal(t, 2, g.Size())

	require.NoError(t, g.Remove(id1))
	assert.Equal(t, 1, g.Size())
}

func TestGraph_RemoveUnknownIDErrors(t *testing.T) {
	g := newTestGraph(t)
	err := g.Remove(NodeId(999))
	assert.Error(t, err)
}

func TestGraph_SearchOnEmptyGraphReturnsNil(t *testing.T) {
	g := newTestGraph(t)
	results := g.Search(encodeFP32([]float32{0, 0}), 5)
	assert.Nil(t, results)
}

func TestGraph_SearchReturnsAtMostK(t *testing.T) {
	g := newTestGraph(t)
	for i := 0; i < 20; i++ {
		_, err := g.Add(encodeFP32([]float32{float32(i), float32(i)}))
		require.NoError(t, err)
	}
	results := g.Search(encodeFP32([]float32{0, 0}), 5)
	assert.LessOrEqual(t, len(results), 5)
}

func TestGraph_SearchFilteredRejectsFilteredIDs(t *testing.T) {
	g := newTestGraph(t)
	var ids []NodeId
	for i := 0; i < 20; i++ {
		id, err := g.Add(encodeFP32([]float32{float32(i), float32(i)}))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	rejected := ids[0]
	results := g.SearchFiltered(encodeFP32([]float32{0, 0}), container.SearchOptions{
		K:      5,
		Filter: func(id uint32) bool { return NodeId(id) != rejected },
	})
	for _, r := range results {
		assert.NotEqual(t, uint32(rejected), r.ID)
	}
	assert.LessOrEqual(t, len(results), 5)
}

func TestGraph_SearchFilteredCapsPerGroup(t *testing.T) {
	g := newTestGraph(t)
	var ids []NodeId
	for i := 0; i < 20; i++ {
		id, err := g.Add(encodeFP32([]float32{float32(i), float32(i)}))
		require.NoError(t, err)
		ids = append(ids, id)
	}

	groupOf := func(id uint32) uint64 { return uint64(id) % 3 }
	results := g.SearchFiltered(encodeFP32([]float32{0, 0}), container.SearchOptions{
		K:         10,
		GroupBy:   groupOf,
		GroupNum:  2,
		GroupTopK: 2,
	})

	counts := map[uint64]int{}
	for _, r := range results {
		counts[groupOf(r.ID)]++
	}
	assert.LessOrEqual(t, len(counts), 2)
	for _, c := range counts {
		assert.LessOrEqual(t, c, 2)
	}
}
