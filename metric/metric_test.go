package metric

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/orneryd/annlite/numeric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeFP32(vs []float32) []byte {
	out := make([]byte, len(vs)*4)
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func TestNew_UnknownCombinationReturnsNoExist(t *testing.T) {
	_, err := New(Hamming, FP32, 8, Options{})
	require.Error(t, err)
}

func TestNew_RejectsBadAlignment(t *testing.T) {
	_, err := New(InnerProduct, INT4, 5, Options{})
	assert.Error(t, err)

	_, err = New(Hamming, BINARY32, 33, Options{})
	assert.Error(t, err)
}

func TestSquaredEuclideanFP32_Scalar(t *testing.T) {
	m, err := New(SquaredEuclidean, FP32, 3, Options{})
	require.NoError(t, err)

	a := encodeFP32([]float32{1, 2, 3})
	b := encodeFP32([]float32{4, 6, 3})
	got := m.Distance(a, b)
	assert.InDelta(t, float32(9+16+0), got, 1e-5)
}

func TestInnerProductFP32_Scalar(t *testing.T) {
	m, err := New(InnerProduct, FP32, 3, Options{})
	require.NoError(t, err)

	a := encodeFP32([]float32{1, 2, 3})
	b := encodeFP32([]float32{4, 5, 6})
	got := m.Distance(a, b)
	assert.InDelta(t, float32(4+10+18), got, 1e-5)

	neg, err := New(MinusInnerProduct, FP32, 3, Options{})
	require.NoError(t, err)
	assert.InDelta(t, -got, neg.Distance(a, b), 1e-5)
}

func TestCosine_NoBatchedKernel(t *testing.T) {
	m, err := New(Cosine, FP32, 4, Options{})
	require.NoError(t, err)
	assert.False(t, m.SupportsBatch())

	out := make([]float32, 1)
	err = m.DistanceBatch(nil, nil, 1, out)
	assert.Error(t, err)
}

func TestDistanceBatch_MatchesRepeatedScalar(t *testing.T) {
	dim := 4
	m, err := New(SquaredEuclidean, FP32, dim, Options{})
	require.NoError(t, err)
	require.True(t, m.SupportsBatch())

	query := encodeFP32([]float32{1, 2, 3, 4})
	candidates := [][]byte{
		encodeFP32([]float32{1, 1, 1, 1}),
		encodeFP32([]float32{0, 0, 0, 0}),
		encodeFP32([]float32{2, 2, 2, 2}),
		encodeFP32([]float32{5, 5, 5, 5}),
	}
	block := InterleaveColumnMajor(candidates, dim, 4)

	out := make([]float32, 4)
	require.NoError(t, m.DistanceBatch(query, block, 4, out))

	for i, c := range candidates {
		assert.InDelta(t, m.Distance(query, c), out[i], 1e-5)
	}
}

func TestDistanceBatch_RejectsUnregisteredWidth(t *testing.T) {
	m, err := New(SquaredEuclidean, FP32, 4, Options{})
	require.NoError(t, err)

	out := make([]float32, 3)
	err = m.DistanceBatch(nil, nil, 3, out)
	assert.Error(t, err)
}

func TestInt4Kernels_MatchScalarReference(t *testing.T) {
	m, err := New(SquaredEuclidean, INT4, 4, Options{})
	require.NoError(t, err)

	a := numeric.PackInt4([]int8{-2, -1, 0, 1})
	b := numeric.PackInt4([]int8{3, -3, 2, -2})
	want := float32(25 + 4 + 4 + 9)
	assert.InDelta(t, want, m.Distance(a, b), 1e-5)
}

func TestHandleCache_HitsOnRepeatedLookup(t *testing.T) {
	c := NewHandleCache(4)
	h1, err := c.GetOrNew(SquaredEuclidean, FP32, 8, Options{})
	require.NoError(t, err)
	h2, err := c.GetOrNew(SquaredEuclidean, FP32, 8, Options{})
	require.NoError(t, err)
	assert.Same(t, h1, h2)

	hits, misses := c.Stats()
	assert.Equal(t, uint64(1), hits)
	assert.Equal(t, uint64(1), misses)
}

func TestHandleCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewHandleCache(1)
	h1, err := c.GetOrNew(SquaredEuclidean, FP32, 4, Options{})
	require.NoError(t, err)
	_, err = c.GetOrNew(InnerProduct, FP32, 4, Options{})
	require.NoError(t, err)

	h1again, err := c.GetOrNew(SquaredEuclidean, FP32, 4, Options{})
	require.NoError(t, err)
	assert.NotSame(t, h1, h1again)
}

func TestMipsInjection_PreservesOrderingUnderInnerProduct(t *testing.T) {
	maxNormSq := 100.0
	q := []float32{1, 0}
	far := []float32{9, 0}
	near := []float32{3, 0}

	qi := append(append([]float32{}, q...), 0) // queries take 0 in the injected coordinate
	fi := InjectQuadratic(far, maxNormSq)
	ni := InjectQuadratic(near, maxNormSq)

	m, err := New(MipsSquaredEuclidean, FP32, 3, Options{})
	require.NoError(t, err)

	dFar := m.Distance(encodeFP32(qi), encodeFP32(fi))
	dNear := m.Distance(encodeFP32(qi), encodeFP32(ni))
	assert.Less(t, dFar, dNear)
}
