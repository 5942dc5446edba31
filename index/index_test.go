package index

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/annlite/metric"
)

func encodeFP32(vs []float32) []byte {
	out := make([]byte, len(vs)*4)
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func TestFactory_BuildsFlatAndHNSW(t *testing.T) {
	m, err := metric.New(metric.SquaredEuclidean, metric.FP32, 2, metric.Options{})
	require.NoError(t, err)

	f := NewFactory()
	flatP, err := f.Build(KindFlat, m)
	require.NoError(t, err)
	hnswP, err := f.Build(KindHNSW, m)
	require.NoError(t, err)

	for _, p := range []Provider{flatP, hnswP} {
		id, err := p.Add(encodeFP32([]float32{1, 2}))
		require.NoError(t, err)
		assert.Equal(t, 1, p.Size())
		results := p.Search(encodeFP32([]float32{1, 2}), 1)
		require.Len(t, results, 1)
		assert.Equal(t, id, results[0].ID)
	}
}

func TestFactory_BuildsHNSWRaBitQ(t *testing.T) {
	m, err := metric.New(metric.SquaredEuclidean, metric.FP32, 2, metric.Options{})
	require.NoError(t, err)

	f := NewFactory()
	p, err := f.Build(KindHNSWRaBitQ, m)
	require.NoError(t, err)

	id, err := p.Add(encodeFP32([]float32{1, 2}))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Size())
	results := p.Search(encodeFP32([]float32{1, 2}), 1)
	require.Len(t, results, 1)
	assert.Equal(t, id, results[0].ID)
}

func TestFactory_UnknownKindErrors(t *testing.T) {
	m, err := metric.New(metric.SquaredEuclidean, metric.FP32, 2, metric.Options{})
	require.NoError(t, err)
	f := NewFactory()
	_, err = f.Build(Kind("bogus"), m)
	assert.Error(t, err)
}

func TestScratchPool_ReusesBuffers(t *testing.T) {
	p := NewScratchPool(true)
	buf := p.GetScores(16)
	assert.Equal(t, 0, len(buf))
	assert.GreaterOrEqual(t, cap(buf), 16)
	p.PutScores(buf)
}

func TestScratchPool_DisabledAlwaysAllocates(t *testing.T) {
	p := NewScratchPool(false)
	buf := p.GetBytes(8)
	assert.Equal(t, 0, len(buf))
	assert.GreaterOrEqual(t, cap(buf), 8)
}

func TestThreads_RunBatchCompletesAllJobs(t *testing.T) {
	th := NewThreads(4)
	defer th.Close()

	results := make([]int, 10)
	th.RunBatch(10, func(i int) { results[i] = i * i })

	for i, r := range results {
		assert.Equal(t, i*i, r)
	}
}
