package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/annlite/metric"
	"github.com/orneryd/annlite/quantize"
	"github.com/orneryd/annlite/storage"
)

func TestHolder_IterateReplaysInsertionOrder(t *testing.T) {
	h := NewHolder(2, metric.FP32)
	require.NoError(t, h.Emplace(1, encodeFP32([]float32{1, 1})))
	require.NoError(t, h.Emplace(2, encodeFP32([]float32{2, 2})))
	require.NoError(t, h.Emplace(3, encodeFP32([]float32{3, 3})))
	assert.Equal(t, 3, h.Len())

	var seen []uint32
	h.Iterate(func(key uint32, _ []byte) bool {
		seen = append(seen, key)
		return true
	})
	assert.Equal(t, []uint32{1, 2, 3}, seen)
}

func TestHolder_IterateStopsEarly(t *testing.T) {
	h := NewHolder(2, metric.FP32)
	require.NoError(t, h.Emplace(1, encodeFP32([]float32{1, 1})))
	require.NoError(t, h.Emplace(2, encodeFP32([]float32{2, 2})))

	count := 0
	h.Iterate(func(uint32, []byte) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestHolder_FitQuantizerStatsFeedsDecodedSamples(t *testing.T) {
	h := NewHolder(2, metric.FP32)
	require.NoError(t, h.Emplace(1, encodeFP32([]float32{-1, 1})))
	require.NoError(t, h.Emplace(2, encodeFP32([]float32{3, -3})))

	q := quantize.NewEntropyQuantizer(quantize.Width8, true)
	q.TrackStats(4)
	h.FitQuantizerStats(q)

	assert.EqualValues(t, 4, q.Stats().Count())
	assert.Equal(t, float32(-3), q.Stats().Min())
	assert.Equal(t, float32(3), q.Stats().Max())
	require.NoError(t, q.Train())
}

func TestContext_EnableHolderMirrorsAdds(t *testing.T) {
	meta := storage.IndexMeta{Dim: 2, Encoding: metric.FP32, Metric: metric.SquaredEuclidean}
	ctx, err := Open(meta, KindFlat, NewFactory(), 1, false)
	require.NoError(t, err)
	defer ctx.Close()

	h := ctx.EnableHolder()
	id, err := ctx.Add(encodeFP32([]float32{5, 6}))
	require.NoError(t, err)

	assert.Equal(t, 1, h.Len())
	var gotID uint32
	h.Iterate(func(key uint32, vector []byte) bool {
		gotID = key
		assert.Equal(t, encodeFP32([]float32{5, 6}), vector)
		return true
	})
	assert.Equal(t, id, gotID)
}
