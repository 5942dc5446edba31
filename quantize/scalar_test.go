package quantize

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntropyQuantizer_INT8_UniformDistribution(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for _, count := range []int{1, 100, 1000, 10000} {
		data := make([]float32, count)
		var min, max float32 = 1e9, -1e9
		for i := range data {
			v := float32(1.0 + rng.Float64())
			data[i] = v
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}

		q := NewEntropyQuantizer(Width8, true)
		q.SetMax(max)
		q.SetMin(min)
		q.Feed(data)
		require.NoError(t, q.Train())

		encoded := q.Encode(data)
		decoded := q.Decode(encoded)

		var variance float32
		for i := range data {
			d := data[i] - decoded[i]
			variance += d * d
		}
		variance /= float32(count)
		assert.Less(t, variance, float32(0.01))
	}
}

func TestEntropyQuantizer_RequiresBoundsBeforeTrain(t *testing.T) {
	q := NewEntropyQuantizer(Width8, true)
	assert.Error(t, q.Train())
}

func TestEntropyQuantizer_INT4_RoundTripBounded(t *testing.T) {
	data := []float32{1.1, 1.5, 1.9, 1.2, 1.8}
	q := NewEntropyQuantizer(Width4, true)
	q.Feed(data)
	require.NoError(t, q.Train())

	encoded := q.Encode(data)
	for _, v := range encoded {
		assert.GreaterOrEqual(t, v, int8(-8))
		assert.LessOrEqual(t, v, int8(7))
	}
	decoded := q.Decode(encoded)
	for i := range data {
		assert.InDelta(t, data[i], decoded[i], 0.3)
	}
}

func TestEntropyQuantizer_NonBiasKeepsZeroExact(t *testing.T) {
	data := []float32{-3, -1, 0, 1, 3}
	q := NewEntropyQuantizer(Width8, true)
	q.SetNonBias(true)
	q.Feed(data)
	require.NoError(t, q.Train())
	assert.Equal(t, float32(0), q.Bias())
}
