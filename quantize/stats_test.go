package quantize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStats_MeanAndVarianceOnKnownInput(t *testing.T) {
	s := NewStats(0)
	s.Feed([]float32{2, 4, 4, 4, 5, 5, 7, 9})

	assert.EqualValues(t, 8, s.Count())
	assert.InDelta(t, 5.0, s.Mean(), 1e-6)
	assert.InDelta(t, 4.0, s.Variance(), 1e-6)
	assert.Equal(t, float32(2), s.Min())
	assert.Equal(t, float32(9), s.Max())
}

func TestStats_HistogramBucketsSpanMinMax(t *testing.T) {
	s := NewStats(4)
	s.Feed([]float32{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	hist := s.Histogram()
	assert.Len(t, hist, 4)

	var total uint64
	for _, c := range hist {
		total += c
	}
	assert.EqualValues(t, s.Count(), total)
}

func TestStats_HistogramNilWhenDisabled(t *testing.T) {
	s := NewStats(0)
	s.Feed([]float32{1, 2, 3})
	assert.Nil(t, s.Histogram())
}

func TestStats_ConstantInputHasZeroVariance(t *testing.T) {
	s := NewStats(0)
	s.Feed([]float32{3, 3, 3, 3})
	assert.InDelta(t, 0, s.Variance(), 1e-9)
	assert.InDelta(t, 3, s.Mean(), 1e-9)
}

func TestEntropyQuantizer_TrackStatsAccumulatesAlongsideFeed(t *testing.T) {
	q := NewEntropyQuantizer(Width8, true)
	q.TrackStats(8)
	q.Feed([]float32{-1, 0, 1, 2, 3})
	st := q.Stats()
	assert.EqualValues(t, 5, st.Count())
	assert.NoError(t, q.Train())
}
