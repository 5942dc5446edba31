package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/annlite/container"
	"github.com/orneryd/annlite/metric"
)

func TestIndexMeta_RoundTrip(t *testing.T) {
	m := IndexMeta{
		Version:   1,
		Dim:       128,
		Encoding:  metric.FP32,
		Metric:    metric.Cosine,
		Count:     1 << 40, // exercises the hi/lo uint64 split
		BlockSize: 4096,
	}
	buf := EncodeIndexMeta(m)
	got, err := DecodeIndexMeta(buf)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestIndexMeta_RoundTripWithMetricAndReformerParams(t *testing.T) {
	var m IndexMeta
	m.SetMeta(metric.FP32, 128)
	m.SetMetric(metric.MipsSquaredEuclidean, 3, container.NewParams().Set("mips_lambda", 0.5))
	m.SetReformer("rabitq", container.NewParams().Set("ex_bits", 4).Set("padded_dim", 128))
	require.NoError(t, m.SetMajorOrder(MajorOrderColumn))
	m.BlockSize = 4096
	m.Count = 10

	buf := EncodeIndexMeta(m)
	got, err := DecodeIndexMeta(buf)
	require.NoError(t, err)

	assert.Equal(t, m.Dim, got.Dim)
	assert.Equal(t, m.Metric, got.Metric)
	assert.Equal(t, 3, got.MetricRevision())
	assert.Equal(t, 0.5, got.MetricParams.GetFloat("mips_lambda", 0))
	assert.Equal(t, "rabitq", got.ReformerName)
	assert.Equal(t, 4, got.ReformerParams.GetInt("ex_bits", 0))
	assert.Equal(t, 128, got.ReformerParams.GetInt("padded_dim", 0))
	assert.Equal(t, MajorOrderColumn, got.MajorOrder)
}

func TestIndexMeta_SetMajorOrderRejectsUnalignedColumnMajor(t *testing.T) {
	var m IndexMeta
	m.SetMeta(metric.FP32, 3)
	err := m.SetMajorOrder(MajorOrderColumn)
	require.Error(t, err)
	assert.Equal(t, MajorOrderUndefined, m.MajorOrder)
}

func TestIndexMeta_SetMajorOrderRow(t *testing.T) {
	var m IndexMeta
	m.SetMeta(metric.FP32, 3)
	require.NoError(t, m.SetMajorOrder(MajorOrderRow))
	assert.Equal(t, MajorOrderRow, m.MajorOrder)
}

func TestIndexMeta_EveryMetricRoundTrips(t *testing.T) {
	for _, name := range metaMetricOrdinals {
		m := IndexMeta{Version: 1, Dim: 8, Encoding: metric.INT8, Metric: name, Count: 3, BlockSize: 64}
		buf := EncodeIndexMeta(m)
		got, err := DecodeIndexMeta(buf)
		require.NoError(t, err)
		assert.Equal(t, name, got.Metric)
	}
}
