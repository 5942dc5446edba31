package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/annlite/metric"
)

func TestBadgerStore_SegmentRoundTrip(t *testing.T) {
	store, err := OpenBadgerStore(BadgerOptions{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	seg := Segment{ID: 7, Data: []byte("vector-payload")}
	require.NoError(t, store.PutSegment(seg))

	got, err := store.GetSegment(7, len(seg.Data))
	require.NoError(t, err)
	assert.Equal(t, seg.Data, got.Data)
}

func TestBadgerStore_MetaRoundTrip(t *testing.T) {
	store, err := OpenBadgerStore(BadgerOptions{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	m := IndexMeta{Version: 1, Dim: 16, Encoding: metric.FP32, Metric: metric.Euclidean, Count: 5, BlockSize: 4096}
	require.NoError(t, store.PutMeta(m))

	got, err := store.GetMeta()
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestBadgerStore_DeleteSegmentRemovesIt(t *testing.T) {
	store, err := OpenBadgerStore(BadgerOptions{DataDir: t.TempDir(), InMemory: true})
	require.NoError(t, err)
	defer store.Close()

	seg := Segment{ID: 1, Data: []byte("x")}
	require.NoError(t, store.PutSegment(seg))
	require.NoError(t, store.DeleteSegment(1))

	_, err = store.GetSegment(1, 1)
	assert.Error(t, err)
}
