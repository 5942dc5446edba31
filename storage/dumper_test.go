package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumperStorage_RoundTripsNamedSegments(t *testing.T) {
	store := NewMemoryStore()
	d := NewDumper(store)

	require.NoError(t, d.Append("IVF_INVERTED_HEADER_SEG_ID", []byte("header-bytes")))
	require.NoError(t, d.Append("IVF_KEYS_SEG_ID", []byte{1, 2, 3, 4, 5, 6, 7, 8}))
	require.NoError(t, d.Close())

	s, err := Open(store)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("IVF_INVERTED_HEADER_SEG_ID")
	require.NoError(t, err)
	assert.Equal(t, []byte("header-bytes"), got)

	got, err = s.Get("IVF_KEYS_SEG_ID")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 7, 8}, got)

	assert.True(t, s.Has("IVF_KEYS_SEG_ID"))
	assert.False(t, s.Has("nonexistent"))
}

func TestDumperStorage_UnknownSegmentErrors(t *testing.T) {
	store := NewMemoryStore()
	d := NewDumper(store)
	require.NoError(t, d.Close())

	s, err := Open(store)
	require.NoError(t, err)
	_, err = s.Get("missing")
	assert.Error(t, err)
}

func TestDumperStorage_AppendAfterCloseErrors(t *testing.T) {
	store := NewMemoryStore()
	d := NewDumper(store)
	require.NoError(t, d.Close())
	err := d.Append("late", []byte("x"))
	assert.Error(t, err)
}

func TestDumperStorage_CompressedRoundTripsNamedSegments(t *testing.T) {
	store := NewMemoryStore()
	d, err := NewCompressedDumper(store)
	require.NoError(t, err)

	payload := make([]byte, 4096)
	for i := range payload {
		payload[i] = byte(i % 7)
	}
	require.NoError(t, d.Append("repetitive", payload))
	require.NoError(t, d.Close())

	s, err := Open(store)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get("repetitive")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// A repetitive payload should compress smaller than it started,
	// proving the segment was actually run through zstd and not just
	// passed through.
	assert.Less(t, int64(store.Size()), int64(len(payload)))
}

func TestStorage_OpenRejectsGarbage(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.WriteAt(0, []byte("not a valid annlite dump, too short")))
	_, err := Open(store)
	assert.Error(t, err)
}

func TestDumperStorage_EmptySegmentRoundTrips(t *testing.T) {
	store := NewMemoryStore()
	d := NewDumper(store)
	require.NoError(t, d.Append("empty", nil))
	require.NoError(t, d.Close())

	s, err := Open(store)
	require.NoError(t, err)
	got, err := s.Get("empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}
