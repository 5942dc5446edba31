package storage

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_WriteThenRead(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.WriteAt(0, []byte("abcdef")))
	require.NoError(t, s.WriteAt(10, []byte("ghij")))

	got, err := s.ReadAt(0, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcdef"), got)
	assert.Equal(t, int64(14), s.Size())
}

func TestMemoryStore_ReadOutOfRangeErrors(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.ReadAt(0, 10)
	assert.Error(t, err)
}

func TestFileStore_WriteReadThroughPool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bin")
	blockSize := 64

	s, err := OpenFileStore(path, blockSize*4, blockSize)
	require.NoError(t, err)
	defer s.Close()

	payload := make([]byte, blockSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, s.WriteAt(int64(blockSize), payload))

	got, err := s.ReadAt(int64(blockSize), blockSize)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}
