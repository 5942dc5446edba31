package storage

import (
	"os"
	"sync"

	"github.com/orneryd/annlite/annerr"
	"github.com/orneryd/annlite/bufferpool"
)

// Store is the minimal byte-addressed read/write surface that
// MemoryStore and FileStore (positioned file I/O, reads through the
// buffer pool) implement; there is no mmap backend, and BadgerStore
// addresses segments by id instead of implementing Store. Index builders write through it; query paths read
// through it via the buffer pool where one applies.
type Store interface {
	// ReadAt reads length bytes at offset.
	ReadAt(offset int64, length int) ([]byte, error)
	// WriteAt appends or overwrites data at offset.
	WriteAt(offset int64, data []byte) error
	// Size returns the current extent of the store.
	Size() int64
	Close() error
}

// MemoryStore is an in-memory Store, for index construction before a
// first flush to disk and for unit tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (m *MemoryStore) ReadAt(offset int64, length int) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if offset < 0 || int(offset)+length > len(m.data) {
		return nil, annerr.New("storage.MemoryStore.ReadAt", annerr.KindInvalidArgument)
	}
	out := make([]byte, length)
	copy(out, m.data[offset:int(offset)+length])
	return out, nil
}

func (m *MemoryStore) WriteAt(offset int64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	end := int(offset) + len(data)
	if end > len(m.data) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[offset:end], data)
	return nil
}

func (m *MemoryStore) Size() int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.data))
}

func (m *MemoryStore) Close() error { return nil }

// FileStore is a Store backed by a real file, reading through a
// bufferpool.Pool so repeated block reads are served from the
// ref-counted cache rather than hitting the filesystem each time, and
// writing via direct positioned writes (index construction is
// single-writer and append-mostly, so no pool involvement is needed
// on the write path).
type FileStore struct {
	file      *os.File
	pool      *bufferpool.Pool
	blockSize int
}

// OpenFileStore opens path for read/write and wraps reads in a buffer
// pool sized poolCapacity bytes, with blockSize-sized blocks.
func OpenFileStore(path string, poolCapacity, blockSize int) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, annerr.Wrap("storage.OpenFileStore", annerr.KindReadData, err)
	}
	pool, err := bufferpool.Open(path, poolCapacity, blockSize)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &FileStore{file: f, pool: pool, blockSize: blockSize}, nil
}

func (s *FileStore) ReadAt(offset int64, length int) ([]byte, error) {
	blockID := uint32(offset / int64(s.blockSize))
	blockOffset := offset - int64(blockID)*int64(s.blockSize)
	if int(blockOffset)+length <= s.blockSize {
		buf, err := s.pool.AcquireBuffer(blockID, int64(blockID)*int64(s.blockSize), s.blockSize, 5)
		if err != nil {
			return nil, err
		}
		defer s.pool.Release(blockID)
		out := make([]byte, length)
		copy(out, buf[blockOffset:int(blockOffset)+length])
		return out, nil
	}
	// Straddles a block boundary: fall back to a direct read, since the
	// pool only caches whole aligned blocks.
	out := make([]byte, length)
	n, err := s.file.ReadAt(out, offset)
	if err != nil || n != length {
		return nil, annerr.Wrap("storage.FileStore.ReadAt", annerr.KindReadData, err)
	}
	return out, nil
}

func (s *FileStore) WriteAt(offset int64, data []byte) error {
	_, err := s.file.WriteAt(data, offset)
	if err != nil {
		return annerr.Wrap("storage.FileStore.WriteAt", annerr.KindWriteData, err)
	}
	return nil
}

func (s *FileStore) Size() int64 {
	st, err := s.file.Stat()
	if err != nil {
		return 0
	}
	return st.Size()
}

func (s *FileStore) Close() error {
	s.pool.Close()
	return s.file.Close()
}
