package storage

import (
	"encoding/binary"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/orneryd/annlite/annerr"
)

// BadgerOptions configures the embedded-KV storage backend, adapted
// from pkg/storage.BadgerOptions: the same
// low-memory-friendly defaults, but without the graph-database
// schema/logger knobs this package has no use for.
type BadgerOptions struct {
	DataDir  string
	InMemory bool
}

// BadgerStore is a segment-oriented store backed by badger,
// addressing segments by their uint64 id rather than byte offset (so
// it does not implement Store) —
// an alternative to the file+buffer-pool backend for deployments that
// want badger's compaction/compression/replication story instead of
// managing raw files directly.
//
// Grounded on pkg/storage.NewBadgerEngineWithOptions's low-memory
// tuning knobs (MemTableSize/ValueLogFileSize/NumMemtables etc.),
// applied here unconditionally the same way the original always
// applies them "for containerized environments."
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) a badger database at opts.DataDir.
func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	badgerOpts = badgerOpts.
		WithLogger(nil).
		WithMemTableSize(16 << 20).
		WithValueLogFileSize(64 << 20).
		WithNumMemtables(2).
		WithNumLevelZeroTables(2).
		WithNumLevelZeroTablesStall(4).
		WithValueThreshold(1024).
		WithBlockCacheSize(32 << 20).
		WithIndexCacheSize(16 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, annerr.Wrap("storage.OpenBadgerStore", annerr.KindReadData, err)
	}
	return &BadgerStore{db: db}, nil
}

func segmentKey(id uint64) []byte {
	key := make([]byte, 9)
	key[0] = 's'
	binary.BigEndian.PutUint64(key[1:], id)
	return key
}

// PutSegment writes one framed segment keyed by its id.
func (b *BadgerStore) PutSegment(s Segment) error {
	framed := Encode(s)
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(segmentKey(s.ID), framed)
	})
}

// GetSegment reads back and verifies one segment by id.
func (b *BadgerStore) GetSegment(id uint64, dataLen int) (Segment, error) {
	var seg Segment
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(segmentKey(id))
		if err != nil {
			return annerr.Wrap("storage.BadgerStore.GetSegment", annerr.KindNoExist, err)
		}
		return item.Value(func(val []byte) error {
			decoded, derr := Decode(val, dataLen)
			if derr != nil {
				return derr
			}
			seg = decoded
			return nil
		})
	})
	return seg, err
}

// DeleteSegment removes a segment by id.
func (b *BadgerStore) DeleteSegment(id uint64) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(segmentKey(id))
	})
}

// PutMeta stores the index header under a fixed key.
func (b *BadgerStore) PutMeta(m IndexMeta) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte("meta"), EncodeIndexMeta(m))
	})
}

// GetMeta reads back the index header.
func (b *BadgerStore) GetMeta() (IndexMeta, error) {
	var m IndexMeta
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("meta"))
		if err != nil {
			return annerr.Wrap("storage.BadgerStore.GetMeta", annerr.KindNoExist, err)
		}
		return item.Value(func(val []byte) error {
			decoded, derr := DecodeIndexMeta(val)
			if derr != nil {
				return derr
			}
			m = decoded
			return nil
		})
	})
	return m, err
}

func (b *BadgerStore) Close() error { return b.db.Close() }
