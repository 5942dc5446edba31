package storage

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/orneryd/annlite/annerr"
)

// directoryName is the reserved segment id for the manifest every
// Dumper writes last, mapping every other named segment to its
// {offset, data length} for reopening (this: "readers access
// a segment by id"; id table is string-keyed, so the
// directory is what lets Storage.Open resolve those strings back to
// byte ranges without scanning the whole file).
const directoryName = "__directory__"

// dirEntry is one directory row: a named segment's framed offset and
// unframed payload length (the latter is needed to call Decode, which
// takes dataLen rather than re-deriving it from the frame).
type dirEntry struct {
	Name    string
	Offset  int64
	DataLen int
}

func segmentID(name string) uint64 { return xxhash.Sum64String(name) }

// Dumper is the sole writer during a build (an IndexDumper):
// segments are appended sequentially by name, and Close
// writes the trailing directory that makes them addressable by name
// again once reopened through Storage.Open.
type Dumper struct {
	store  Store
	offset int64
	dir    []dirEntry
	closed bool

	// enc compresses every segment's payload with zstd before framing
	// when set by NewCompressedDumper (Domain Stack: klauspost/compress
	// is an optional per-segment compressor, not a requirement every
	// dump pays for). Nil means segments are stored uncompressed.
	enc *zstd.Encoder
}

// NewDumper wraps store for sequential segment writes starting at
// offset 0. store must not be written to by any other writer for the
// lifetime of the Dumper (single-writer-during-write
// rule). Segments are stored uncompressed; use NewCompressedDumper to
// zstd-compress each segment's payload instead.
func NewDumper(store Store) *Dumper {
	return &Dumper{store: store}
}

// NewCompressedDumper is NewDumper with every appended segment's
// payload run through zstd first. Readers opened with Open detect the
// mode from the footer's magic and decompress transparently; callers
// never need to know which mode produced a given file.
func NewCompressedDumper(store Store) (*Dumper, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, annerr.Wrap("storage.NewCompressedDumper", annerr.KindLogic, err)
	}
	return &Dumper{store: store, enc: enc}, nil
}

// Append writes one named segment, framed with Encode (its
// data+padding+crc32c layout), and records it in the directory Close
// will write out. The directory's DataLen tracks whatever payload was
// actually framed (compressed or not), since that's what Decode needs
// to re-read the frame.
func (d *Dumper) Append(name string, data []byte) error {
	if d.closed {
		return annerr.New("storage.Dumper.Append", annerr.KindLogic)
	}
	if d.enc != nil {
		data = d.enc.EncodeAll(data, nil)
	}
	framed := Encode(Segment{ID: segmentID(name), Data: data})
	if err := d.store.WriteAt(d.offset, framed); err != nil {
		return err
	}
	d.dir = append(d.dir, dirEntry{Name: name, Offset: d.offset, DataLen: len(data)})
	d.offset += int64(len(framed))
	return nil
}

// encodeDirectory serializes the accumulated directory entries as
// length-prefixed name / offset / data-length triples.
func encodeDirectory(dir []dirEntry) []byte {
	size := 4
	for _, e := range dir {
		size += 2 + len(e.Name) + 8 + 8
	}
	buf := make([]byte, size)
	pos := 0
	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(dir)))
	pos += 4
	for _, e := range dir {
		binary.LittleEndian.PutUint16(buf[pos:], uint16(len(e.Name)))
		pos += 2
		copy(buf[pos:], e.Name)
		pos += len(e.Name)
		binary.LittleEndian.PutUint64(buf[pos:], uint64(e.Offset))
		pos += 8
		binary.LittleEndian.PutUint64(buf[pos:], uint64(e.DataLen))
		pos += 8
	}
	return buf
}

func decodeDirectory(buf []byte) ([]dirEntry, error) {
	if len(buf) < 4 {
		return nil, annerr.New("storage.decodeDirectory", annerr.KindInvalidFormat)
	}
	n := binary.LittleEndian.Uint32(buf)
	pos := 4
	out := make([]dirEntry, 0, n)
	for i := uint32(0); i < n; i++ {
		if pos+2 > len(buf) {
			return nil, annerr.New("storage.decodeDirectory", annerr.KindInvalidFormat)
		}
		nameLen := int(binary.LittleEndian.Uint16(buf[pos:]))
		pos += 2
		if pos+nameLen+16 > len(buf) {
			return nil, annerr.New("storage.decodeDirectory", annerr.KindInvalidFormat)
		}
		name := string(buf[pos : pos+nameLen])
		pos += nameLen
		offset := int64(binary.LittleEndian.Uint64(buf[pos:]))
		pos += 8
		dataLen := int(binary.LittleEndian.Uint64(buf[pos:]))
		pos += 8
		out = append(out, dirEntry{Name: name, Offset: offset, DataLen: dataLen})
	}
	return out, nil
}

// footerSize is the fixed trailer Close appends after the directory
// segment: magic, the directory segment's offset, and its unframed
// data length (so Storage.Open can call Decode without having to
// guess dataLen by trial).
const footerSize = 24

// Close writes the trailing directory segment and the fixed footer so
// Storage.Open can find it without scanning. No further Append calls
// are valid afterward.
func (d *Dumper) Close() error {
	if d.closed {
		return nil
	}
	dirOffset := d.offset
	dirData := encodeDirectory(d.dir)
	// The footer records the directory's framed payload length (its
	// compressed length when enc is set), read back from the entry
	// Append adds to d.dir; Open needs that length to Decode the frame.
	if err := d.Append(directoryName, dirData); err != nil {
		return err
	}
	magic := uint64(dumpMagic)
	if d.enc != nil {
		magic = dumpMagicCompressed
	}
	footer := make([]byte, footerSize)
	binary.LittleEndian.PutUint64(footer[0:8], magic)
	binary.LittleEndian.PutUint64(footer[8:16], uint64(dirOffset))
	binary.LittleEndian.PutUint64(footer[16:24], uint64(d.dir[len(d.dir)-1].DataLen))
	if err := d.store.WriteAt(d.offset, footer); err != nil {
		return err
	}
	d.closed = true
	if d.enc != nil {
		d.enc.Close()
	}
	return nil
}

// dumpMagic is the footer's format sentinel; a mismatch on open means
// the file isn't a segment stream this Dumper wrote (or is truncated),
// surfaced as KindInvalidFormat
const dumpMagic = 0x414e4e4c49544501 // "ANNLITE" + version 1 (uncompressed)

// dumpMagicCompressed marks a footer whose segments (directory
// included) were all written by NewCompressedDumper and need a zstd
// decode pass after Decode.
const dumpMagicCompressed = 0x414e4e4c49544502 // "ANNLITE" + version 2 (zstd)

// Storage is the read-only-after-build analogue of Dumper: it reopens
// a dumped Store's directory once and resolves segments by name
// in-memory afterward ("storage is an ordered map
// segment_id -> (offset, data_bytes, ...)").
type Storage struct {
	store Store
	dir   map[string]dirEntry
	// dec decompresses every segment payload after Decode when the
	// footer's magic marked the dump as zstd-compressed. Nil for a
	// plain, uncompressed dump.
	dec *zstd.Decoder
}

// Open reads the footer and directory written by Dumper.Close. CRC
// failures or a missing/garbled footer are fatal: the storage refuses
// to publish segments.
func Open(store Store) (*Storage, error) {
	size := store.Size()
	if size < footerSize {
		return nil, annerr.New("storage.Open", annerr.KindInvalidFormat)
	}
	footer, err := store.ReadAt(size-footerSize, footerSize)
	if err != nil {
		return nil, err
	}
	magic := binary.LittleEndian.Uint64(footer[0:8])
	var dec *zstd.Decoder
	switch magic {
	case dumpMagic:
	case dumpMagicCompressed:
		dec, err = zstd.NewReader(nil)
		if err != nil {
			return nil, annerr.Wrap("storage.Open", annerr.KindLogic, err)
		}
	default:
		return nil, annerr.New("storage.Open", annerr.KindInvalidFormat)
	}
	dirOffset := int64(binary.LittleEndian.Uint64(footer[8:16]))
	dirDataLen := int(binary.LittleEndian.Uint64(footer[16:24]))

	dirFramed, err := store.ReadAt(dirOffset, FramedSize(dirDataLen))
	if err != nil {
		return nil, err
	}
	seg, err := Decode(dirFramed, dirDataLen)
	if err != nil {
		return nil, err
	}
	dirBytes := seg.Data
	if dec != nil {
		dirBytes, err = dec.DecodeAll(seg.Data, nil)
		if err != nil {
			return nil, annerr.Wrap("storage.Open", annerr.KindInvalidFormat, err)
		}
	}
	entries, err := decodeDirectory(dirBytes)
	if err != nil {
		return nil, err
	}

	dir := make(map[string]dirEntry, len(entries))
	for _, e := range entries {
		dir[e.Name] = e
	}
	return &Storage{store: store, dir: dir, dec: dec}, nil
}

// Get returns the raw (unframed, CRC-verified, decompressed) payload
// of the named segment.
func (s *Storage) Get(name string) ([]byte, error) {
	e, ok := s.dir[name]
	if !ok {
		return nil, annerr.New("storage.Storage.Get", annerr.KindNoExist)
	}
	framed, err := s.store.ReadAt(e.Offset, FramedSize(e.DataLen))
	if err != nil {
		return nil, err
	}
	seg, err := Decode(framed, e.DataLen)
	if err != nil {
		return nil, err
	}
	if s.dec == nil {
		return seg.Data, nil
	}
	out, err := s.dec.DecodeAll(seg.Data, nil)
	if err != nil {
		return nil, annerr.Wrap("storage.Storage.Get", annerr.KindInvalidFormat, err)
	}
	return out, nil
}

// Has reports whether name is present without reading its payload.
func (s *Storage) Has(name string) bool {
	_, ok := s.dir[name]
	return ok
}

// Close closes the underlying store and releases the zstd decoder, if
// one was allocated.
func (s *Storage) Close() error {
	if s.dec != nil {
		s.dec.Close()
	}
	return s.store.Close()
}
