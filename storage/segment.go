// Package storage implements on-disk segment framing: fixed-layout
// {id, data, padding, crc32c} records whose id+data span is padded to
// 32 bytes, written through one of two Store implementations
// (in-memory, and a file read through the buffer pool; there is no
// mmap backend) or kept in the segment-keyed badger store, plus the
// IndexMeta header (meta.go) every index file carries.
package storage

import (
	"encoding/binary"
	"hash/crc32"

	"github.com/orneryd/annlite/annerr"
)

// Alignment is the padding boundary a segment's id+data span is
// rounded up to; the 4-byte checksum trailer follows the padding.
const Alignment = 32

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Segment is one framed record: an 8-byte id, the payload, alignment
// padding, and a CRC-32C (Castagnoli) checksum over id+data+padding.
type Segment struct {
	ID   uint64
	Data []byte
}

// frameHeaderSize is the encoded id field's width.
const frameHeaderSize = 8

// FramedSize returns the total on-disk size a segment with the given
// payload length occupies once padded to Alignment and the trailing
// checksum is appended.
func FramedSize(dataLen int) int {
	unpadded := frameHeaderSize + dataLen
	padded := ((unpadded + Alignment - 1) / Alignment) * Alignment
	return padded + 4 // crc32c trailer
}

// Encode frames s into dst-ready bytes: {id(8) | data | padding |
// crc32c(4)}, little-endian throughout.
func Encode(s Segment) []byte {
	total := FramedSize(len(s.Data))
	buf := make([]byte, total)

	binary.LittleEndian.PutUint64(buf[0:8], s.ID)
	copy(buf[8:], s.Data)
	// padding bytes are left zeroed between data and the checksum trailer

	body := buf[:total-4]
	sum := crc32.Checksum(body, castagnoli)
	binary.LittleEndian.PutUint32(buf[total-4:], sum)
	return buf
}

// Decode parses a framed segment of the given payload length back out
// of buf, verifying its CRC-32C trailer.
func Decode(buf []byte, dataLen int) (Segment, error) {
	total := FramedSize(dataLen)
	if len(buf) < total {
		return Segment{}, annerr.New("storage.Decode", annerr.KindInvalidFormat)
	}

	body := buf[:total-4]
	want := binary.LittleEndian.Uint32(buf[total-4 : total])
	got := crc32.Checksum(body, castagnoli)
	if want != got {
		return Segment{}, annerr.New("storage.Decode", annerr.KindReadData)
	}

	id := binary.LittleEndian.Uint64(buf[0:8])
	data := make([]byte, dataLen)
	copy(data, buf[8:8+dataLen])
	return Segment{ID: id, Data: data}, nil
}
