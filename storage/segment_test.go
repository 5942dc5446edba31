package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	s := Segment{ID: 42, Data: []byte("hello vector segment")}
	framed := Encode(s)
	assert.Equal(t, 0, (len(framed)-4)%Alignment, "framed size must be alignment-padded before the trailer")

	got, err := Decode(framed, len(s.Data))
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Data, got.Data)
}

func TestDecode_DetectsCorruption(t *testing.T) {
	s := Segment{ID: 1, Data: []byte{1, 2, 3, 4}}
	framed := Encode(s)
	framed[9] ^= 0xFF // flip a data byte

	_, err := Decode(framed, len(s.Data))
	assert.Error(t, err)
}

func TestFramedSize_IsAligned(t *testing.T) {
	for _, n := range []int{0, 1, 24, 31, 32, 33, 100} {
		size := FramedSize(n)
		assert.Equal(t, 0, (size-4)%Alignment)
	}
}
