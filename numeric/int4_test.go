package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt4_PackUnpackRoundTrip(t *testing.T) {
	values := []int8{-8, -1, 0, 1, 7, -4, 3, -2}
	packed := PackInt4(values)
	require.Len(t, packed, len(values)/2)

	got := UnpackInt4(packed, len(values))
	assert.Equal(t, values, got)
}

func TestInt4_DotProductMatchesScalar(t *testing.T) {
	a := []int8{1, -2, 3, -4}
	b := []int8{-1, 2, -3, 4}
	pa, pb := PackInt4(a), PackInt4(b)

	var want int32
	for i := range a {
		want += int32(a[i]) * int32(b[i])
	}
	assert.Equal(t, want, DotInt4(pa, pb, len(a)))
}

func TestInt4_SquaredEuclideanMatchesScalar(t *testing.T) {
	a := []int8{1, -2, 3, -4, 7, -8}
	b := []int8{-1, 2, -3, 4, -8, 7}
	pa, pb := PackInt4(a), PackInt4(b)

	var want int32
	for i := range a {
		d := int32(a[i]) - int32(b[i])
		want += d * d
	}
	assert.Equal(t, want, SquaredEuclideanInt4(pa, pb, len(a)))
}

func TestPopcountBytes(t *testing.T) {
	assert.Equal(t, 0, PopcountBytes([]byte{0, 0, 0, 0}))
	assert.Equal(t, 8, PopcountBytes([]byte{0xFF}))
	assert.Equal(t, 32, PopcountBytes([]byte{0xFF, 0xFF, 0xFF, 0xFF}))
}

func TestHammingDistance(t *testing.T) {
	a := []byte{0xFF, 0x00, 0xFF, 0x00}
	b := []byte{0x00, 0x00, 0xFF, 0xFF}
	// differ in bytes 0 (8 bits) and 3 (8 bits).
	assert.Equal(t, 16, HammingDistance(a, b))
}
