package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitset_SetTestClear(t *testing.T) {
	b := NewBitset(200)
	assert.False(t, b.Test(100))

	b.Set(100)
	assert.True(t, b.Test(100))

	b.Clear(100)
	assert.False(t, b.Test(100))
}

func TestBitset_Cardinality(t *testing.T) {
	b := NewBitset(128)
	for _, i := range []uint32{0, 1, 63, 64, 127} {
		b.Set(i)
	}
	assert.Equal(t, 5, b.Cardinality())
}

func TestBitset_Reset(t *testing.T) {
	b := NewBitset(64)
	b.Set(10)
	b.Reset()
	assert.Equal(t, 0, b.Cardinality())
}

// TestBitset_InclusionExclusion checks the inclusion-exclusion
// identity: |x|+|y| = |x u y|+|x n y|.
func TestBitset_InclusionExclusion(t *testing.T) {
	x := NewBitset(256)
	y := NewBitset(256)
	for _, i := range []uint32{1, 2, 3, 100, 200} {
		x.Set(i)
	}
	for _, i := range []uint32{2, 3, 4, 150, 200} {
		y.Set(i)
	}

	union := OrCardinality(x, y)
	inter := AndCardinality(x, y)
	require.Equal(t, x.Cardinality()+y.Cardinality(), union+inter)

	xorCard := XorCardinality(x, y)
	assert.Equal(t, union-inter, xorCard)
}

func TestBitset_AndNotCardinality(t *testing.T) {
	x := NewBitset(64)
	y := NewBitset(64)
	x.Set(1)
	x.Set(2)
	x.Set(3)
	y.Set(2)

	assert.Equal(t, 2, AndNotCardinality(x, y))
}
