package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	calls int
	data  map[uint32][]byte
}

func (f *fakeSource) GetVector(id uint32) ([]byte, bool) {
	f.calls++
	v, ok := f.data[id]
	return v, ok
}

func TestVectorCache_RepeatedGetHitsSourceOnce(t *testing.T) {
	src := &fakeSource{data: map[uint32][]byte{1: {1, 2, 3, 4}}}
	vc, err := New(src, 1<<20)
	require.NoError(t, err)
	defer vc.Close()

	vec, ok := vc.GetVector(1)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, vec)

	// Ristretto's admission/eviction runs on a background buffer, so
	// give the Set above time to land before asserting the hit path.
	time.Sleep(10 * time.Millisecond)

	vec2, ok := vc.GetVector(1)
	require.True(t, ok)
	assert.Equal(t, vec, vec2)
	assert.Equal(t, 1, src.calls)
}

func TestVectorCache_MissPropagatesFalse(t *testing.T) {
	src := &fakeSource{data: map[uint32][]byte{}}
	vc, err := New(src, 1<<20)
	require.NoError(t, err)
	defer vc.Close()

	_, ok := vc.GetVector(42)
	assert.False(t, ok)
}

func TestVectorCache_InvalidateForcesRefetch(t *testing.T) {
	src := &fakeSource{data: map[uint32][]byte{1: {9}}}
	vc, err := New(src, 1<<20)
	require.NoError(t, err)
	defer vc.Close()

	_, _ = vc.GetVector(1)
	time.Sleep(10 * time.Millisecond)
	vc.Invalidate(1)
	time.Sleep(10 * time.Millisecond)

	_, _ = vc.GetVector(1)
	assert.GreaterOrEqual(t, src.calls, 2)
}
