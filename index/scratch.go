package index

import "sync"

// ScratchPool reuses the per-query working buffers a search path
// needs (the result heap's backing slice, a candidate-vector scratch
// buffer) across calls, adapted from pkg/pool.Pool
// object-pooling pattern (global sync.Pool per object shape, toggled
// by an Enabled flag) but narrowed to the two shapes the index
// package actually allocates per query instead of the original's
// broad query-result/row/string-builder catalogue.
type ScratchPool struct {
	enabled bool

	scoreBuffers sync.Pool
	byteBuffers  sync.Pool
}

// NewScratchPool creates a pool. When enabled is false, Get always
// allocates fresh (useful for benchmarking the pool's own overhead,
// matching PoolConfig.Enabled toggle).
func NewScratchPool(enabled bool) *ScratchPool {
	p := &ScratchPool{enabled: enabled}
	p.scoreBuffers.New = func() any { return make([]float32, 0, 128) }
	p.byteBuffers.New = func() any { return make([]byte, 0, 4096) }
	return p
}

// GetScores returns a float32 scratch slice with at least capacity
// cap, truncated to length 0.
func (p *ScratchPool) GetScores(capHint int) []float32 {
	if !p.enabled {
		return make([]float32, 0, capHint)
	}
	buf := p.scoreBuffers.Get().([]float32)[:0]
	if cap(buf) < capHint {
		return make([]float32, 0, capHint)
	}
	return buf
}

// PutScores returns buf to the pool.
func (p *ScratchPool) PutScores(buf []float32) {
	if p.enabled {
		p.scoreBuffers.Put(buf) //nolint:staticcheck // intentional: pooled slice reuse
	}
}

// GetBytes returns a byte scratch slice with at least capacity
// capHint, truncated to length 0.
func (p *ScratchPool) GetBytes(capHint int) []byte {
	if !p.enabled {
		return make([]byte, 0, capHint)
	}
	buf := p.byteBuffers.Get().([]byte)[:0]
	if cap(buf) < capHint {
		return make([]byte, 0, capHint)
	}
	return buf
}

// PutBytes returns buf to the pool.
func (p *ScratchPool) PutBytes(buf []byte) {
	if p.enabled {
		p.byteBuffers.Put(buf) //nolint:staticcheck // intentional: pooled slice reuse
	}
}
