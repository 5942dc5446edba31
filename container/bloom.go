package container

import (
	"math"

	"github.com/cespare/xxhash/v2"
)

// Bloom is an open-addressed bit-array Bloom filter with K independent
// hashes Rather than K separately-seeded hash
// functions, it uses the standard Kirsch-Mitzenmacher double-hashing
// trick (g_i(x) = h1(x) + i*h2(x)) over a single xxhash state, which is
// both cheaper and the idiomatic Go approach used by bloom-filter
// libraries in the ecosystem.
type Bloom struct {
	bits []uint64
	m    uint64 // number of bits
	k    uint64 // number of hash probes
}

// NewBloom sizes a filter for n expected elements and false-positive
// rate p, using the standard formulas m = -n*ln(p)/ln(2)^2 and
// k = (m/n)*ln(2).
func NewBloom(n int, p float64) *Bloom {
	if n <= 0 {
		n = 1
	}
	if p <= 0 || p >= 1 {
		p = 0.01
	}
	m := uint64(math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)))
	if m < 64 {
		m = 64
	}
	k := uint64(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		k = 1
	}
	words := (m + 63) / 64
	return &Bloom{bits: make([]uint64, words), m: words * 64, k: k}
}

func (b *Bloom) probes(key []byte) (h1, h2 uint64) {
	salted := make([]byte, len(key)+1)
	copy(salted, key)
	salted[len(key)] = 0xFF
	h1 = xxhash.Sum64(key)
	h2 = xxhash.Sum64(salted)
	return
}

// Add inserts key into the filter.
func (b *Bloom) Add(key []byte) {
	h1, h2 := b.probes(key)
	for i := uint64(0); i < b.k; i++ {
		idx := (h1 + i*h2) % b.m
		b.bits[idx/64] |= 1 << (idx % 64)
	}
}

// Test reports whether key was possibly added (a true result may be a
// false positive; a false result is always a true negative).
func (b *Bloom) Test(key []byte) bool {
	h1, h2 := b.probes(key)
	for i := uint64(0); i < b.k; i++ {
		idx := (h1 + i*h2) % b.m
		if b.bits[idx/64]&(1<<(idx%64)) == 0 {
			return false
		}
	}
	return true
}
