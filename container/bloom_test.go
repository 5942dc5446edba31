package container

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBloom_NoFalseNegatives(t *testing.T) {
	b := NewBloom(1000, 0.01)
	keys := make([][]byte, 1000)
	for i := range keys {
		keys[i] = []byte(fmt.Sprintf("key-%d", i))
		b.Add(keys[i])
	}
	for _, k := range keys {
		assert.True(t, b.Test(k))
	}
}

func TestBloom_FalsePositiveRateIsBounded(t *testing.T) {
	const n = 2000
	b := NewBloom(n, 0.01)
	for i := 0; i < n; i++ {
		b.Add([]byte(fmt.Sprintf("present-%d", i)))
	}

	fp := 0
	trials := 5000
	for i := 0; i < trials; i++ {
		if b.Test([]byte(fmt.Sprintf("absent-%d", i))) {
			fp++
		}
	}
	// Generous margin over the configured 1% target; this is a sizing
	// sanity check, not a tight statistical bound.
	assert.Less(t, float64(fp)/float64(trials), 0.05)
}
