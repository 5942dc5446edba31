package quantize

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReformer_BinOnlyPreservesOrdering(t *testing.T) {
	dim := 64
	centroid := make([]float32, dim)
	r := NewReformer(dim, 0)

	query := make([]float32, dim)
	near := make([]float32, dim)
	far := make([]float32, dim)
	for i := 0; i < dim; i++ {
		query[i] = 1
		near[i] = 1
		if i < dim/4 {
			far[i] = -1
		} else {
			far[i] = 1
		}
	}

	qCode := r.Reform(query, centroid, 0)
	nearCode := r.Reform(near, centroid, 0)
	farCode := r.Reform(far, centroid, 0)

	factor := ClusterFactor{Norm: 1, Error: 0}
	dNear := BinEstimate(qCode.Bin, nearCode.Bin, dim, factor)
	dFar := BinEstimate(qCode.Bin, farCode.Bin, dim, factor)

	// Higher BinEstimate score means more agreement (closer); near
	// should score higher than far.
	assert.Greater(t, dNear, dFar)
}

func TestReformer_ExBitsProduceNonNilCode(t *testing.T) {
	dim := 32
	centroid := make([]float32, dim)
	vector := make([]float32, dim)
	for i := range vector {
		vector[i] = float32(math.Sin(float64(i)))
	}

	r := NewReformer(dim, 4)
	code := r.Reform(vector, centroid, 3)
	assert.Equal(t, uint32(3), code.ClusterID)
	assert.NotNil(t, code.Ex)
	assert.Len(t, code.Bin, (dim+7)/8)
}

func TestReformer_NoExBitsLeavesExNil(t *testing.T) {
	dim := 16
	r := NewReformer(dim, 0)
	code := r.Reform(make([]float32, dim), make([]float32, dim), 0)
	assert.Nil(t, code.Ex)
}

func TestFullEstimate_FallsBackToBinWhenNoExCode(t *testing.T) {
	dim := 16
	r := NewReformer(dim, 0)
	centroid := make([]float32, dim)
	vector := make([]float32, dim)
	for i := range vector {
		vector[i] = 1
	}
	code := r.Reform(vector, centroid, 0)

	querySign := make([]byte, (dim+7)/8)
	for i := 0; i < dim; i++ {
		querySign[i/8] |= 1 << uint(i%8)
	}
	queryMags := make([]float32, dim)

	factor := ClusterFactor{Norm: 1, Error: 0}
	bin := BinEstimate(querySign, code.Bin, dim, factor)
	full := FullEstimate(querySign, queryMags, code, factor)
	assert.Equal(t, bin, full)
}
