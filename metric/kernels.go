package metric

import (
	"encoding/binary"
	"math"

	"github.com/orneryd/annlite/numeric"
)

// Scalar kernels, grounded on pkg/vector/similarity.go
// dot-product/euclidean helpers, generalized across the dtype
// catalogue and reframed as "distance" (lower is closer) rather than
// "similarity" throughout

func readFP32(b []byte, dim int) []float32 {
	out := make([]float32, dim)
	for i := 0; i < dim; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

func readFP16(b []byte, dim int) []float32 {
	out := make([]float32, dim)
	for i := 0; i < dim; i++ {
		out[i] = numeric.F16(binary.LittleEndian.Uint16(b[i*2:])).Float32()
	}
	return out
}

func readINT8(b []byte, dim int) []int32 {
	out := make([]int32, dim)
	for i := 0; i < dim; i++ {
		out[i] = int32(int8(b[i]))
	}
	return out
}

func squaredEuclideanF32(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

func innerProductF32(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func init() {
	registerFP32Kernels()
	registerFP16Kernels()
	registerINT8Kernels()
	registerINT4Kernels()
	registerBinaryKernels()
	registerCosineKernels()
	registerMipsKernels()
}

func registerFP32Kernels() {
	register(SquaredEuclidean, FP32, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return squaredEuclideanF32(readFP32(a, dim), readFP32(b, dim))
		}
		return scalar, batchFromScalarFP32(scalar), nil
	})
	register(Euclidean, FP32, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return float32(math.Sqrt(float64(squaredEuclideanF32(readFP32(a, dim), readFP32(b, dim)))))
		}
		return scalar, batchFromScalarFP32(scalar), nil
	})
	register(InnerProduct, FP32, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return innerProductF32(readFP32(a, dim), readFP32(b, dim))
		}
		return scalar, batchFromScalarFP32(scalar), nil
	})
	register(MinusInnerProduct, FP32, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return -innerProductF32(readFP32(a, dim), readFP32(b, dim))
		}
		return scalar, batchFromScalarFP32(scalar), nil
	})
}

func registerFP16Kernels() {
	register(SquaredEuclidean, FP16, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return squaredEuclideanF32(readFP16(a, dim), readFP16(b, dim))
		}
		return scalar, nil, nil
	})
	register(Euclidean, FP16, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return float32(math.Sqrt(float64(squaredEuclideanF32(readFP16(a, dim), readFP16(b, dim)))))
		}
		return scalar, nil, nil
	})
	register(InnerProduct, FP16, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return innerProductF32(readFP16(a, dim), readFP16(b, dim))
		}
		return scalar, nil, nil
	})
	register(MinusInnerProduct, FP16, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return -innerProductF32(readFP16(a, dim), readFP16(b, dim))
		}
		return scalar, nil, nil
	})
}

func registerINT8Kernels() {
	register(SquaredEuclidean, INT8, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			av, bv := readINT8(a, dim), readINT8(b, dim)
			var sum int32
			for i := range av {
				d := av[i] - bv[i]
				sum += d * d
			}
			return float32(sum)
		}
		return scalar, nil, nil
	})
	register(InnerProduct, INT8, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			av, bv := readINT8(a, dim), readINT8(b, dim)
			var sum int32
			for i := range av {
				sum += av[i] * bv[i]
			}
			return float32(sum)
		}
		return scalar, nil, nil
	})
	register(MinusInnerProduct, INT8, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			av, bv := readINT8(a, dim), readINT8(b, dim)
			var sum int32
			for i := range av {
				sum += av[i] * bv[i]
			}
			return float32(-sum)
		}
		return scalar, nil, nil
	})
}

func registerINT4Kernels() {
	register(SquaredEuclidean, INT4, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return float32(numeric.SquaredEuclideanInt4(a, b, dim))
		}
		return scalar, nil, nil
	})
	register(InnerProduct, INT4, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return float32(numeric.DotInt4(a, b, dim))
		}
		return scalar, nil, nil
	})
	register(MinusInnerProduct, INT4, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return float32(-numeric.DotInt4(a, b, dim))
		}
		return scalar, nil, nil
	})
}

func registerBinaryKernels() {
	register(Hamming, BINARY32, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return float32(numeric.HammingDistance(a, b))
		}
		return scalar, nil, nil
	})
}

// Cosine distance assumes both vectors are already L2-normalized and
// carry a trailing norm slot reserved for lossless original-magnitude
// recovery; the distance itself only consumes the
// first dim elements. Cosine has no registered batched kernel: its
// matrix-shape behavior is deliberately left undefined, and rather
// than ship a silently wrong MxN cosine we reject it explicitly via
// IndexMetric.SupportsBatch.
func registerCosineKernels() {
	register(Cosine, FP32, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return 1 - innerProductF32(readFP32(a, dim), readFP32(b, dim))
		}
		return scalar, nil, nil
	})
	register(Cosine, FP16, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return 1 - innerProductF32(readFP16(a, dim), readFP16(b, dim))
		}
		return scalar, nil, nil
	})
}

// RecoverNorm reads the trailing norm slot appended after dim packed
// FP32 elements, for callers that need the pre-normalization
// magnitude back (e.g. re-ranking raw scores).
func RecoverNorm(vec []byte, dim int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(vec[dim*4:]))
}

// MipsSquaredEuclidean reduces maximum inner product search to
// nearest-neighbor search under squared Euclidean distance by
// injecting an extra coordinate into both query and database vectors
//. QuadraticInjection appends sqrt(maxNormSq -
// ||x||^2) (Bachrach et al.); SphericalInjection additionally rescales
// onto a common-radius sphere (Neyshabur & Srebro). Both require the
// injected coordinate to already be present in the stored vector
// (dim here is the injected dimension, one greater than the original
// vector's dimension); MipsSquaredEuclidean therefore reuses the
// plain FP32 squared-Euclidean kernel over the injected vectors.
func registerMipsKernels() {
	register(MipsSquaredEuclidean, FP32, func(dim int, _ Options) (ScalarFunc, BatchFunc, error) {
		scalar := func(a, b []byte, dim int) float32 {
			return squaredEuclideanF32(readFP32(a, dim), readFP32(b, dim))
		}
		return scalar, batchFromScalarFP32(scalar), nil
	})
}

// InjectQuadratic appends the extra MIPS coordinate to a raw float32
// vector given the maximum squared norm observed across the
// collection being indexed, per the quadratic-injection construction.
// It is for database vectors: a query gets 0 in the extra coordinate,
// so that ||q-x||^2 = ||q||^2 + maxNormSq - 2<q,x> orders candidates
// by inner product.
func InjectQuadratic(vec []float32, maxNormSq float64) []float32 {
	var normSq float64
	for _, v := range vec {
		normSq += float64(v) * float64(v)
	}
	extra := maxNormSq - normSq
	if extra < 0 {
		extra = 0
	}
	out := make([]float32, len(vec)+1)
	copy(out, vec)
	out[len(vec)] = float32(math.Sqrt(extra))
	return out
}

// InjectSpherical rescales vec onto the sphere of radius sqrt(maxNormSq)
// before appending the injected coordinate, per the spherical-injection
// construction (a tighter reduction than quadratic injection when norms
// vary widely across the collection).
func InjectSpherical(vec []float32, maxNormSq float64) []float32 {
	var normSq float64
	for _, v := range vec {
		normSq += float64(v) * float64(v)
	}
	if normSq == 0 {
		out := make([]float32, len(vec)+1)
		out[len(vec)] = float32(math.Sqrt(maxNormSq))
		return out
	}
	scale := math.Sqrt(maxNormSq / normSq)
	out := make([]float32, len(vec)+1)
	for i, v := range vec {
		out[i] = float32(float64(v) * scale)
	}
	out[len(vec)] = 0
	return out
}
