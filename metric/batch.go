package metric

// InterleaveColumnMajor packs width FP32 vectors (each dim elements,
// raw little-endian bytes as stored) into a single column-major block:
// for lane l in [0,dim), the block holds width consecutive float32
// values, one per candidate, before advancing to lane l+1. This is
// the layout batched kernels expect, so a batched
// kernel can stream one lane across all candidates at a time instead
// of striding through width independent vectors.
func InterleaveColumnMajor(vectors [][]byte, dim, width int) []byte {
	elemSize := 4
	out := make([]byte, dim*width*elemSize)
	for lane := 0; lane < dim; lane++ {
		for cand := 0; cand < width; cand++ {
			src := vectors[cand][lane*elemSize : lane*elemSize+elemSize]
			dstOff := (lane*width + cand) * elemSize
			copy(out[dstOff:dstOff+elemSize], src)
		}
	}
	return out
}

// batchFromScalarFP32 builds a BatchFunc for an FP32 scalar kernel by
// de-interleaving each candidate lane-by-lane and applying the scalar
// function; this is the batched path every FP32 kernel registers, on
// every CPU tier. It exists mainly so
// DistanceBatch has a working implementation for every FP32 metric;
// vectorized variants can register a faster BatchFunc by calling
// register directly with a non-nil batch argument.
func batchFromScalarFP32(scalar ScalarFunc) BatchFunc {
	return func(query []byte, columnMajor []byte, dim, width int, out []float32) {
		elemSize := 4
		candidate := make([]byte, dim*elemSize)
		for cand := 0; cand < width; cand++ {
			for lane := 0; lane < dim; lane++ {
				srcOff := (lane*width + cand) * elemSize
				copy(candidate[lane*elemSize:lane*elemSize+elemSize], columnMajor[srcOff:srcOff+elemSize])
			}
			out[cand] = scalar(query, candidate, dim)
		}
	}
}
