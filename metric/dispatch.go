package metric

import "golang.org/x/sys/cpu"

// cpuPathLabel reports the vectorization tier of the running CPU, read
// once when New constructs a handle. The label is for inspection only
// (tests, diagnostics): it does not select a kernel, and every tier
// runs the same registered scalar and batched kernels.
func cpuPathLabel() string {
	switch {
	case cpu.X86.HasAVX512F:
		return "avx512"
	case cpu.X86.HasAVX2:
		return "avx2"
	case cpu.X86.HasSSE42:
		return "sse4.2"
	case cpu.ARM64.HasASIMD:
		return "neon"
	default:
		return "scalar"
	}
}
