// Package metric implements the distance kernels: one scalar (1x1)
// and one batched (1xN / MxN) kernel per
// (data type, metric) pair. New also records the running CPU's
// feature tier (CPUPath); the same kernels run on every tier.
//
// Go has no template-based monomorphisation, so a deep C++-style
// template hierarchy becomes one function-pointer pair cached inside
// IndexMetric and a small registry keyed by (MetricName, Encoding) —
// a trait-plus-impl shape backed by a runtime dispatch table.
package metric

import (
	"fmt"

	"github.com/orneryd/annlite/annerr"
)

// Encoding identifies the on-disk/in-memory numeric representation of
// a vector's elements.
type Encoding int

const (
	FP32 Encoding = iota
	FP16
	INT8
	INT4
	BINARY32
)

func (e Encoding) String() string {
	switch e {
	case FP32:
		return "FP32"
	case FP16:
		return "FP16"
	case INT8:
		return "INT8"
	case INT4:
		return "INT4"
	case BINARY32:
		return "BINARY32"
	default:
		return "unknown"
	}
}

// ElementSize returns the number of bytes dim elements of this
// encoding occupy, applying the INT4/BINARY32 bit-packing rules from
// this. dim must already satisfy the encoding's alignment
// invariant (even for INT4, a multiple of 32 for BINARY32); callers
// validate that before calling ElementSize.
func (e Encoding) ElementSize(dim int) int {
	switch e {
	case FP32:
		return dim * 4
	case FP16:
		return dim * 2
	case INT8:
		return dim
	case INT4:
		return dim / 2
	case BINARY32:
		return dim / 8
	default:
		return 0
	}
}

// Name is the metric catalogue .
type Name string

const (
	Hamming              Name = "Hamming"
	SquaredEuclidean     Name = "SquaredEuclidean"
	Euclidean            Name = "Euclidean"
	InnerProduct         Name = "InnerProduct"
	MinusInnerProduct    Name = "MinusInnerProduct"
	Cosine               Name = "Cosine"
	MipsSquaredEuclidean Name = "MipsSquaredEuclidean"
)

// MipsInjection selects between the two MIPS-to-L2 reductions for
// MipsSquaredEuclidean.
type MipsInjection int

const (
	QuadraticInjection MipsInjection = iota
	SphericalInjection
)

// ScalarFunc computes a single pointwise distance between two
// same-encoding vectors of the given dimension.
type ScalarFunc func(a, b []byte, dim int) float32

// BatchFunc computes distances from one query against up to 128
// candidates packed column-major (see InterleaveColumnMajor),
// writing M results into out.
type BatchFunc func(query []byte, columnMajor []byte, dim, m int, out []float32)

// BatchWidths enumerates the registered column-major interleave
// widths (the BatchCount universe).
var BatchWidths = []int{1, 2, 4, 8, 16, 32, 64, 128}

// IsBatchWidth reports whether m is one of the registered batch
// widths.
func IsBatchWidth(m int) bool {
	for _, w := range BatchWidths {
		if w == m {
			return true
		}
	}
	return false
}

// IndexMetric is the constructed, dispatch-resolved handle a search
// path holds for the lifetime of one metric/dtype combination.
// Switching metric or dtype means constructing a new IndexMetric —
// there is no mutation API on an existing handle.
type IndexMetric struct {
	Dim      int
	Encoding Encoding
	Metric   Name

	scalar ScalarFunc
	batch  BatchFunc // nil when no batched kernel exists for this (metric, encoding)
	cpu    string    // CPU tier label read at construction
}

// CPUPath reports the CPU tier ("avx2", "neon", "scalar", ...) read
// when this handle was constructed, for diagnostics and tests.
func (m *IndexMetric) CPUPath() string { return m.cpu }

// Distance computes the scalar (1x1) distance between a and b.
func (m *IndexMetric) Distance(a, b []byte) float32 {
	return m.scalar(a, b, m.Dim)
}

// SupportsBatch reports whether a batched kernel exists for this
// handle. Matrix shapes other than 1x1 are invalid for metrics (like
// Cosine) that only implement the scalar path; callers must check
// this before calling DistanceBatch.
func (m *IndexMetric) SupportsBatch() bool { return m.batch != nil }

// DistanceBatch computes m distances (m one of BatchWidths) from
// query against a column-major-interleaved block of m candidates, per
// this.
func (m *IndexMetric) DistanceBatch(query []byte, columnMajor []byte, width int, out []float32) error {
	if m.batch == nil {
		return annerr.New("metric.DistanceBatch", annerr.KindNoExist)
	}
	if !IsBatchWidth(width) {
		return annerr.New("metric.DistanceBatch", annerr.KindInvalidArgument)
	}
	m.batch(query, columnMajor, m.Dim, width, out)
	return nil
}

type registryKey struct {
	name     Name
	encoding Encoding
}

type constructor func(dim int, opts Options) (ScalarFunc, BatchFunc, error)

var registry = map[registryKey]constructor{}

func register(name Name, enc Encoding, c constructor) {
	registry[registryKey{name, enc}] = c
}

// Options carries the metric-construction-time parameters (the
// metric_params bag): currently only the MIPS injection mode, but kept
// as a struct so new metric-specific knobs don't change every New
// call site.
type Options struct {
	MipsInjection MipsInjection
	MipsLambda    float32 // injection scaling factor; no kernel or Inject helper reads it
}

// New constructs an IndexMetric for (name, encoding, dim), resolving
// the scalar and (if one exists) batched kernel from the (metric,
// encoding) registry. It returns annerr.KindNoExist if the combination
// isn't registered (this: "a metric with no kernel for
// the current CPU/dtype returns null; the caller must report
// NoExist") and annerr.KindInvalidArgument if dim violates the
// encoding's alignment invariant.
func New(name Name, enc Encoding, dim int, opts Options) (*IndexMetric, error) {
	if err := validateDim(enc, dim); err != nil {
		return nil, err
	}
	ctor, ok := registry[registryKey{name, enc}]
	if !ok {
		return nil, annerr.New("metric.New", annerr.KindNoExist)
	}
	scalar, batch, err := ctor(dim, opts)
	if err != nil {
		return nil, err
	}
	return &IndexMetric{
		Dim: dim, Encoding: enc, Metric: name,
		scalar: scalar, batch: batch, cpu: cpuPathLabel(),
	}, nil
}

func validateDim(enc Encoding, dim int) error {
	if dim <= 0 {
		return annerr.New("metric.validateDim", annerr.KindInvalidArgument)
	}
	switch enc {
	case INT4:
		if dim%2 != 0 {
			return annerr.Wrap("metric.validateDim", annerr.KindInvalidArgument,
				fmt.Errorf("INT4 requires even dim, got %d", dim))
		}
	case BINARY32:
		if dim%32 != 0 {
			return annerr.Wrap("metric.validateDim", annerr.KindInvalidArgument,
				fmt.Errorf("BINARY32 requires dim a multiple of 32, got %d", dim))
		}
	}
	return nil
}
