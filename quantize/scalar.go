// Package quantize implements the scalar and RaBitQ quantizers of
// this: streaming entropy-driven scalar quantization down
// to INT4/UINT4/INT8/UINT8, and the two-stage RaBitQ reformer used by
// the hnswrabitq index.
//
// Grounded on _examples/original_source/tests/ailego/algorithm/
// integer_quantizer_test.cc, which exercises EntropyInt8Quantizer's
// set_max/set_min/set_non_bias/feed/train/encode/decode shape; that
// streaming-stats-then-train lifecycle is reproduced here as
// EntropyQuantizer.
package quantize

import (
	"math"

	"github.com/orneryd/annlite/annerr"
)

// Width selects the quantized element width.
type Width int

const (
	Width4 Width = iota
	Width8
)

// EntropyQuantizer fits a uniform scalar quantization scheme to a
// stream of float32 samples, same as the original's
// EntropyInt8Quantizer/EntropyInt4Quantizer: feed samples (or
// explicit set_max/set_min bounds), call Train, then Encode/Decode.
//
// When non-bias is requested (or forced by symmetric data, mirroring
// the original's set_non_bias), the zero point sits at the
// representable midpoint instead of at min, trading a small amount of
// range for exact zero round-tripping — worthwhile for metrics like
// inner product where a true zero vector is a meaningful value.
type EntropyQuantizer struct {
	width   Width
	signed  bool
	nonBias bool

	min, max   float32
	boundsSet  bool
	sampleMin  float32
	sampleMax  float32
	sampleSeen bool

	scale float32
	bias  float32
	low   int32
	high  int32

	stats *Stats
}

// NewEntropyQuantizer creates a quantizer for the given width and
// signedness (INT4/INT8 vs UINT4/UINT8).
func NewEntropyQuantizer(w Width, signed bool) *EntropyQuantizer {
	return &EntropyQuantizer{width: w, signed: signed}
}

// TrackStats enables a Stats accumulator alongside the plain min/max
// bounds Feed otherwise tracks, for callers that want the fed
// distribution's mean/variance/histogram in addition to the fitted
// scale/bias ({min,max,sum,sum_sq,histogram}
// one-pass statistics). Safe to call before any Feed; buckets is
// forwarded to NewStats.
func (q *EntropyQuantizer) TrackStats(buckets int) { q.stats = NewStats(buckets) }

// Stats returns the accumulator enabled by TrackStats, or nil if it
// was never called.
func (q *EntropyQuantizer) Stats() *Stats { return q.stats }

// SetNonBias forces the non-bias (symmetric around zero) fitting mode.
func (q *EntropyQuantizer) SetNonBias(v bool) { q.nonBias = v }

// SetMax/SetMin pin explicit bounds instead of deriving them from Feed.
func (q *EntropyQuantizer) SetMax(v float32) { q.max = v; q.boundsSet = true }
func (q *EntropyQuantizer) SetMin(v float32) { q.min = v; q.boundsSet = true }

// Feed folds a batch of samples into the running min/max used when no
// explicit bounds were set via SetMax/SetMin.
func (q *EntropyQuantizer) Feed(samples []float32) {
	if q.stats != nil {
		q.stats.Feed(samples)
	}
	for _, v := range samples {
		if !q.sampleSeen {
			q.sampleMin, q.sampleMax = v, v
			q.sampleSeen = true
			continue
		}
		if v < q.sampleMin {
			q.sampleMin = v
		}
		if v > q.sampleMax {
			q.sampleMax = v
		}
	}
}

func (q *EntropyQuantizer) levels() (low, high int32) {
	switch q.width {
	case Width4:
		if q.signed {
			return -8, 7
		}
		return 0, 15
	default:
		if q.signed {
			return -128, 127
		}
		return 0, 255
	}
}

// Train derives scale/bias from the fed (or explicitly set) bounds.
// It returns annerr.KindInvalidArgument if no bounds were ever
// established (mirroring the original returning false from train()
// when called before any feed/set_max/set_min).
func (q *EntropyQuantizer) Train() error {
	min, max := q.min, q.max
	if !q.boundsSet {
		if !q.sampleSeen {
			return annerr.New("quantize.Train", annerr.KindInvalidArgument)
		}
		min, max = q.sampleMin, q.sampleMax
	}

	q.low, q.high = q.levels()
	nonBias := q.nonBias || (min < 0 && max > 0 && math.Abs(float64(min+max)) < 1e-6*float64(max-min+1))

	if nonBias {
		bound := float32(math.Max(math.Abs(float64(min)), math.Abs(float64(max))))
		if bound == 0 {
			bound = 1
		}
		q.scale = bound / float32(q.high)
		q.bias = 0
	} else {
		span := max - min
		if span == 0 {
			span = 1
		}
		q.scale = span / float32(q.high-q.low)
		q.bias = min - q.scale*float32(q.low)
	}
	return nil
}

// Bias returns the fitted zero-offset (0 in non-bias mode).
func (q *EntropyQuantizer) Bias() float32 { return q.bias }

// Scale returns the fitted per-level step.
func (q *EntropyQuantizer) Scale() float32 { return q.scale }

// Encode quantizes src into dst (dst sized equal to src; callers pack
// 4-bit output with numeric.PackInt4 themselves since Width4 values
// are returned as one int8 per element here, unpacked).
func (q *EntropyQuantizer) Encode(src []float32) []int8 {
	out := make([]int8, len(src))
	for i, v := range src {
		level := int32(math.Round(float64((v - q.bias) / q.scale)))
		if level < q.low {
			level = q.low
		}
		if level > q.high {
			level = q.high
		}
		out[i] = int8(level)
	}
	return out
}

// Decode widens quantized levels back to float32. Unsigned quantizers
// read each level as the uint8 bit pattern Encode stored.
func (q *EntropyQuantizer) Decode(src []int8) []float32 {
	out := make([]float32, len(src))
	for i, v := range src {
		level := float32(v)
		if !q.signed {
			level = float32(uint8(v))
		}
		out[i] = level*q.scale + q.bias
	}
	return out
}
