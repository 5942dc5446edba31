package quantize

import "math"

// Stats is the streaming {min, max, sum, sum_sq, histogram}
// accumulator this describes for one-pass quantizer
// training: samples are folded in incrementally (an iterator pass over
// an IndexHolder, or any other batch source), and Mean/Variance are
// derived from the running accumulators at the end, matching the
// one-pass fit `integer_quantizer_test.cc` exercises for
// EntropyInt8Quantizer.
//
// The histogram is the exception: when buckets > 0, Feed keeps a copy
// of every sample, and Histogram bins those copies into equal-width
// buckets over the final [Min, Max] range. With buckets <= 0 no sample
// is retained.
type Stats struct {
	buckets int

	count   uint64
	sum     float64
	sumSq   float64
	min     float32
	max     float32
	seen    bool
	samples []float32 // every fed sample when buckets > 0, binned by Histogram
}

// NewStats creates an accumulator with the given histogram bucket
// count. buckets <= 0 disables histogram tracking (Histogram always
// returns nil), useful when only mean/variance are needed.
func NewStats(buckets int) *Stats {
	return &Stats{buckets: buckets}
}

// Feed folds samples into the running accumulators.
func (s *Stats) Feed(samples []float32) {
	for _, v := range samples {
		if !s.seen {
			s.min, s.max = v, v
			s.seen = true
		} else if v < s.min {
			s.min = v
		} else if v > s.max {
			s.max = v
		}
		s.count++
		s.sum += float64(v)
		s.sumSq += float64(v) * float64(v)
		if s.buckets > 0 {
			s.samples = append(s.samples, v)
		}
	}
}

// Count returns the number of samples fed so far.
func (s *Stats) Count() uint64 { return s.count }

// Min returns the smallest sample fed, or 0 if none have been.
func (s *Stats) Min() float32 { return s.min }

// Max returns the largest sample fed, or 0 if none have been.
func (s *Stats) Max() float32 { return s.max }

// Sum returns the running sum of all samples fed.
func (s *Stats) Sum() float64 { return s.sum }

// SumSq returns the running sum of squares of all samples fed.
func (s *Stats) SumSq() float64 { return s.sumSq }

// Mean returns the arithmetic mean of all samples fed, or 0 if none
// have been.
func (s *Stats) Mean() float64 {
	if s.count == 0 {
		return 0
	}
	return s.sum / float64(s.count)
}

// Variance returns the population variance computed from the running
// sum/sum-of-squares accumulators (E[x^2] - E[x]^2), or 0 if fewer
// than one sample has been fed.
func (s *Stats) Variance() float64 {
	if s.count == 0 {
		return 0
	}
	mean := s.Mean()
	v := s.sumSq/float64(s.count) - mean*mean
	if v < 0 {
		v = 0 // guard against float cancellation on near-constant input
	}
	return v
}

// StdDev returns sqrt(Variance()).
func (s *Stats) StdDev() float64 { return math.Sqrt(s.Variance()) }

// Histogram buckets every sample fed so far into s.buckets equal-width
// bins spanning [Min(), Max()]. Returns nil if buckets was <= 0 at
// construction or no samples have been fed.
func (s *Stats) Histogram() []uint64 {
	if s.buckets <= 0 || s.count == 0 {
		return nil
	}
	hist := make([]uint64, s.buckets)
	span := float64(s.max) - float64(s.min)
	if span == 0 {
		hist[0] = s.count
		return hist
	}
	width := span / float64(s.buckets)
	for _, v := range s.samples {
		idx := int((float64(v) - float64(s.min)) / width)
		if idx >= s.buckets {
			idx = s.buckets - 1
		}
		if idx < 0 {
			idx = 0
		}
		hist[idx]++
	}
	return hist
}
