package container

import (
	"fmt"
	"strconv"
)

// Params is the string->variant configuration bag carried in
// IndexMeta's MetricParams and ReformerParams
//. Values are stored as `any` but every
// accessor does an explicit type check rather than a blind assertion,
// since Params commonly round-trips through YAML/JSON where numbers
// decode as float64.
type Params struct {
	values map[string]any
}

// NewParams returns an empty Params bag.
func NewParams() *Params {
	return &Params{values: make(map[string]any)}
}

// ParamsFromValues wraps an existing string->variant map as a Params
// bag, e.g. one decoded from the YAML blob a dumped index's metadata
// header carries. m is taken by reference, not copied.
func ParamsFromValues(m map[string]any) *Params {
	if m == nil {
		m = make(map[string]any)
	}
	return &Params{values: m}
}

// Values returns the bag's underlying string->variant map, e.g. for
// marshaling into an index header. Mutating the returned map mutates
// p.
func (p *Params) Values() map[string]any {
	return p.values
}

// Set stores value under key, overwriting any previous value.
func (p *Params) Set(key string, value any) *Params {
	p.values[key] = value
	return p
}

// Has reports whether key is present.
func (p *Params) Has(key string) bool {
	_, ok := p.values[key]
	return ok
}

// Keys returns every key currently set, in no particular order.
func (p *Params) Keys() []string {
	keys := make([]string, 0, len(p.values))
	for k := range p.values {
		keys = append(keys, k)
	}
	return keys
}

// GetString returns the string value for key, or def if absent or of
// the wrong type.
func (p *Params) GetString(key, def string) string {
	if v, ok := p.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// GetInt returns the int value for key, or def if absent or
// unconvertible. Both int and float64 (the common YAML/JSON decode
// shape) are accepted.
func (p *Params) GetInt(key string, def int) int {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i
		}
	}
	return def
}

// GetFloat returns the float64 value for key, or def if absent or
// unconvertible.
func (p *Params) GetFloat(key string, def float64) float64 {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return f
		}
	}
	return def
}

// GetBool returns the bool value for key, or def if absent or
// unconvertible.
func (p *Params) GetBool(key string, def bool) bool {
	v, ok := p.values[key]
	if !ok {
		return def
	}
	switch b := v.(type) {
	case bool:
		return b
	case string:
		if parsed, err := strconv.ParseBool(b); err == nil {
			return parsed
		}
	}
	return def
}

// String implements fmt.Stringer for debug output and test failure
// messages.
func (p *Params) String() string {
	return fmt.Sprintf("Params%v", p.values)
}

// Recognised parameter keys. Components look these
// up directly rather than hardcoding the string literal at every call
// site, so a typo is a compile error instead of a silent no-op.
const (
	ParamHnswMaxNeighborCount   = "proxima.hnsw_rabitq.streamer.max_neighbor_count"
	ParamHnswUpperNeighborCount = "proxima.hnsw_rabitq.streamer.upper_neighbor_count"
	ParamHnswScalingFactor      = "proxima.hnsw_rabitq.streamer.scaling_factor"
	ParamHnswEfConstruction     = "proxima.hnsw_rabitq.streamer.efconstruction"
	ParamHnswEf                 = "proxima.hnsw_rabitq.streamer.ef"
	ParamHnswDimension          = "proxima.hnsw_rabitq.general.dimension"
	ParamIvfCentroidCount       = "PARAM_IVF_BUILDER_CENTROID_COUNT"
	ParamIvfClusterClass        = "PARAM_IVF_BUILDER_CLUSTER_CLASS"
)
