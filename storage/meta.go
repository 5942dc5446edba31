package storage

import (
	flatbuffers "github.com/google/flatbuffers/go"
	"gopkg.in/yaml.v3"

	"github.com/orneryd/annlite/annerr"
	"github.com/orneryd/annlite/container"
	"github.com/orneryd/annlite/metric"
)

// MajorOrder selects how a segment's batched candidate blocks are
// laid out on disk: row-major (vectors stored one after another) or
// column-major (InterleaveColumnMajor's lane-major layout, the shape
// DistanceBatch expects). MajorOrderUndefined covers a segment that
// never interleaves, e.g. one with no batched kernel.
type MajorOrder byte

const (
	MajorOrderUndefined MajorOrder = iota
	MajorOrderRow
	MajorOrderColumn
)

func (o MajorOrder) String() string {
	switch o {
	case MajorOrderRow:
		return "row"
	case MajorOrderColumn:
		return "column"
	default:
		return "undefined"
	}
}

// metaRevisionKey stores set_metric's revision argument inside
// MetricParams rather than as its own header slot, since a revision
// is just another piece of construction-time metric state and
// MetricParams already round-trips through the header.
const metaRevisionKey = "annlite.metric_revision"

// IndexMeta is the header an index dump carries (a flatbuffer whose
// size varies with its params and reformer name): enough to reconstruct the
// IndexMetric and validate the body without touching the buffer pool.
//
// Serialized with flatbuffers (github.com/google/flatbuffers/go)
// rather than a hand-rolled binary.Write struct: flatbuffers carries
// exactly this kind of small, versioned, zero-copy-readable header,
// and go.mod already pulls it in transitively through badger's
// dependency graph, so this is the header format that dependency was
// waiting for. The schema here is built directly against the
// flatbuffers Go runtime (StartObject/Prepend*Slot/EndObject) rather
// than through flatc-generated accessors, since no code generator runs
// in this build.
type IndexMeta struct {
	Version   uint32
	Dim       uint32
	Encoding  metric.Encoding
	Metric    metric.Name
	Count     uint64
	BlockSize uint32

	// MetricParams carries the metric.Options a metric.IndexMetric was
	// constructed with (e.g. the MIPS injection mode), so reopening a
	// dump reconstructs a handle with the same behavior it was built
	// with rather than falling back to defaults.
	MetricParams *container.Params
	// ReformerName identifies the quantize.Reformer configuration (if
	// any) that produced this segment's codes, e.g. "rabitq".
	ReformerName string
	// ReformerParams carries that reformer's construction parameters
	// (padded_dim, ex_bits, and similar), so a dump can be reopened
	// into a reformer compatible with its stored codes.
	ReformerParams *container.Params
	// MajorOrder records whether this segment's batched candidate
	// blocks are row- or column-major, or undefined if it never
	// interleaves.
	MajorOrder MajorOrder
}

// SetMeta sets the data type and dimensionality in one call.
func (m *IndexMeta) SetMeta(enc metric.Encoding, dim uint32) {
	m.Encoding = enc
	m.Dim = dim
}

// SetMetric sets the metric name together with its construction
// parameters and revision. revision is folded into params under
// metaRevisionKey rather than carried as a separate header slot.
func (m *IndexMeta) SetMetric(name metric.Name, revision int, params *container.Params) {
	if params == nil {
		params = container.NewParams()
	}
	params.Set(metaRevisionKey, revision)
	m.Metric = name
	m.MetricParams = params
}

// MetricRevision returns the revision SetMetric stored alongside
// MetricParams, or 0 if none was ever set.
func (m *IndexMeta) MetricRevision() int {
	if m.MetricParams == nil {
		return 0
	}
	return m.MetricParams.GetInt(metaRevisionKey, 0)
}

// SetReformer sets the reformer name and construction parameters a
// segment's codes were produced with.
func (m *IndexMeta) SetReformer(name string, params *container.Params) {
	m.ReformerName = name
	m.ReformerParams = params
}

// SetMajorOrder sets the segment's batch layout. Column-major is
// rejected unless Dim is a multiple of at least one registered batch
// width wider than a single lane (metric.BatchWidths), since a
// column-major block with no whole batch of candidates per lane can't
// be produced by InterleaveColumnMajor.
func (m *IndexMeta) SetMajorOrder(order MajorOrder) error {
	if order == MajorOrderColumn {
		aligned := false
		for _, w := range metric.BatchWidths {
			if w > 1 && m.Dim != 0 && int(m.Dim)%w == 0 {
				aligned = true
				break
			}
		}
		if !aligned {
			return annerr.New("storage.IndexMeta.SetMajorOrder", annerr.KindInvalidArgument)
		}
	}
	m.MajorOrder = order
	return nil
}

// metric name <-> ordinal mapping kept local to the header so the
// serialized form never depends on metric.Name's string bytes.
var metaMetricOrdinals = []metric.Name{
	metric.Hamming,
	metric.SquaredEuclidean,
	metric.Euclidean,
	metric.InnerProduct,
	metric.MinusInnerProduct,
	metric.Cosine,
	metric.MipsSquaredEuclidean,
}

func metricOrdinal(n metric.Name) byte {
	for i, m := range metaMetricOrdinals {
		if m == n {
			return byte(i)
		}
	}
	return 0xFF
}

func metricFromOrdinal(o byte) (metric.Name, error) {
	if int(o) >= len(metaMetricOrdinals) {
		return "", annerr.New("storage.metricFromOrdinal", annerr.KindInvalidFormat)
	}
	return metaMetricOrdinals[o], nil
}

// marshalParams renders a Params bag as a YAML blob for storage in a
// byte-vector header slot, the same map-of-any shape Params already
// round-trips through config YAML overlays with. A nil bag marshals
// to nil, so an unset MetricParams/ReformerParams costs no header
// bytes.
func marshalParams(p *container.Params) []byte {
	if p == nil {
		return nil
	}
	b, err := yaml.Marshal(p.Values())
	if err != nil {
		return nil
	}
	return b
}

func unmarshalParams(b []byte) (*container.Params, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var values map[string]any
	if err := yaml.Unmarshal(b, &values); err != nil {
		return nil, annerr.Wrap("storage.unmarshalParams", annerr.KindInvalidFormat, err)
	}
	return container.ParamsFromValues(values), nil
}

const (
	metaFieldVersion = iota
	metaFieldDim
	metaFieldEncoding
	metaFieldMetric
	metaFieldCountLo
	metaFieldCountHi
	metaFieldBlockSize
	metaFieldMetricParams
	metaFieldReformerName
	metaFieldReformerParams
	metaFieldMajorOrder
	metaFieldCount // number of fields, not a field itself
)

// EncodeIndexMeta serializes m into a flatbuffer.
func EncodeIndexMeta(m IndexMeta) []byte {
	b := flatbuffers.NewBuilder(64)

	// String/vector offsets are built before StartObject, same as any
	// nested flatbuffers object: the vtable only records the
	// already-built offset into each slot.
	var metricParamsOff, reformerNameOff, reformerParamsOff flatbuffers.UOffsetT
	if mp := marshalParams(m.MetricParams); len(mp) > 0 {
		metricParamsOff = b.CreateByteVector(mp)
	}
	if m.ReformerName != "" {
		reformerNameOff = b.CreateString(m.ReformerName)
	}
	if rp := marshalParams(m.ReformerParams); len(rp) > 0 {
		reformerParamsOff = b.CreateByteVector(rp)
	}

	b.StartObject(metaFieldCount)
	b.PrependUint32Slot(metaFieldVersion, m.Version, 0)
	b.PrependUint32Slot(metaFieldDim, m.Dim, 0)
	b.PrependByteSlot(metaFieldEncoding, byte(m.Encoding), 0)
	b.PrependByteSlot(metaFieldMetric, metricOrdinal(m.Metric), 0)
	// Count is split across two uint32 slots: the flatbuffers Go
	// builder's Prepend*Slot helpers are generated per scalar width and
	// there is no PrependUint64Slot in the manually-built path here, so
	// a uint64 is carried as (low, high) uint32 halves.
	b.PrependUint32Slot(metaFieldCountLo, uint32(m.Count), 0)
	b.PrependUint32Slot(metaFieldCountHi, uint32(m.Count>>32), 0)
	b.PrependUint32Slot(metaFieldBlockSize, m.BlockSize, 0)
	b.PrependUOffsetTSlot(metaFieldMetricParams, metricParamsOff, 0)
	b.PrependUOffsetTSlot(metaFieldReformerName, reformerNameOff, 0)
	b.PrependUOffsetTSlot(metaFieldReformerParams, reformerParamsOff, 0)
	b.PrependByteSlot(metaFieldMajorOrder, byte(m.MajorOrder), byte(MajorOrderUndefined))
	root := b.EndObject()

	b.Finish(root)
	return b.FinishedBytes()
}

// DecodeIndexMeta reads back a header written by EncodeIndexMeta.
func DecodeIndexMeta(buf []byte) (IndexMeta, error) {
	if len(buf) < 4 {
		return IndexMeta{}, annerr.New("storage.DecodeIndexMeta", annerr.KindInvalidFormat)
	}
	n := flatbuffers.GetUOffsetT(buf)
	tab := &flatbuffers.Table{Bytes: buf, Pos: n}

	getU32 := func(field int) uint32 {
		o := tab.Offset(flatbuffers.VOffsetT((field + 2) * 2))
		if o == 0 {
			return 0
		}
		return tab.GetUint32(o + tab.Pos)
	}
	getByte := func(field int) byte {
		o := tab.Offset(flatbuffers.VOffsetT((field + 2) * 2))
		if o == 0 {
			return 0
		}
		return tab.GetByte(o + tab.Pos)
	}
	getString := func(field int) string {
		o := tab.Offset(flatbuffers.VOffsetT((field + 2) * 2))
		if o == 0 {
			return ""
		}
		return tab.String(o + tab.Pos)
	}
	getBytes := func(field int) []byte {
		o := tab.Offset(flatbuffers.VOffsetT((field + 2) * 2))
		if o == 0 {
			return nil
		}
		return tab.ByteVector(o + tab.Pos)
	}

	m := IndexMeta{
		Version:      getU32(metaFieldVersion),
		Dim:          getU32(metaFieldDim),
		Encoding:     metric.Encoding(getByte(metaFieldEncoding)),
		Count:        uint64(getU32(metaFieldCountLo)) | uint64(getU32(metaFieldCountHi))<<32,
		BlockSize:    getU32(metaFieldBlockSize),
		ReformerName: getString(metaFieldReformerName),
		MajorOrder:   MajorOrder(getByte(metaFieldMajorOrder)),
	}
	name, err := metricFromOrdinal(getByte(metaFieldMetric))
	if err != nil {
		return IndexMeta{}, err
	}
	m.Metric = name

	metricParams, err := unmarshalParams(getBytes(metaFieldMetricParams))
	if err != nil {
		return IndexMeta{}, err
	}
	m.MetricParams = metricParams

	reformerParams, err := unmarshalParams(getBytes(metaFieldReformerParams))
	if err != nil {
		return IndexMeta{}, err
	}
	m.ReformerParams = reformerParams

	return m, nil
}
