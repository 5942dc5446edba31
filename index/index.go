// Package index ties the distance, quantization, storage, and graph
// packages together into the top-level constructs this
// names: an IndexMeta describing what's stored, a Factory that builds
// the right core (flat/hnsw/hnswrabitq) from that meta, and an
// IndexContext bundling a constructed core with its scratch buffers
// and worker pool for one query session.
package index

import (
	"encoding/binary"
	"math"
	"sync"

	"github.com/orneryd/annlite/annerr"
	"github.com/orneryd/annlite/container"
	"github.com/orneryd/annlite/flat"
	"github.com/orneryd/annlite/hnsw"
	"github.com/orneryd/annlite/hnswrabitq"
	"github.com/orneryd/annlite/metric"
)

// Kind names the index core a Provider wraps.
type Kind string

const (
	KindFlat       Kind = "flat"
	KindHNSW       Kind = "hnsw"
	KindHNSWRaBitQ Kind = "hnsw_rabitq"
)

// Provider is the uniform surface Factory-built cores expose,
// independent of whether the underlying core is a flat scan or an
// HNSW graph.
type Provider interface {
	Add(vec []byte) (uint32, error)
	Remove(id uint32) error
	Search(query []byte, k int) []container.ScoredItem
	Size() int
	// GetVector returns the raw encoded vector stored under id
	// (get_vector(key)). The second return is
	// false when id is unknown or the core doesn't retain raw
	// vectors (the RaBitQ core only keeps reformed codes).
	GetVector(id uint32) ([]byte, bool)
}

type flatProvider struct{ idx *flat.Index }

func (p *flatProvider) Add(vec []byte) (uint32, error) { return uint32(p.idx.Add(vec)), nil }
func (p *flatProvider) Remove(id uint32) error          { return p.idx.Remove(flat.NodeId(id)) }
func (p *flatProvider) Search(query []byte, k int) []container.ScoredItem {
	return p.idx.Search(query, k)
}
func (p *flatProvider) Size() int { return p.idx.Size() }
func (p *flatProvider) GetVector(id uint32) ([]byte, bool) {
	return p.idx.Get(flat.NodeId(id))
}

type hnswProvider struct{ graph *hnsw.Graph }

func (p *hnswProvider) Add(vec []byte) (uint32, error) {
	id, err := p.graph.Add(vec)
	return uint32(id), err
}
func (p *hnswProvider) Remove(id uint32) error { return p.graph.Remove(hnsw.NodeId(id)) }
func (p *hnswProvider) Search(query []byte, k int) []container.ScoredItem {
	return p.graph.Search(query, k)
}
func (p *hnswProvider) Size() int { return p.graph.Size() }
func (p *hnswProvider) GetVector(id uint32) ([]byte, bool) {
	return p.graph.Get(hnsw.NodeId(id))
}

// SearchFiltered delegates to hnsw.Graph's own filter/group-by-aware
// beam search, satisfying the package-local filteredSearcher
// interface Context.SearchFiltered type-asserts for.
func (p *hnswProvider) SearchFiltered(query []byte, opts container.SearchOptions) []container.ScoredItem {
	return p.graph.SearchFiltered(query, opts)
}

// hnswRaBitQProvider adapts hnswrabitq.Graph (which operates on
// decoded []float32 vectors, per its reform-against-centroid
// contract) to the byte-encoded Provider surface every other core
// shares. Only FP32 is supported: the RaBitQ reformer's residual math
// needs float precision, matching "normalised
// vectors" framing.
type hnswRaBitQProvider struct {
	graph *hnswrabitq.Graph
	dim   int
}

func decodeFP32(vec []byte, dim int) []float32 {
	out := make([]float32, dim)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(vec[i*4:]))
	}
	return out
}

func (p *hnswRaBitQProvider) Add(vec []byte) (uint32, error) {
	id, err := p.graph.Add(decodeFP32(vec, p.dim))
	return uint32(id), err
}
func (p *hnswRaBitQProvider) Remove(id uint32) error {
	return p.graph.Remove(hnswrabitq.NodeId(id))
}
func (p *hnswRaBitQProvider) Search(query []byte, k int) []container.ScoredItem {
	return p.graph.Search(decodeFP32(query, p.dim), k)
}
func (p *hnswRaBitQProvider) Size() int { return p.graph.Size() }

// GetVector always reports false: the RaBitQ core only retains
// reformed bin/ex codes, never the raw vector (that's the point of
// quantizing it), so there is nothing byte-exact to hand back.
func (p *hnswRaBitQProvider) GetVector(id uint32) ([]byte, bool) { return nil, false }

// Factory constructs a Provider of the given kind over m. It is the
// string-keyed registry that lets a caller holding a Kind (Open takes
// one next to the IndexMeta, which records no kind itself) rebuild the
// right core without a type switch.
type Factory struct {
	mu   sync.RWMutex
	ctor map[Kind]func(m *metric.IndexMetric) Provider
}

// NewFactory creates a Factory pre-registered with the flat, hnsw and
// hnsw_rabitq cores.
func NewFactory() *Factory {
	f := &Factory{ctor: make(map[Kind]func(*metric.IndexMetric) Provider)}
	f.Register(KindFlat, func(m *metric.IndexMetric) Provider {
		return &flatProvider{idx: flat.New(m)}
	})
	f.Register(KindHNSW, func(m *metric.IndexMetric) Provider {
		return &hnswProvider{graph: hnsw.New(m, hnsw.DefaultConfig())}
	})
	f.Register(KindHNSWRaBitQ, func(m *metric.IndexMetric) Provider {
		return &hnswRaBitQProvider{graph: hnswrabitq.New(m.Dim, hnswrabitq.DefaultConfig()), dim: m.Dim}
	})
	return f
}

// Register adds or replaces the constructor for kind.
func (f *Factory) Register(kind Kind, ctor func(m *metric.IndexMetric) Provider) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ctor[kind] = ctor
}

// Build constructs a Provider of kind scored under m.
func (f *Factory) Build(kind Kind, m *metric.IndexMetric) (Provider, error) {
	f.mu.RLock()
	ctor, ok := f.ctor[kind]
	f.mu.RUnlock()
	if !ok {
		return nil, annerr.New("index.Factory.Build", annerr.KindNoExist)
	}
	return ctor(m), nil
}
