// Package hnswrabitq implements a RaBitQ-quantized variant of the HNSW
// graph: the same multi-level
// proximity graph as package hnsw, but every stored vector is
// reformed through quantize.Reformer into a bin+ex RaBitQ code, and
// distance during both insert and search is evaluated in two shots —
// a cheap bin-only estimate first, with the more expensive bin+ex
// refinement only run on candidates the coarse estimate can't already
// rule out.
//
// Grounded on the same pkg/search/hnsw_index.go reference as package
// hnsw (for the graph topology/beam-search control flow) plus
// _examples/original_source/src/core/algorithm/hnsw-rabitq/
// hnsw_rabitq_query_algorithm.cc for the get_bin_est-then-get_full_est
// staging this describes.
//
// Simplification vs. the original (consistent with the scope decision
// already recorded for quantize.Reformer): this graph treats the
// whole index as a single RaBitQ cluster, centered on the first
// inserted vector rather than a trained centroid set. There is no
// clustering/IVF training pipeline in this pass, so the per-cluster
// ClusterFactor is a fixed unit factor rather than one fit by a
// trainer. This keeps the two-stage estimate-then-refine control flow
// exercisable without requiring a centroid-training/clustering
// machinery this core deliberately leaves out.
package hnswrabitq

import (
	"math"
	"math/rand"
	"sync"

	"github.com/orneryd/annlite/annerr"
	"github.com/orneryd/annlite/container"
	"github.com/orneryd/annlite/quantize"
)

// NodeId identifies a vector within one Graph.
type NodeId uint32

// Config mirrors hnsw.Config, plus ExBits selecting the RaBitQ
// residual-refinement width (0 disables the ex stage entirely).
type Config struct {
	M               int
	M0              int
	EfConstruction  int
	EfSearch        int
	LevelMultiplier float64
	ExBits          int
}

// DefaultConfig mirrors hnsw.DefaultConfig, with a 4-bit ex refinement
// stage enabled by default.
func DefaultConfig() Config {
	return Config{
		M:               16,
		M0:              32,
		EfConstruction:  200,
		EfSearch:        100,
		LevelMultiplier: 1.0 / math.Log(16.0),
		ExBits:          4,
	}
}

type node struct {
	id        NodeId
	level     int
	code      quantize.Code
	sign      []byte    // the node's own bin code, reused as a "query" sign when scored against other nodes
	mags      []float32 // residual magnitudes from the centroid, reused as "query" mags for construction-time refinement
	neighbors [][]NodeId
	mu        sync.RWMutex
	deleted   bool
}

// Graph is one HNSW+RaBitQ index over dim-dimensional float32 vectors.
type Graph struct {
	cfg      Config
	dim      int
	reformer *quantize.Reformer
	factor   quantize.ClusterFactor

	mu         sync.RWMutex
	centroid   []float32
	hasCenter  bool
	nodes      map[NodeId]*node
	nextID     NodeId
	entryPoint NodeId
	hasEntry   bool
	maxLevel   int

	rng *rand.Rand
}

// New creates an empty graph over dim-dimensional vectors. cfg
// zero-value fields fall back to DefaultConfig's.
func New(dim int, cfg Config) *Graph {
	def := DefaultConfig()
	if cfg.M == 0 {
		cfg.M = def.M
	}
	if cfg.M0 == 0 {
		cfg.M0 = 2 * cfg.M
	}
	if cfg.EfConstruction == 0 {
		cfg.EfConstruction = def.EfConstruction
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = def.EfSearch
	}
	if cfg.LevelMultiplier == 0 {
		cfg.LevelMultiplier = 1.0 / math.Log(float64(cfg.M))
	}
	return &Graph{
		cfg:      cfg,
		dim:      dim,
		reformer: quantize.NewReformer(dim, cfg.ExBits),
		factor:   quantize.ClusterFactor{Norm: 1, Error: 0},
		nodes:    make(map[NodeId]*node),
		rng:      rand.New(rand.NewSource(1)),
	}
}

// Size returns the number of live (non-deleted) nodes.
func (g *Graph) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

func (g *Graph) randomLevel() int {
	r := g.rng.Float64()
	for r == 0 {
		r = g.rng.Float64()
	}
	return int(-math.Log(r) * g.cfg.LevelMultiplier)
}

func (g *Graph) maxNeighborsAt(level int) int {
	if level == 0 {
		return g.cfg.M0
	}
	return g.cfg.M
}

// splitVector reforms vec against the graph's fixed centroid, yielding
// its bin sign code, residual magnitudes (for the ex refinement
// stage), and the reformed Code stored on the node.
func (g *Graph) splitVector(vec []float32) (quantize.Code, []byte, []float32) {
	code := g.reformer.Reform(vec, g.centroid, 0)
	mags := make([]float32, g.dim)
	for i, v := range vec {
		mags[i] = float32(math.Abs(float64(v - g.centroid[i])))
	}
	return code, code.Bin, mags
}

// estLow returns the coarse bin-only estimate and its guaranteed lower
// bound (low <= est always, per split_single_estdist
// contract), in "smaller is closer" distance units.
func (g *Graph) estLow(querySign []byte, n *node) (est, low float32) {
	raw := quantize.BinEstimate(querySign, n.code.Bin, g.dim, g.factor)
	best := g.factor.Norm + g.factor.Error
	est = best - raw
	low = est - 2*float32(math.Abs(float64(g.factor.Error)))
	return est, low
}

// full returns the bin+ex refined distance, per split_single_fulldist.
func (g *Graph) full(querySign []byte, queryMags []float32, n *node) float32 {
	raw := quantize.FullEstimate(querySign, queryMags, n.code, g.factor)
	best := g.factor.Norm + g.factor.Error
	return best - raw
}

// dist is the distance used for graph construction: always refined,
// since the estimate-vs-refine split (three-shot sequence) only
// pays off for query-time pruning against a fixed topk cutoff.
func (g *Graph) dist(querySign []byte, queryMags []float32, id NodeId) float32 {
	return g.full(querySign, queryMags, g.nodes[id])
}

// Add reforms vec and inserts it, returning its assigned NodeId. The
// first vector added fixes the graph's centroid for its lifetime (see
// the package doc's simplification note).
func (g *Graph) Add(vec []float32) (NodeId, error) {
	if len(vec) != g.dim {
		return 0, annerr.New("hnswrabitq.Add", annerr.KindInvalidArgument)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.hasCenter {
		g.centroid = append([]float32{}, vec...)
		g.hasCenter = true
	}

	code, sign, mags := g.splitVector(vec)

	level := g.randomLevel()
	id := g.nextID
	g.nextID++

	n := &node{id: id, level: level, code: code, sign: sign, mags: mags, neighbors: make([][]NodeId, level+1)}
	for i := range n.neighbors {
		n.neighbors[i] = make([]NodeId, 0, g.maxNeighborsAt(i))
	}
	g.nodes[id] = n

	if !g.hasEntry {
		g.entryPoint = id
		g.hasEntry = true
		g.maxLevel = level
		return id, nil
	}

	ep := g.entryPoint
	epLevel := g.nodes[ep].level

	for l := epLevel; l > level; l-- {
		ep = g.searchLayerSingle(sign, mags, ep, l)
	}

	for l := min(level, epLevel); l >= 0; l-- {
		candidates := g.searchLayer(sign, mags, ep, g.cfg.EfConstruction, l)
		selected := g.selectNeighborsRNG(sign, mags, candidates, g.maxNeighborsAt(l))
		n.neighbors[l] = selected

		for _, nb := range selected {
			g.connect(nb, id, l)
		}
		if len(candidates) > 0 {
			ep = candidates[0]
		}
	}

	if level > g.maxLevel {
		g.entryPoint = id
		g.maxLevel = level
	}
	return id, nil
}

func (g *Graph) connect(nb, id NodeId, level int) {
	neighbor := g.nodes[nb]
	neighbor.mu.Lock()
	defer neighbor.mu.Unlock()
	if len(neighbor.neighbors) <= level {
		return
	}
	if len(neighbor.neighbors[level]) < g.maxNeighborsAt(level) {
		neighbor.neighbors[level] = append(neighbor.neighbors[level], id)
		return
	}
	all := append(append([]NodeId{}, neighbor.neighbors[level]...), id)
	neighbor.neighbors[level] = g.selectNeighborsRNG(neighbor.sign, neighbor.mags, all, g.maxNeighborsAt(level))
}

// Remove marks id deleted and unlinks it from its neighbors'
// adjacency lists, mirroring hnsw.Graph.Remove.
func (g *Graph) Remove(id NodeId) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok || n.deleted {
		return annerr.New("hnswrabitq.Remove", annerr.KindNoExist)
	}

	for l := 0; l <= n.level; l++ {
		for _, nbID := range n.neighbors[l] {
			nb, ok := g.nodes[nbID]
			if !ok {
				continue
			}
			nb.mu.Lock()
			if len(nb.neighbors) > l {
				filtered := nb.neighbors[l][:0]
				for _, cand := range nb.neighbors[l] {
					if cand != id {
						filtered = append(filtered, cand)
					}
				}
				nb.neighbors[l] = filtered
			}
			nb.mu.Unlock()
		}
	}
	n.deleted = true
	delete(g.nodes, id)

	if g.entryPoint == id {
		g.hasEntry = false
		g.maxLevel = 0
		for nid, other := range g.nodes {
			if !g.hasEntry || other.level > g.maxLevel {
				g.maxLevel = other.level
				g.entryPoint = nid
				g.hasEntry = true
			}
		}
	}
	return nil
}

// Search returns up to k nearest neighbors to query, applying the
// three-shot RaBitQ sequence  at level 0: a bin
// estimate feeds the candidate frontier, and a candidate is only
// refined with the ex stage before being accepted into the topk set
// when its lower bound could still beat the current worst accepted
// estimate.
func (g *Graph) Search(query []float32, k int) []container.ScoredItem {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasEntry {
		return nil
	}
	if len(query) != g.dim {
		return nil
	}

	_, sign, mags := g.splitVector(query)

	ep := g.entryPoint
	for l := g.maxLevel; l > 0; l-- {
		ep = g.searchLayerSingleEst(sign, ep, l)
	}

	ef := g.cfg.EfSearch
	if ef < k {
		ef = k
	}
	candidates := g.searchLayerRaBitQ(sign, mags, ep, ef)

	top := container.NewBoundedHeap(k)
	for _, id := range candidates {
		top.Push(container.ScoredItem{ID: uint32(id), Score: g.full(sign, mags, g.nodes[id])})
	}
	return top.Sorted()
}

// searchLayerSingleEst greedily descends using only the coarse bin
// estimate (no refinement needed above level 0, matching hnsw.Graph's
// width-1 upper-level descent).
func (g *Graph) searchLayerSingleEst(querySign []byte, entryID NodeId, level int) NodeId {
	current := entryID
	currentEst, _ := g.estLow(querySign, g.nodes[current])

	for {
		changed := false
		n := g.nodes[current]
		n.mu.RLock()
		neighbors := append([]NodeId{}, n.neighbors[level]...)
		n.mu.RUnlock()

		for _, nbID := range neighbors {
			est, _ := g.estLow(querySign, g.nodes[nbID])
			if est < currentEst {
				current = nbID
				currentEst = est
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return current
}

// searchLayerSingle is the construction-time single-path descent
// (full refined distance, matching hnsw.Graph.searchLayerSingle).
func (g *Graph) searchLayerSingle(querySign []byte, queryMags []float32, entryID NodeId, level int) NodeId {
	current := entryID
	currentDist := g.dist(querySign, queryMags, current)

	for {
		changed := false
		n := g.nodes[current]
		n.mu.RLock()
		neighbors := append([]NodeId{}, n.neighbors[level]...)
		n.mu.RUnlock()

		for _, nbID := range neighbors {
			d := g.dist(querySign, queryMags, nbID)
			if d < currentDist {
				current = nbID
				currentDist = d
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return current
}

// searchLayer is the construction-time beam search (always refined),
// matching hnsw.Graph.searchLayer.
func (g *Graph) searchLayer(querySign []byte, queryMags []float32, entryID NodeId, ef int, level int) []NodeId {
	visited := map[NodeId]bool{entryID: true}

	candidates := container.NewMinHeap()
	results := container.NewBoundedHeap(ef)

	entryDist := g.dist(querySign, queryMags, entryID)
	candidates.Push(container.ScoredItem{ID: uint32(entryID), Score: entryDist})
	results.Push(container.ScoredItem{ID: uint32(entryID), Score: entryDist})

	for candidates.Len() > 0 {
		closest, _ := candidates.Pop()
		if results.Full() && closest.Score > results.Worst() {
			break
		}

		n := g.nodes[NodeId(closest.ID)]
		n.mu.RLock()
		neighbors := append([]NodeId{}, n.neighbors[level]...)
		n.mu.RUnlock()

		for _, nbID := range neighbors {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true

			d := g.dist(querySign, queryMags, nbID)
			if !results.Full() || d < results.Worst() {
				candidates.Push(container.ScoredItem{ID: uint32(nbID), Score: d})
				results.Push(container.ScoredItem{ID: uint32(nbID), Score: d})
			}
		}
	}

	sorted := results.Sorted()
	out := make([]NodeId, len(sorted))
	for i, item := range sorted {
		out[i] = NodeId(item.ID)
	}
	return out
}

// searchLayerRaBitQ is the level-0 query-time beam search: candidates
// are admitted to the frontier by the cheap bin estimate alone; a
// candidate only pays for ex refinement before being accepted into
// the topk result set when its lower bound could still beat the
// current worst accepted estimate, per C9 sequence.
func (g *Graph) searchLayerRaBitQ(querySign []byte, queryMags []float32, entryID NodeId, ef int) []NodeId {
	visited := map[NodeId]bool{entryID: true}

	candidates := container.NewMinHeap()
	results := container.NewBoundedHeap(ef)

	entryEst, _ := g.estLow(querySign, g.nodes[entryID])
	candidates.Push(container.ScoredItem{ID: uint32(entryID), Score: entryEst})
	results.Push(container.ScoredItem{ID: uint32(entryID), Score: entryEst})

	for candidates.Len() > 0 {
		closest, _ := candidates.Pop()
		if results.Full() && closest.Score > results.Worst() {
			break
		}

		n := g.nodes[NodeId(closest.ID)]
		n.mu.RLock()
		neighbors := append([]NodeId{}, n.neighbors[0]...)
		n.mu.RUnlock()

		for _, nbID := range neighbors {
			if visited[nbID] {
				continue
			}
			visited[nbID] = true

			nb := g.nodes[nbID]
			est, low := g.estLow(querySign, nb)
			score := est
			if g.cfg.ExBits > 0 && (!results.Full() || low < results.Worst()) {
				score = g.full(querySign, queryMags, nb)
			}
			if !results.Full() || score < results.Worst() {
				candidates.Push(container.ScoredItem{ID: uint32(nbID), Score: score})
				results.Push(container.ScoredItem{ID: uint32(nbID), Score: score})
			}
		}
	}

	sorted := results.Sorted()
	out := make([]NodeId, len(sorted))
	for i, item := range sorted {
		out[i] = NodeId(item.ID)
	}
	return out
}

// selectNeighborsRNG mirrors hnsw.Graph.selectNeighborsRNG's
// relative-neighborhood-graph pruning, scored by the refined RaBitQ
// distance instead of a raw metric.
func (g *Graph) selectNeighborsRNG(querySign []byte, queryMags []float32, candidates []NodeId, m int) []NodeId {
	if len(candidates) <= m {
		return candidates
	}

	type scored struct {
		id   NodeId
		dist float32
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{id: c, dist: g.dist(querySign, queryMags, c)}
	}
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].dist < ranked[j-1].dist; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	selected := make([]NodeId, 0, m)
	for _, cand := range ranked {
		if len(selected) >= m {
			break
		}
		keep := true
		candNode := g.nodes[cand.id]
		for _, s := range selected {
			if g.full(candNode.sign, candNode.mags, g.nodes[s]) < cand.dist {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, cand.id)
		}
	}
	if len(selected) < m && len(selected) < len(ranked) {
		seen := make(map[NodeId]bool, len(selected))
		for _, s := range selected {
			seen[s] = true
		}
		for _, cand := range ranked {
			if len(selected) >= m {
				break
			}
			if !seen[cand.id] {
				selected = append(selected, cand.id)
				seen[cand.id] = true
			}
		}
	}
	return selected
}
