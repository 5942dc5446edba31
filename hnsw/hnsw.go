// Package hnsw implements a multi-level proximity graph index:
// greedy descent from a single entry point down to
// level 0, then a beam search at the base layer, with RNG-pruning
// neighbor selection at insert time to keep the graph navigable
// rather than just locally dense.
//
// Grounded on pkg/search/hnsw_index.go (HNSWIndex,
// searchLayerSingle/searchLayer/selectNeighbors/randomLevel), adapted
// from string node ids and a cosine-only, package-private heap to
// dense uint32 NodeIds, an arbitrary metric.IndexMetric, and the
// shared container.BoundedHeap/MinHeap primitives.
package hnsw

import (
	"math"
	"math/rand"
	"sync"

	"github.com/orneryd/annlite/annerr"
	"github.com/orneryd/annlite/container"
	"github.com/orneryd/annlite/metric"
)

// NodeId identifies a vector within one Graph. Ids are assigned by the
// graph in insertion order, not chosen by the caller; an id freed by
// Remove is never handed out again by a later Add.
type NodeId uint32

// Config holds the construction/search-time parameters: max neighbor
// count per level, construction/search beam widths, and the
// level-assignment scaling factor.
type Config struct {
	M               int // upper neighbor count per non-base level
	M0              int // max neighbor count at level 0 (typically 2*M)
	EfConstruction  int
	EfSearch        int
	LevelMultiplier float64 // 1/ln(M) when zero
}

// DefaultConfig mirrors DefaultHNSWConfig defaults.
func DefaultConfig() Config {
	return Config{
		M:               16,
		M0:              32,
		EfConstruction:  200,
		EfSearch:        100,
		LevelMultiplier: 1.0 / math.Log(16.0),
	}
}

type node struct {
	id        NodeId
	vector    []byte
	level     int
	neighbors [][]NodeId
	mu        sync.RWMutex
	deleted   bool
}

// Graph is one HNSW index over vectors of a fixed encoding/dimension,
// scored under a single metric.IndexMetric.
type Graph struct {
	cfg    Config
	metric *metric.IndexMetric

	mu         sync.RWMutex
	nodes      map[NodeId]*node
	nextID     NodeId
	entryPoint NodeId
	hasEntry   bool
	maxLevel   int

	rng *rand.Rand
}

// New creates an empty graph scored under m. cfg zero-value fields
// fall back to DefaultConfig's.
func New(m *metric.IndexMetric, cfg Config) *Graph {
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
		cfg:    cfg,
		metric: m,
		nodes:  make(map[NodeId]*node),
		rng:    rand.New(rand.NewSource(1)),
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

func (g *Graph) dist(query []byte, id NodeId) float32 {
	return g.metric.Distance(query, g.nodes[id].vector)
}

func (g *Graph) maxNeighborsAt(level int) int {
	if level == 0 {
		return g.cfg.M0
	}
	return g.cfg.M
}

// Add inserts vec (already encoded in the graph's metric's encoding)
// and returns its assigned NodeId.
func (g *Graph) Add(vec []byte) (NodeId, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	level := g.randomLevel()
	id := g.nextID
	g.nextID++

	n := &node{id: id, vector: vec, level: level, neighbors: make([][]NodeId, level+1)}
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
		ep = g.searchLayerSingle(vec, ep, l)
	}

	for l := min(level, epLevel); l >= 0; l-- {
		candidates := g.searchLayer(vec, ep, g.cfg.EfConstruction, l)
		selected := g.selectNeighborsRNG(vec, candidates, g.maxNeighborsAt(l))
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

// connect adds id as a neighbor of nb at level, pruning back to the
// level's max neighbor count via RNG selection if that overflows it.
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
	neighbor.neighbors[level] = g.selectNeighborsRNG(neighbor.vector, all, g.maxNeighborsAt(level))
}

// Get returns the raw encoded vector stored at id, for the read-side
// get_vector(key) contract of IndexProvider.
func (g *Graph) Get(id NodeId) ([]byte, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	if !ok || n.deleted {
		return nil, false
	}
	return n.vector, true
}

// Remove marks id deleted and unlinks it from its neighbors' adjacency
// lists. Its id is not reused until the graph is compacted externally.
func (g *Graph) Remove(id NodeId) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	n, ok := g.nodes[id]
	if !ok || n.deleted {
		return annerr.New("hnsw.Remove", annerr.KindNoExist)
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

// Search returns up to k nearest neighbors to query.
func (g *Graph) Search(query []byte, k int) []container.ScoredItem {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasEntry {
		return nil
	}

	ep := g.entryPoint
	for l := g.maxLevel; l > 0; l-- {
		ep = g.searchLayerSingle(query, ep, l)
	}

	ef := g.cfg.EfSearch
	if ef < k {
		ef = k
	}
	candidates := g.searchLayer(query, ep, ef, 0)

	top := container.NewBoundedHeap(k)
	for _, id := range candidates {
		top.Push(container.ScoredItem{ID: uint32(id), Score: g.dist(query, id)})
	}
	return top.Sorted()
}

// SearchFiltered is Search extended with the IndexContext knobs: an Ef
// override, a hard ScanLimit on nodes visited, an id Filter, and
// group-by result capping (each accepted key is grouped by a
// caller-provided function; distinct groups are capped at group_num
// with group_topk per group). The beam search itself never consults
// Filter or GroupBy —
// it runs exactly as Search's does — so the entry-point traversal
// still advances on the single nearest candidate even when that
// candidate would later be rejected by the filter or group cap,
// matching the documented quirk in HnswRabitqQueryAlgorithm that this
// behavior is left as-is rather than resolved.
func (g *Graph) SearchFiltered(query []byte, opts container.SearchOptions) []container.ScoredItem {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if !g.hasEntry {
		return nil
	}

	ep := g.entryPoint
	for l := g.maxLevel; l > 0; l-- {
		ep = g.searchLayerSingle(query, ep, l)
	}

	ef := opts.Ef
	if ef <= 0 {
		ef = g.cfg.EfSearch
	}
	if ef < opts.K {
		ef = opts.K
	}
	if opts.GroupBy != nil && ef < opts.K*4 {
		// widen the pool so group capping has enough candidates to pick
		// groupNum*groupTopK worth of results from
		ef = opts.K * 4
	}
	candidates := g.searchLayerScanLimited(query, ep, ef, 0, opts.ScanLimit)

	scored := make([]container.ScoredItem, len(candidates))
	for i, id := range candidates {
		scored[i] = container.ScoredItem{ID: uint32(id), Score: g.dist(query, id)}
	}
	return container.ApplyFilterGroup(scored, opts)
}

// searchLayerSingle greedily descends from entryID at level,
// returning the locally closest node found, for traversing levels
// above the base layer where only one path needs to be followed.
func (g *Graph) searchLayerSingle(query []byte, entryID NodeId, level int) NodeId {
	current := entryID
	currentDist := g.dist(query, current)

	for {
		changed := false
		n := g.nodes[current]
		n.mu.RLock()
		neighbors := append([]NodeId{}, n.neighbors[level]...)
		n.mu.RUnlock()

		for _, nbID := range neighbors {
			d := g.dist(query, nbID)
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

// searchLayer runs the ef-bounded beam search at level, returning
// candidate ids ordered nearest-first.
func (g *Graph) searchLayer(query []byte, entryID NodeId, ef int, level int) []NodeId {
	return g.searchLayerScanLimited(query, entryID, ef, level, 0)
}

// searchLayerScanLimited is searchLayer with an optional hard cap on
// the number of nodes visited (set_scan_limit);
// scanLimit <= 0 means unlimited, matching searchLayer's behavior.
func (g *Graph) searchLayerScanLimited(query []byte, entryID NodeId, ef, level, scanLimit int) []NodeId {
	visited := map[NodeId]bool{entryID: true}

	candidates := container.NewMinHeap()
	results := container.NewBoundedHeap(ef)

	entryDist := g.dist(query, entryID)
	candidates.Push(container.ScoredItem{ID: uint32(entryID), Score: entryDist})
	results.Push(container.ScoredItem{ID: uint32(entryID), Score: entryDist})

	visitedCount := 1
	for candidates.Len() > 0 {
		if scanLimit > 0 && visitedCount >= scanLimit {
			break
		}
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
			visitedCount++

			d := g.dist(query, nbID)
			if !results.Full() || d < results.Worst() {
				candidates.Push(container.ScoredItem{ID: uint32(nbID), Score: d})
				results.Push(container.ScoredItem{ID: uint32(nbID), Score: d})
			}
			if scanLimit > 0 && visitedCount >= scanLimit {
				break
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

// selectNeighborsRNG applies the relative-neighborhood-graph pruning
// heuristic: a candidate is kept only if it is closer to the query
// than to every neighbor already selected, which favors spreading
// neighbors across directions over clustering them all on the nearest
// side (the richer alternative to plain distance-sort
// truncation).
func (g *Graph) selectNeighborsRNG(query []byte, candidates []NodeId, m int) []NodeId {
	if len(candidates) <= m {
		return candidates
	}

	type scored struct {
		id   NodeId
		dist float32
	}
	ranked := make([]scored, len(candidates))
	for i, c := range candidates {
		ranked[i] = scored{id: c, dist: g.dist(query, c)}
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
		for _, s := range selected {
			if g.metric.Distance(g.nodes[cand.id].vector, g.nodes[s].vector) < cand.dist {
				keep = false
				break
			}
		}
		if keep {
			selected = append(selected, cand.id)
		}
	}
	// RNG pruning can reject everything in pathological configurations;
	// fall back to nearest-first truncation to guarantee m neighbors
	// when enough candidates exist.
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
