package index

import (
	"context"

	"github.com/orneryd/annlite/annerr"
	"github.com/orneryd/annlite/cache"
	"github.com/orneryd/annlite/container"
	"github.com/orneryd/annlite/metric"
	"github.com/orneryd/annlite/metrics"
	"github.com/orneryd/annlite/storage"
)

// Context bundles one constructed Provider with the IndexMeta it was
// built from, a ScratchPool for its per-query working buffers, and a
// Threads pool for parallelizing batched operations. It is the single
// object a caller holds per open index, as opposed to Factory/Provider
// which only know how to build one core.
type Context struct {
	Meta     storage.IndexMeta
	Metric   *metric.IndexMetric
	Provider Provider

	Scratch *ScratchPool
	Workers *Threads

	// vcache is an optional read-through cache in front of
	// Provider.GetVector, enabled via EnableVectorCache. Re-ranking
	// and group-by passes that repeatedly resolve the same key
	// benefit from it; plain add/search paths never touch it.
	vcache *cache.VectorCache

	// holder mirrors every Add into a Holder replay log, enabled via
	// EnableHolder. Nil by default: most callers never need a second
	// copy of every vector just to run one quantizer-fitting pass.
	holder *Holder

	// Recorder receives this Context's query-time stats counters
	// (IndexContext "stats counters"). Nil by
	// default; set it directly to start recording.
	Recorder *metrics.Recorder
}

// Open builds a Context from a stored IndexMeta: resolves the
// IndexMetric it describes, builds the matching Provider out of
// factory, and wires up a scratch pool and worker pool sized for
// concurrent batched queries. Workers defaults to 1 (serial) when n
// <= 0.
func Open(meta storage.IndexMeta, kind Kind, factory *Factory, workers int, pooled bool) (*Context, error) {
	m, err := metric.New(meta.Metric, meta.Encoding, int(meta.Dim), metric.Options{})
	if err != nil {
		return nil, err
	}
	p, err := factory.Build(kind, m)
	if err != nil {
		return nil, err
	}
	return &Context{
		Meta:     meta,
		Metric:   m,
		Provider: p,
		Scratch:  NewScratchPool(pooled),
		Workers:  NewThreads(workers),
	}, nil
}

// EnableVectorCache installs a VectorCache sized at maxCostBytes in
// front of the Context's GetVector reads. Safe to call once per
// Context; a second call replaces the prior cache.
func (c *Context) EnableVectorCache(maxCostBytes int64) error {
	vc, err := cache.New(c.Provider, maxCostBytes)
	if err != nil {
		return err
	}
	c.vcache = vc
	return nil
}

// GetVector resolves id to its raw stored vector, consulting the
// vector cache first when EnableVectorCache has been called.
func (c *Context) GetVector(id uint32) ([]byte, bool) {
	if c.vcache != nil {
		return c.vcache.GetVector(id)
	}
	return c.Provider.GetVector(id)
}

// EnableHolder installs a Holder that mirrors every future Add call,
// replaying its own copy of each vector in insertion order for passes
// that need to see the whole data set once (the IndexHolder iterator
// pattern; see Holder.FitQuantizerStats). Safe to call
// once per Context; a second call replaces the prior holder and drops
// whatever it had already recorded.
func (c *Context) EnableHolder() *Holder {
	c.holder = NewHolder(int(c.Meta.Dim), c.Meta.Encoding)
	return c.holder
}

// Holder returns the Holder installed by EnableHolder, or nil if one
// was never enabled.
func (c *Context) Holder() *Holder { return c.holder }

// Add inserts vec, increments the meta's running count, and returns
// the new id.
func (c *Context) Add(vec []byte) (uint32, error) {
	id, err := c.Provider.Add(vec)
	if err != nil {
		return 0, err
	}
	c.Meta.Count++
	if c.holder != nil {
		_ = c.holder.Emplace(id, vec)
	}
	return id, nil
}

// Remove deletes id and decrements the meta's running count.
func (c *Context) Remove(id uint32) error {
	if err := c.Provider.Remove(id); err != nil {
		return err
	}
	if c.vcache != nil {
		c.vcache.Invalidate(id)
	}
	if c.Meta.Count > 0 {
		c.Meta.Count--
	}
	return nil
}

// filteredSearcher is implemented by cores that can apply a
// container.SearchOptions' Filter/GroupBy/ScanLimit during their own
// beam search, currently only hnswProvider — the core group-by
// capping targets.
type filteredSearcher interface {
	SearchFiltered(query []byte, opts container.SearchOptions) []container.ScoredItem
}

// SearchFiltered runs one query with the IndexContext knobs
// (set_ef/set_filter/set_group_by/set_scan_limit). Cores that know how
// to apply these during traversal (hnsw) do so;
// any other core falls back to pulling a wider unfiltered candidate
// pool from Search and applying the same Filter/GroupBy selection
// rules over it afterward.
func (c *Context) SearchFiltered(query []byte, opts container.SearchOptions) []container.ScoredItem {
	if fs, ok := c.Provider.(filteredSearcher); ok {
		return fs.SearchFiltered(query, opts)
	}

	poolSize := opts.K
	if opts.Ef > poolSize {
		poolSize = opts.Ef
	}
	if opts.GroupBy != nil && poolSize < opts.K*4 {
		poolSize = opts.K * 4
	}
	candidates := c.Provider.Search(query, poolSize)
	return container.ApplyFilterGroup(candidates, opts)
}

// Search runs queries concurrently across the Context's worker pool,
// one job per query, returning results in input order. A single query
// runs synchronously without crossing the pool.
func (c *Context) Search(queries [][]byte, k int) ([][]container.ScoredItem, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	c.Recorder.Add(context.Background(), "index.queries", int64(len(queries)))
	if len(queries) == 1 {
		return [][]container.ScoredItem{c.Provider.Search(queries[0], k)}, nil
	}
	out := make([][]container.ScoredItem, len(queries))
	c.Workers.RunBatch(len(queries), func(i int) {
		out[i] = c.Provider.Search(queries[i], k)
	})
	return out, nil
}

// Close stops the Context's worker pool. The underlying Provider and
// any storage the caller opened separately are unaffected.
func (c *Context) Close() error {
	if c.Workers == nil {
		return annerr.New("index.Context.Close", annerr.KindInvalidArgument)
	}
	c.Workers.Close()
	if c.vcache != nil {
		c.vcache.Close()
	}
	return nil
}
