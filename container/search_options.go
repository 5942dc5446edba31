package container

// SearchOptions configures one filtered/grouped search call, the
// knobs IndexContext builder methods name:
// set_ef, set_filter, set_group_by, set_scan_limit. It lives here
// (rather than in index/ or hnsw/) so both a graph core and the
// index package that wraps it can share one type without an import
// cycle between them.
type SearchOptions struct {
	// K is the number of results requested.
	K int
	// Ef overrides a core's configured search beam width; zero keeps
	// the core's default.
	Ef int
	// Filter, when set, rejects an id from the result set outright
	// (the visit_filter knob).
	Filter func(id uint32) bool
	// GroupBy, when set, assigns each accepted id to a group key; at
	// most GroupNum distinct groups appear in the result, each
	// contributing at most GroupTopK members (group-by result
	// capping).
	GroupBy   func(id uint32) uint64
	GroupNum  int
	GroupTopK int
	// ScanLimit caps the number of candidate nodes a beam search will
	// visit before stopping, independent of Ef; zero means unlimited.
	ScanLimit int
}

// ApplyFilterGroup walks candidates (already nearest-first) and
// returns at most opts.K of them, skipping any opts.Filter rejects
// and capping group membership per opts.GroupBy/GroupNum/GroupTopK.
// Cores whose beam search can't apply these during traversal (or any
// caller working from an already-produced candidate list) use this to
// get the same selection semantics as a core that filters inline.
func ApplyFilterGroup(candidates []ScoredItem, opts SearchOptions) []ScoredItem {
	k := opts.K
	if k <= 0 {
		k = len(candidates)
	}
	var groupCounts map[uint64]int
	if opts.GroupBy != nil {
		groupCounts = make(map[uint64]int, opts.GroupNum)
	}
	out := make([]ScoredItem, 0, k)
	for _, c := range candidates {
		if len(out) >= k {
			break
		}
		if opts.Filter != nil && !opts.Filter(c.ID) {
			continue
		}
		if opts.GroupBy != nil {
			grp := opts.GroupBy(c.ID)
			count, known := groupCounts[grp]
			if !known && len(groupCounts) >= opts.GroupNum {
				continue
			}
			if count >= opts.GroupTopK {
				continue
			}
			groupCounts[grp] = count + 1
		}
		out = append(out, c)
	}
	return out
}
