// Package index implements the digest -> nodes bucket map the resolver
// consults to find duplicate candidates.
package index

import "github.com/boblaublaw/dedup/internal/forest"

// Index maps a content digest to every live node sharing it, and tracks
// the depth range of everything it has seen (MinDepth/MaxDepth). The
// resolver orders buckets by digest and does not read this range.
type Index struct {
	buckets  map[string][]forest.Node
	minDepth int32
	maxDepth int32
	seeded   bool
}

// New returns an empty Index.
func New() *Index {
	return &Index{buckets: make(map[string][]forest.Node)}
}

// Add appends node to the bucket keyed by its digest, updating the
// tracked depth range.
func (ix *Index) Add(n forest.Node) {
	key := string(n.Digest())
	ix.buckets[key] = append(ix.buckets[key], n)

	d := n.Depth()
	if !ix.seeded {
		ix.minDepth, ix.maxDepth = d, d
		ix.seeded = true
		return
	}
	if d < ix.minDepth {
		ix.minDepth = d
	}
	if d > ix.maxDepth {
		ix.maxDepth = d
	}
}

// Prune drops to-delete nodes from every bucket, and drops any bucket
// that becomes empty as a result.
func (ix *Index) Prune() {
	for key, nodes := range ix.buckets {
		kept := nodes[:0]
		for _, n := range nodes {
			if !n.ToDelete() {
				kept = append(kept, n)
			}
		}
		if len(kept) == 0 {
			delete(ix.buckets, key)
		} else {
			ix.buckets[key] = kept
		}
	}
}

// UniquePurge drops buckets with fewer than two members: there is
// nothing for the resolver to resolve there.
func (ix *Index) UniquePurge() {
	for key, nodes := range ix.buckets {
		if len(nodes) < 2 {
			delete(ix.buckets, key)
		}
	}
}

// Buckets returns the live digest -> nodes map. Callers must not retain
// the returned map across a Prune/UniquePurge call.
func (ix *Index) Buckets() map[string][]forest.Node {
	return ix.buckets
}

// MinDepth returns the shallowest depth among all nodes ever added.
func (ix *Index) MinDepth() int32 { return ix.minDepth }

// MaxDepth returns the deepest depth among all nodes ever added.
func (ix *Index) MaxDepth() int32 { return ix.maxDepth }

// Build constructs a fresh Index over every live file and directory in
// the forest. Directories must already be finalized (digests set).
func Build(fo *forest.Forest) *Index {
	ix := New()
	for _, n := range fo.Roots() {
		addNode(ix, n)
	}
	return ix
}

func addNode(ix *Index, n forest.Node) {
	if n.ToDelete() {
		return
	}
	ix.Add(n)
	if d, ok := n.(*forest.Dir); ok {
		for _, name := range d.SortedFileNames() {
			addNode(ix, d.Files()[name])
		}
		for _, name := range d.SortedDirNames() {
			addNode(ix, d.Dirs()[name])
		}
	}
}
