// Package resolver implements the duplicate-resolution core: Phase A picks
// one surviving node per digest bucket and marks the rest for deletion;
// Phase B collapses directories that are left with nothing live inside
// them. The two phases alternate until a pass marks nothing new.
package resolver

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/boblaublaw/dedup/internal/forest"
	"github.com/boblaublaw/dedup/internal/hasher"
	"github.com/boblaublaw/dedup/internal/index"
)

// Options configures a resolution run.
type Options struct {
	// ReverseSelection inverts the candidate ordering within a bucket, so
	// the node that would otherwise be deleted survives instead.
	ReverseSelection bool
	// KeepEmptyDirs disables Phase B entirely: directories left with no
	// live children are not collapsed.
	KeepEmptyDirs bool
	// Verbosity, when > 0, causes Log to be called once per marked node.
	Verbosity int
	Log       func(format string, args ...interface{})
}

func (o Options) log(format string, args ...interface{}) {
	if o.Verbosity > 0 && o.Log != nil {
		o.Log(format, args...)
	}
}

// Run alternates Phase B (empty propagation) and Phase A (duplicate
// resolution) until a pass marks nothing new, and returns the number of
// marks this call made: each Phase A loser counts once (its cascaded
// descendants are not counted), while a Phase B collapse counts every
// node it newly flagged.
func Run(fo *forest.Forest, opts Options) (int, error) {
	total := 0
	for {
		marked := propagateEmptyForest(fo, opts)

		Refinalize(fo)
		n, err := resolvePass(fo, opts)
		if err != nil {
			return total, err
		}
		marked += n

		total += marked
		if marked == 0 {
			return total, nil
		}
	}
}

// Refinalize recomputes every directory's digest from its currently live
// children. Directory digests are not immutable: as Phase A and Phase B
// mark children to-delete across passes, an ancestor's digest must track
// its surviving content so that directories which only become identical
// once their losing children are gone are still discovered.
func Refinalize(fo *forest.Forest) {
	fo.Walk(func(d *forest.Dir) {
		d.SetDigest(hasher.FinalizeDir(d))
	})
}

// propagateEmptyForest walks every root top-down, collapsing the
// shallowest directories left with no live content, and returns how many
// nodes were newly marked to-delete.
func propagateEmptyForest(fo *forest.Forest, opts Options) int {
	if opts.KeepEmptyDirs {
		return 0
	}
	before := fo.CountDeleted()
	for _, n := range fo.Roots() {
		propagateEmpty(n, opts)
	}
	return fo.CountDeleted() - before
}

// propagateEmpty marks d for deletion if it is empty and either it is a
// top-level root or its parent is not itself empty; the latter condition
// defers the mark to the parent's own visit, which will cascade down to d
// in one shot once the parent is marked. A non-empty directory recurses
// into its live subdirectories; an already-empty one does not, since
// nothing further down could still be live.
func propagateEmpty(n forest.Node, opts Options) {
	d, ok := n.(*forest.Dir)
	if !ok || d.ToDelete() {
		return
	}

	if d.IsEmpty() {
		if d.Parent() == nil || !d.Parent().IsEmpty() {
			d.MarkForDelete()
			opts.log("directory %q is empty after reduction", d.Pathname())
		}
		return
	}

	for _, name := range d.SortedDirNames() {
		propagateEmpty(d.Dirs()[name], opts)
	}
}

// resolvePass builds a fresh Index, resolves every bucket with more than
// one live candidate, and returns how many nodes were newly marked.
// Directory buckets are resolved before file buckets so that a whole
// duplicate subtree is collapsed (its files, now marked, are then passed
// over as candidates) before its individual files are considered in isolation;
// this is purely an ordering optimization, since the fixed-point loop in
// Run makes the eventual outcome independent of pass order.
func resolvePass(fo *forest.Forest, opts Options) (int, error) {
	ix := index.Build(fo)
	ix.UniquePurge()

	var dirKeys, fileKeys []string
	for key, nodes := range ix.Buckets() {
		if _, isDir := nodes[0].(*forest.Dir); isDir {
			dirKeys = append(dirKeys, key)
		} else {
			fileKeys = append(fileKeys, key)
		}
	}
	sort.Strings(dirKeys)
	sort.Strings(fileKeys)

	marked := 0
	buckets := ix.Buckets()
	for _, key := range dirKeys {
		n, err := resolveCandidates(buckets[key], opts)
		marked += n
		if err != nil {
			return marked, err
		}
	}
	for _, key := range fileKeys {
		n, err := resolveCandidates(buckets[key], opts)
		marked += n
		if err != nil {
			return marked, err
		}
	}
	return marked, nil
}

// resolveCandidates picks a winner from a single digest bucket and marks
// every other live member to-delete, returning the number marked. It
// refuses to pick an empty directory or a zero-byte file as the winner:
// those are left to Phase B and the scan-time empty-file default instead
// of being treated as "the" surviving copy of nothing.
func resolveCandidates(candidates []forest.Node, opts Options) (int, error) {
	if len(candidates) < 2 {
		return 0, nil
	}

	// Members already marked earlier in this pass (e.g. by a directory
	// cascade) are neither winners nor losers here.
	ordered := make([]forest.Node, 0, len(candidates))
	for _, c := range candidates {
		if !c.ToDelete() {
			ordered = append(ordered, c)
		}
	}
	if len(ordered) < 2 {
		return 0, nil
	}
	sortCandidates(ordered, opts.ReverseSelection)

	winner := ordered[0]
	if d, ok := winner.(*forest.Dir); ok && d.IsEmpty() {
		return 0, nil
	}
	if f, ok := winner.(*forest.File); ok && f.Size() == 0 {
		return 0, nil
	}

	marked := 0
	for _, loser := range ordered[1:] {
		if loser.ToDelete() {
			continue
		}
		if loser.Size() != winner.Size() {
			return marked, errors.Wrapf(forest.ErrDigestCollision,
				"%q (%d bytes) vs %q (%d bytes) share a digest but differ in size",
				loser.Pathname(), loser.Size(), winner.Pathname(), winner.Size())
		}

		loser.MarkForDelete()
		loser.SetWinner(winner)
		marked++

		kind := "file"
		if loser.IsDir() {
			kind = "directory"
		}
		opts.log("%s %q covered by %q", kind, loser.Pathname(), winner.Pathname())
	}
	return marked, nil
}

// sortCandidates orders bucket members by (depth ascending, pathname
// length ascending, pathname lexicographic ascending), so the shallowest
// and shortest-named candidate wins ties deterministically. reverse
// inverts the whole ordering, so the selection favors the opposite end
// instead.
func sortCandidates(nodes []forest.Node, reverse bool) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.Depth() != b.Depth() {
			return a.Depth() < b.Depth()
		}
		if la, lb := len(a.Pathname()), len(b.Pathname()); la != lb {
			return la < lb
		}
		return a.Pathname() < b.Pathname()
	})
	if reverse {
		for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
			nodes[i], nodes[j] = nodes[j], nodes[i]
		}
	}
}
