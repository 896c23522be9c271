// Package report groups resolved forest.Forest nodes into the five
// deletion categories and renders them as a POSIX shell script.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/boblaublaw/dedup/internal/forest"
)

// Category names, also used as section titles in the rendered script.
const (
	CategoryDirectories         = "directories covered by another directory"
	CategoryFiles               = "files covered by another file"
	CategoryEmptyAfterReduction = "directories that are empty after reduction"
	CategoryStartedEmpty        = "directories that started empty"
	CategoryEmptyFiles          = "zero-byte files"
)

var emptyCategories = map[string]bool{
	CategoryEmptyAfterReduction: true,
	CategoryStartedEmpty:        true,
	CategoryEmptyFiles:          true,
}

// emptyGroupKey is the single group every "empty" category's losers are
// gathered under: these losers have no winner to group by.
const emptyGroupKey = "___empty___"

// Group is every loser that lost to the same winner (or, for an empty
// category, every loser in that category).
type Group struct {
	WinnerPathname string
	Losers         []forest.Node
	MarkedBytes    uint64
}

// Report is one titled section of the rendered script.
type Report struct {
	Name             string
	Groups           []Group
	TotalMarkedBytes uint64
	MarkedCount      int
}

// Build classifies every to-delete node reachable from fo's roots into
// the five categories and returns one Report per non-empty category,
// ordered by total redundant bytes descending, then by category name.
func Build(fo *forest.Forest) []Report {
	buckets := map[string]map[string][]forest.Node{
		CategoryDirectories:         {},
		CategoryFiles:               {},
		CategoryEmptyAfterReduction: {},
		CategoryStartedEmpty:        {},
		CategoryEmptyFiles:          {},
	}
	for _, n := range fo.Roots() {
		classify(n, buckets)
	}

	reports := make([]Report, 0, len(buckets))
	for name, groupMap := range buckets {
		r := synthesize(name, groupMap)
		if len(r.Groups) == 0 {
			continue
		}
		reports = append(reports, r)
	}
	sort.Slice(reports, func(i, j int) bool {
		if reports[i].TotalMarkedBytes != reports[j].TotalMarkedBytes {
			return reports[i].TotalMarkedBytes > reports[j].TotalMarkedBytes
		}
		return reports[i].Name < reports[j].Name
	})
	return reports
}

// classify walks the live tree, descending only into nodes that are not
// marked to-delete: a to-delete node's descendants are covered by
// inheritance and never reported on individually.
func classify(n forest.Node, buckets map[string]map[string][]forest.Node) {
	if !n.ToDelete() {
		d, ok := n.(*forest.Dir)
		if !ok {
			return
		}
		for _, name := range d.SortedFileNames() {
			classify(d.Files()[name], buckets)
		}
		for _, name := range d.SortedDirNames() {
			classify(d.Dirs()[name], buckets)
		}
		return
	}

	if w := n.Winner(); w != nil {
		category := CategoryFiles
		if n.IsDir() {
			category = CategoryDirectories
		}
		buckets[category][w.Pathname()] = append(buckets[category][w.Pathname()], n)
		return
	}

	// to-delete with no winner: an empty directory or a zero-byte file.
	if d, ok := n.(*forest.Dir); ok {
		category := CategoryEmptyAfterReduction
		if d.StartedEmpty() {
			category = CategoryStartedEmpty
		}
		buckets[category][emptyGroupKey] = append(buckets[category][emptyGroupKey], n)
		return
	}
	buckets[CategoryEmptyFiles][emptyGroupKey] = append(buckets[CategoryEmptyFiles][emptyGroupKey], n)
}

func synthesize(name string, groupMap map[string][]forest.Node) Report {
	groups := make([]Group, 0, len(groupMap))
	var total uint64
	count := 0
	for winnerKey, losers := range groupMap {
		sort.Slice(losers, func(i, j int) bool { return losers[i].Pathname() < losers[j].Pathname() })
		var bytes uint64
		for _, l := range losers {
			bytes += markedBytes(l)
		}
		total += bytes
		count += len(losers)

		wp := winnerKey
		if emptyCategories[name] {
			wp = ""
		}
		groups = append(groups, Group{WinnerPathname: wp, Losers: losers, MarkedBytes: bytes})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].MarkedBytes != groups[j].MarkedBytes {
			return groups[i].MarkedBytes > groups[j].MarkedBytes
		}
		return groups[i].WinnerPathname < groups[j].WinnerPathname
	})
	return Report{Name: name, Groups: groups, TotalMarkedBytes: total, MarkedCount: count}
}

// markedBytes is how many bytes a to-delete node's removal would reclaim:
// for a file, simply its size; for a directory, the sum of its own
// to-delete file descendants (its own "size" is always zero).
func markedBytes(n forest.Node) uint64 {
	if d, ok := n.(*forest.Dir); ok {
		return d.CountBytes(true)
	}
	return n.Size()
}

// TotalMarkedBytes sums every report's reclaimed bytes.
func TotalMarkedBytes(reports []Report) uint64 {
	var total uint64
	for _, r := range reports {
		total += r.TotalMarkedBytes
	}
	return total
}

// TotalMarkedCount sums every report's entry count.
func TotalMarkedCount(reports []Report) int {
	count := 0
	for _, r := range reports {
		count += r.MarkedCount
	}
	return count
}

// quotePath single-quotes path, falling back to double-quoting only when
// path contains one of ', (, ). This is a narrow, exact rule the test
// fixtures depend on byte-for-byte, not a general-purpose shell escape:
// it does not handle a path containing both quote characters.
func quotePath(path string) string {
	if strings.ContainsAny(path, "'()") {
		return `"` + path + `"`
	}
	return "'" + path + "'"
}

// WriteScript renders reports as a POSIX sh script: a titled, commented
// section per category followed by its rm -rf lines, in review order
// (largest reclaimable section first).
func WriteScript(w io.Writer, reports []Report) {
	for _, r := range reports {
		fmt.Fprintf(w, "\n%s\n", strings.Repeat("#", 72))
		if emptyCategories[r.Name] {
			fmt.Fprintf(w, "# %s: %d to remove\n", r.Name, r.MarkedCount)
		} else {
			fmt.Fprintf(w, "# %s: %d to keep and %d to remove\n", r.Name, len(r.Groups), r.MarkedCount)
		}
		fmt.Fprintf(w, "# this section could make %s of file data redundant\n", humanize.IBytes(r.TotalMarkedBytes))

		for _, g := range r.Groups {
			fmt.Fprintf(w, "\n# this subsection could save %s\n", humanize.IBytes(g.MarkedBytes))
			if !emptyCategories[r.Name] {
				fmt.Fprintf(w, "#      %s\n", quotePath(g.WinnerPathname))
			}
			for _, loser := range g.Losers {
				fmt.Fprintf(w, "rm -rf %s\n", quotePath(loser.Pathname()))
			}
		}
	}
}

// WriteSummary appends the closing byte-total comment line.
func WriteSummary(w io.Writer, reports []Report) {
	fmt.Fprintf(w, "\n# total file data bytes marked for deletion %s\n", humanize.IBytes(TotalMarkedBytes(reports)))
}
