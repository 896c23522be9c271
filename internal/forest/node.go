// Package forest implements the in-memory data model of the duplicate
// resolution core: File and Dir nodes linked into per-argument trees,
// collected into a Forest keyed by the original CLI argument.
package forest

import (
	"path/filepath"
	"sort"
	"time"
)

// Node is implemented by both File and Dir. Most of the resolver and
// reporter operate on this interface so they never need to type-switch
// except where a behavior genuinely differs between the two (finalize,
// report categorization).
type Node interface {
	Name() string
	Parent() *Dir
	Pathname() string
	Depth() int32
	SetDepth(int32)
	Digest() []byte
	SetDigest(digest []byte)
	Size() uint64
	ToDelete() bool
	MarkForDelete()
	Winner() Node
	SetWinner(Node)
	IsDir() bool
}

// File is a leaf node: a regular, on-disk, readable file.
type File struct {
	name     string
	parent   *Dir
	pathname string
	size     uint64
	modTime  time.Time
	digest   []byte
	depth    int32
	toDelete bool
	winner   Node
}

// NewFile constructs a top-level File with no parent.
func NewFile(name string, size uint64, modTime time.Time, weightAdjust int32) *File {
	return &File{
		name:     name,
		pathname: name,
		size:     size,
		modTime:  modTime,
		depth:    weightAdjust,
	}
}

// NewChildFile constructs a File as a child of parent.
func NewChildFile(name string, parent *Dir, size uint64, modTime time.Time, weightAdjust int32) *File {
	return &File{
		name:     name,
		parent:   parent,
		pathname: filepath.Join(parent.Pathname(), name),
		size:     size,
		modTime:  modTime,
		depth:    parent.Depth() + 1 + weightAdjust,
	}
}

func (f *File) Name() string         { return f.name }
func (f *File) Parent() *Dir         { return f.parent }
func (f *File) Pathname() string     { return f.pathname }
func (f *File) Depth() int32         { return f.depth }
func (f *File) SetDepth(d int32)     { f.depth = d }
func (f *File) Digest() []byte       { return f.digest }
func (f *File) SetDigest(d []byte)   { f.digest = d }
func (f *File) Size() uint64         { return f.size }
func (f *File) ModTime() time.Time   { return f.modTime }
func (f *File) ToDelete() bool       { return f.toDelete }
func (f *File) Winner() Node         { return f.winner }
func (f *File) SetWinner(w Node)     { f.winner = w }
func (f *File) IsDir() bool          { return false }

// MarkForDelete flags this file as redundant. Files have no descendants,
// so marking never cascades.
func (f *File) MarkForDelete() {
	f.toDelete = true
}

// Dir is an interior node holding child files and subdirectories.
type Dir struct {
	name         string
	parent       *Dir
	pathname     string
	files        map[string]*File
	dirs         map[string]*Dir
	weightAdjust int32
	depth        int32
	digest       []byte
	toDelete     bool
	winner       Node
	finalized    bool
}

// NewDir constructs a top-level Dir with no parent.
func NewDir(name string, weightAdjust int32) *Dir {
	return &Dir{
		name:         name,
		pathname:     name,
		files:        make(map[string]*File),
		dirs:         make(map[string]*Dir),
		weightAdjust: weightAdjust,
		depth:        weightAdjust,
	}
}

// NewChildDir constructs a Dir as a child of parent.
func NewChildDir(name string, parent *Dir, weightAdjust int32) *Dir {
	return &Dir{
		name:         name,
		parent:       parent,
		pathname:     filepath.Join(parent.Pathname(), name),
		files:        make(map[string]*File),
		dirs:         make(map[string]*Dir),
		weightAdjust: weightAdjust,
		depth:        parent.Depth() + 1 + weightAdjust,
	}
}

func (d *Dir) Name() string       { return d.name }
func (d *Dir) Parent() *Dir       { return d.parent }
func (d *Dir) Pathname() string   { return d.pathname }
func (d *Dir) Depth() int32       { return d.depth }
func (d *Dir) SetDepth(v int32)   { d.depth = v }
func (d *Dir) Digest() []byte     { return d.digest }
func (d *Dir) SetDigest(v []byte) { d.digest = v; d.finalized = true }
func (d *Dir) ToDelete() bool     { return d.toDelete }
func (d *Dir) Winner() Node       { return d.winner }
func (d *Dir) SetWinner(w Node)   { d.winner = w }
func (d *Dir) IsDir() bool        { return true }
func (d *Dir) Finalized() bool    { return d.finalized }

// Size for a directory is defined as zero: directory entries themselves
// do not contribute redundant bytes, only the files within do.
func (d *Dir) Size() uint64 { return 0 }

// Files returns the child file map. Callers that need deterministic
// order should use SortedFileNames.
func (d *Dir) Files() map[string]*File { return d.files }

// Dirs returns the child directory map. Callers that need deterministic
// order should use SortedDirNames.
func (d *Dir) Dirs() map[string]*Dir { return d.dirs }

// AddFile inserts a child file, keyed by its leaf name.
func (d *Dir) AddFile(f *File) { d.files[f.Name()] = f }

// AddDir inserts a child directory, keyed by its leaf name.
func (d *Dir) AddDir(sub *Dir) { d.dirs[sub.Name()] = sub }

// SortedFileNames returns child file names in lexicographic order.
func (d *Dir) SortedFileNames() []string {
	names := make([]string, 0, len(d.files))
	for name := range d.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SortedDirNames returns child directory names in lexicographic order.
func (d *Dir) SortedDirNames() []string {
	names := make([]string, 0, len(d.dirs))
	for name := range d.dirs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MarkForDelete flags this directory and cascades the flag to every
// descendant. Descendants do not receive a winner back-reference: they
// are covered by inheritance, not by another node directly.
func (d *Dir) MarkForDelete() {
	d.toDelete = true
	for _, sub := range d.dirs {
		sub.MarkForDelete()
	}
	for _, f := range d.files {
		f.MarkForDelete()
	}
}

// StartedEmpty reports whether the directory had no children at all
// when the scan recorded it (ignoring hard-excluded entries, which were
// never recorded in the first place).
func (d *Dir) StartedEmpty() bool {
	return len(d.files) == 0 && len(d.dirs) == 0
}

// IsEmpty reports whether every child file is marked to-delete and every
// child directory is either marked to-delete or itself empty, i.e.
// nothing would survive under this directory if it were removed right now.
func (d *Dir) IsEmpty() bool {
	for _, f := range d.files {
		if !f.ToDelete() {
			return false
		}
	}
	for _, sub := range d.dirs {
		if !sub.ToDelete() && !sub.IsEmpty() {
			return false
		}
	}
	return true
}

// MaxDepth returns the deepest depth reachable from this directory
// through live (non to-delete) descendants, used by stagger-paths to
// bias the weight of subsequent arguments.
func (d *Dir) MaxDepth() int32 {
	md := d.depth
	for _, f := range d.files {
		if !f.ToDelete() && f.depth > md {
			md = f.depth
		}
	}
	for _, sub := range d.dirs {
		if sub.ToDelete() {
			continue
		}
		if td := sub.MaxDepth(); td > md {
			md = td
		}
	}
	return md
}

// CountBytes sums the size of every descendant file, filtered by
// whether it is marked to-delete (when wantDeleted is true) or live
// (when wantDeleted is false).
func (d *Dir) CountBytes(wantDeleted bool) uint64 {
	var total uint64
	for _, sub := range d.dirs {
		total += sub.CountBytes(wantDeleted)
	}
	for _, f := range d.files {
		if f.ToDelete() == wantDeleted {
			total += f.Size()
		}
	}
	return total
}

// CountDeleted counts this directory (if marked) plus every descendant
// marked to-delete.
func (d *Dir) CountDeleted() int {
	count := 0
	if d.toDelete {
		count++
	}
	for _, sub := range d.dirs {
		count += sub.CountDeleted()
	}
	for _, f := range d.files {
		if f.ToDelete() {
			count++
		}
	}
	return count
}

// Walk visits this directory and every descendant directory bottom-up
// (children before parent) unless topdown is true.
func (d *Dir) Walk(topdown bool, visit func(*Dir)) {
	if topdown {
		visit(d)
	}
	for _, name := range d.SortedDirNames() {
		d.dirs[name].Walk(topdown, visit)
	}
	if !topdown {
		visit(d)
	}
}
