// Package scanner walks CLI path arguments into an in-memory forest.Forest,
// parsing optional weight prefixes, applying the stagger-paths bias, and
// skipping hard-excluded names and sockets.
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/boblaublaw/dedup/internal/forest"
	"github.com/boblaublaw/dedup/internal/hasher"
)

// ExcludeDirs lists basenames of directories that are never descended
// into or recorded: operating-system metadata and VCS working-copy
// state that is never meaningfully "the user's data".
var ExcludeDirs = []string{
	".git",
	".svn",
	".hg",
	".dropbox.cache",
	"__MACOSX",
}

// ExcludeFiles lists basenames of files that are never recorded:
// filesystem thumbnail caches and editor/tool lockfiles.
var ExcludeFiles = []string{
	"Thumbs.db",
	".DS_Store",
	".directory",
	".lock",
}

// Options configures a scan.
type Options struct {
	StaggerPaths  bool
	KeepEmptyDirs bool
	KeepEmptyFiles bool
	Cache         hasher.Cache
	Warn          func(format string, args ...interface{})
}

func (o Options) warn(format string, args ...interface{}) {
	if o.Warn != nil {
		o.Warn(format, args...)
	}
}

// Scan builds a Forest from the given CLI-style path arguments (each
// optionally prefixed "N:").
func Scan(args []string, opts Options) (*forest.Forest, error) {
	fo := forest.NewForest()
	var stagger int32

	for _, rawArg := range args {
		arg := strings.TrimRight(rawArg, string(filepath.Separator))
		weight, path := parseWeight(arg)

		info, err := os.Lstat(path)
		if err != nil {
			return nil, errors.Wrapf(err, "scanning %q", path)
		}
		mode := info.Mode()

		switch {
		case mode&os.ModeSocket != 0:
			opts.warn("skipping socket %s", path)
			continue

		case mode.IsRegular():
			w := weight
			if opts.StaggerPaths {
				w += stagger
			}
			f := forest.NewFile(path, uint64(info.Size()), info.ModTime(), w)
			digest, err := hasher.HashFile(path, info.ModTime().Unix(), opts.Cache)
			if err != nil {
				return nil, err
			}
			f.SetDigest([]byte(digest))
			if f.Size() == 0 && !opts.KeepEmptyFiles {
				f.MarkForDelete()
			}
			fo.Add(rawArg, f)
			if opts.StaggerPaths {
				stagger += f.Depth()
			}

		case mode.IsDir():
			w := weight
			if opts.StaggerPaths {
				w += stagger
			}
			d := forest.NewDir(path, w)
			if err := walkDir(d, path, opts); err != nil {
				return nil, err
			}
			finalize(d, opts)
			fo.Add(rawArg, d)
			if opts.StaggerPaths {
				stagger = d.MaxDepth()
			}

		default:
			return nil, errors.Wrapf(forest.ErrUnknownPathType, "%q", path)
		}
	}

	return fo, nil
}

// parseWeight inspects a pathname for a leading "N:" weight prefix. If
// the segment before the first colon parses as a signed integer, that
// becomes the weight and the remainder is the path. Otherwise the weight
// is zero and the whole string is the path.
func parseWeight(arg string) (int32, string) {
	idx := strings.IndexByte(arg, ':')
	if idx < 0 {
		return 0, arg
	}
	head, rest := arg[:idx], arg[idx+1:]
	n, err := strconv.ParseInt(head, 10, 32)
	if err != nil {
		return 0, arg
	}
	return int32(n), rest
}

// walkDir recursively populates d with child files and directories found
// under fsPath, skipping hard-excluded names and sockets, and descending
// bottom-up so every directory is finalized only after its children are.
func walkDir(d *forest.Dir, fsPath string, opts Options) error {
	entries, err := os.ReadDir(fsPath)
	if err != nil {
		return errors.Wrapf(err, "reading directory %q", fsPath)
	}

	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	sort.Strings(names)

	byName := make(map[string]os.DirEntry, len(entries))
	for _, e := range entries {
		byName[e.Name()] = e
	}

	for _, name := range names {
		entry := byName[name]
		childPath := filepath.Join(fsPath, name)

		if entry.IsDir() {
			if contains(ExcludeDirs, name) {
				continue
			}
			// A symlink whose target is a directory is reported as
			// IsDir()==false by os.DirEntry (it reflects the Lstat
			// mode), so entry.IsDir() here only ever fires for real
			// directories; we never follow symlinked directories,
			// consistent with the "resolving symbolic links" non-goal.
			child := forest.NewChildDir(name, d, 0)
			if err := walkDir(child, childPath, opts); err != nil {
				return err
			}
			finalize(child, opts)
			d.AddDir(child)
			continue
		}

		info, err := os.Stat(childPath)
		if err != nil {
			// Broken symlink or a race with a concurrent mutation of
			// the tree being scanned: skip with a warning rather than
			// aborting the whole run.
			opts.warn("skipping unreadable entry %s: %s", childPath, err)
			continue
		}
		mode := info.Mode()

		switch {
		case mode&os.ModeSocket != 0:
			opts.warn("skipping socket %s", childPath)
			continue
		case mode.IsDir():
			// A symlink to a directory: do not descend (see note
			// above); represent it as an empty directory so empty
			// propagation can account for it.
			child := forest.NewChildDir(name, d, 0)
			finalize(child, opts)
			d.AddDir(child)
			continue
		case mode.IsRegular():
			if contains(ExcludeFiles, name) {
				continue
			}
			f := forest.NewChildFile(name, d, uint64(info.Size()), info.ModTime(), 0)
			digest, err := hasher.HashFile(childPath, info.ModTime().Unix(), opts.Cache)
			if err != nil {
				return err
			}
			f.SetDigest([]byte(digest))
			if f.Size() == 0 && !opts.KeepEmptyFiles {
				f.MarkForDelete()
			}
			d.AddFile(f)
		default:
			opts.warn("skipping special file %s", childPath)
		}
	}

	return nil
}

// finalize computes a directory's content digest from its (already
// finalized) children and applies the empty-directory deletion default.
func finalize(d *forest.Dir, opts Options) {
	d.SetDigest(hasher.FinalizeDir(d))
	if d.StartedEmpty() && !opts.KeepEmptyDirs {
		d.MarkForDelete()
	}
}

func contains(set []string, item string) bool {
	for _, s := range set {
		if s == item {
			return true
		}
	}
	return false
}
