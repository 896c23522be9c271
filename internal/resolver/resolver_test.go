package resolver

import (
	"errors"
	"testing"
	"time"

	"github.com/boblaublaw/dedup/internal/forest"
	"github.com/boblaublaw/dedup/internal/hasher"
)

func finalizeAll(d *forest.Dir) {
	for _, name := range d.SortedDirNames() {
		finalizeAll(d.Dirs()[name])
	}
	d.SetDigest(hasher.FinalizeDir(d))
}

func TestResolveCandidatesPicksShallowestThenShortestThenLexFirst(t *testing.T) {
	root := forest.NewDir("root", 0)
	a := forest.NewChildFile("aaa.txt", root, 3, time.Now(), 0)
	a.SetDigest([]byte("same"))
	b := forest.NewChildFile("b.txt", root, 3, time.Now(), 0)
	b.SetDigest([]byte("same"))
	root.AddFile(a)
	root.AddFile(b)

	marked, err := resolveCandidates([]forest.Node{a, b}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if marked != 1 {
		t.Fatalf("expected 1 node marked, got %d", marked)
	}
	if !a.ToDelete() {
		t.Errorf("expected longer-named file %q to be marked for delete", a.Pathname())
	}
	if b.ToDelete() {
		t.Errorf("expected shorter-named file %q to survive as winner", b.Pathname())
	}
	if a.Winner() != b {
		t.Errorf("expected loser's winner reference to point at survivor")
	}
}

func TestResolveCandidatesReverseSelectionFlipsWinner(t *testing.T) {
	root := forest.NewDir("root", 0)
	a := forest.NewChildFile("a.txt", root, 3, time.Now(), 0)
	a.SetDigest([]byte("same"))
	b := forest.NewChildFile("b.txt", root, 3, time.Now(), 0)
	b.SetDigest([]byte("same"))
	root.AddFile(a)
	root.AddFile(b)

	_, err := resolveCandidates([]forest.Node{a, b}, Options{ReverseSelection: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.ToDelete() {
		t.Errorf("with reverse selection, expected %q to be marked for delete", a.Pathname())
	}
	if b.ToDelete() {
		t.Errorf("with reverse selection, expected %q to survive as winner", b.Pathname())
	}
}

func TestResolveCandidatesNeverPicksEmptyDirAsWinner(t *testing.T) {
	root := forest.NewDir("root", 0)
	empty := forest.NewChildDir("empty", root, 0)
	empty.SetDigest([]byte("emptydigest"))
	full := forest.NewChildDir("nonempty", root, 0)
	full.SetDigest([]byte("emptydigest"))
	f := forest.NewChildFile("f.txt", full, 3, time.Now(), 0)
	f.SetDigest([]byte("ffff"))
	full.AddFile(f)
	root.AddDir(empty)
	root.AddDir(full)

	marked, err := resolveCandidates([]forest.Node{empty, full}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if marked != 0 {
		t.Errorf("expected no marks when the shallowest/shortest candidate is an empty directory, got %d", marked)
	}
}

func TestResolveCandidatesDetectsSizeMismatch(t *testing.T) {
	root := forest.NewDir("root", 0)
	a := forest.NewChildFile("a.txt", root, 3, time.Now(), 0)
	a.SetDigest([]byte("same"))
	b := forest.NewChildFile("b.txt", root, 9, time.Now(), 0)
	b.SetDigest([]byte("same"))
	root.AddFile(a)
	root.AddFile(b)

	_, err := resolveCandidates([]forest.Node{a, b}, Options{})
	if !errors.Is(err, forest.ErrDigestCollision) {
		t.Fatalf("expected ErrDigestCollision when two same-digest files disagree on size, got %v", err)
	}
}

func TestPropagateEmptyCollapsesWholeSubtreeInOneShot(t *testing.T) {
	root := forest.NewDir("root", 0)
	mid := forest.NewChildDir("mid", root, 0)
	leaf := forest.NewChildDir("leaf", mid, 0)
	mid.AddDir(leaf)
	root.AddDir(mid)

	// Both mid and leaf are structurally empty (no children at all), so
	// IsEmpty() is vacuously true for both before any marks are applied.
	propagateEmpty(root, Options{})

	if !mid.ToDelete() {
		t.Errorf("expected mid to be marked for delete")
	}
	if !leaf.ToDelete() {
		t.Errorf("expected leaf to be marked for delete via the cascade from root")
	}
}

func TestPropagateEmptyLeavesNonEmptyDirectoryAlone(t *testing.T) {
	root := forest.NewDir("root", 0)
	sub := forest.NewChildDir("sub", root, 0)
	f := forest.NewChildFile("f.txt", sub, 3, time.Now(), 0)
	f.SetDigest([]byte("abc"))
	sub.AddFile(f)
	root.AddDir(sub)

	propagateEmpty(root, Options{})

	if sub.ToDelete() {
		t.Errorf("did not expect a directory with a live file to be marked for delete")
	}
}

func TestPropagateEmptyRespectsKeepEmptyDirs(t *testing.T) {
	fo := forest.NewForest()
	root := forest.NewDir("root", 0)
	fo.Add("root", root)
	sub := forest.NewChildDir("sub", root, 0)
	root.AddDir(sub)

	marked := propagateEmptyForest(fo, Options{KeepEmptyDirs: true})
	if marked != 0 {
		t.Errorf("expected KeepEmptyDirs to suppress Phase B entirely, got %d marks", marked)
	}
	if sub.ToDelete() {
		t.Errorf("did not expect sub to be marked when KeepEmptyDirs is set")
	}
}

func TestRunConvergesOnDirectoryThatBecomesEmptyAfterFileResolution(t *testing.T) {
	fo := forest.NewForest()
	root := forest.NewDir("root", 0)
	fo.Add("root", root)

	a := forest.NewChildDir("a", root, 0)
	b := forest.NewChildDir("b", root, 0)
	root.AddDir(a)
	root.AddDir(b)

	// a/x and b/x are duplicate files; a has an extra unique file z so a
	// and b start out non-identical at the directory level.
	ax := forest.NewChildFile("x.txt", a, 3, time.Now(), 0)
	ax.SetDigest([]byte("dupe"))
	a.AddFile(ax)

	az := forest.NewChildFile("z.txt", a, 3, time.Now(), 0)
	az.SetDigest([]byte("uniq"))
	a.AddFile(az)

	bx := forest.NewChildFile("x.txt", b, 3, time.Now(), 0)
	bx.SetDigest([]byte("dupe"))
	b.AddFile(bx)

	finalizeAll(root)

	if _, err := Run(fo, Options{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ax.ToDelete() == bx.ToDelete() {
		t.Fatalf("expected exactly one of the duplicate files to be marked, got ax=%v bx=%v", ax.ToDelete(), bx.ToDelete())
	}

	// Whichever of a/b lost its only file is now empty and should have
	// been collapsed by Phase B in the pass after Phase A marked that file.
	var losingDir, winningDir *forest.Dir
	if ax.ToDelete() {
		losingDir, winningDir = a, b
	} else {
		losingDir, winningDir = b, a
	}
	if !losingDir.ToDelete() {
		t.Errorf("expected %q to be collapsed once its only file lost", losingDir.Pathname())
	}
	if winningDir.ToDelete() {
		t.Errorf("did not expect %q to be marked for delete", winningDir.Pathname())
	}
}
