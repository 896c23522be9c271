package forest

import (
	"testing"
	"time"
)

func TestChildDepthAccountsForAncestryAndWeight(t *testing.T) {
	root := NewDir("root", 0)
	child := NewChildDir("child", root, 2)
	if got, want := child.Depth(), int32(0+1+2); got != want {
		t.Errorf("expected depth %d, got %d", want, got)
	}

	// The grandchild has no weight adjust of its own, but must still
	// inherit child's +2 bias: depth is cumulative along the path, not
	// reset at each level.
	grandchild := NewChildFile("leaf.txt", child, 0, time.Now(), 0)
	if got, want := grandchild.Depth(), int32(child.Depth()+1); got != want {
		t.Errorf("expected depth %d, got %d", want, got)
	}
}

func TestDirMarkForDeleteCascadesWithoutWinnerBackReference(t *testing.T) {
	root := NewDir("root", 0)
	sub := NewChildDir("sub", root, 0)
	f := NewChildFile("f.txt", sub, 4, time.Now(), 0)
	sub.AddFile(f)
	root.AddDir(sub)

	root.MarkForDelete()

	if !sub.ToDelete() || !f.ToDelete() {
		t.Fatalf("expected MarkForDelete to cascade to every descendant")
	}
	if sub.Winner() != nil || f.Winner() != nil {
		t.Errorf("cascaded descendants should not receive a winner back-reference")
	}
}

func TestDirIsEmptyIgnoresAlreadyDeletedChildren(t *testing.T) {
	root := NewDir("root", 0)
	f := NewChildFile("f.txt", root, 0, time.Now(), 0)
	f.MarkForDelete()
	root.AddFile(f)

	if !root.IsEmpty() {
		t.Errorf("expected a directory whose only child is marked to-delete to be empty")
	}

	sub := NewChildDir("sub", root, 0)
	root.AddDir(sub)
	if !root.IsEmpty() {
		t.Errorf("expected a directory containing a live empty subdirectory to itself be empty")
	}

	live := NewChildFile("live.txt", sub, 1, time.Now(), 0)
	sub.AddFile(live)
	if root.IsEmpty() {
		t.Errorf("did not expect root to be empty once a descendant has live content")
	}
}

func TestDirStartedEmptyReflectsRecordedChildren(t *testing.T) {
	root := NewDir("root", 0)
	if !root.StartedEmpty() {
		t.Fatalf("expected a freshly constructed directory with no children to be StartedEmpty")
	}
	f := NewChildFile("f.txt", root, 1, time.Now(), 0)
	root.AddFile(f)
	if root.StartedEmpty() {
		t.Errorf("StartedEmpty should reflect current children, not a frozen snapshot, so adding a child should flip it")
	}
}

func TestDirCountBytesFiltersByDeletionState(t *testing.T) {
	root := NewDir("root", 0)
	live := NewChildFile("live.txt", root, 10, time.Now(), 0)
	dead := NewChildFile("dead.txt", root, 5, time.Now(), 0)
	dead.MarkForDelete()
	root.AddFile(live)
	root.AddFile(dead)

	if got := root.CountBytes(false); got != 10 {
		t.Errorf("expected 10 live bytes, got %d", got)
	}
	if got := root.CountBytes(true); got != 5 {
		t.Errorf("expected 5 marked bytes, got %d", got)
	}
}

func TestForestWalkVisitsChildrenBeforeParents(t *testing.T) {
	fo := NewForest()
	root := NewDir("root", 0)
	sub := NewChildDir("sub", root, 0)
	root.AddDir(sub)
	fo.Add("root", root)

	var order []string
	fo.Walk(func(d *Dir) { order = append(order, d.Name()) })

	if len(order) != 2 || order[0] != "sub" || order[1] != "root" {
		t.Fatalf("expected bottom-up order [sub root], got %v", order)
	}
}
