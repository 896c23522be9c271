package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/boblaublaw/dedup/internal/forest"
)

func TestQuotePathDefaultsToSingleQuotes(t *testing.T) {
	if got := quotePath("/a/plain/path.txt"); got != "'/a/plain/path.txt'" {
		t.Errorf("expected single-quoted path, got %s", got)
	}
}

func TestQuotePathFallsBackToDoubleQuotesOnSpecialChars(t *testing.T) {
	for _, path := range []string{"it's", "a(b)", "(x)"} {
		got := quotePath(path)
		if !strings.HasPrefix(got, `"`) || !strings.HasSuffix(got, `"`) {
			t.Errorf("expected double-quoted fallback for %q, got %s", path, got)
		}
	}
}

func TestBuildGroupsDuplicateFilesUnderTheirWinner(t *testing.T) {
	fo := forest.NewForest()
	root := forest.NewDir("root", 0)
	fo.Add("root", root)

	winner := forest.NewChildFile("a.txt", root, 4, time.Now(), 0)
	winner.SetDigest([]byte("dupe"))
	loser := forest.NewChildFile("bb.txt", root, 4, time.Now(), 0)
	loser.SetDigest([]byte("dupe"))
	loser.MarkForDelete()
	loser.SetWinner(winner)
	root.AddFile(winner)
	root.AddFile(loser)

	reports := Build(fo)
	if len(reports) != 1 {
		t.Fatalf("expected exactly one non-empty report, got %d", len(reports))
	}
	r := reports[0]
	if r.Name != CategoryFiles {
		t.Errorf("expected category %q, got %q", CategoryFiles, r.Name)
	}
	if len(r.Groups) != 1 || r.Groups[0].WinnerPathname != winner.Pathname() {
		t.Fatalf("expected one group keyed by the winner's pathname, got %+v", r.Groups)
	}
	if len(r.Groups[0].Losers) != 1 || r.Groups[0].Losers[0] != loser {
		t.Fatalf("expected the loser in the winner's group, got %+v", r.Groups[0].Losers)
	}
	if r.TotalMarkedBytes != 4 {
		t.Errorf("expected 4 marked bytes, got %d", r.TotalMarkedBytes)
	}
}

func TestBuildSeparatesEmptyFilesFromCoveredFiles(t *testing.T) {
	fo := forest.NewForest()
	root := forest.NewDir("root", 0)
	fo.Add("root", root)

	empty := forest.NewChildFile("empty.txt", root, 0, time.Now(), 0)
	empty.SetDigest([]byte("e3b0c44298fc1c149afbf4c8996fb92427ae41e4"))
	empty.MarkForDelete()
	root.AddFile(empty)

	reports := Build(fo)
	if len(reports) != 1 || reports[0].Name != CategoryEmptyFiles {
		t.Fatalf("expected a single %q report, got %+v", CategoryEmptyFiles, reports)
	}
	if reports[0].Groups[0].WinnerPathname != "" {
		t.Errorf("empty-file groups should have no winner pathname, got %q", reports[0].Groups[0].WinnerPathname)
	}
}

func TestBuildDoesNotDescendIntoDeletedSubtrees(t *testing.T) {
	fo := forest.NewForest()
	root := forest.NewDir("root", 0)
	fo.Add("root", root)

	winner := forest.NewChildDir("winner", root, 0)
	loser := forest.NewChildDir("loser", root, 0)
	lf := forest.NewChildFile("f.txt", loser, 4, time.Now(), 0)
	loser.AddFile(lf)
	loser.MarkForDelete() // cascades to lf
	loser.SetWinner(winner)
	root.AddDir(winner)
	root.AddDir(loser)

	reports := Build(fo)
	if len(reports) != 1 {
		t.Fatalf("expected one report (the directory), got %d: %+v", len(reports), reports)
	}
	if reports[0].Name != CategoryDirectories {
		t.Errorf("expected %q, got %q", CategoryDirectories, reports[0].Name)
	}
	if len(reports[0].Groups[0].Losers) != 1 {
		t.Fatalf("expected the cascaded child file not to be reported separately, got %+v", reports[0].Groups[0].Losers)
	}
}

func TestWriteScriptEmitsRmRfLines(t *testing.T) {
	fo := forest.NewForest()
	root := forest.NewDir("root", 0)
	fo.Add("root", root)

	winner := forest.NewChildFile("a.txt", root, 4, time.Now(), 0)
	winner.SetDigest([]byte("dupe"))
	loser := forest.NewChildFile("b.txt", root, 4, time.Now(), 0)
	loser.SetDigest([]byte("dupe"))
	loser.MarkForDelete()
	loser.SetWinner(winner)
	root.AddFile(winner)
	root.AddFile(loser)

	var buf bytes.Buffer
	reports := Build(fo)
	WriteScript(&buf, reports)
	WriteSummary(&buf, reports)

	out := buf.String()
	if !strings.Contains(out, "rm -rf '"+loser.Pathname()+"'") {
		t.Errorf("expected a quoted rm -rf line for the loser, got:\n%s", out)
	}
	if strings.Contains(out, "rm -rf '"+winner.Pathname()+"'") {
		t.Errorf("did not expect the winner to be deleted, got:\n%s", out)
	}
	if !strings.Contains(out, "total file data bytes marked for deletion") {
		t.Errorf("expected a summary line, got:\n%s", out)
	}
}
