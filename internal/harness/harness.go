// Package harness implements the before/ -> ephemeral/ -> after/ test
// protocol: for each case directory under tests/, it copies before/ to a
// fresh ephemeral/, runs the scan+resolve+report pipeline against it,
// applies the generated script with the shell, and compares the result
// to after/ with a recursive content diff.
package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/boblaublaw/dedup/internal/report"
	"github.com/boblaublaw/dedup/internal/resolver"
	"github.com/boblaublaw/dedup/internal/scanner"
)

// Case is one tests/<name> directory.
type Case struct {
	Name string
	Dir  string
}

// Opts is the optional tests/<name>/opts.json shape.
type Opts struct {
	Args         []string `json:"args"`
	Paths        []string `json:"paths"`
	Twice        bool     `json:"twice"`
	ExpectedPass *bool    `json:"expected_pass"`
}

// Result is the outcome of running a single Case.
type Result struct {
	Name   string
	Passed bool
	Diffs  []string
	Err    error
}

// Discover lists every case directory under testsDir, sorted by name.
func Discover(testsDir string) ([]Case, error) {
	entries, err := os.ReadDir(testsDir)
	if err != nil {
		return nil, errors.Wrapf(err, "reading tests directory %q", testsDir)
	}
	var cases []Case
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		cases = append(cases, Case{Name: e.Name(), Dir: filepath.Join(testsDir, e.Name())})
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].Name < cases[j].Name })
	return cases, nil
}

// RunAll discovers and runs every case under testsDir. If only is > 0,
// only the only-th case (1-indexed, by sorted name) runs.
func RunAll(testsDir string, only int, log func(format string, args ...interface{})) ([]Result, error) {
	cases, err := Discover(testsDir)
	if err != nil {
		return nil, err
	}

	var results []Result
	for i, c := range cases {
		if only > 0 && i+1 != only {
			continue
		}
		if log != nil {
			log("running test %s", c.Name)
		}
		r := Run(c, log)
		if log != nil {
			if r.Err != nil {
				log("FAILED %s: %v", c.Name, r.Err)
			} else if r.Passed {
				log("PASSED %s", c.Name)
			} else {
				log("FAILED %s: %d difference(s)", c.Name, len(r.Diffs))
			}
		}
		results = append(results, r)
	}
	return results, nil
}

// Run executes a single case to completion.
func Run(c Case, log func(format string, args ...interface{})) Result {
	before := filepath.Join(c.Dir, "before")
	after := filepath.Join(c.Dir, "after")
	ephemeral := filepath.Join(c.Dir, "ephemeral")
	optsPath := filepath.Join(c.Dir, "opts.json")

	if err := os.RemoveAll(ephemeral); err != nil {
		return Result{Name: c.Name, Err: errors.Wrapf(err, "clearing ephemeral dir for %s", c.Name)}
	}
	if err := copyTree(before, ephemeral); err != nil {
		return Result{Name: c.Name, Err: errors.Wrapf(err, "seeding ephemeral dir for %s", c.Name)}
	}

	var opts Opts
	if data, err := os.ReadFile(optsPath); err == nil {
		if err := json.Unmarshal(data, &opts); err != nil {
			return Result{Name: c.Name, Err: errors.Wrapf(err, "parsing opts.json for %s", c.Name)}
		}
	}

	runs := 1
	if opts.Twice {
		runs = 2
	}
	for i := 0; i < runs; i++ {
		if err := generateAndApply(ephemeral, opts, log); err != nil {
			return Result{Name: c.Name, Err: errors.Wrapf(err, "run %d/%d of %s", i+1, runs, c.Name)}
		}
	}

	diffs, err := diffTrees(ephemeral, after)
	if err != nil {
		return Result{Name: c.Name, Err: errors.Wrapf(err, "comparing ephemeral to after for %s", c.Name)}
	}

	passed := len(diffs) == 0
	if opts.ExpectedPass != nil && !*opts.ExpectedPass {
		passed = !passed
	}
	return Result{Name: c.Name, Passed: passed, Diffs: diffs}
}

// generateAndApply runs one scan+resolve+report pass against ephemeral
// and applies the resulting script with the shell.
func generateAndApply(ephemeral string, opts Opts, log func(format string, args ...interface{})) error {
	keepEmptyDirs, keepEmptyFiles, reverseSelection, staggerPaths := parseArgs(opts.Args)

	paths := opts.Paths
	if len(paths) == 0 {
		paths = []string{ephemeral}
	}

	fo, err := scanner.Scan(paths, scanner.Options{
		StaggerPaths:   staggerPaths,
		KeepEmptyDirs:  keepEmptyDirs,
		KeepEmptyFiles: keepEmptyFiles,
		Warn:           log,
	})
	if err != nil {
		return errors.Wrap(err, "scanning")
	}

	if _, err := resolver.Run(fo, resolver.Options{
		ReverseSelection: reverseSelection,
		KeepEmptyDirs:    keepEmptyDirs,
		Log:              log,
	}); err != nil {
		return errors.Wrap(err, "resolving")
	}

	var script bytes.Buffer
	report.WriteScript(&script, report.Build(fo))

	cmd := exec.Command("sh", "-c", script.String())
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	return errors.Wrap(cmd.Run(), "applying generated script")
}

// parseArgs reads the subset of CLI flags the harness needs to drive the
// pipeline out of an opts.json "args" list. Unrecognized tokens (e.g. a
// database path following -d) are ignored: the harness never exercises
// the hash cache, since fixture trees are small and rehashing every run
// keeps cases hermetic.
func parseArgs(args []string) (keepEmptyDirs, keepEmptyFiles, reverseSelection, staggerPaths bool) {
	for _, a := range args {
		switch a {
		case "-e", "--keep-empty-dirs":
			keepEmptyDirs = true
		case "-f", "--keep-empty-files":
			keepEmptyFiles = true
		case "-r", "--reverse-selection":
			reverseSelection = true
		case "-s", "--stagger-paths":
			staggerPaths = true
		}
	}
	return
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if info.IsDir() {
			return os.MkdirAll(target, info.Mode())
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode())
	})
}

// diffTrees is an in-process substitute for `diff --recursive --brief`:
// it reports paths present on only one side, type mismatches, and
// content mismatches, without shelling out to an external diff tool.
func diffTrees(a, b string) ([]string, error) {
	var diffs []string
	if err := diffOneWay(a, b, &diffs, true); err != nil {
		return nil, err
	}
	if err := diffOneWay(b, a, &diffs, false); err != nil {
		return nil, err
	}
	return diffs, nil
}

func diffOneWay(root, other string, diffs *[]string, compareContent bool) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return err
		}

		otherPath := filepath.Join(other, rel)
		otherInfo, statErr := os.Lstat(otherPath)
		if statErr != nil {
			*diffs = append(*diffs, fmt.Sprintf("only in %s: %s", root, rel))
			return nil
		}
		if !compareContent {
			return nil
		}
		if info.IsDir() != otherInfo.IsDir() {
			*diffs = append(*diffs, fmt.Sprintf("type mismatch: %s", rel))
			return nil
		}
		if info.IsDir() {
			return nil
		}

		data1, err1 := os.ReadFile(path)
		data2, err2 := os.ReadFile(otherPath)
		if err1 != nil || err2 != nil || !bytes.Equal(data1, data2) {
			*diffs = append(*diffs, fmt.Sprintf("content differs: %s", rel))
		}
		return nil
	})
}
