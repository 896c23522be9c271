package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/boblaublaw/dedup/internal/forest"
	"github.com/boblaublaw/dedup/internal/harness"
	"github.com/boblaublaw/dedup/internal/hasher"
	"github.com/boblaublaw/dedup/internal/hashcache"
	"github.com/boblaublaw/dedup/internal/report"
	"github.com/boblaublaw/dedup/internal/resolver"
	"github.com/boblaublaw/dedup/internal/scanner"
)

// DedupCommand defines the CLI command parameters.
type DedupCommand struct {
	Paths            []string
	Database         string
	KeepEmptyFiles   bool
	KeepEmptyDirs    bool
	ReverseSelection bool
	StaggerPaths     bool
	Verbosity        int
	RunTests         bool
	RunTestsIndex    int
	Output           string
	JSONOutput       bool
}

var dedupCommand *DedupCommand

var argDatabase string
var argKeepEmptyFiles bool
var argKeepEmptyDirs bool
var argReverseSelection bool
var argStaggerPaths bool
var argVerbosity int
var argRunTests int
var argOutput string
var argJSONOutput bool

// rootCmd is the single top-level command this tool exposes: there are
// no subcommands, so it carries the whole flag surface and Run logic
// itself.
var rootCmd = &cobra.Command{
	Use:   "dupsweep [paths...]",
	Short: "Emit a script that removes redundant files and directories",
	Long: `dupsweep scans one or more paths, finds files and directories that are
byte-for-byte duplicates of each other, and prints a shell script of
"rm -rf" commands that would eliminate the redundant copies. It never
deletes anything itself; review the script before running it.

Each path may be prefixed with an integer weight, e.g. "2:some/dir",
to bias which copy is kept: the weight is added to the depth of every
node under that path, and shallower copies are kept.
`,
	Args: func(cmd *cobra.Command, args []string) error {
		dedupCommand = new(DedupCommand)
		dedupCommand.Paths = args
		dedupCommand.Database = argDatabase
		dedupCommand.KeepEmptyFiles = argKeepEmptyFiles
		dedupCommand.KeepEmptyDirs = argKeepEmptyDirs
		dedupCommand.ReverseSelection = argReverseSelection
		dedupCommand.StaggerPaths = argStaggerPaths
		dedupCommand.Verbosity = argVerbosity
		dedupCommand.Output = argOutput
		dedupCommand.JSONOutput = argJSONOutput

		if envJSON, err := EnvToBool("DUPFILES_JSON"); err == nil {
			dedupCommand.JSONOutput = envJSON
		}

		dedupCommand.RunTests = cmd.Flags().Changed("run-tests")
		dedupCommand.RunTestsIndex = argRunTests

		if dedupCommand.RunTests {
			return nil
		}
		if len(args) == 0 && dedupCommand.StaggerPaths {
			return fmt.Errorf("-s/--stagger-paths specified, but no paths provided")
		}
		if len(args) == 0 {
			return fmt.Errorf("expected at least one path argument")
		}
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		exitCode, cmdError = dedupCommand.Run(w, log)
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&argDatabase, "database", "d", EnvOr("DUPFILES_DATABASE", ""), "path to an on-disk hash cache")
	f.BoolVarP(&argKeepEmptyFiles, "keep-empty-files", "f", false, "do not delete empty files")
	f.BoolVarP(&argKeepEmptyDirs, "keep-empty-dirs", "e", false, "do not delete empty directories")
	f.BoolVarP(&argReverseSelection, "reverse-selection", "r", false, "reverse the winner/loser selection")
	f.BoolVarP(&argStaggerPaths, "stagger-paths", "s", false, "bias selection toward earlier path arguments")
	f.CountVarP(&argVerbosity, "verbosity", "v", "increase output verbosity")
	f.IntVarP(&argRunTests, "run-tests", "t", -1, "run the test harness (optionally for a single 1-indexed case)")
	f.Lookup("run-tests").NoOptDefVal = "-1"
	f.StringVarP(&argOutput, "output", "o", EnvOr("DUPFILES_OUTPUT", ""), "write the script to this file instead of stdout")
	f.BoolVar(&argJSONOutput, "json", false, "emit a JSON summary trailer to stderr")
}

// Run executes the dedup pipeline (or the test harness) and writes its
// output via w, diagnostics via log. It returns a (exit code, error)
// pair matching the taxonomy in the error-handling design.
func (c *DedupCommand) Run(w Output, log Output) (int, error) {
	logf := func(format string, args ...interface{}) {
		log.Printfln("# "+format, args...)
	}

	if c.RunTests {
		return c.runTests(w, logf)
	}

	var cache *hashcache.Cache
	if c.Database != "" {
		var err error
		cache, err = hashcache.Open(c.Database)
		if err != nil {
			return 2, errors.Wrap(forest.ErrCacheUnavailable, err.Error())
		}
		defer cache.Close()
	}

	var hcache hasher.Cache
	if cache != nil {
		hcache = cache
	}

	fo, err := scanner.Scan(c.Paths, scanner.Options{
		StaggerPaths:   c.StaggerPaths,
		KeepEmptyDirs:  c.KeepEmptyDirs,
		KeepEmptyFiles: c.KeepEmptyFiles,
		Cache:          hcache,
		Warn:           logf,
	})
	if err != nil {
		return 1, err
	}

	if _, err := resolver.Run(fo, resolver.Options{
		ReverseSelection: c.ReverseSelection,
		KeepEmptyDirs:    c.KeepEmptyDirs,
		Verbosity:        c.Verbosity,
		Log:              logf,
	}); err != nil {
		if errors.Is(err, forest.ErrDigestCollision) {
			return 3, err
		}
		return 1, err
	}

	reports := report.Build(fo)

	dest := w
	if c.Output != "" {
		f, err := os.Create(c.Output)
		if err != nil {
			return 1, errors.Wrapf(err, "creating output file %q", c.Output)
		}
		defer f.Close()
		dest = &PlainOutput{Device: f}
	}

	var buf bytes.Buffer
	report.WriteScript(&buf, reports)
	report.WriteSummary(&buf, reports)
	dest.Print(buf.String())

	if c.JSONOutput {
		data, err := json.Marshal(report.Summarize(reports))
		if err != nil {
			return 1, errors.Wrap(err, "marshaling json summary")
		}
		fmt.Fprintln(os.Stderr, string(data))
	}

	return 0, nil
}

func (c *DedupCommand) runTests(w Output, logf func(format string, args ...interface{})) (int, error) {
	only := 0
	if c.RunTestsIndex > 0 {
		only = c.RunTestsIndex
	}

	results, err := harness.RunAll("tests", only, logf)
	if err != nil {
		return 1, errors.Wrap(err, "running test harness")
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil || !r.Passed {
			failed++
		}
	}
	if failed > 0 {
		return 4, fmt.Errorf("%d of %d test case(s) failed", failed, len(results))
	}
	w.Printfln("# all %d test case(s) passed", len(results))
	return 0, nil
}
