// Command mpileaks-report replays the merge/sort/print pipeline of
// internal/reduce over a directory of per-rank JSON dumps produced by
// `mpileaks-sim -dump-json`, standing in for the live binomial-tree
// reduce when no job is actually running. Tree topology only matters
// for wall-clock fan-in over a real transport; offline, folding every
// rank's local list through the same commutative Merge produces an
// identical result (spec.md §8's "monotone merge" property).
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/llnl/mpileaks/internal/cli"
	"github.com/llnl/mpileaks/internal/dumpfile"
	"github.com/llnl/mpileaks/internal/leakcheck"
	"github.com/llnl/mpileaks/internal/reduce"
)

func main() {
	var (
		dir         = flag.String("dir", "", "directory of per-rank JSON dumps written by mpileaks-sim -dump-json")
		output      = flag.String("output", "", "write the report to this file instead of stdout")
		verbose     = flag.Bool("verbose", false, "log each input file as it is read")
		showVersion = flag.Bool("version", false, "show version information")
		jsonOutput  = flag.Bool("json", false, "output version in JSON format")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -dir DIR [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Merges per-rank leak dumps and prints the §4.5 report offline.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if *showVersion {
		cli.PrintVersion("mpileaks-report", *jsonOutput)
		return
	}

	if *dir == "" {
		cli.ExitWithError("missing required -dir")
	}

	if err := run(*dir, *output, *verbose); err != nil {
		cli.ExitWithError("%v", err)
	}
}

func run(dir, output string, verbose bool) error {
	peers, err := dumpfile.ReadDir(dir)
	if err != nil {
		return err
	}
	if len(peers) == 0 {
		return fmt.Errorf("mpileaks-report: no *.json dumps found in %s", dir)
	}

	var definite, possible, missing []leakcheck.Entry
	for _, p := range peers {
		if verbose {
			fmt.Fprintf(os.Stderr, "[mpileaks-report] rank %d: %d definite, %d possible, %d missing-alloc\n",
				p.Rank, len(p.Definite), len(p.Possible), len(p.MissingAlloc))
		}
		definite = reduce.Merge(sortedCopy(definite), sortedCopy(p.Definite))
		possible = reduce.Merge(sortedCopy(possible), sortedCopy(p.Possible))
		missing = reduce.Merge(sortedCopy(missing), sortedCopy(p.MissingAlloc))
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("mpileaks-report: create %s: %w", output, err)
		}
		defer f.Close()
		return reduce.Report(f, definite, possible, missing)
	}
	return reduce.Report(out, definite, possible, missing)
}

// sortedCopy returns a call-path-ascending copy of entries, the order
// reduce.Merge requires of both of its arguments.
func sortedCopy(entries []leakcheck.Entry) []leakcheck.Entry {
	out := make([]leakcheck.Entry, len(entries))
	copy(out, entries)
	sort.Slice(out, func(i, j int) bool { return out[i].Path.Less(out[j].Path) })
	return out
}
