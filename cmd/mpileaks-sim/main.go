// Command mpileaks-sim is a self-contained demonstration harness: it
// plays the role of an entire job of N ranks inside one OS process,
// driving internal/interpose.Backend through one of the scripted
// end-to-end scenarios spec.md §8 describes, then finalizing every
// simulated peer concurrently so the real binomial-tree reduce
// (internal/reduce) and report printer run exactly as they would across
// a live job. No actual message-passing library is involved; each rank's
// "library call" is just a direct Backend method call from Go.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/llnl/mpileaks/internal/cli"
	"github.com/llnl/mpileaks/internal/config"
	"github.com/llnl/mpileaks/internal/control"
	"github.com/llnl/mpileaks/internal/dumpfile"
	"github.com/llnl/mpileaks/internal/interpose"
	"github.com/llnl/mpileaks/internal/leakcheck"
	"github.com/llnl/mpileaks/internal/transport"
)

func main() {
	const unsetDepth = -9999

	var (
		peers       = flag.Int("peers", 2, "number of simulated ranks")
		scenarioArg = flag.String("scenario", "two-peer-merge", "scripted scenario to run; -scenario list to see all")
		dumpDir     = flag.String("dump-json", "", "if set, write each rank's pre-reduction leak lists as JSON into this directory")
		depth       = flag.Int("stack-depth", unsetDepth, "call-path frame cap passed to every accountant (-1 = unlimited); defaults to MPILEAKS_STACK_DEPTH if unset")
		verbose     = flag.Bool("verbose", false, "log each rank's control-surface transitions")
		showVersion = flag.Bool("version", false, "show version information")
		jsonOutput  = flag.Bool("json", false, "output version in JSON format")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Simulates a multi-rank job in one process and prints the reduced leak report.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nSCENARIOS:\n%s", listScenarios())
	}

	flag.Parse()

	if *showVersion {
		cli.PrintVersion("mpileaks-sim", *jsonOutput)
		return
	}

	if *scenarioArg == "list" {
		fmt.Print(listScenarios())
		return
	}

	s, ok := scenarios[*scenarioArg]
	if !ok {
		cli.ExitWithError("unknown scenario %q; run with -scenario list", *scenarioArg)
	}
	if *peers < s.minPeers {
		cli.ExitWithError("scenario %q needs at least %d peer(s), got %d", s.name, s.minPeers, *peers)
	}

	cfg := config.Load()
	if *depth != unsetDepth {
		cfg.StackDepth = *depth
	}

	if err := run(*peers, s, cfg, *dumpDir, *verbose); err != nil {
		cli.ExitWithError("%v", err)
	}
}

// run wires one MemFabric-backed job of peerCount ranks, runs s on each
// rank concurrently, optionally dumps each rank's local lists to
// dumpDir, and finalizes every rank concurrently so the binomial tree in
// internal/reduce actually has live dial/accept partners to rendezvous
// with.
func run(peerCount int, s scenario, cfg config.Config, dumpDir string, verbose bool) error {
	fabric := transport.NewMemFabric(peerCount)
	logger := newSimLogger(verbose)

	type rankState struct {
		roster *leakcheck.Roster
		ctl    *control.Context
		reg    *interpose.Registry
		b      *interpose.Backend
	}

	ranks := make([]rankState, peerCount)
	for rank := 0; rank < peerCount; rank++ {
		var out io.Writer = io.Discard
		if rank == 0 {
			out = os.Stdout
		}

		roster := leakcheck.NewRoster()
		ctl := control.InitWithRoster(fabric.Job(rank), cfg, out, roster)
		reg := interpose.NewRegistry(roster, ctl.Depth)
		b := interpose.NewBackend(reg, ctl)
		ranks[rank] = rankState{roster: roster, ctl: ctl, reg: reg, b: b}
	}

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if cfg.ControlFile != "" {
		for rank := range ranks {
			go func(rank int) {
				if err := control.WatchFile(watchCtx, ranks[rank].ctl, cfg.ControlFile); err != nil && watchCtx.Err() == nil {
					logger.Info("rank %d: control file watch ended: %v", rank, err)
				}
			}(rank)
		}
	}

	for rank := range ranks {
		logger.Info("rank %d: running scenario %q", rank, s.name)
		s.run(ranks[rank].b, rank)
	}

	if dumpDir != "" {
		if err := os.MkdirAll(dumpDir, 0o755); err != nil {
			return fmt.Errorf("mpileaks-sim: create dump dir: %w", err)
		}
		for rank, rs := range ranks {
			d := dumpfile.Peer{
				Rank:         rank,
				Definite:     gatherRoster(rs.roster, leakcheck.Accountant.GetDefiniteLeaks),
				Possible:     gatherRoster(rs.roster, leakcheck.Accountant.GetPossibleLeaks),
				MissingAlloc: gatherRoster(rs.roster, leakcheck.Accountant.GetMissingAllocLeaks),
			}
			path := filepath.Join(dumpDir, dumpfile.FileName(rank))
			if err := dumpfile.Write(path, d); err != nil {
				return err
			}
			logger.Info("rank %d: wrote %s", rank, path)
		}
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make([]error, peerCount)
	for rank := range ranks {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			errs[rank] = ranks[rank].ctl.Finalize(ctx)
		}(rank)
	}
	wg.Wait()

	for rank, err := range errs {
		if err != nil {
			return fmt.Errorf("mpileaks-sim: rank %d finalize: %w", rank, err)
		}
	}
	return nil
}

// gatherRoster concatenates one accountant method's export across every
// accountant registered in roster, the same pattern internal/control
// uses to build a rank's local pre-reduction list.
func gatherRoster(roster *leakcheck.Roster, get func(leakcheck.Accountant) []leakcheck.Entry) []leakcheck.Entry {
	var out []leakcheck.Entry
	for _, acc := range roster.All() {
		out = append(out, get(acc)...)
	}
	return out
}

type simLogger struct {
	verbose bool
}

func newSimLogger(verbose bool) *simLogger { return &simLogger{verbose: verbose} }

func (l *simLogger) Info(format string, args ...interface{}) {
	if !l.verbose {
		return
	}
	fmt.Fprintf(os.Stderr, "[mpileaks-sim] "+format+"\n", args...)
}
