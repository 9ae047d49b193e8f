// Package control implements the process-wide lifecycle described by
// spec.md §4.6 (component C8): the enabled tri-state, the depth cap, and
// the init/control/finalize hooks every intercepted wrapper in
// internal/interpose consults before touching an accountant.
package control

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/llnl/mpileaks/internal/config"
	"github.com/llnl/mpileaks/internal/diag"
	"github.com/llnl/mpileaks/internal/leakcheck"
	"github.com/llnl/mpileaks/internal/reduce"
	"github.com/llnl/mpileaks/internal/transport"
)

// Level is the integer the profiling-control hook accepts, per spec.md
// §4.6.
type Level int

const (
	LevelDisable Level = 0
	LevelEnable  Level = 1
	LevelDump    Level = 2
)

// enabled tri-state values, matching spec.md §4.6's "int tri-state 0 off
// / 1 on / dump trigger" description; Context additionally tracks
// Level 2 as a transient action rather than a resting state.
const (
	stateOff int32 = iota
	stateOn
)

// Context bundles the global state spec.md §4.6 groups together: the
// enabled flag, the depth cap, and the roster/transport needed to run a
// dump. One Context exists per process (spec.md §9's "Design Notes"
// explicitly sanctions bundling these into a single lazily-initialized
// structure).
type Context struct {
	enabled int32
	depth   int32

	rank      int
	peerCount int
	job       transport.Job
	roster    *leakcheck.Roster

	dumpGroup singleflight.Group

	mu     sync.Mutex
	logger *diag.Logger
	out    io.Writer
}

// Init implements spec.md §4.6's initialization hook: record rank/peer
// count, read the depth cap from configuration, then set enabled.
// Accounting is scoped to leakcheck.GlobalRoster(), matching a real
// deployment where one process is one job rank; use InitWithRoster for
// cmd/mpileaks-sim, which simulates several ranks in one process.
func Init(job transport.Job, cfg config.Config, out io.Writer) *Context {
	return InitWithRoster(job, cfg, out, leakcheck.GlobalRoster())
}

// InitWithRoster is Init with an explicit roster, for hosts that
// maintain more than one independent accounting scope in a single
// process.
func InitWithRoster(job transport.Job, cfg config.Config, out io.Writer, roster *leakcheck.Roster) *Context {
	c := &Context{
		rank:      job.Rank(),
		peerCount: job.PeerCount(),
		job:       job,
		roster:    roster,
		logger:    diag.NewLogger(false),
		out:       out,
	}
	atomic.StoreInt32(&c.depth, int32(cfg.StackDepth))
	atomic.StoreInt32(&c.enabled, stateOn)
	return c
}

// Enabled reports whether accounting is currently active. Every
// intercepted wrapper in internal/interpose checks this before calling
// into an accountant.
func (c *Context) Enabled() bool {
	return atomic.LoadInt32(&c.enabled) == stateOn
}

// Depth returns the current frame cap, suitable for passing as the
// depth func() int argument to leakcheck's accountant constructors.
func (c *Context) Depth() int {
	return int(atomic.LoadInt32(&c.depth))
}

// Control implements spec.md §4.6's control hook. Unknown levels are
// silently ignored and forwarded, per spec.md §6.
func (c *Context) Control(ctx context.Context, level Level) error {
	switch level {
	case LevelDisable:
		atomic.StoreInt32(&c.enabled, stateOff)
		return nil
	case LevelEnable:
		atomic.StoreInt32(&c.enabled, stateOn)
		return nil
	case LevelDump:
		return c.dump(ctx)
	default:
		return nil
	}
}

// Finalize implements spec.md §4.6's finalization hook: dump, then
// disable. Unlike a level-2 control call, Finalize always disables
// accounting afterward. It releases nothing: the job is not closed and
// the accountants' capture runtimes are left in place.
func (c *Context) Finalize(ctx context.Context) error {
	err := c.dump(ctx)
	atomic.StoreInt32(&c.enabled, stateOff)
	return err
}

// dump iterates the roster three times (definite, possible,
// missing-alloc), reduces each list through internal/reduce, and on
// rank 0 prints the merged report. Concurrent dump requests (a control
// level-2 racing finalize, or two goroutines both hitting the control
// hook) are coalesced by singleflight: spec.md §5 warns that "an
// uncooperative peer will hang the dump," so piling up redundant
// concurrent dumps only multiplies that risk.
func (c *Context) dump(ctx context.Context) error {
	_, err, _ := c.dumpGroup.Do("dump", func() (interface{}, error) {
		return nil, c.dumpOnce(ctx)
	})
	return err
}

func (c *Context) dumpOnce(ctx context.Context) error {
	roster := c.roster.All()

	var definite, possible, missing []leakcheck.Entry

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		definite = gatherAll(roster, leakcheck.Accountant.GetDefiniteLeaks)
		return gctx.Err()
	})
	g.Go(func() error {
		possible = gatherAll(roster, leakcheck.Accountant.GetPossibleLeaks)
		return gctx.Err()
	})
	g.Go(func() error {
		missing = gatherAll(roster, leakcheck.Accountant.GetMissingAllocLeaks)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("control: gather roster leaks: %w", err)
	}

	reducedDefinite, err := c.reduceList(ctx, definite)
	if err != nil {
		return err
	}
	reducedPossible, err := c.reduceList(ctx, possible)
	if err != nil {
		return err
	}
	reducedMissing, err := c.reduceList(ctx, missing)
	if err != nil {
		return err
	}

	if c.rank != 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return reduce.Report(c.out, reducedDefinite, reducedPossible, reducedMissing)
}

func (c *Context) reduceList(ctx context.Context, local []leakcheck.Entry) ([]leakcheck.Entry, error) {
	if c.peerCount <= 1 {
		return local, nil
	}
	return reduce.Reduce(ctx, c.job, local)
}

// gatherAll concatenates one accountant method's export across the
// entire roster. Each accountant already serializes its own state with
// base.mu (spec.md §5); this just merges the unlocked snapshots each
// returns.
func gatherAll(roster []leakcheck.Accountant, get func(leakcheck.Accountant) []leakcheck.Entry) []leakcheck.Entry {
	var out []leakcheck.Entry
	for _, acc := range roster {
		out = append(out, get(acc)...)
	}
	return out
}
