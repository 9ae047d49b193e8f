package leakcheck

import (
	"sync"

	"github.com/llnl/mpileaks/internal/callpath"
)

// Accountant is the interface the roster and the reduction engine use to
// pull leak reports out of every handle-kind tracker, regardless of
// storage variant (set/single/stack). This corresponds to spec.md §4.2's
// "accountant base" pure-virtual contract plus the final
// get_missing_alloc_leaks.
type Accountant interface {
	Name() string
	GetDefiniteLeaks() []Entry
	GetPossibleLeaks() []Entry
	GetMissingAllocLeaks() []Entry
}

// Roster is the process-wide, lazily-created, ordered sequence of every
// accountant instance, per spec.md §3. It never shrinks before
// finalization. Its mutex guards only Register and All; allocate, free
// and the get_*_leaks exports are serialized by each accountant's own
// mutex, so there is no single lock shared by all accountants.
type Roster struct {
	mu   sync.Mutex
	accs []Accountant
}

var globalRoster = &Roster{}

// GlobalRoster returns the process-wide roster, creating it lazily on
// first use (spec.md §3: "Created lazily on first registration"). A
// real deployment embeds exactly one process per job rank, so this
// single roster is all spec.md §3 describes.
//
// NewRoster below generalizes this for cmd/mpileaks-sim, which plays
// the role of several job ranks inside one OS process: each simulated
// rank gets its own Roster rather than all of them sharing the one
// process-wide instance, matching the isolation a real multi-process
// job gets for free.
func GlobalRoster() *Roster {
	return globalRoster
}

// NewRoster constructs an independent roster, for hosts (like
// cmd/mpileaks-sim) that simulate more than one rank in a single
// process and need each rank's accountants kept separate.
func NewRoster() *Roster {
	return &Roster{}
}

// Register appends acc to the roster. Every accountant constructor
// calls this on the roster it's given (GlobalRoster() by default) so
// the roster never has to be populated by hand.
func (r *Roster) Register(acc Accountant) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accs = append(r.accs, acc)
}

// All returns a snapshot of the registered accountants, in registration
// order.
func (r *Roster) All() []Accountant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Accountant, len(r.accs))
	copy(out, r.accs)
	return out
}

// base holds the state and behavior common to every concrete accountant
// variant (set/single/stack): the missing-alloc count map, the shared
// mutex, and the lazy call-path capture runtime. Concrete variants embed
// base and implement Allocate/Free (with their own null-handle test and
// record storage) and GetDefiniteLeaks/GetPossibleLeaks themselves,
// since those differ per variant.
type base struct {
	mu           sync.Mutex
	missingAlloc *countMap
	capturer     *callpath.Capturer
	name         string
	depth        func() int
}

func newBase(name string, depth func() int) base {
	b := base{
		name:         name,
		missingAlloc: newCountMap(),
		capturer:     callpath.NewCapturer(),
		depth:        depth,
	}
	return b
}

func (b *base) Name() string { return b.name }

// GetMissingAllocLeaks exports the missing_alloc count map, final
// (non-overridable) across every variant per spec.md §4.2.
func (b *base) GetMissingAllocLeaks() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.missingAlloc.toList()
}

// getCallpath instantiates the capture runtime on first use, captures the
// current call path with the top chop frames (interposer and library
// frames above the allocating/freeing call) already skipped, and then
// clips to the process-wide depth cap (-1 = full trace, 0 = empty,
// clamped if it exceeds the remaining trace), per spec.md §4.2. The +1
// accounts for this helper's own frame, mirroring spec.md's note that
// every chop value carries an implicit +1 for the frame the helper itself
// introduces.
func (b *base) getCallpath(chop int) callpath.Path {
	full := b.capturer.Capture(chop + 1)

	depth := -1
	if b.depth != nil {
		depth = b.depth()
	}

	end := full.Size()
	if depth > -1 {
		end = depth
		if end > full.Size() {
			end = full.Size()
		}
	}
	return full.Slice(0, end)
}

func (b *base) recordMissingAlloc(path callpath.Path) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.missingAlloc.increase(path, 1)
}
