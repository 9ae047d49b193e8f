package leakcheck

import (
	"github.com/llnl/mpileaks/internal/callpath"
)

// StackAccountant is the concrete accountant for handle kinds where a
// handle owns an ordered stack of call-paths (spec.md §2 C6, §4.4). This
// is the reserved variant: windows are the one handle kind that uses it
// in this module's wiring (see internal/interpose).
type StackAccountant struct {
	base
	table  map[uint64][]callpath.Path
	counts *countMap
	isNull func(uint64) bool
}

// NewStackAccountant constructs a StackAccountant and registers it in
// roster (GlobalRoster() if nil).
func NewStackAccountant(roster *Roster, name string, depth func() int, isNull func(handle uint64) bool) *StackAccountant {
	a := &StackAccountant{
		base:   newBase(name, depth),
		table:  make(map[uint64][]callpath.Path),
		counts: newCountMap(),
		isNull: isNull,
	}
	if roster == nil {
		roster = GlobalRoster()
	}
	roster.Register(a)
	return a
}

// Allocate pushes the allocating call-path onto handle's stack and
// increments the shared call-path-to-count map, per spec.md §4.4.
func (a *StackAccountant) Allocate(handle uint64, chop int) {
	if a.isNull != nil && a.isNull(handle) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.getCallpath(chop + 1)
	a.table[handle] = append(a.table[handle], path)
	a.counts.increase(path, 1)
}

// Free pops the most recent call-path off handle's stack and decrements
// the count map. Popping an empty (or absent) stack is a missing-
// allocate: the free-site call-path is recorded instead, per spec.md
// §4.4.
func (a *StackAccountant) Free(handle uint64, chop int) {
	if a.isNull != nil && a.isNull(handle) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	stack := a.table[handle]
	if len(stack) == 0 {
		path := a.getCallpath(chop + 1)
		a.missingAlloc.increase(path, 1)
		return
	}

	top := stack[len(stack)-1]
	a.counts.decrease(top, 1)

	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(a.table, handle)
	} else {
		a.table[handle] = stack
	}
}

// GetDefiniteLeaks exports the shared call-path-to-count map. The
// definite/possible split for the stack variant is heuristic (spec.md §9
// Open Question (b)): every outstanding entry here is reported as
// definite, unrefined, matching the original tool's policy of treating
// stack-variant handles the same as the single-handle-to-callpath case.
func (a *StackAccountant) GetDefiniteLeaks() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts.toList()
}

// GetPossibleLeaks is always empty for the stack variant (spec.md §4.4).
func (a *StackAccountant) GetPossibleLeaks() []Entry {
	return nil
}
