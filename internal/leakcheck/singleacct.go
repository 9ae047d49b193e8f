package leakcheck

import (
	"github.com/llnl/mpileaks/internal/callpath"
	"github.com/llnl/mpileaks/internal/diag"
)

// SingleAccountant is the concrete accountant for handle kinds that
// promise one-to-one identity: a handle is tied to exactly one call-path
// (spec.md §2 C5, §4.4). Memory-allocation base pointers are the only
// handle kind that uses this variant.
type SingleAccountant struct {
	base
	table  map[uint64]callpath.Path
	counts *countMap
	isNull func(uint64) bool
}

// NewSingleAccountant constructs a SingleAccountant and registers it in
// roster (GlobalRoster() if nil).
func NewSingleAccountant(roster *Roster, name string, depth func() int, isNull func(handle uint64) bool) *SingleAccountant {
	a := &SingleAccountant{
		base:   newBase(name, depth),
		table:  make(map[uint64]callpath.Path),
		counts: newCountMap(),
		isNull: isNull,
	}
	if roster == nil {
		roster = GlobalRoster()
	}
	roster.Register(a)
	return a
}

// Allocate records the one and only allocating call-path for handle.
// Re-registering an already-tracked handle is an internal error (spec.md
// §4.4: "one-handle-to-many is reserved for the set variant") -- it is
// logged and the existing association is left untouched.
func (a *SingleAccountant) Allocate(handle uint64, chop int) {
	if a.isNull != nil && a.isNull(handle) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.getCallpath(chop + 1)
	if _, exists := a.table[handle]; exists {
		diag.Internal(diag.CategoryDuplicate,
			"%s: attempting to overwrite call-path of existing handle; "+
				"cannot associate one handle to more than one call-path", a.name)
		return
	}
	a.table[handle] = path
	a.counts.increase(path, 1)
}

// Free retires the single allocation tied to handle. A handle absent from
// the table is a missing-allocate.
func (a *SingleAccountant) Free(handle uint64, chop int) {
	if a.isNull != nil && a.isNull(handle) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	path, ok := a.table[handle]
	if !ok {
		freePath := a.getCallpath(chop + 1)
		a.missingAlloc.increase(freePath, 1)
		return
	}

	a.counts.decrease(path, 1)
	delete(a.table, handle)
}

// GetDefiniteLeaks exports the call-path-to-count map; every entry here
// is definite since a handle can only ever have one origin.
func (a *SingleAccountant) GetDefiniteLeaks() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts.toList()
}

// GetPossibleLeaks is always empty for the single variant (spec.md §4.4).
func (a *SingleAccountant) GetPossibleLeaks() []Entry {
	return nil
}
