package leakcheck

import (
	"github.com/llnl/mpileaks/internal/callpath"
)

// setRecord is a handle-record for the set variant (spec.md §3, §4.3): the
// multiset (set, not bag) of distinct call-paths that allocated the
// handle, and a refcount of active allocations tied to the handle
// identity. Invariant: refcount >= 1 iff the record is present.
type setRecord struct {
	paths    map[string]callpath.Path
	refcount int
}

// SetAccountant is the concrete accountant for handle kinds where one
// handle identity may be tied to multiple call-paths (request, comm,
// group, datatype, file, errhandler, info, op, and the three keyval
// kinds), per spec.md §2 (C4) and §4.3.
type SetAccountant struct {
	base
	table  map[uint64]*setRecord
	isNull func(uint64) bool
}

// NewSetAccountant constructs a SetAccountant for a handle kind,
// registers it in roster (GlobalRoster() if nil), and wires the
// null-sentinel test the handle kind requires (spec.md §4.2:
// "is_handle_null(h) -- accountant-kind-specific null test").
func NewSetAccountant(roster *Roster, name string, depth func() int, isNull func(handle uint64) bool) *SetAccountant {
	a := &SetAccountant{
		base:   newBase(name, depth),
		table:  make(map[uint64]*setRecord),
		isNull: isNull,
	}
	if roster == nil {
		roster = GlobalRoster()
	}
	roster.Register(a)
	return a
}

// Allocate records an allocation of handle at the call site chop frames
// above the caller. Guarded by the enabled flag (the caller, typically
// interpose.Backend, checks that) and by isHandleNull.
func (a *SetAccountant) Allocate(handle uint64, chop int) {
	if a.isNull != nil && a.isNull(handle) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	path := a.getCallpath(chop + 1)
	a.addCallpath(handle, path)
}

// Free retires one allocation of handle. A handle not present in the
// table is a missing-allocate (spec.md §4.2): its free-site call-path is
// recorded in missing_alloc instead.
func (a *SetAccountant) Free(handle uint64, chop int) {
	if a.isNull != nil && a.isNull(handle) {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, ok := a.table[handle]
	if !ok {
		path := a.getCallpath(chop + 1)
		a.missingAlloc.increase(path, 1)
		return
	}
	a.removeCallpath(handle, rec, chop+1)
}

// addCallpath implements spec.md §4.3's add_callpath: look up or insert
// the record for handle, increment refcount, insert path into the set.
func (a *SetAccountant) addCallpath(handle uint64, path callpath.Path) {
	rec, ok := a.table[handle]
	if !ok {
		rec = &setRecord{paths: make(map[string]callpath.Path)}
		a.table[handle] = rec
	}
	rec.refcount++
	rec.paths[path.Key()] = path
}

// removeCallpath implements spec.md §4.3's remove_callpath. If paths is
// empty or refcount <= 0 (an underflow), the free-site is captured into
// missing_alloc and the record is erased. Otherwise refcount is
// decremented; reaching zero clears paths and erases the record. Per §9
// Open Question (a), a free while refcount > 0 with |paths| > 1 never
// retires a path from the set -- deliberate, not a bug.
func (a *SetAccountant) removeCallpath(handle uint64, rec *setRecord, chop int) {
	if len(rec.paths) == 0 || rec.refcount <= 0 {
		path := a.getCallpath(chop)
		a.missingAlloc.increase(path, 1)
		rec.paths = nil
		delete(a.table, handle)
		return
	}

	rec.refcount--
	if rec.refcount == 0 {
		rec.paths = nil
		delete(a.table, handle)
	}
}

// GetDefiniteLeaks contributes (path, refcount) for every surviving
// record whose path set has exactly one member -- an unambiguous origin,
// per spec.md §4.3.
func (a *SetAccountant) GetDefiniteLeaks() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	tmp := newCountMap()
	for _, rec := range a.table {
		if len(rec.paths) == 1 {
			for _, p := range rec.paths {
				tmp.increase(p, rec.refcount)
			}
		}
	}
	return tmp.toList()
}

// GetPossibleLeaks contributes (path, refcount) for every member of every
// surviving record whose path set has more than one member -- each
// ambiguous path is charged the full outstanding count, per spec.md §4.3.
func (a *SetAccountant) GetPossibleLeaks() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()

	tmp := newCountMap()
	for _, rec := range a.table {
		if len(rec.paths) > 1 {
			for _, p := range rec.paths {
				tmp.increase(p, rec.refcount)
			}
		}
	}
	return tmp.toList()
}
