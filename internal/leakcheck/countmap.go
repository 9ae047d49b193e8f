// Package leakcheck implements the leak-accounting core: the per-process
// data structure that maps each handle to the call-paths that allocated
// it, classifies outstanding handles as definite vs. possible leaks, and
// tolerates free-without-prior-allocate. This is a direct port of
// spec.md §3-§4 (components C2-C6).
package leakcheck

import (
	"sort"

	"github.com/llnl/mpileaks/internal/callpath"
	"github.com/llnl/mpileaks/internal/diag"
)

// Entry pairs a call-path with its outstanding count, the unit the roster
// exports to the reduction engine.
type Entry struct {
	Path  callpath.Path
	Count int
}

// countMap maps a call-path to a strictly positive integer. Invariants
// (spec.md §3): no zero entries (reaching zero deletes the key), no
// negative entries (an attempted decrement below zero is an internal
// error, reported but not fatal), deterministic (call-path order)
// iteration.
type countMap struct {
	counts map[string]int
	paths  map[string]callpath.Path
}

func newCountMap() *countMap {
	return &countMap{
		counts: make(map[string]int),
		paths:  make(map[string]callpath.Path),
	}
}

// increase adds n (n > 0) to the count for path, inserting it if absent.
func (m *countMap) increase(path callpath.Path, n int) {
	if n <= 0 {
		diag.Internal(diag.CategoryNegative, "countmap.increase called with n=%d", n)
		return
	}
	key := path.Key()
	if _, ok := m.counts[key]; !ok {
		m.paths[key] = path
	}
	m.counts[key] += n
}

// decrease subtracts n from the count for path. If the entry is absent
// this is an internal error: it is logged and the map is left unchanged
// (no insertion of a negative or zero entry). If the result is <= 0 the
// entry is removed; if the result is < 0 an additional "negative count
// detected" fault is logged, per spec.md §4.1.
func (m *countMap) decrease(path callpath.Path, n int) {
	key := path.Key()
	cur, ok := m.counts[key]
	if !ok {
		diag.Internal(diag.CategoryNegative, "decrease on absent call-path")
		return
	}

	next := cur - n
	if next <= 0 {
		if next < 0 {
			diag.Internal(diag.CategoryNegative, "negative count detected")
		}
		delete(m.counts, key)
		delete(m.paths, key)
		return
	}
	m.counts[key] = next
}

// toList returns the map's {path, count} entries as a new slice in
// call-path order (spec.md §4.1's map_to_list); its length is the number
// of entries.
func (m *countMap) toList() []Entry {
	out := make([]Entry, 0, len(m.counts))
	for key, count := range m.counts {
		out = append(out, Entry{Path: m.paths[key], Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path.Less(out[j].Path) })
	return out
}

func (m *countMap) isEmpty() bool {
	return len(m.counts) == 0
}
