// Package reduce implements the binomial-tree merge (spec component C7)
// that gathers each peer's leak lists onto rank 0 and prints the merged
// report. It never calls into internal/interpose: all peer traffic here
// is carried over internal/transport, so the reduction's own sends and
// receives can never recurse into an accountant.
package reduce

import (
	"sort"

	"github.com/llnl/mpileaks/internal/leakcheck"
)

// sortByPath orders entries ascending by call-path, the ordering Merge
// requires of both of its inputs.
func sortByPath(entries []leakcheck.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path.Less(entries[j].Path)
	})
}

// Merge combines two call-path-ascending-sorted entry lists with a
// two-pointer walk: the pointer over the smaller path (by Path.Less)
// advances alone, and on a tie both pointers advance together with the
// counts summed. The result remains sorted ascending by path. Merge is
// commutative as a multiset of (path, count) pairs.
func Merge(a, b []leakcheck.Entry) []leakcheck.Entry {
	out := make([]leakcheck.Entry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Path.Less(b[j].Path):
			out = append(out, a[i])
			i++
		case b[j].Path.Less(a[i].Path):
			out = append(out, b[j])
			j++
		default:
			out = append(out, leakcheck.Entry{Path: a[i].Path, Count: a[i].Count + b[j].Count})
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// sortByCountThenPath is the final presentation order on rank 0: count
// descending, ties broken by call-path ascending.
func sortByCountThenPath(entries []leakcheck.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Path.Less(entries[j].Path)
	})
}

// cloneSorted returns a path-ascending-sorted copy of entries, leaving
// the caller's slice untouched.
func cloneSorted(entries []leakcheck.Entry) []leakcheck.Entry {
	out := make([]leakcheck.Entry, len(entries))
	copy(out, entries)
	sortByPath(out)
	return out
}
