// Package interpose stands in for the generated host-library wrappers
// spec.md §6 describes only in the abstract ("each simply invokes the
// profiling variant and calls allocate or free"). Backend gives the
// accounting core (internal/leakcheck) something concrete to wire
// against in tests and in cmd/mpileaks-sim, since this module ships no
// real MPI binding.
package interpose

import (
	"github.com/llnl/mpileaks/internal/leakcheck"
)

// nullHandle is this module's null-handle sentinel, used uniformly
// across every handle kind. A real binding's null constants are
// implementation-defined and not always zero; since no public ABI is
// exposed here, one sentinel value keeps every family's null test
// identical.
const nullHandle uint64 = 0

func isNull(h uint64) bool { return h == nullHandle }

// tracker is the subset of leakcheck's three accountant variants that
// Backend's generic create/free helpers need. SetAccountant,
// SingleAccountant, and StackAccountant all satisfy it despite differing
// in how they store handle records internally.
type tracker interface {
	Allocate(handle uint64, chop int)
	Free(handle uint64, chop int)
}

// Registry holds one accountant per handle kind, wired to the storage
// variant spec.md §2 and §6 assign it: Set for the eleven
// multiply-allocatable kinds, Single for memory, Stack for windows.
type Registry struct {
	Request    *leakcheck.SetAccountant
	Comm       *leakcheck.SetAccountant
	Group      *leakcheck.SetAccountant
	Datatype   *leakcheck.SetAccountant
	File       *leakcheck.SetAccountant
	Errhandler *leakcheck.SetAccountant
	Info       *leakcheck.SetAccountant
	Op         *leakcheck.SetAccountant
	KeyvalComm *leakcheck.SetAccountant
	KeyvalWin  *leakcheck.SetAccountant
	KeyvalType *leakcheck.SetAccountant
	Mem        *leakcheck.SingleAccountant
	Win        *leakcheck.StackAccountant
}

// NewRegistry constructs every accountant against roster (GlobalRoster()
// if nil), sharing the same depth function (normally Context.Depth)
// across all of them. cmd/mpileaks-sim passes a fresh leakcheck.NewRoster()
// per simulated peer so independent peers in one process don't pollute
// each other's roster, the way independent OS processes would in a real
// deployment.
func NewRegistry(roster *leakcheck.Roster, depth func() int) *Registry {
	return &Registry{
		Request:    leakcheck.NewSetAccountant(roster, "request", depth, isNull),
		Comm:       leakcheck.NewSetAccountant(roster, "comm", depth, isNull),
		Group:      leakcheck.NewSetAccountant(roster, "group", depth, isNull),
		Datatype:   leakcheck.NewSetAccountant(roster, "datatype", depth, isNull),
		File:       leakcheck.NewSetAccountant(roster, "file", depth, isNull),
		Errhandler: leakcheck.NewSetAccountant(roster, "errhandler", depth, isNull),
		Info:       leakcheck.NewSetAccountant(roster, "info", depth, isNull),
		Op:         leakcheck.NewSetAccountant(roster, "op", depth, isNull),
		KeyvalComm: leakcheck.NewSetAccountant(roster, "keyval_comm", depth, isNull),
		KeyvalWin:  leakcheck.NewSetAccountant(roster, "keyval_win", depth, isNull),
		KeyvalType: leakcheck.NewSetAccountant(roster, "keyval_type", depth, isNull),
		Mem:        leakcheck.NewSingleAccountant(roster, "mem", depth, isNull),
		Win:        leakcheck.NewStackAccountant(roster, "win", depth, isNull),
	}
}
