package interpose

// This file documents, rather than implements, the step spec.md leaves
// unspecified: for every paired allocate/free in a real host library, a
// generated public-name wrapper calls the profiling entry point
// (Backend's P-prefixed methods) and then the matching accountant call,
// exactly as spec.md §6 describes. Since this module ships no real ABI
// binding, there is nothing to generate the wrapper *against* yet — a
// real deployment would point a generator at the host library's
// function table and emit one small function per entry, e.g.:
//
//	func Send_init(...) int {
//	    rc := PSend_init(...)
//	    if rc == 0 {
//	        backend.PRequestSendInit(handle)
//	    }
//	    return rc
//	}
//
// cmd/mpileaks-sim calls Backend's profiling methods directly, playing
// the role both of the generated wrapper and of the host library.
