package interpose

import "github.com/llnl/mpileaks/internal/control"

// Backend exposes one profiling-prefixed method per §6 family group.
// There is no public, non-prefixed name in this module (no "MPI_..."
// binding is shipped); a real deployment would generate the public
// wrapper that calls the profiling name below and then the accountant,
// exactly as spec.md describes (see wrap.go).
type Backend struct {
	reg *Registry
	ctl *control.Context
}

// NewBackend builds a Backend over reg, gated by ctl.Enabled().
func NewBackend(reg *Registry, ctl *control.Context) *Backend {
	return &Backend{reg: reg, ctl: ctl}
}

func (b *Backend) create(t tracker, handle uint64, chop int) {
	if !b.ctl.Enabled() {
		return
	}
	t.Allocate(handle, chop)
}

func (b *Backend) destroy(t tracker, handle uint64, chop int) {
	if !b.ctl.Enabled() {
		return
	}
	t.Free(handle, chop)
}

// --- request family: send/recv/persistent/start variants all allocate
// the same way; array-completion frees live in requests.go. ---

func (b *Backend) PRequestISend(handle uint64)          { b.create(b.reg.Request, handle, 0) }
func (b *Backend) PRequestIRecv(handle uint64)          { b.create(b.reg.Request, handle, 0) }
func (b *Backend) PRequestIRsend(handle uint64)         { b.create(b.reg.Request, handle, 0) }
func (b *Backend) PRequestISsend(handle uint64)         { b.create(b.reg.Request, handle, 0) }
func (b *Backend) PRequestIBsend(handle uint64)         { b.create(b.reg.Request, handle, 0) }
func (b *Backend) PRequestSendInit(handle uint64)       { b.create(b.reg.Request, handle, 0) }
func (b *Backend) PRequestRecvInit(handle uint64)       { b.create(b.reg.Request, handle, 0) }
func (b *Backend) PRequestGeneralizedStart(handle uint64) { b.create(b.reg.Request, handle, 0) }
// PRequestStart and PRequestStartAll: spec.md §6 lists start/startall in
// the allocate set alongside persistent-request init, since each Start
// begins a new communication tied to the handle and contributes another
// call-path/refcount entry (spec.md §8 scenario 1).
func (b *Backend) PRequestStart(handle uint64) { b.create(b.reg.Request, handle, 0) }

// PRequestStartAll allocates every handle in reqs, for the array form of
// Start (Startall).
func (b *Backend) PRequestStartAll(reqs []uint64) {
	for _, h := range reqs {
		b.create(b.reg.Request, h, 1)
	}
}
func (b *Backend) PRequestFree(handle uint64)           { b.destroy(b.reg.Request, handle, 0) }

// --- file family ---

func (b *Backend) PFileIOpen(handle uint64) { b.create(b.reg.File, handle, 0) }
func (b *Backend) PFileOpen(handle uint64)  { b.create(b.reg.File, handle, 0) }
func (b *Backend) PFileClose(handle uint64) { b.destroy(b.reg.File, handle, 0) }

// --- communicator family ---

func (b *Backend) PCommCreate(handle uint64)     { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommDup(handle uint64)        { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommSplit(handle uint64)      { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommIntercomm(handle uint64)  { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommCart(handle uint64)       { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommGraph(handle uint64)      { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommDistGraph(handle uint64)  { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommSpawn(handle uint64)      { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommAccept(handle uint64)     { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommConnect(handle uint64)    { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommJoin(handle uint64)       { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommGetParent(handle uint64)  { b.create(b.reg.Comm, handle, 0) }
func (b *Backend) PCommFree(handle uint64)       { b.destroy(b.reg.Comm, handle, 0) }
func (b *Backend) PCommDisconnect(handle uint64) { b.destroy(b.reg.Comm, handle, 0) }

// --- group family ---

func (b *Backend) PGroupCreate(handle uint64) { b.create(b.reg.Group, handle, 0) }
func (b *Backend) PGroupUnion(handle uint64)  { b.create(b.reg.Group, handle, 0) }
func (b *Backend) PGroupDiff(handle uint64)   { b.create(b.reg.Group, handle, 0) }
func (b *Backend) PGroupIntersect(handle uint64) { b.create(b.reg.Group, handle, 0) }
func (b *Backend) PGroupFree(handle uint64)   { b.destroy(b.reg.Group, handle, 0) }

// --- datatype family ---

func (b *Backend) PTypeContiguous(handle uint64) { b.create(b.reg.Datatype, handle, 0) }
func (b *Backend) PTypeVector(handle uint64)     { b.create(b.reg.Datatype, handle, 0) }
func (b *Backend) PTypeStruct(handle uint64)     { b.create(b.reg.Datatype, handle, 0) }
func (b *Backend) PTypeFree(handle uint64)       { b.destroy(b.reg.Datatype, handle, 0) }

// --- errhandler family ---

func (b *Backend) PErrhandlerCreate(handle uint64) { b.create(b.reg.Errhandler, handle, 0) }
func (b *Backend) PErrhandlerFree(handle uint64)   { b.destroy(b.reg.Errhandler, handle, 0) }

// --- info family ---

func (b *Backend) PInfoCreate(handle uint64)      { b.create(b.reg.Info, handle, 0) }
func (b *Backend) PInfoDup(handle uint64)         { b.create(b.reg.Info, handle, 0) }
func (b *Backend) PFileGetInfo(handle uint64)     { b.create(b.reg.Info, handle, 0) }
func (b *Backend) PInfoFree(handle uint64)        { b.destroy(b.reg.Info, handle, 0) }

// --- op family ---

func (b *Backend) POpCreate(handle uint64) { b.create(b.reg.Op, handle, 0) }
func (b *Backend) POpFree(handle uint64)   { b.destroy(b.reg.Op, handle, 0) }

// --- keyval families: comm, win, and datatype attribute keys each get
// their own accountant per spec.md §6's "three kinds" note. ---

func (b *Backend) PCommCreateKeyval(handle uint64) { b.create(b.reg.KeyvalComm, handle, 0) }
func (b *Backend) PCommFreeKeyval(handle uint64)   { b.destroy(b.reg.KeyvalComm, handle, 0) }
func (b *Backend) PWinCreateKeyval(handle uint64)  { b.create(b.reg.KeyvalWin, handle, 0) }
func (b *Backend) PWinFreeKeyval(handle uint64)    { b.destroy(b.reg.KeyvalWin, handle, 0) }
func (b *Backend) PTypeCreateKeyval(handle uint64) { b.create(b.reg.KeyvalType, handle, 0) }
func (b *Backend) PTypeFreeKeyval(handle uint64)   { b.destroy(b.reg.KeyvalType, handle, 0) }

// --- memory family: single variant, one handle to exactly one call-path. ---

func (b *Backend) PAlloc(handle uint64) { b.create(b.reg.Mem, handle, 0) }
func (b *Backend) PFree(handle uint64)  { b.destroy(b.reg.Mem, handle, 0) }

// --- window family: stack variant per C6. ---

func (b *Backend) PWinCreate(handle uint64) { b.create(b.reg.Win, handle, 0) }
func (b *Backend) PWinFree(handle uint64)   { b.destroy(b.reg.Win, handle, 0) }
