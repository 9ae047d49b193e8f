package interpose

// Array-completion calls free a request handle only when it transitions
// from non-null to null across the underlying call, per spec.md §6:
// "snapshot the input array before the underlying call; for each
// position where the snapshot was non-null and the post-call value is
// null, perform free(snapshot[i], chop)." The call parameter is the
// profiling entry point itself — Backend never calls the public name,
// satisfying §5's re-entrancy rule.

func snapshot(reqs []uint64) []uint64 {
	cp := make([]uint64, len(reqs))
	copy(cp, reqs)
	return cp
}

func (b *Backend) freeCompleted(before, after []uint64) {
	for i := range before {
		if before[i] != nullHandle && after[i] == nullHandle {
			b.destroy(b.reg.Request, before[i], 1)
		}
	}
}

// WaitAll blocks until every request in reqs completes, then frees every
// position that transitioned to null.
func (b *Backend) WaitAll(reqs []uint64, call func([]uint64) error) error {
	before := snapshot(reqs)
	if err := call(reqs); err != nil {
		return err
	}
	b.freeCompleted(before, reqs)
	return nil
}

// TestAll frees completed positions even when flag is false or some
// requests remain outstanding: spec.md §6 says testall "ignores the
// flag-zero short-circuit to handle partial completion."
func (b *Backend) TestAll(reqs []uint64, call func([]uint64) (bool, error)) (bool, error) {
	before := snapshot(reqs)
	flag, err := call(reqs)
	if err != nil {
		return flag, err
	}
	b.freeCompleted(before, reqs)
	return flag, nil
}

// WaitAny frees only the index the underlying call reports complete.
func (b *Backend) WaitAny(reqs []uint64, call func([]uint64) (int, error)) (int, error) {
	before := snapshot(reqs)
	idx, err := call(reqs)
	if err != nil {
		return idx, err
	}
	b.freeIfCompleted(before, reqs, idx, true)
	return idx, nil
}

// TestAny frees the returned index only when flag is true, per spec.md
// §6's "waitany/testany free only the index returned (and only when
// flag is true for testany)."
func (b *Backend) TestAny(reqs []uint64, call func([]uint64) (int, bool, error)) (int, bool, error) {
	before := snapshot(reqs)
	idx, flag, err := call(reqs)
	if err != nil {
		return idx, flag, err
	}
	b.freeIfCompleted(before, reqs, idx, flag)
	return idx, flag, nil
}

func (b *Backend) freeIfCompleted(before, after []uint64, idx int, flag bool) {
	if !flag || idx < 0 || idx >= len(after) {
		return
	}
	if before[idx] != nullHandle && after[idx] == nullHandle {
		b.destroy(b.reg.Request, before[idx], 1)
	}
}

// WaitSome and TestSome ignore the outcount-zero short circuit for the
// same reason TestAll ignores flag: positions can complete independent
// of the scalar summary value, per spec.md §6.

func (b *Backend) WaitSome(reqs []uint64, call func([]uint64) (int, error)) (int, error) {
	before := snapshot(reqs)
	outcount, err := call(reqs)
	if err != nil {
		return outcount, err
	}
	b.freeCompleted(before, reqs)
	return outcount, nil
}

func (b *Backend) TestSome(reqs []uint64, call func([]uint64) (int, error)) (int, error) {
	before := snapshot(reqs)
	outcount, err := call(reqs)
	if err != nil {
		return outcount, err
	}
	b.freeCompleted(before, reqs)
	return outcount, nil
}
