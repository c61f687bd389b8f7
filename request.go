package posixaio

import (
	"sync/atomic"
)

// reqOp is the internal operation kind a request was created for,
// distinct from the public Op/SyncOp the caller passed in (spec.md §3).
type reqOp int32

const (
	reqRead reqOp = iota
	reqWrite
	reqFsync
	reqFdatasync
)

const (
	runActive        int32 = 1
	runExited        int32 = 0
	runCancelPending int32 = -1
)

// request is the per-operation record described in spec.md §3/§4.C. It
// is owned by the worker goroutine that creates it and lives for exactly
// one submission; only running (atomic) and the list pointers (under
// q.mu) may be touched by any other goroutine before the running->0
// publication.
type request struct {
	op  reqOp
	cb  *Cb
	q   *queue
	err int32
	ret int64

	// running is a futex target: 1 while active, 0 once the cleanup
	// protocol has published completion, -1 while a cancel is pending.
	running int32

	// cancel is closed by Cancel to signal the owning worker that it
	// should abort blocking I/O at the next opportunity (spec.md §4.D's
	// "forced unwind"; see DESIGN.md Open Question 3 for how that unwind
	// is realized without pthread_cancel).
	cancel chan struct{}

	// next/prev form the intrusive doubly-linked list described in
	// spec.md §3; mutated only under q.mu. Insertion is always at the
	// head, and the sequencing wait walks forward from next (spec.md
	// §9's Open Question about insertion order).
	next, prev *request
}

func newRequest(op reqOp, cb *Cb, q *queue) *request {
	return &request{
		op:      op,
		cb:      cb,
		q:       q,
		running: runActive,
		ret:     -1,
		err:     int32(ErrCanceled),
		cancel:  make(chan struct{}),
	}
}

// markCancelPending attempts the monotonic 1->-1 transition spec.md §8
// requires: once running leaves 1 for -1, no other transition happens
// until the cleanup protocol sets it to 0. Returns whether this caller
// won the race.
func (r *request) markCancelPending() bool {
	if atomic.CompareAndSwapInt32(&r.running, runActive, runCancelPending) {
		close(r.cancel)
		return true
	}
	return false
}
