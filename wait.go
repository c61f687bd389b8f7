package posixaio

import (
	"context"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// waitPoll bounds how long a single futexWaitTimeout call blocks before
// WaitAny rechecks ctx, since neither futex wait this function uses can
// be interrupted by a Go context directly.
const waitPoll = 50 * time.Millisecond

// einprogressWaited is EINPROGRESS with the top bit set: a single-target
// waiter stores it in cb.err so that cleanup's swap sees a value other
// than EINPROGRESS and wakes it. Cb.Error masks the bit off.
const einprogressWaited = EINPROGRESS | ^errMask

// WaitAny blocks until at least one Cb in cbs has left EINPROGRESS, or
// ctx is done, and returns the index of a ready one (or -1 if ctx ended
// first). It is the low-level waiter original_source/src/aio/aio.c
// builds aio_suspend and aio_cancel's completion wait from: a single
// target waits on that Cb's own err word exactly as cleanup's
// cb->__err-equivalent wake expects (musl's "aio_suspend with a single
// aiocb" case), while more than one target falls back to the shared
// __aio_fut word every cleanup also swaps and wakes (musl's
// "aio_suspend with a list" case). Cancel uses the single-target path
// internally to wait for its target's completion; a caller wanting an
// aio_suspend-style primitive over several Cbs can build one on the
// list path, even though lio_listio/aio_suspend themselves stay out of
// scope.
func WaitAny(ctx context.Context, cbs []*Cb) int {
	if len(cbs) == 1 {
		if waitOne(ctx, cbs[0]) {
			return 0
		}
		return -1
	}
	return waitList(ctx, cbs)
}

func waitOne(ctx context.Context, cb *Cb) bool {
	for {
		if cb.Error() != syscall.Errno(EINPROGRESS) {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		default:
		}
		atomic.CompareAndSwapInt32(&cb.err, EINPROGRESS, einprogressWaited)
		futexWaitTimeout(&cb.err, einprogressWaited, unix.NsecToTimespec(waitPoll.Nanoseconds()))
	}
}

func waitList(ctx context.Context, cbs []*Cb) int {
	for {
		for i, cb := range cbs {
			if cb.Error() != syscall.Errno(EINPROGRESS) {
				return i
			}
		}
		select {
		case <-ctx.Done():
			return -1
		default:
		}

		atomic.StoreInt32(&waitFut, 1)
		// Re-scan after arming: a completion between the loop above and
		// this store would otherwise be missed, since cleanup only wakes
		// waiters that were already armed when it swapped waitFut to 0.
		for i, cb := range cbs {
			if cb.Error() != syscall.Errno(EINPROGRESS) {
				return i
			}
		}
		futexWaitTimeout(&waitFut, 1, unix.NsecToTimespec(waitPoll.Nanoseconds()))
	}
}
