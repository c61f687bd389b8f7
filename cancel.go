package posixaio

import (
	"context"
	"log/slog"
)

// Cancel implements spec.md §4.F / aio_cancel: if cb is non-nil it must
// name fd (EINVAL otherwise), and only the matching request is targeted;
// if cb is nil every request queued against fd is targeted. Each target
// still running is moved into the cancel-pending state and the caller
// waits for its worker to reach cleanup before inspecting cb.Error().
//
// The matching requests are snapshotted under q.mu (mirroring aio_cancel's
// list walk under q->lock), but q.mu is released before any wait: a target
// currently parked in the sequencing wait (worker.go's q.cond.Wait()) can
// only leave that wait by reacquiring q.mu itself, which is sync.Cond's
// documented contract regardless of running's value. Holding q.mu across
// WaitAny would deadlock that worker against this call, since the worker
// can never get back to its running re-check while stuck relocking q.mu
// inside Wait(). Snapshotting first means nothing here needs to chase
// r.next after unlocking.
func Cancel(fd int, cb *Cb) (CancelResult, error) {
	if cb != nil && fd != cb.Fildes {
		return 0, ErrCanceledTarget
	}

	q, err := theMap.lookup(int32(fd), false)
	if err != nil {
		return 0, err
	}
	if q == nil {
		// No queue for fd: either nothing was ever submitted, or every
		// prior request already drained. Either way there is nothing to
		// cancel.
		return AllDone, nil
	}

	var targets []*request
	for r := q.head; r != nil; r = r.next {
		if cb == nil || r.cb == cb {
			targets = append(targets, r)
		}
	}
	q.mu.Unlock()

	ret := AllDone
	for _, r := range targets {
		if r.markCancelPending() {
			q.cond.Broadcast()
			WaitAny(context.Background(), []*Cb{r.cb})
			if r.cb.Error() == ErrCanceled {
				ret = Canceled
			}
		} else if ret == AllDone {
			// Lost the CAS race: the request finished (or another
			// canceller beat us to it) between the list walk and here.
			// Survivors like this are exactly what NotCanceled reports.
			slog.Debug("aio cancel target had already left the running state", "fd", fd)
			ret = NotCanceled
		}
	}
	return ret, nil
}

// OnClose implements spec.md §4.F's close hook: cancel every outstanding
// request against fd before the caller actually closes it, mirroring
// __aio_close's "cancel everything still queued on this descriptor"
// contract. Callers are expected to invoke this immediately before their
// own close(fd) call.
func OnClose(fd int) (CancelResult, error) {
	return Cancel(fd, nil)
}
