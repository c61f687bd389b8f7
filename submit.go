package posixaio

import (
	"context"
	"log/slog"
	"sync/atomic"
	"syscall"

	"golang.org/x/sync/semaphore"
)

// Read submits an asynchronous read and returns once the request has been
// registered on its descriptor's queue (spec.md §4.E). On success cb.Error()
// reads EINPROGRESS, a worker is active and nil is returned; on failure cb
// is stamped with ret -1 and a terminal error, and that errno is returned.
func Read(cb *Cb) error {
	return submit(cb, reqRead)
}

// Write submits an asynchronous write; see Read.
func Write(cb *Cb) error {
	return submit(cb, reqWrite)
}

// Fsync submits an asynchronous fsync or fdatasync depending on mode;
// any other mode value is rejected with EINVAL without touching cb's
// queue state, matching aio_fsync.
func Fsync(cb *Cb, mode SyncOp) error {
	switch mode {
	case SyncFsync:
		return submit(cb, reqFsync)
	case SyncFdatasync:
		return submit(cb, reqFdatasync)
	default:
		return ErrUnknownOp
	}
}

func submit(cb *Cb, op reqOp) error {
	q, err := theMap.lookup(int32(cb.Fildes), true)
	if err != nil {
		errno, _ := err.(syscall.Errno)
		if errno != ErrBadFd {
			errno = ErrAgain
		}
		slog.Debug("aio submit failed to get a queue", "fd", cb.Fildes, "op", op, "error", errno)
		cb.stampFailure(-1, errno)
		return errno
	}

	q.refUp()
	q.mu.Unlock()

	if cb.Event.Notify == NotifyCallback && cb.Event.Attr == nil {
		if hint := atomic.LoadUint64(&defaultWorkerStackHint); hint != 0 {
			cb.Event.Attr = &WorkerAttr{StackSize: hint}
		}
	}

	// sem starts with its one permit available; draining it here makes
	// the second Acquire below block until runWorker's Release(1) posts
	// it, the exact sem_init(0)+sem_post+sem_wait handshake of spec.md
	// §4.E.
	sem := semaphore.NewWeighted(1)
	if err := sem.Acquire(context.Background(), 1); err != nil {
		panic(err) // unreachable: nothing else holds sem's only permit yet
	}

	cb.setInProgress()
	go runWorker(cb, op, q, sem)

	if err := sem.Acquire(context.Background(), 1); err != nil {
		panic(err) // unreachable: Acquire against a Background context never errors
	}
	return nil
}
