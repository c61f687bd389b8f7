package posixaio

import (
	"log/slog"
	"math"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/negrel/assert"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sys/unix"
)

// checkInvariant is assert.Assert with an optional slog.Error recorded
// first when Config.AssertLogsErrors was set via Init: a production
// build that has compiled invariant checks out entirely (see DESIGN.md)
// still gets a diagnostic trail for the condition that would have
// tripped one.
func checkInvariant(cond bool, msg string, args ...any) {
	if !cond && logAssertFailures.Load() {
		slog.Error(msg, args...)
	}
	assert.True(cond, msg)
}

// pollInterval bounds how quickly a cancel on a pollable descriptor
// (spec.md §9's self-pipe/non-blocking-I/O fallback, realized here as a
// non-blocking retry loop) is observed; cancellation is best-effort, so
// this is a latency bound, not a correctness requirement.
const pollInterval = 10 * time.Millisecond

// runWorker is the worker body of spec.md §4.D. q is passed already
// ref-bumped by the submitter; sem is released while this goroutine holds
// q.mu, in the same critical section that links its request into q, which
// is the registration handshake the submitter blocks on.
func runWorker(cb *Cb, op reqOp, q *queue, sem *semaphore.Weighted) {
	r := newRequest(op, cb, q)

	q.mu.Lock()
	sem.Release(1)
	q.insert(r)
	if !q.init {
		probeDescriptorProperties(q, cb.Fildes)
		q.init = true
	}

	defer cleanup(r)

	if needsSequencing(op, q.appendMode) {
		for atomic.LoadInt32(&r.running) == runActive && q.hasEarlierWrite(r) {
			q.cond.Wait()
		}
	}
	seekable, appendMode := q.seekable, q.appendMode
	q.mu.Unlock()

	if atomic.LoadInt32(&r.running) != runActive {
		// Cancelled while parked on the sequencing wait; no I/O was ever
		// started, so the defaults request.newRequest set (ret=-1,
		// err=ECANCELED) stand.
		return
	}

	ret, errno := performIO(r, seekable, appendMode)
	r.ret = ret
	r.err = int32(errno)
}

// needsSequencing implements spec.md §4.D.3: reads and plain non-append
// writes never wait; append writes and both sync ops wait for every
// write already on the queue at insertion time to exit first.
func needsSequencing(op reqOp, appendMode bool) bool {
	switch op {
	case reqRead:
		return false
	case reqWrite:
		return appendMode
	default: // reqFsync, reqFdatasync
		return true
	}
}

// probeDescriptorProperties populates q.seekable/q.appendMode on first
// use, per spec.md §4.D.1. Callers must hold q.mu.
func probeDescriptorProperties(q *queue, fd int) {
	_, err := unix.Seek(fd, 0, unix.SEEK_CUR)
	seekable := err == nil

	flags, ferr := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	appendFlag := ferr == nil && flags&unix.O_APPEND != 0

	q.seekable = seekable
	q.appendMode = !seekable || appendFlag
}

// performIO is spec.md §4.D.5's opcode dispatch.
func performIO(r *request, seekable, appendMode bool) (int64, syscall.Errno) {
	cb := r.cb
	fd := cb.Fildes

	switch r.op {
	case reqWrite:
		switch {
		case !seekable:
			n, err := cancellableWrite(r.q, fd, cb.Buf, r.cancel)
			return ioResult(n, err)
		case appendMode:
			n, err := unix.Write(fd, cb.Buf)
			return ioResult(n, err)
		default:
			n, err := unix.Pwrite(fd, cb.Buf, cb.Offset)
			return ioResult(n, err)
		}
	case reqRead:
		if !seekable {
			n, err := cancellableRead(r.q, fd, cb.Buf, r.cancel)
			return ioResult(n, err)
		}
		n, err := unix.Pread(fd, cb.Buf, cb.Offset)
		return ioResult(n, err)
	case reqFsync:
		return ioResult(0, unix.Fsync(fd))
	case reqFdatasync:
		return ioResult(0, unix.Fdatasync(fd))
	default:
		return -1, syscall.EINVAL
	}
}

func ioResult(n int, err error) (int64, syscall.Errno) {
	if err != nil {
		if errno, ok := err.(unix.Errno); ok {
			return -1, syscall.Errno(errno)
		}
		return -1, syscall.EIO
	}
	return int64(n), 0
}

// cancellableRead and cancellableWrite realize the design note in
// spec.md §9 for runtimes without a cancellable blocking read/write: the
// descriptor is put in non-blocking mode for the duration of the call and
// retried until data is available or cancel fires, rather than blocking
// indefinitely inside a syscall this goroutine cannot be forced out of.
func cancellableRead(q *queue, fd int, buf []byte, cancel <-chan struct{}) (int, error) {
	return cancellableIO(q, fd, cancel, func() (int, error) { return unix.Read(fd, buf) })
}

func cancellableWrite(q *queue, fd int, buf []byte, cancel <-chan struct{}) (int, error) {
	return cancellableIO(q, fd, cancel, func() (int, error) { return unix.Write(fd, buf) })
}

func cancellableIO(q *queue, fd int, cancel <-chan struct{}, try func() (int, error)) (int, error) {
	if err := acquireNonBlocking(q, fd); err != nil {
		slog.Debug("aio could not switch descriptor to non-blocking; cancel will not be observed until the call returns", "fd", fd, "error", err)
		return try()
	}
	defer releaseNonBlocking(q, fd)

	for {
		n, err := try()
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			return n, err
		}
		select {
		case <-cancel:
			return 0, unix.ECANCELED
		case <-time.After(pollInterval):
		}
	}
}

// acquireNonBlocking switches fd into non-blocking mode for a poll-loop
// retry, reference counted on q rather than toggled unconditionally: the
// sequencing rule never serializes reads against each other or against
// non-append writes on the same descriptor, so two concurrent pollers on
// fd are possible, and an unconditional defer-restore would let one
// goroutine clear O_NONBLOCK out from under another still mid-loop. Only
// the first concurrent caller flips the flag; unreferenced descriptors
// leave it alone.
func acquireNonBlocking(q *queue, fd int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.nonBlockRefs > 0 {
		q.nonBlockRefs++
		return nil
	}
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return err
	}
	if flags&unix.O_NONBLOCK == 0 {
		if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK); err != nil {
			return err
		}
	}
	q.nonBlockOrigFlags = flags
	q.nonBlockRefs = 1
	return nil
}

// releaseNonBlocking is acquireNonBlocking's matching release: flags are
// only restored when the last concurrent poller drops off.
func releaseNonBlocking(q *queue, fd int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nonBlockRefs--
	if q.nonBlockRefs == 0 && q.nonBlockOrigFlags&unix.O_NONBLOCK == 0 {
		unix.FcntlInt(uintptr(fd), unix.F_SETFL, q.nonBlockOrigFlags)
	}
}

// cleanup is the six-step completion protocol of spec.md §4.D.6, armed
// as a defer from the moment the request is registered so it runs on
// every exit path: normal return, the early return above for a
// cancelled sequencing wait, or a panic unwind.
func cleanup(r *request) {
	cb := r.cb

	atomic.StoreInt64(&cb.ret, r.ret)

	prevRunning := atomic.SwapInt32(&r.running, runExited)
	checkInvariant(prevRunning == runActive || prevRunning == runCancelPending,
		"cleanup observed an unexpected running state", "running", prevRunning)
	if prevRunning < 0 {
		futexWake(&r.running, 1)
	}

	prevErr := atomic.SwapInt32(&cb.err, r.err)
	if prevErr != EINPROGRESS {
		futexWake(&cb.err, math.MaxInt32)
	}

	if atomic.SwapInt32(&waitFut, 0) != 0 {
		futexWake(&waitFut, math.MaxInt32)
	}

	q := r.q
	q.mu.Lock()
	q.remove(r)
	q.cond.Broadcast()
	q.unref(theMap) // releases q.mu

	deliverCompletion(cb, r)
}
