package posixaio

import (
	"sync/atomic"
	"syscall"
)

// Op names the operation a Cb is submitted for through Read/Write. It
// mirrors the external opcode constants of spec.md §6.
type Op int32

const (
	OpRead Op = 0
	OpWrite Op = 1
	OpNop Op = 2
)

// SyncOp selects the sync mode passed to Fsync (spec.md §6). Any other
// value is rejected with EINVAL.
type SyncOp int32

const (
	SyncFsync SyncOp = iota
	SyncFdatasync
)

// NotifyKind selects how a Cb's completion is announced.
type NotifyKind int32

const (
	NotifyNone NotifyKind = iota
	NotifySignal
	NotifyCallback
)

// WorkerAttr configures the goroutine a NotifyCallback request is
// completed on. StackSize is informational only: goroutine stacks grow
// on demand, so there is nothing to preallocate, but the field is kept so
// callers porting SIGEV_THREAD-style attributes have somewhere to put the
// value.
type WorkerAttr struct {
	StackSize uint64
}

// Sigevent describes how completion of a Cb is announced: nothing, a
// queued realtime signal with a payload value, or a user callback
// invoked with that value.
type Sigevent struct {
	Notify NotifyKind

	// Signo and Value are used when Notify == NotifySignal.
	Signo int
	Value int

	// Func and Attr are used when Notify == NotifyCallback. Func is
	// invoked with Value once the request's cancel-pending window has
	// closed (spec.md §4.D.6.f).
	Func func(value int)
	Attr *WorkerAttr
}

// CancelResult is the outcome of a Cancel call, matching spec.md §6.
type CancelResult int32

const (
	Canceled CancelResult = 0
	NotCanceled CancelResult = 1
	AllDone CancelResult = 2
)

// Cb is the caller-owned control block passed to Read, Write, and Fsync.
// The core reads Fildes, Buf, Offset, and Event; Op and Prio are not
// consulted (the operation is chosen by the entry point called). It owns the
// semantics of the unexported err/ret fields, which are published exactly
// once per request per the cleanup protocol of spec.md §4.D.6.
type Cb struct {
	Fildes int
	Op     Op
	Prio   int
	Buf    []byte
	Offset int64
	Event  Sigevent

	err int32 // atomic; EINPROGRESS while outstanding
	ret int64 // atomic; final result, valid once err != EINPROGRESS

	// reserved mirrors the unused list-linkage word of the real aiocb
	// struct this type's external layout is modeled on (spec.md §6);
	// nothing in this core reads or writes it.
	reserved uintptr
}

// Error reports the request's current status: EINPROGRESS while
// outstanding, 0 or a positive errno on completion, ECANCELED if
// cancelled before the underlying call finished.
func (cb *Cb) Error() syscall.Errno {
	return syscall.Errno(atomic.LoadInt32(&cb.err) & errMask)
}

// Return reports the request's result once Error() != EINPROGRESS; its
// value before then is unspecified.
func (cb *Cb) Return() int64 {
	return atomic.LoadInt64(&cb.ret)
}

func (cb *Cb) setInProgress() {
	atomic.StoreInt32(&cb.err, EINPROGRESS)
}

func (cb *Cb) stampFailure(ret int64, err syscall.Errno) {
	atomic.StoreInt64(&cb.ret, ret)
	atomic.StoreInt32(&cb.err, int32(err))
}
