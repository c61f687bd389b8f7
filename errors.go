package posixaio

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// EINPROGRESS is the value Cb.err holds for the full lifetime of an
// outstanding request (spec.md §3's "while a request is outstanding,
// err == EINPROGRESS" invariant).
const EINPROGRESS = int32(unix.EINPROGRESS)

// errMask drops the top bit of err on read, per the external interface
// (spec.md §6: "Error query returns the low-31 bits of __err").
const errMask = int32(0x7fffffff)

var (
	// ErrUnknownOp is returned by Fsync when passed anything other than
	// SyncFsync or SyncFdatasync.
	ErrUnknownOp = syscall.Errno(unix.EINVAL)
	// ErrBadFd is returned when a submission targets a negative or closed
	// descriptor.
	ErrBadFd = syscall.Errno(unix.EBADF)
	// ErrAgain is returned when the descriptor-map lookup fails for a
	// reason other than EBADF; starting a worker goroutine has no failure
	// path of its own.
	ErrAgain = syscall.Errno(unix.EAGAIN)
	// ErrCanceledTarget is returned by Cancel when cb names a descriptor
	// other than fd.
	ErrCanceledTarget = syscall.Errno(unix.EINVAL)
	// ErrCanceled is the terminal Cb.Error() value a request is stamped
	// with when Cancel wins the race and aborts it before completion.
	ErrCanceled = syscall.Errno(unix.ECANCELED)
)
