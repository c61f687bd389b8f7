//go:build linux

package posixaio

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Linux futex(2) operation codes. golang.org/x/sys/unix does not expose
// these as named constants, so they are defined here directly from the
// kernel ABI (linux/futex.h).
const (
	_FUTEX_WAIT = 0
	_FUTEX_WAKE = 1
)

// futexWake wakes up to n goroutines blocked in futexWaitTimeout on
// addr. It is the direct analogue of musl's internal __wake, used to
// make the running word (spec.md §3), a Cb's own err word, and the
// global wait word (spec.md §3/§9) genuine futex targets rather than a
// condition variable wrapper: a waiter blocked in futexWaitTimeout is
// woken by a single FUTEX_WAKE from the worker's cleanup step, with no
// intervening mutex acquisition on either side.
func futexWake(addr *int32, n int32) {
	unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(_FUTEX_WAKE),
		uintptr(n),
		0, 0, 0)
}

// futexWaitTimeout blocks until *addr no longer equals val or timeout
// elapses, used by WaitAny to periodically recheck a caller-supplied
// context for cancellation between wakes. Returns false on timeout, true
// once *addr has changed away from val.
func futexWaitTimeout(addr *int32, val int32, timeout unix.Timespec) bool {
	for atomic.LoadInt32(addr) == val {
		_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			uintptr(_FUTEX_WAIT),
			uintptr(val),
			uintptr(unsafe.Pointer(&timeout)),
			0, 0)
		if errno == unix.ETIMEDOUT {
			return false
		}
		if errno != 0 && errno != unix.EAGAIN && errno != unix.EINTR {
			return false
		}
	}
	return true
}
