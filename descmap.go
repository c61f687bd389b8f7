package posixaio

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// descMap is the sparse descriptor->queue lookup structure of spec.md
// §3/§4.A. A Go map guarded by a RWMutex is used in place of the
// original's four-level trie; see DESIGN.md Open Question 1 for why that
// substitution preserves the destruction interlock spec.md §9 requires.
type descMap struct {
	mu      sync.RWMutex
	queues  map[int32]*queue
	fdCount atomic.Int32
}

// waitFut is the "global wait word" of spec.md §3: any completion swaps
// it to 0 and wakes waiters, giving a single futex target an external
// aio_suspend-style primitive could block on across every descriptor.
var waitFut int32

var theMap = &descMap{queues: make(map[int32]*queue)}

// lookup returns the queue for fd with its mutex held, creating it (and
// the map entry) if create is true and none exists. It fails with EBADF
// if fd is negative or, when create is requested, not an open descriptor.
func (m *descMap) lookup(fd int32, create bool) (*queue, error) {
	if fd < 0 {
		return nil, ErrBadFd
	}

	m.mu.RLock()
	if q, ok := m.queues[fd]; ok {
		q.mu.Lock()
		m.mu.RUnlock()
		return q, nil
	}
	m.mu.RUnlock()

	if !create {
		return nil, nil
	}

	if _, _, errno := unix.Syscall(unix.SYS_FCNTL, uintptr(fd), unix.F_GETFD, 0); errno != 0 {
		return nil, ErrBadFd
	}

	m.mu.Lock()
	q, ok := m.queues[fd]
	if !ok {
		q = newQueue(fd)
		m.queues[fd] = q
		m.fdCount.Add(1)
	}
	q.mu.Lock()
	m.mu.Unlock()
	return q, nil
}
