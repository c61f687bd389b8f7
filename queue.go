package posixaio

import (
	"sync"

	"github.com/negrel/assert"
)

// queue is the per-descriptor container of active requests described in
// spec.md §3/§4.B: reference counted, lazily populated with the
// descriptor's seekable/append properties on first worker entry, guarded
// by a single mutex that also backs the sequencing condition variable.
type queue struct {
	fd int32

	mu   sync.Mutex
	cond *sync.Cond

	seekable bool
	appendMode bool
	init     bool

	// nonBlockRefs/nonBlockOrigFlags back the reference-counted O_NONBLOCK
	// toggle in worker.go's cancellableIO: the sequencing rule never
	// serializes reads against each other or against non-append writes on
	// the same descriptor, so two concurrent workers can be polling it at
	// once. Guarded by mu so only the first concurrent poller flips the
	// flag and only the last one restores it.
	nonBlockRefs      int32
	nonBlockOrigFlags int

	ref  int32
	head *request
}

func newQueue(fd int32) *queue {
	q := &queue{fd: fd}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// insert links r at the head of q's request list. Callers must hold q.mu.
func (q *queue) insert(r *request) {
	r.prev = nil
	r.next = q.head
	if q.head != nil {
		q.head.prev = r
	}
	q.head = r
}

// remove unlinks r from q's request list. Callers must hold q.mu.
func (q *queue) remove(r *request) {
	if r.next != nil {
		r.next.prev = r.prev
	}
	if r.prev != nil {
		r.prev.next = r.next
	} else {
		q.head = r.next
	}
	r.next, r.prev = nil, nil
}

// hasEarlierWrite reports whether any request older than r (i.e. reached
// by walking r.next, per spec.md §9's insertion-order Open Question) is
// still a write in flight. Callers must hold q.mu.
func (q *queue) hasEarlierWrite(r *request) bool {
	for p := r.next; p != nil; p = p.next {
		if p.op == reqWrite {
			return true
		}
	}
	return false
}

// refUp bumps the queue's reference count. Callers must hold q.mu.
func (q *queue) refUp() {
	q.ref++
}

// unref implements the two-phase tentative-last-reference protocol of
// spec.md §4.B. Callers must hold q.mu on entry; it is released (and, if
// the queue is freed, detached from m) before unref returns.
func (q *queue) unref(m *descMap) {
	assert.Greater(q.ref, int32(0), "unref called on a queue with a non-positive refcount")
	if q.ref > 1 {
		q.ref--
		q.mu.Unlock()
		return
	}

	// Potentially the last reference. The map write lock cannot be taken
	// while holding q.mu (that would invert the map-write -> queue lock
	// order), so release q.mu, take the map write lock, and reinspect.
	q.mu.Unlock()
	m.mu.Lock()
	q.mu.Lock()
	if q.ref == 1 {
		delete(m.queues, q.fd)
		m.fdCount.Add(-1)
		m.mu.Unlock()
		q.mu.Unlock()
		return
	}
	q.ref--
	m.mu.Unlock()
	q.mu.Unlock()
}
