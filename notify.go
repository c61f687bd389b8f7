package posixaio

import (
	"sync"

	"golang.org/x/sys/unix"
)

// SI_ASYNCIO mirrors the si_code a real kernel stamps on the siginfo_t of
// an AIO completion signal (spec.md §4.D.6.f / §6).
const SI_ASYNCIO = -4

// SignalInfo is the payload delivered to a handler registered with
// RegisterSignalHandler. It carries what a real rt_sigqueueinfo(2) would
// have placed in siginfo_t, which os/signal does not expose to Go
// programs; see DESIGN.md Open Question 4 for why this in-process
// delivery stands in for the kernel's queued-signal mechanism.
type SignalInfo struct {
	Signo int
	Code  int
	Pid   int
	Uid   int
	Value int
}

var (
	handlersMu sync.RWMutex
	handlers   = map[int][]func(SignalInfo){}
)

// RegisterSignalHandler arms fn to run whenever a request completes with
// Event.Notify == NotifySignal and Event.Signo == signo. Handlers run on
// the worker goroutine that completed the request, synchronously, before
// that goroutine exits (spec.md §4.D.6.f).
func RegisterSignalHandler(signo int, fn func(SignalInfo)) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlers[signo] = append(handlers[signo], fn)
}

// deliverCompletion is the sigev_notify dispatch of spec.md §4.D.6.f,
// called by cleanup once cb.err/cb.ret have been published and the
// request has been unlinked from its queue. r.running has already been
// swapped to runExited by the time this runs, so a concurrent Cancel
// racing against delivery always observes a finished request rather than
// a cancel-pending one. It never observes cancel-pending itself: the
// handler must only fire once cleanup's monotonic running transition has
// settled.
func deliverCompletion(cb *Cb, r *request) {
	switch cb.Event.Notify {
	case NotifyNone:
		return
	case NotifySignal:
		info := SignalInfo{
			Signo: cb.Event.Signo,
			Code:  SI_ASYNCIO,
			Pid:   unix.Getpid(),
			Uid:   unix.Getuid(),
			Value: cb.Event.Value,
		}
		handlersMu.RLock()
		fns := handlers[cb.Event.Signo]
		handlersMu.RUnlock()
		for _, fn := range fns {
			fn(info)
		}
		// Best-effort OS-level liveness notice for a process that only
		// wants to be woken, not read the payload; a real sigqueue(2)
		// payload cannot be reproduced without exposing siginfo_t, which
		// os/signal does not do.
		_ = unix.Kill(unix.Getpid(), unix.Signal(cb.Event.Signo))
	case NotifyCallback:
		if cb.Event.Func != nil {
			cb.Event.Func(cb.Event.Value)
		}
	}
}
