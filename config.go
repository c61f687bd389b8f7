package posixaio

import "sync/atomic"

// Config holds the handful of process-wide knobs this package exposes,
// passed to Init once at startup. A caller that never calls Init gets
// the same defaults the package would use anyway (an empty map, no
// stack-size hint, assertion failures not additionally logged). Init
// exists to let a caller size the map ahead of known fd pressure and opt
// into the extra diagnostics, not to make the package otherwise
// unusable without it.
type Config struct {
	// QueueTableSizeHint presizes the descriptor map's backing storage
	// for a caller that already knows roughly how many concurrent fds
	// will have outstanding requests. Zero leaves the map's default
	// sizing alone.
	QueueTableSizeHint int

	// WorkerStackHint is the informational analogue of musl's
	// io_thread_stack_size discovery (original_source/src/aio/aio.c's
	// MAX(MINSIGSTKSZ+2048, auxv_val+512) computation): goroutine stacks
	// grow on demand, so nothing here actually preallocates a stack, but
	// a NotifyCallback submission whose Sigevent.Attr is nil has this value threaded
	// into a synthesized WorkerAttr for API parity with a caller porting
	// SIGEV_THREAD code that expects pthread_attr_setstacksize to have
	// run. Zero leaves Sigevent.Attr untouched.
	WorkerStackHint uint64

	// AssertLogsErrors makes a failing invariant check also emit a
	// slog.Error before it panics, so a production build that has
	// disabled the assert build tag still gets a diagnostic trail for
	// the condition that would otherwise have tripped it.
	AssertLogsErrors bool
}

var logAssertFailures atomic.Bool

// Init applies cfg. It is safe to call at most once, before any Read,
// Write, Fsync, or Cancel call; calling it again after requests are
// outstanding races the map resize against concurrent lookups.
func Init(cfg Config) {
	if cfg.QueueTableSizeHint > 0 {
		theMap.mu.Lock()
		theMap.queues = make(map[int32]*queue, cfg.QueueTableSizeHint)
		theMap.mu.Unlock()
	}
	atomic.StoreUint64(&defaultWorkerStackHint, cfg.WorkerStackHint)
	logAssertFailures.Store(cfg.AssertLogsErrors)
}

var defaultWorkerStackHint uint64
