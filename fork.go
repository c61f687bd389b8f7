package posixaio

// ForkPrepare, ForkParent, and ForkChild bracket a caller-managed
// fork+exec per spec.md §4.G / __aio_atfork. Go programs cannot safely
// call a bare fork(2) themselves (the runtime's other goroutines/OS
// threads do not survive into the child in a usable state), so unlike
// musl's __aio_atfork these are never invoked automatically by this
// package; a caller that shells out via a raw fork syscall followed
// immediately by exec (e.g. to implement a posix_spawn-style launcher)
// must call ForkPrepare before and ForkParent/ForkChild after, on
// whichever side of the fork it ends up on.
//
// ForkPrepare takes the descriptor map's lock for reading, which blocks
// any queue from being created or destroyed until the fork completes.
// This is the same interlock __aio_atfork(-1) establishes by taking
// maplock for reading before the fork syscall.
func ForkPrepare() {
	theMap.mu.RLock()
}

// ForkParent releases the lock ForkPrepare took, resuming normal
// operation in the process that called fork.
func ForkParent() {
	theMap.mu.RUnlock()
}

// ForkChild resets the descriptor map in the post-fork child rather than
// trying to preserve it: every goroutine that owned an in-flight request
// died with the fork (the child inherits none of the parent's
// goroutines), so every queue's lock, condition variable, and worker
// bookkeeping is left in a state no thread will ever finish using.
// __aio_atfork(1) makes the identical choice: it deliberately leaks the
// old table rather than freeing it, since its lock may be held by a
// thread that no longer exists to release it. ForkChild does not even
// need to leak: there is nothing to free, only a map and counter to
// discard.
func ForkChild() {
	theMap = &descMap{queues: make(map[int32]*queue)}
}
