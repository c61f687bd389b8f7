// Package posixaio is a thread-backed implementation of the POSIX
// asynchronous I/O model: Read, Write, and Fsync submit a request against
// an open file descriptor and return immediately; completion is observed
// later through Cb.Error/Cb.Return, through Cancel, or through a
// registered signal or callback notification.
//
// Every outstanding request runs on its own goroutine. A per-descriptor
// queue enforces the ordering rule that writes on an append-mode
// descriptor, and any fsync/fdatasync, wait for earlier writes on the same
// descriptor to finish; plain reads and plain non-append writes never
// wait. Descriptors are looked up in a process-wide map guarded so that
// OnClose (the integration point for a caller's own descriptor-close path)
// can always safely cancel outstanding requests without racing the map's
// own teardown of that descriptor's queue.
package posixaio
