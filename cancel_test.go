package posixaio

import (
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

func TestCancelPendingReadOnEmptyPipe(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	assert.NoError(t, err)
	r, w := fds[0], fds[1]
	defer unix.Close(w)
	defer unix.Close(r)

	cb := &Cb{Fildes: r, Buf: make([]byte, 16)}
	assert.NoError(t, Read(cb))

	// Give the worker a chance to register and block in the poll loop
	// before cancelling it.
	time.Sleep(20 * time.Millisecond)

	res, err := Cancel(r, cb)
	assert.NoError(t, err)
	assert.Equal(t, Canceled, res)
	assert.Equal(t, syscall.ECANCELED, cb.Error())
}

func TestCancelOnClosedFdIsAllDone(t *testing.T) {
	res, err := Cancel(1<<20, nil)
	assert.NoError(t, err)
	assert.Equal(t, AllDone, res)
}

func TestCancelWrongFdRejected(t *testing.T) {
	cb := &Cb{Fildes: 5}
	res, err := Cancel(6, cb)
	assert.Equal(t, ErrCanceledTarget, err)
	assert.Equal(t, CancelResult(0), res)
}

func TestOnCloseCancelsOutstanding(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	assert.NoError(t, err)
	r, w := fds[0], fds[1]
	defer unix.Close(w)

	cb := &Cb{Fildes: r, Buf: make([]byte, 16)}
	assert.NoError(t, Read(cb))
	time.Sleep(20 * time.Millisecond)

	res, err := OnClose(r)
	assert.NoError(t, err)
	assert.Equal(t, Canceled, res)
	unix.Close(r)
}

// TestCancelSequencedWriteQueuedBehindRunningWrite exercises the
// needsSequencing path: a second write on a non-seekable descriptor waits
// in the queue's cond.Wait() behind a still-running earlier write. Cancel
// must be able to reach and unblock that waiter without ever holding q.mu
// across the wait for its own completion, since cond.Wait() can only
// return by reacquiring q.mu itself.
func TestCancelSequencedWriteQueuedBehindRunningWrite(t *testing.T) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	assert.NoError(t, err)
	r, w := fds[0], fds[1]
	defer func() { Cancel(w, nil) }()
	defer unix.Close(r)
	defer unix.Close(w)

	flags, err := unix.FcntlInt(uintptr(w), unix.F_GETFL, 0)
	assert.NoError(t, err)
	_, err = unix.FcntlInt(uintptr(w), unix.F_SETFL, flags|unix.O_NONBLOCK)
	assert.NoError(t, err)

	filler := make([]byte, 1<<16)
	for {
		_, err := unix.Write(w, filler)
		if err == unix.EAGAIN {
			break
		}
		assert.NoError(t, err)
	}

	cb1 := &Cb{Fildes: w, Buf: filler}
	assert.NoError(t, Write(cb1))

	cb2 := &Cb{Fildes: w, Buf: []byte("x")}
	assert.NoError(t, Write(cb2))
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	var res CancelResult
	go func() {
		res, err = Cancel(w, cb2)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Cancel deadlocked against a worker parked in the sequencing wait")
	}
	assert.NoError(t, err)
	assert.Equal(t, Canceled, res)
	assert.Equal(t, syscall.ECANCELED, cb2.Error())
}
