package posixaio

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func waitDone(t *testing.T, cb *Cb) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for cb.Error() == syscall.Errno(EINPROGRESS) {
		if time.Now().After(deadline) {
			t.Fatal("request never completed")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWriteThenReadBack(t *testing.T) {
	path := t.TempDir() + "/rw"
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	assert.NoError(t, err)
	defer f.Close()

	wbuf := []byte("hello posixaio")
	wcb := &Cb{Fildes: int(f.Fd()), Buf: wbuf, Offset: 0}
	assert.NoError(t, Write(wcb))
	waitDone(t, wcb)
	assert.Equal(t, syscall.Errno(0), wcb.Error())
	assert.Equal(t, int64(len(wbuf)), wcb.Return())

	rbuf := make([]byte, len(wbuf))
	rcb := &Cb{Fildes: int(f.Fd()), Buf: rbuf, Offset: 0}
	assert.NoError(t, Read(rcb))
	waitDone(t, rcb)
	assert.Equal(t, syscall.Errno(0), rcb.Error())
	assert.Equal(t, wbuf, rbuf)
}

func TestSubmitBadFd(t *testing.T) {
	cb := &Cb{Fildes: -1, Buf: make([]byte, 1)}
	err := Read(cb)
	assert.Equal(t, ErrBadFd, err)
	assert.Equal(t, syscall.Errno(ErrBadFd), cb.Error())
	assert.Equal(t, int64(-1), cb.Return())
}

func TestFsyncUnknownModeRejected(t *testing.T) {
	cb := &Cb{Fildes: 0}
	err := Fsync(cb, SyncOp(99))
	assert.Equal(t, ErrUnknownOp, err)
}

func TestAppendOrdersWrites(t *testing.T) {
	path := t.TempDir() + "/append"
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	assert.NoError(t, err)
	defer f.Close()

	var cbs []*Cb
	for i := 0; i < 8; i++ {
		cb := &Cb{Fildes: int(f.Fd()), Buf: []byte{byte('a' + i)}}
		cbs = append(cbs, cb)
		assert.NoError(t, Write(cb))
	}
	for _, cb := range cbs {
		waitDone(t, cb)
		assert.Equal(t, syscall.Errno(0), cb.Error())
	}

	got, err := os.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, "abcdefgh", string(got))
}

func TestCallbackNotification(t *testing.T) {
	path := t.TempDir() + "/cb"
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	assert.NoError(t, err)
	defer f.Close()

	done := make(chan int, 1)
	cb := &Cb{
		Fildes: int(f.Fd()),
		Buf:    []byte("x"),
		Event: Sigevent{
			Notify: NotifyCallback,
			Value:  42,
			Func:   func(value int) { done <- value },
		},
	}
	assert.NoError(t, Write(cb))
	waitDone(t, cb)

	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("callback never fired")
	}
}
