package posixaio

import (
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSignalHandlerReceivesPayload(t *testing.T) {
	const signo = 34 // first real-time signal on Linux, unused by the runtime

	// deliverCompletion best-effort raises the OS signal too; without a
	// handler installed its default action would terminate the process,
	// same as a real aio_sigevent consumer is expected to have one.
	osCh := make(chan os.Signal, 1)
	signal.Notify(osCh, syscall.Signal(signo))
	defer signal.Stop(osCh)

	got := make(chan SignalInfo, 1)
	RegisterSignalHandler(signo, func(info SignalInfo) { got <- info })

	path := t.TempDir() + "/sig"
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	assert.NoError(t, err)
	defer f.Close()

	cb := &Cb{
		Fildes: int(f.Fd()),
		Buf:    []byte("z"),
		Event: Sigevent{
			Notify: NotifySignal,
			Signo:  signo,
			Value:  7,
		},
	}
	assert.NoError(t, Write(cb))
	waitDone(t, cb)

	select {
	case info := <-got:
		assert.Equal(t, signo, info.Signo)
		assert.Equal(t, SI_ASYNCIO, info.Code)
		assert.Equal(t, 7, info.Value)
	case <-time.After(time.Second):
		t.Fatal("signal handler never ran")
	}
}
