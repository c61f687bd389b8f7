package main

import (
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/ojaai/posixaio"
)

func main() {
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.TimeOnly,
	})))

	if len(os.Args) < 2 {
		slog.Error("usage: aiodemo <path>")
		os.Exit(1)
	}
	path := os.Args[1]

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		slog.Error("open failed", "path", path, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	buf := []byte("posixaio demo write\n")
	cb := &posixaio.Cb{
		Fildes: int(f.Fd()),
		Buf:    buf,
		Offset: 0,
		Event: posixaio.Sigevent{
			Notify: posixaio.NotifyCallback,
			Func: func(value int) {
				slog.Info("write completed", "value", value)
			},
		},
	}

	if err := posixaio.Write(cb); err != nil {
		slog.Error("submit failed", "error", err)
		os.Exit(1)
	}
	slog.Info("write submitted", "fd", cb.Fildes)

	for cb.Error() == syscall.Errno(posixaio.EINPROGRESS) {
		time.Sleep(time.Millisecond)
	}
	fmt.Printf("ret=%d err=%v\n", cb.Return(), cb.Error())
}
