//go:build darwin

package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// rawMode puts the terminal on fd into unbuffered, no-echo input and returns
// a function restoring the previous state. Signals stay enabled so ctrl+c
// still cancels.
func rawMode(fd int) (func(), error) {
	old, err := unix.IoctlGetTermios(fd, unix.TIOCGETA)
	if err != nil {
		return nil, fmt.Errorf("reading terminal state: %w", err)
	}
	t := *old
	t.Lflag &^= unix.ICANON | unix.ECHO
	t.Cc[unix.VMIN] = 1
	t.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TIOCSETA, &t); err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	return func() { _ = unix.IoctlSetTermios(fd, unix.TIOCSETA, old) }, nil
}

// readKeys sends each byte typed on stdin to the returned channel until ctx
// is done or stdin closes.
func readKeys(ctx context.Context) <-chan byte {
	keys := make(chan byte, 8)
	go func() {
		defer close(keys)
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				return
			}
			if n == 0 {
				continue
			}
			select {
			case keys <- buf[0]:
			case <-ctx.Done():
				return
			}
		}
	}()
	return keys
}
