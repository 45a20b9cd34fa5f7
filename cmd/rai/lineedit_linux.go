//go:build linux

package main

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// readInteractiveLine shows prompt and reads one line. On a terminal it
// switches stdin to non-canonical mode for the line editor.
func readInteractiveLine(prompt string) (string, error) {
	if !stdinIsTTY() {
		return readPipedLine(prompt)
	}

	fd := int(os.Stdin.Fd())
	oldState, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return "", err
	}
	newState := *oldState
	newState.Lflag &^= unix.ICANON | unix.ECHO
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, unix.TCSETS, &newState); err != nil {
		return "", err
	}
	defer func() {
		_ = unix.IoctlSetTermios(fd, unix.TCSETS, oldState)
	}()

	fmt.Print(prompt)
	ed := newLineEditor(os.Stdout, prompt, &interactiveHistory)
	var buf [16]byte
	for {
		n, err := os.Stdin.Read(buf[:])
		if err != nil {
			return "", err
		}
		for _, b := range buf[:n] {
			done, err := ed.feed(b)
			if err != nil {
				return "", err
			}
			if done {
				return ed.text(), nil
			}
		}
	}
}
