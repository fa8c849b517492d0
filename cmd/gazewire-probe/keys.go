// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"os"

	"golang.org/x/term"
)

// watchKeys puts stdin in raw mode and invokes quit when the user
// presses q, Esc, or ctrl-c. The returned restore function undoes the
// terminal state; it is safe to call when stdin is not a terminal, in
// which case key handling is disabled and quit fires only on EOF.
func watchKeys(quit func()) (restore func(), err error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		go func() {
			buf := make([]byte, 1)
			for {
				if _, err := os.Stdin.Read(buf); err != nil {
					quit()
					return
				}
			}
		}()
		return func() {}, nil
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, err
	}
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := os.Stdin.Read(buf)
			if err != nil {
				quit()
				return
			}
			if n == 0 {
				continue
			}
			switch buf[0] {
			case 'q', 'Q', 0x1b, 0x03: // q, Esc, ctrl-c
				quit()
				return
			}
		}
	}()
	return func() { term.Restore(fd, oldState) }, nil
}
