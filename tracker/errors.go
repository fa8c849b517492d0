// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import "errors"

var (
	// ErrInvalidClientName is returned by [New] when the client name
	// is empty, not valid UTF-8, or longer than the wire limit.
	ErrInvalidClientName = errors.New("invalid client name")

	// ErrNilDialer is returned by [New] when WithDialer was given a
	// nil dialer.
	ErrNilDialer = errors.New("nil dialer")

	// ErrClosed is returned by operations on a tracker after Close.
	ErrClosed = errors.New("tracker closed")

	// ErrNilListener is returned by RegisterListener for a nil
	// listener.
	ErrNilListener = errors.New("nil listener")
)
