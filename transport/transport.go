// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package transport abstracts how a GazeWire client reaches the
// tracking service. The session layer depends only on [Dialer];
// production code uses [TCPDialer] against the service's localhost
// rendezvous, tests and in-process wiring use [Memory].
package transport

import (
	"context"
	"net"
)

// DefaultAddress is the tracking service's default localhost
// rendezvous. Every consumer of the address accepts an override.
const DefaultAddress = "127.0.0.1:9271"

// Dialer opens a stream connection to the tracking service. The
// session layer redials through the same Dialer after every
// disconnect, so implementations must be safe for repeated use.
type Dialer interface {
	// Dial opens a connection. Cancelling ctx aborts an in-progress
	// dial; it does not affect the returned connection.
	Dial(ctx context.Context) (net.Conn, error)
}
