// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
	"time"
)

// Compile-time interface check.
var _ Dialer = (*TCPDialer)(nil)

// TCPDialer connects to the tracking service over TCP. The service
// normally listens on the loopback interface ([DefaultAddress]); a
// LAN address works the same way for remote-viewing setups.
type TCPDialer struct {
	// Address is the service's host:port. Empty means DefaultAddress.
	Address string

	// Timeout bounds connection establishment. Zero means no
	// standalone timeout — only the context deadline applies.
	Timeout time.Duration
}

// Dial opens a TCP connection to the configured address.
func (d *TCPDialer) Dial(ctx context.Context) (net.Conn, error) {
	address := d.Address
	if address == "" {
		address = DefaultAddress
	}
	return (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, "tcp", address)
}
