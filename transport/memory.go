// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"net"
	"sync"
)

// Memory is an in-process network for tests and in-process wiring. A
// client dials through [Memory.Dialer] and a service accepts the other
// end of the same pipe from [Memory.Accept], with no sockets involved.
type Memory struct {
	pending chan net.Conn

	mu     sync.Mutex
	closed chan struct{}
}

// NewMemory creates an in-process network.
func NewMemory() *Memory {
	return &Memory{
		pending: make(chan net.Conn),
		closed:  make(chan struct{}),
	}
}

// Dialer returns the client-side dialer for this network.
func (m *Memory) Dialer() Dialer {
	return memoryDialer{network: m}
}

// Accept blocks until a client dials, then returns the service side of
// the connection. Returns net.ErrClosed once the network is closed.
func (m *Memory) Accept(ctx context.Context) (net.Conn, error) {
	select {
	case conn := <-m.pending:
		return conn, nil
	case <-m.closed:
		return nil, net.ErrClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close shuts the network down: pending and future dials fail, and
// blocked Accept calls return. Established connections are unaffected.
func (m *Memory) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	select {
	case <-m.closed:
	default:
		close(m.closed)
	}
}

type memoryDialer struct {
	network *Memory
}

var _ Dialer = memoryDialer{}

// Dial creates a pipe and hands the far end to a pending Accept.
func (d memoryDialer) Dial(ctx context.Context) (net.Conn, error) {
	client, service := net.Pipe()
	select {
	case d.network.pending <- service:
		return client, nil
	case <-d.network.closed:
		client.Close()
		service.Close()
		return nil, net.ErrClosed
	case <-ctx.Done():
		client.Close()
		service.Close()
		return nil, ctx.Err()
	}
}
