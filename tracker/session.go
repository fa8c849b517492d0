// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/lib/clock"
	"github.com/gazewire/gazewire/transport"
	"github.com/gazewire/gazewire/wire"
)

const (
	// initialBackoff and maxBackoff bound the reconnect schedule:
	// jitterless doubling from 250ms to a 4s cap, reset on any
	// successful handshake.
	initialBackoff = 250 * time.Millisecond
	maxBackoff     = 4 * time.Second

	// pingInterval is how long the connection may sit idle before the
	// client sends a ping.
	pingInterval = 5 * time.Second

	// silenceTimeout tears down a connection that produced no frames
	// at all, not even pongs.
	silenceTimeout = 15 * time.Second
)

// session owns the connection to the tracking service: one goroutine
// that dials, handshakes, and reads frames until the connection dies,
// then backs off and repeats. It reports what it sees through the
// callback fields and never touches tracker state directly.
type session struct {
	dialer      transport.Dialer
	clk         clock.Clock
	log         *slog.Logger
	dialTimeout time.Duration

	clientName string
	viewport   func() gaze.ViewportGeometry

	onState        func(gaze.StateSet)
	onStatus       func(gaze.ReceptionStatus)
	onConnected    func(wire.WelcomePayload)
	onDisconnected func()

	// kick short-circuits the current backoff pause for an immediate
	// dial attempt.
	kick chan struct{}

	// activityNanos is the clock time of the last frame in either
	// direction, for idle-ping decisions.
	activityNanos atomic.Int64

	mu   sync.Mutex
	conn net.Conn // nil when no live session

	cancel context.CancelFunc
	done   chan struct{}
}

func (s *session) start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx)
}

// stop cancels the loop, closes any live connection, and joins the
// goroutine.
func (s *session) stop() {
	s.cancel()
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
}

// wake requests an immediate dial attempt if the loop is between
// connections.
func (s *session) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *session) run(ctx context.Context) {
	defer close(s.done)

	backoff := initialBackoff
	for ctx.Err() == nil {
		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Debug("dial failed", "error", err, "retry_in", backoff)
			if !s.pause(ctx, backoff) {
				return
			}
			backoff = min(2*backoff, maxBackoff)
			continue
		}

		backoff = initialBackoff
		if err := s.serve(ctx, conn); err != nil && ctx.Err() == nil {
			s.log.Warn("session ended", "error", err)
		}
		if ctx.Err() != nil {
			return
		}
		if !s.pause(ctx, backoff) {
			return
		}
		backoff = min(2*backoff, maxBackoff)
	}
}

func (s *session) dial(ctx context.Context) (net.Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, s.dialTimeout)
	defer cancel()
	return s.dialer.Dial(dialCtx)
}

// pause waits out a backoff interval. A wake or an expired timer
// returns true; cancellation returns false.
func (s *session) pause(ctx context.Context, d time.Duration) bool {
	timer := s.clk.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	case <-s.kick:
		return true
	}
}

// serve runs one connection from handshake to read error.
func (s *session) serve(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	welcome, err := s.handshake(conn)
	if err != nil {
		return err
	}
	compressed := welcome.Compression == wire.CompressionLZ4

	s.touch()
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		s.onDisconnected()
	}()

	s.log.Info("connected",
		"service_version", welcome.ServiceVersion.String(),
		"session_id", welcome.SessionID,
		"compression", welcome.Compression)
	s.onConnected(welcome)

	// Tear the connection down if the service goes completely silent;
	// the blocked read below unblocks with an error.
	watchdog := s.clk.AfterFunc(silenceTimeout, func() { conn.Close() })
	defer watchdog.Stop()

	stopPing := make(chan struct{})
	defer close(stopPing)
	go s.pingLoop(stopPing)

	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.touch()
		watchdog.Reset(silenceTimeout)

		if frame.Flags&wire.FlagCompressed != 0 && !compressed {
			return &wire.ProtocolError{Op: "read", Detail: "compressed frame without negotiation"}
		}

		switch frame.Type {
		case wire.FrameStateUpdate:
			state, err := wire.ParseStateUpdatePayload(frame)
			if err != nil {
				return err
			}
			s.onState(state)
		case wire.FrameStatus:
			payload, err := wire.ParseStatusPayload(frame)
			if err != nil {
				return err
			}
			s.onStatus(payload.Status)
		case wire.FrameCommandAck:
			ack, err := wire.ParseCommandAckPayload(frame)
			if err != nil {
				return err
			}
			if ack.OK {
				s.log.Debug("command acknowledged", "op", ack.Op)
			} else {
				s.log.Warn("command refused", "op", ack.Op, "detail", ack.Detail)
			}
		case wire.FramePing:
			s.send(wire.NewPongFrame())
		case wire.FramePong:
			// Keepalive traffic; touch above already noted it.
		default:
			return &wire.ProtocolError{
				Op:     "read",
				Detail: fmt.Sprintf("unexpected frame type %d", frame.Type),
			}
		}
	}
}

// handshake writes the hello and reads the welcome. The connection is
// closed out from under a service that stalls mid-handshake.
func (s *session) handshake(conn net.Conn) (wire.WelcomePayload, error) {
	guard := s.clk.AfterFunc(s.dialTimeout, func() { conn.Close() })
	defer guard.Stop()

	hello, err := wire.NewHelloFrame(wire.HelloPayload{
		Protocol:    wire.ProtocolVersion,
		ClientName:  s.clientName,
		Viewport:    s.viewport(),
		Compression: []string{wire.CompressionLZ4},
	})
	if err != nil {
		return wire.WelcomePayload{}, err
	}
	if err := wire.WriteFrame(conn, hello); err != nil {
		return wire.WelcomePayload{}, err
	}

	frame, err := wire.ReadFrame(conn)
	if err != nil {
		return wire.WelcomePayload{}, err
	}
	welcome, err := wire.ParseWelcomePayload(frame)
	if err != nil {
		return wire.WelcomePayload{}, err
	}
	if welcome.Reject != "" {
		return wire.WelcomePayload{}, &wire.ProtocolError{
			Op:     "handshake",
			Detail: "rejected by service: " + welcome.Reject,
		}
	}
	if welcome.Protocol != wire.ProtocolVersion {
		return wire.WelcomePayload{}, &wire.ProtocolError{
			Op:     "handshake",
			Detail: fmt.Sprintf("protocol mismatch: service %d, client %d", welcome.Protocol, wire.ProtocolVersion),
		}
	}
	switch welcome.Compression {
	case "", wire.CompressionNone, wire.CompressionLZ4:
	default:
		return wire.WelcomePayload{}, &wire.ProtocolError{
			Op:     "handshake",
			Detail: "unsupported compression " + welcome.Compression,
		}
	}
	return welcome, nil
}

func (s *session) pingLoop(stop <-chan struct{}) {
	ticker := s.clk.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			if now.Sub(time.Unix(0, s.activityNanos.Load())) >= pingInterval {
				s.send(wire.NewPingFrame())
			}
		}
	}
}

func (s *session) touch() {
	s.activityNanos.Store(s.clk.Now().UnixNano())
}

// send writes a frame to the live connection, if any. Write errors
// close the connection; the read loop notices and reconnects.
func (s *session) send(frame wire.Frame) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return false
	}
	if err := wire.WriteFrame(s.conn, frame); err != nil {
		s.conn.Close()
		return false
	}
	s.touch()
	return true
}

// sendCommand sends a control command, reporting whether a live
// session accepted the write.
func (s *session) sendCommand(op string, viewport *gaze.ViewportGeometry) bool {
	frame, err := wire.NewCommandFrame(wire.Command{Op: op, Viewport: viewport})
	if err != nil {
		s.log.Error("encoding command", "op", op, "error", err)
		return false
	}
	return s.send(frame)
}
