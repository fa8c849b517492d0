// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/lib/clock"
	"github.com/gazewire/gazewire/transport"
	"github.com/gazewire/gazewire/wire"
)

var testViewport = gaze.ViewportGeometry{
	Point00: gaze.Point{X: 0, Y: 0},
	Point11: gaze.Point{X: 1919, Y: 1079},
}

// testService is a hand-rolled wire peer over the in-memory transport,
// so tracker tests control every frame the "service" produces.
type testService struct {
	t   *testing.T
	mem *transport.Memory
}

func newTestService(t *testing.T) *testService {
	t.Helper()
	mem := transport.NewMemory()
	t.Cleanup(func() { mem.Close() })
	return &testService{t: t, mem: mem}
}

func (s *testService) accept() net.Conn {
	s.t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, err := s.mem.Accept(ctx)
	if err != nil {
		s.t.Fatalf("accept: %v", err)
	}
	return conn
}

// welcome completes the handshake on a fresh connection and returns
// the client's hello.
func (s *testService) welcome(conn net.Conn) wire.HelloPayload {
	s.t.Helper()
	frame, err := wire.ReadFrame(conn)
	if err != nil {
		s.t.Fatalf("reading hello: %v", err)
	}
	hello, err := wire.ParseHelloPayload(frame)
	if err != nil {
		s.t.Fatalf("parsing hello: %v", err)
	}
	welcome, err := wire.NewWelcomeFrame(wire.WelcomePayload{
		Protocol:       wire.ProtocolVersion,
		ServiceVersion: gaze.Version{Major: 1, Minor: 2, Patch: 3, Build: 4},
		Compression:    wire.CompressionNone,
		SessionID:      "test-session",
	})
	if err != nil {
		s.t.Fatalf("building welcome: %v", err)
	}
	if err := wire.WriteFrame(conn, welcome); err != nil {
		s.t.Fatalf("writing welcome: %v", err)
	}
	return hello
}

func (s *testService) sendState(conn net.Conn, ts gaze.Timestamp) {
	s.t.Helper()
	frame, err := wire.NewStateUpdateFrame(stateAt(ts), false)
	if err != nil {
		s.t.Fatalf("building state update: %v", err)
	}
	if err := wire.WriteFrame(conn, frame); err != nil {
		s.t.Fatalf("writing state update: %v", err)
	}
}

func (s *testService) sendStatus(conn net.Conn, status gaze.ReceptionStatus) {
	s.t.Helper()
	frame, err := wire.NewStatusFrame(status)
	if err != nil {
		s.t.Fatalf("building status: %v", err)
	}
	if err := wire.WriteFrame(conn, frame); err != nil {
		s.t.Fatalf("writing status: %v", err)
	}
}

// commands starts a background reader that answers pings and forwards
// commands. The in-memory transport is a synchronous pipe, so the
// service side must consume concurrently with client writes.
func (s *testService) commands(conn net.Conn) <-chan wire.Command {
	out := make(chan wire.Command, 16)
	go func() {
		defer close(out)
		for {
			frame, err := wire.ReadFrame(conn)
			if err != nil {
				return
			}
			switch frame.Type {
			case wire.FramePing:
				wire.WriteFrame(conn, wire.NewPongFrame())
			case wire.FrameCommand:
				command, err := wire.ParseCommandPayload(frame)
				if err != nil {
					return
				}
				out <- command
			}
		}
	}()
	return out
}

func recvCommand(t *testing.T, commands <-chan wire.Command) wire.Command {
	t.Helper()
	select {
	case command, ok := <-commands:
		if !ok {
			t.Fatal("command stream closed")
		}
		return command
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for command")
	}
	panic("unreachable")
}

func newTestTracker(t *testing.T, svc *testService, opts ...Option) *Tracker {
	t.Helper()
	opts = append([]Option{
		WithDialer(svc.mem.Dialer()),
		WithDialTimeout(time.Second),
	}, opts...)
	tr, err := New("test-client", testViewport, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr
}

func TestNewRejectsInvalidClientName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		client string
	}{
		{"empty", ""},
		{"too long", strings.Repeat("n", 201)},
		{"invalid utf8", "bad\xffname"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.client, testViewport)
			if !errors.Is(err, ErrInvalidClientName) {
				t.Errorf("New(%q) error = %v, want ErrInvalidClientName", tt.client, err)
			}
		})
	}
}

func TestNewRejectsNilDialer(t *testing.T) {
	t.Parallel()
	_, err := New("client", testViewport, WithDialer(nil))
	if !errors.Is(err, ErrNilDialer) {
		t.Errorf("error = %v, want ErrNilDialer", err)
	}
}

func TestTrackerReceivesSnapshots(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	tr := newTestTracker(t, svc)

	conn := svc.accept()
	hello := svc.welcome(conn)
	if hello.ClientName != "test-client" {
		t.Errorf("hello client name = %q", hello.ClientName)
	}
	if hello.Viewport != testViewport {
		t.Errorf("hello viewport = %+v", hello.Viewport)
	}

	svc.sendState(conn, 1.0)
	last := gaze.NullTimestamp
	if !tr.WaitForNewStateSet(&last, 5*time.Second) {
		t.Fatal("first snapshot did not arrive")
	}
	if last != 1.0 {
		t.Errorf("last = %v, want 1.0", last)
	}

	svc.sendState(conn, 2.0)
	if !tr.WaitForNewStateSet(&last, 5*time.Second) {
		t.Fatal("second snapshot did not arrive")
	}
	if last != 2.0 {
		t.Errorf("last = %v, want 2.0", last)
	}

	state, status := tr.Latest()
	if state.Timestamp != 2.0 {
		t.Errorf("latest timestamp = %v, want 2.0", state.Timestamp)
	}
	if status != gaze.StatusReceiving {
		t.Errorf("status = %v, want receiving", status)
	}
	if got := tr.ServiceVersion().String(); got != "1.2.3.4" {
		t.Errorf("service version = %s, want 1.2.3.4", got)
	}
	if tr.SessionID() != "test-session" {
		t.Errorf("session id = %q", tr.SessionID())
	}
}

func TestTrackerListenerLifecycle(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	tr := newTestTracker(t, svc)

	rec := newRecorder()
	handle, err := tr.RegisterListener(rec)
	if err != nil {
		t.Fatalf("RegisterListener: %v", err)
	}
	if _, err := tr.RegisterListener(nil); !errors.Is(err, ErrNilListener) {
		t.Errorf("nil listener error = %v, want ErrNilListener", err)
	}

	conn := svc.accept()
	svc.welcome(conn)
	svc.sendState(conn, 1.0)

	// First snapshot: status change to receiving, then the snapshot.
	rec.await(t, 2)
	statuses, states := rec.snapshot()
	if len(statuses) != 1 || statuses[0] != gaze.StatusReceiving {
		t.Errorf("statuses = %v, want [receiving]", statuses)
	}
	if len(states) != 1 || states[0].Timestamp != 1.0 {
		t.Errorf("states = %v", states)
	}

	tr.UnregisterListener(handle)
	svc.sendState(conn, 2.0)

	// The unregistered listener hears nothing more; confirm the
	// update arrived at all via the store.
	last := gaze.Timestamp(1.0)
	if !tr.WaitForNewStateSet(&last, 5*time.Second) {
		t.Fatal("second snapshot did not arrive")
	}
	_, states = rec.snapshot()
	if len(states) != 1 {
		t.Errorf("unregistered listener received %d snapshots, want 1", len(states))
	}
}

func TestTrackerServicePauseReachesListeners(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	tr := newTestTracker(t, svc)

	rec := newRecorder()
	if _, err := tr.RegisterListener(rec); err != nil {
		t.Fatalf("RegisterListener: %v", err)
	}

	conn := svc.accept()
	svc.welcome(conn)
	svc.sendState(conn, 1.0)
	rec.await(t, 2)

	svc.sendStatus(conn, gaze.StatusNotReceiving)
	rec.await(t, 1)

	statuses, _ := rec.snapshot()
	want := []gaze.ReceptionStatus{gaze.StatusReceiving, gaze.StatusNotReceiving}
	if len(statuses) != 2 || statuses[0] != want[0] || statuses[1] != want[1] {
		t.Errorf("statuses = %v, want %v", statuses, want)
	}
	if tr.ReceptionStatus() != gaze.StatusNotReceiving {
		t.Errorf("status = %v, want not-receiving", tr.ReceptionStatus())
	}
}

func TestTrackerReconnects(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	tr := newTestTracker(t, svc)

	conn := svc.accept()
	svc.welcome(conn)
	svc.sendState(conn, 1.0)

	last := gaze.NullTimestamp
	if !tr.WaitForNewStateSet(&last, 5*time.Second) {
		t.Fatal("snapshot did not arrive on first session")
	}
	conn.Close()

	// The tracker redials with backoff. Serve a second session.
	conn = svc.accept()
	svc.welcome(conn)
	svc.sendState(conn, 7.5)
	if !tr.WaitForNewStateSet(&last, 5*time.Second) {
		t.Fatal("snapshot did not arrive after reconnect")
	}
	if last != 7.5 {
		t.Errorf("last = %v, want 7.5", last)
	}
	if tr.ReceptionStatus() != gaze.StatusReceiving {
		t.Errorf("status after reconnect = %v", tr.ReceptionStatus())
	}
}

func TestTrackerSilenceTearsDownSession(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(time.Unix(1000, 0))
	svc := newTestService(t)
	tr := newTestTracker(t, svc, WithClock(fake), WithDialTimeout(time.Hour))

	conn := svc.accept()
	svc.welcome(conn)
	svc.sendState(conn, 1.0)

	last := gaze.NullTimestamp
	if !tr.WaitForNewStateSet(&last, 5*time.Second) {
		t.Fatal("snapshot did not arrive on first session")
	}

	// Drain the client's pings without answering. Nothing resets the
	// silence watchdog, so it must close the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, err := wire.ReadFrame(conn); err != nil {
				return
			}
		}
	}()

	// Advance the fake clock in small steps from the background: the
	// watchdog fires and the reconnect backoff elapses while accept
	// blocks on the redial.
	stop := make(chan struct{})
	advanced := make(chan struct{})
	go func() {
		defer close(advanced)
		for {
			select {
			case <-stop:
				return
			default:
			}
			fake.Advance(100 * time.Millisecond)
			time.Sleep(time.Millisecond)
		}
	}()

	conn2 := svc.accept()
	close(stop)
	<-advanced

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("silent connection was not torn down")
	}

	svc.welcome(conn2)
	svc.sendState(conn2, 9.0)
	if !tr.WaitForNewStateSet(&last, 5*time.Second) {
		t.Fatal("snapshot did not arrive after silence teardown")
	}
	if last != 9.0 {
		t.Errorf("last = %v, want 9.0", last)
	}
}

func TestTrackerCommands(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	tr := newTestTracker(t, svc)

	conn := svc.accept()
	svc.welcome(conn)
	svc.sendState(conn, 1.0)
	last := gaze.NullTimestamp
	if !tr.WaitForNewStateSet(&last, 5*time.Second) {
		t.Fatal("snapshot did not arrive")
	}
	commands := svc.commands(conn)

	next := gaze.ViewportGeometry{
		Point00: gaze.Point{X: 1920, Y: 1079},
		Point11: gaze.Point{X: 3839, Y: 0},
	}
	tr.UpdateViewportGeometry(next)
	command := recvCommand(t, commands)
	if command.Op != wire.OpUpdateViewport {
		t.Fatalf("op = %q, want update-viewport", command.Op)
	}
	if command.Viewport == nil || *command.Viewport != next {
		t.Errorf("command viewport = %v, want %v", command.Viewport, next)
	}
	if tr.ViewportGeometry() != next {
		t.Errorf("tracker viewport = %v", tr.ViewportGeometry())
	}

	if !tr.RecenterStart() {
		t.Fatal("RecenterStart with a live session returned false")
	}
	if tr.RecenterStart() {
		t.Error("second RecenterStart returned true")
	}
	if command = recvCommand(t, commands); command.Op != wire.OpRecenterStart {
		t.Fatalf("op = %q, want recenter-start", command.Op)
	}

	tr.RecenterEnd()
	if command = recvCommand(t, commands); command.Op != wire.OpRecenterEnd {
		t.Fatalf("op = %q, want recenter-end", command.Op)
	}

	// End without a matching start sends nothing; the next command
	// read must see the following recenter-start, not a stray end.
	tr.RecenterEnd()
	if !tr.RecenterStart() {
		t.Fatal("RecenterStart after a completed cycle returned false")
	}
	if command = recvCommand(t, commands); command.Op != wire.OpRecenterStart {
		t.Fatalf("op = %q, want recenter-start", command.Op)
	}
}

func TestTrackerRecenterWithoutSession(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	tr := newTestTracker(t, svc)

	// Nothing has accepted the dial: no live session.
	if tr.RecenterStart() {
		t.Error("RecenterStart without a session returned true")
	}
}

func TestTrackerAttemptStart(t *testing.T) {
	t.Parallel()
	fake := clock.Fake(time.Unix(1000, 0))
	svc := newTestService(t)
	tr := newTestTracker(t, svc, WithClock(fake))

	rec := newRecorder()
	if _, err := tr.RegisterListener(rec); err != nil {
		t.Fatalf("RegisterListener: %v", err)
	}

	if err := tr.AttemptStart(); err != nil {
		t.Fatalf("AttemptStart: %v", err)
	}
	if tr.ReceptionStatus() != gaze.StatusAttemptingAutoStart {
		t.Fatalf("status = %v, want attempting-auto-start", tr.ReceptionStatus())
	}
	rec.await(t, 1)

	// A second attempt while one is in flight changes nothing.
	if err := tr.AttemptStart(); err != nil {
		t.Fatalf("second AttemptStart: %v", err)
	}
	statuses, _ := rec.snapshot()
	if len(statuses) != 1 {
		t.Fatalf("statuses = %v, want exactly one", statuses)
	}

	// No data within the timebox: decay back to not-receiving.
	fake.Advance(autoStartTimeout)
	rec.await(t, 1)
	if tr.ReceptionStatus() != gaze.StatusNotReceiving {
		t.Errorf("status after timebox = %v, want not-receiving", tr.ReceptionStatus())
	}
}

func TestTrackerAttemptStartCommandReachesService(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	tr := newTestTracker(t, svc)

	conn := svc.accept()
	svc.welcome(conn)
	commands := svc.commands(conn)

	// Connected but no data yet: still not-receiving, so the attempt
	// proceeds and the command goes out over the live session.
	if err := tr.AttemptStart(); err != nil {
		t.Fatalf("AttemptStart: %v", err)
	}
	if command := recvCommand(t, commands); command.Op != wire.OpAttemptStart {
		t.Fatalf("op = %q, want attempt-start", command.Op)
	}

	// Data arrival resolves the attempt.
	svc.sendState(conn, 1.0)
	last := gaze.NullTimestamp
	if !tr.WaitForNewStateSet(&last, 5*time.Second) {
		t.Fatal("snapshot did not arrive")
	}
	if tr.ReceptionStatus() != gaze.StatusReceiving {
		t.Errorf("status = %v, want receiving", tr.ReceptionStatus())
	}
}

func TestTrackerClose(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	tr := newTestTracker(t, svc)

	conn := svc.accept()
	svc.welcome(conn)
	svc.sendState(conn, 1.0)
	last := gaze.NullTimestamp
	if !tr.WaitForNewStateSet(&last, 5*time.Second) {
		t.Fatal("snapshot did not arrive")
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := tr.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if _, err := tr.RegisterListener(newRecorder()); !errors.Is(err, ErrClosed) {
		t.Errorf("RegisterListener after Close = %v, want ErrClosed", err)
	}
	if err := tr.AttemptStart(); !errors.Is(err, ErrClosed) {
		t.Errorf("AttemptStart after Close = %v, want ErrClosed", err)
	}
	if tr.WaitForNewStateSet(&last, time.Hour) {
		t.Error("wait on a closed tracker returned true")
	}
	// Data access still answers with the last snapshot.
	if tr.LatestStateSet().Timestamp != 1.0 {
		t.Error("LatestStateSet lost the snapshot after Close")
	}
}

func TestTrackerNoCallbackAfterClose(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	tr := newTestTracker(t, svc)

	var afterClose atomic.Bool
	var calls atomic.Int64
	closed := make(chan struct{})
	listener := listenerFuncs{
		onState: func(gaze.StateSet, gaze.Timestamp) {
			calls.Add(1)
			select {
			case <-closed:
				afterClose.Store(true)
			default:
			}
		},
	}
	if _, err := tr.RegisterListener(listener); err != nil {
		t.Fatalf("RegisterListener: %v", err)
	}

	conn := svc.accept()
	svc.welcome(conn)
	for i := range 20 {
		svc.sendState(conn, gaze.Timestamp(i)+0.5)
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	close(closed)
	if afterClose.Load() {
		t.Error("a callback fired after Close returned")
	}
	if calls.Load() == 0 {
		t.Error("no callbacks at all; expected at least one delivery")
	}
}

func TestTrackerNoOverlappingDeliveries(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	tr := newTestTracker(t, svc)

	var inFlight atomic.Int64
	var overlaps atomic.Int64
	var seen atomic.Int64
	enter := func() {
		if inFlight.Add(1) != 1 {
			overlaps.Add(1)
		}
		time.Sleep(100 * time.Microsecond)
		inFlight.Add(-1)
	}
	listener := listenerFuncs{
		onStatus: func(gaze.ReceptionStatus) { enter() },
		onState: func(gaze.StateSet, gaze.Timestamp) {
			enter()
			seen.Add(1)
		},
	}
	if _, err := tr.RegisterListener(listener); err != nil {
		t.Fatalf("RegisterListener: %v", err)
	}

	conn := svc.accept()
	svc.welcome(conn)
	const updates = 50
	for i := range updates {
		svc.sendState(conn, gaze.Timestamp(i)+0.25)
	}

	deadline := time.Now().Add(5 * time.Second)
	for seen.Load() < updates && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if seen.Load() != updates {
		t.Fatalf("saw %d of %d snapshots", seen.Load(), updates)
	}
	if overlaps.Load() != 0 {
		t.Errorf("%d overlapping deliveries to one listener", overlaps.Load())
	}
}
