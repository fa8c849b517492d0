// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/lib/clock"
	"github.com/gazewire/gazewire/lib/version"
	"github.com/gazewire/gazewire/record"
	"github.com/gazewire/gazewire/wire"
)

// DefaultRate is the snapshot rate when Config.Rate is zero.
const DefaultRate = 30.0

// Config configures a synthetic tracking service.
type Config struct {
	// Rate is the snapshot rate in updates per second. Zero means
	// DefaultRate.
	Rate float64

	// Viewport is the simulated screen bounds the generator sweeps
	// across. Zero value means a 1920x1080 screen at the origin.
	Viewport gaze.ViewportGeometry

	// StartPaused makes new sessions begin without streaming. A
	// paused session reports not-receiving until an attempt-start
	// command resumes it.
	StartPaused bool

	// Seed drives the generator. Sessions with the same seed see the
	// same signal.
	Seed int64

	// Clock paces streaming. Nil means the real clock.
	Clock clock.Clock

	// Logger receives connection lifecycle logs. Nil discards.
	Logger *slog.Logger
}

// Service is a synthetic tracking service speaking the GazeWire wire
// protocol. Each accepted connection gets its own generator, so
// concurrent clients observe identical deterministic sessions.
type Service struct {
	cfg Config
	clk clock.Clock
	log *slog.Logger
}

// New creates a service from cfg, filling defaults.
func New(cfg Config) *Service {
	if cfg.Rate <= 0 {
		cfg.Rate = DefaultRate
	}
	if cfg.Viewport.SpanX() <= 1 || cfg.Viewport.SpanY() <= 1 {
		cfg.Viewport = gaze.ViewportGeometry{
			Point11: gaze.Point{X: 1919, Y: 1079},
		}
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.Real()
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{cfg: cfg, clk: clk, log: log}
}

// Serve accepts connections until ctx is cancelled or the listener
// fails. Each connection is served by its own goroutine streaming the
// generator's signal.
func (s *Service) Serve(ctx context.Context, ln net.Listener) error {
	return s.serve(ctx, ln, nil)
}

// ServeRecording is Serve with a recorded session in place of the
// generator: every connection replays the recording's events,
// preserving the relative timing between snapshots. The reader is
// drained once up front, so replay supports concurrent connections.
func (s *Service) ServeRecording(ctx context.Context, ln net.Listener, r *record.Reader) error {
	replay := &replaySource{info: r.Info()}
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("loading recording: %w", err)
		}
		replay.events = append(replay.events, ev)
	}
	if len(replay.events) == 0 {
		return errors.New("recording has no events")
	}
	return s.serve(ctx, ln, replay)
}

type replaySource struct {
	info   record.Info
	events []record.Event
}

func (s *Service) serve(ctx context.Context, ln net.Listener, replay *replaySource) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accepting connection: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(ctx, conn, replay)
		}()
	}
}

// serviceConn holds one client session.
type serviceConn struct {
	svc    *Service
	nc     net.Conn
	log    *slog.Logger
	lz4    bool
	replay *replaySource

	sendMu sync.Mutex

	mu       sync.Mutex
	paused   bool
	viewport gaze.ViewportGeometry
	gen      *Generator

	// recenterBase is subtracted from the head camera component while
	// set. recenter-start only arms the gesture; recenter-end samples
	// and commits the pose at that moment.
	recentering  bool
	recenterBase gaze.CameraTransform
}

func (s *Service) handle(ctx context.Context, nc net.Conn, replay *replaySource) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer nc.Close()
	go func() {
		<-ctx.Done()
		nc.Close()
	}()

	hello, err := s.handshake(nc)
	if err != nil {
		s.log.Warn("handshake failed", "remote", nc.RemoteAddr(), "error", err)
		return
	}

	c := &serviceConn{
		svc:      s,
		nc:       nc,
		log:      s.log.With("client", hello.ClientName),
		lz4:      helloOffers(hello, wire.CompressionLZ4),
		replay:   replay,
		paused:   s.cfg.StartPaused && replay == nil,
		viewport: hello.Viewport,
		gen:      NewGenerator(s.cfg.Seed, s.cfg.Viewport),
	}
	c.log.Info("session started", "remote", nc.RemoteAddr(), "lz4", c.lz4)

	if c.paused {
		c.sendStatus(gaze.StatusNotReceiving)
	}

	streamCtx, stopStream := context.WithCancel(ctx)
	defer stopStream()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if replay != nil {
			c.replayLoop(streamCtx)
		} else {
			c.streamLoop(streamCtx)
		}
	}()

	c.readLoop()
	stopStream()
	nc.Close()
	wg.Wait()
	c.log.Info("session ended")
}

// handshake reads the hello and answers it. A rejecting welcome is
// written before the error return closes the connection.
func (s *Service) handshake(nc net.Conn) (wire.HelloPayload, error) {
	frame, err := wire.ReadFrame(nc)
	if err != nil {
		return wire.HelloPayload{}, fmt.Errorf("reading hello: %w", err)
	}
	if frame.Type != wire.FrameHello {
		return wire.HelloPayload{}, fmt.Errorf("expected hello frame, got type %d", frame.Type)
	}
	// Parse failures (malformed JSON, invalid client name) still get
	// a rejecting welcome so the client learns why it was dropped.
	reject := ""
	hello, err := wire.ParseHelloPayload(frame)
	switch {
	case err != nil:
		reject = err.Error()
	case hello.Protocol != wire.ProtocolVersion:
		reject = fmt.Sprintf("unsupported protocol %d (service speaks %d)", hello.Protocol, wire.ProtocolVersion)
	}

	welcome := wire.WelcomePayload{
		Protocol:       wire.ProtocolVersion,
		ServiceVersion: serviceVersion(),
		Compression:    wire.CompressionNone,
		SessionID:      uuid.NewString(),
		Reject:         reject,
	}
	if reject == "" && helloOffers(hello, wire.CompressionLZ4) {
		welcome.Compression = wire.CompressionLZ4
	}
	wf, err := wire.NewWelcomeFrame(welcome)
	if err != nil {
		return wire.HelloPayload{}, err
	}
	if err := wire.WriteFrame(nc, wf); err != nil {
		return wire.HelloPayload{}, fmt.Errorf("writing welcome: %w", err)
	}
	if reject != "" {
		return wire.HelloPayload{}, fmt.Errorf("rejected hello: %s", reject)
	}
	return hello, nil
}

func helloOffers(hello wire.HelloPayload, compression string) bool {
	for _, c := range hello.Compression {
		if c == compression {
			return true
		}
	}
	return false
}

func serviceVersion() gaze.Version {
	var v gaze.Version
	fmt.Sscanf(version.Short(), "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)
	return v
}

// streamLoop paces generator snapshots at the configured rate.
func (c *serviceConn) streamLoop(ctx context.Context) {
	interval := time.Duration(float64(time.Second) / c.svc.cfg.Rate)
	ticker := c.svc.clk.NewTicker(interval)
	defer ticker.Stop()
	start := c.svc.clk.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		c.mu.Lock()
		if c.paused {
			c.mu.Unlock()
			continue
		}
		state := c.gen.At(c.svc.clk.Since(start))
		c.remap(&state)
		c.mu.Unlock()

		if !c.sendState(state) {
			return
		}
	}
}

// replayLoop streams the recorded events, sleeping the recorded gap
// between consecutive snapshots. Gaps are clamped to a second so a
// recording with a long silence replays promptly.
func (c *serviceConn) replayLoop(ctx context.Context) {
	var last gaze.Timestamp
	haveLast := false
	for _, ev := range c.replay.events {
		if haveLast {
			gap := time.Duration(float64(ev.Timestamp-last) * float64(time.Second))
			if gap < 0 {
				gap = 0
			}
			if gap > time.Second {
				gap = time.Second
			}
			select {
			case <-ctx.Done():
				return
			case <-c.svc.clk.After(gap):
			}
		}
		last, haveLast = ev.Timestamp, true

		switch ev.Kind {
		case record.EventState:
			if !c.sendState(ev.State) {
				return
			}
		case record.EventStatus:
			if !c.sendStatus(ev.Status) {
				return
			}
		}
	}
	c.log.Info("replay finished", "events", len(c.replay.events))
}

// remap rebases the snapshot onto the client's viewport and, after a
// committed recenter, onto the rebased head pose. Called with c.mu
// held.
func (c *serviceConn) remap(state *gaze.StateSet) {
	// Spans are signed: an inverted viewport has negative spans and is
	// still valid. Only a degenerate axis (magnitude <= 1) skips the
	// remap.
	sx, sy := c.viewport.SpanX(), c.viewport.SpanY()
	if (sx > 1 || sx < -1) && (sy > 1 || sy < -1) {
		norm := c.viewport.Normalize(state.User.ScreenGaze.PointOfRegard)
		state.User.ViewportGaze.NormalizedPointOfRegard = norm
		state.Foveation.Center = norm
	}
	b := c.recenterBase
	h := &state.SimCamera.Head
	h.Roll -= b.Roll
	h.Pitch -= b.Pitch
	h.Yaw -= b.Yaw
	h.X -= b.X
	h.Y -= b.Y
	h.Z -= b.Z
}

func (c *serviceConn) readLoop() {
	for {
		frame, err := wire.ReadFrame(c.nc)
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				c.log.Debug("read failed", "error", err)
			}
			return
		}
		switch frame.Type {
		case wire.FrameCommand:
			cmd, err := wire.ParseCommandPayload(frame)
			if err != nil {
				c.log.Warn("bad command frame", "error", err)
				return
			}
			c.handleCommand(cmd)
		case wire.FramePing:
			c.send(wire.NewPongFrame())
		case wire.FramePong:
		default:
			c.log.Warn("unexpected frame", "type", frame.Type)
			return
		}
	}
}

func (c *serviceConn) handleCommand(cmd wire.Command) {
	ack := wire.CommandAck{Op: cmd.Op, OK: true}

	if c.replay != nil && cmd.Op != wire.OpAttemptStart {
		// Replay is a fixed record: nothing to retarget or rebase.
		ack.OK = false
		ack.Detail = "replaying a recorded session"
		c.sendAck(ack)
		return
	}

	c.mu.Lock()
	switch cmd.Op {
	case wire.OpAttemptStart:
		if c.paused {
			c.paused = false
			c.log.Info("stream resumed")
			defer c.sendStatus(gaze.StatusReceiving)
		}
	case wire.OpUpdateViewport:
		if cmd.Viewport == nil {
			ack.OK = false
			ack.Detail = "update-viewport without geometry"
			break
		}
		c.viewport = *cmd.Viewport
	case wire.OpRecenterStart:
		c.recentering = true
	case wire.OpRecenterEnd:
		if c.recentering {
			c.recentering = false
			c.recenterBase = c.gen.Last().SimCamera.Head
		}
	default:
		ack.OK = false
		ack.Detail = fmt.Sprintf("unknown op %q", cmd.Op)
	}
	c.mu.Unlock()

	c.sendAck(ack)
}

func (c *serviceConn) sendState(state gaze.StateSet) bool {
	frame, err := wire.NewStateUpdateFrame(state, c.lz4)
	if err != nil {
		c.log.Error("encoding snapshot", "error", err)
		return false
	}
	return c.send(frame)
}

func (c *serviceConn) sendStatus(status gaze.ReceptionStatus) bool {
	frame, err := wire.NewStatusFrame(status)
	if err != nil {
		c.log.Error("encoding status", "error", err)
		return false
	}
	return c.send(frame)
}

func (c *serviceConn) sendAck(ack wire.CommandAck) {
	frame, err := wire.NewCommandAckFrame(ack)
	if err != nil {
		c.log.Error("encoding ack", "error", err)
		return
	}
	c.send(frame)
}

func (c *serviceConn) send(frame wire.Frame) bool {
	// Stream and read loops both write; serialize per connection.
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if err := wire.WriteFrame(c.nc, frame); err != nil {
		return false
	}
	return true
}
