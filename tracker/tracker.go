// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/lib/clock"
	"github.com/gazewire/gazewire/lib/version"
	"github.com/gazewire/gazewire/transport"
	"github.com/gazewire/gazewire/wire"
)

const (
	// DefaultWaitTimeout is the timeout callers conventionally pass to
	// WaitForNewStateSet when they have no tighter bound.
	DefaultWaitTimeout = time.Second

	// DefaultDialTimeout bounds a single dial plus handshake.
	DefaultDialTimeout = 5 * time.Second

	// autoStartTimeout is how long an AttemptStart stays in
	// StatusAttemptingAutoStart without data before giving up.
	autoStartTimeout = 10 * time.Second
)

// Option configures a Tracker.
type Option func(*Tracker)

// WithDialer sets the transport dialer. The default dials
// transport.DefaultAddress over TCP.
func WithDialer(d transport.Dialer) Option {
	return func(t *Tracker) { t.dialer = d }
}

// WithClock sets the clock used for every timeout, backoff, and
// keepalive. The default is clock.Real(); tests inject clock.Fake().
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clk = c }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.log = l }
}

// WithAutoStartCommand sets a local command (argv) that AttemptStart
// launches when the service is not reachable. Empty disables local
// launching; AttemptStart still asks a reachable service to begin
// tracking.
func WithAutoStartCommand(argv []string) Option {
	return func(t *Tracker) { t.autoStartCommand = argv }
}

// WithDialTimeout bounds each dial plus handshake attempt. The
// default is DefaultDialTimeout.
func WithDialTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.dialTimeout = d }
}

// Tracker is a connection to the eye tracking service: it maintains
// the session in the background, keeps the latest snapshot available
// without blocking, and fans events out to listeners. All methods are
// safe for concurrent use.
type Tracker struct {
	clientName       string
	clk              clock.Clock
	log              *slog.Logger
	dialer           transport.Dialer
	dialTimeout      time.Duration
	autoStartCommand []string

	store *store
	disp  *dispatcher
	sess  *session

	mu             sync.Mutex
	closed         bool
	viewport       gaze.ViewportGeometry
	recentering    bool
	autoStartTimer *clock.Timer
	serviceVersion gaze.Version
	sessionID      string
}

// New creates a tracker and starts its background session. Failure to
// reach the service is not a construction error: the tracker starts in
// StatusNotReceiving and keeps dialing with backoff. Only invalid
// arguments fail construction.
func New(clientName string, viewport gaze.ViewportGeometry, opts ...Option) (*Tracker, error) {
	if err := wire.ValidateClientName(clientName); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClientName, err)
	}

	t := &Tracker{
		clientName:  clientName,
		viewport:    viewport,
		clk:         clock.Real(),
		log:         slog.New(slog.DiscardHandler),
		dialer:      &transport.TCPDialer{},
		dialTimeout: DefaultDialTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.dialer == nil {
		return nil, ErrNilDialer
	}

	t.store = newStore(t.clk)
	t.disp = newDispatcher()
	t.sess = &session{
		dialer:         t.dialer,
		clk:            t.clk,
		log:            t.log,
		dialTimeout:    t.dialTimeout,
		clientName:     t.clientName,
		viewport:       t.currentViewport,
		onState:        t.handleState,
		onStatus:       t.handleServiceStatus,
		onConnected:    t.handleConnected,
		onDisconnected: t.handleDisconnected,
		kick:           make(chan struct{}, 1),
	}
	t.sess.start()
	return t, nil
}

// Close stops the session, drains the dispatcher, and waits for any
// in-flight listener callback. No callback fires after Close returns.
// Closing twice returns ErrClosed.
func (t *Tracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.closed = true
	timer := t.autoStartTimer
	t.autoStartTimer = nil
	t.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	t.sess.stop()
	t.store.close()
	t.disp.close()
	return nil
}

// LatestStateSet returns the most recent snapshot without blocking.
// Before the first update it is InvalidStateSet().
func (t *Tracker) LatestStateSet() gaze.StateSet {
	state, _ := t.store.latest()
	return state
}

// Latest returns the snapshot and reception status as one consistent
// pair.
func (t *Tracker) Latest() (gaze.StateSet, gaze.ReceptionStatus) {
	return t.store.latest()
}

// ReceptionStatus returns the current reception status.
func (t *Tracker) ReceptionStatus() gaze.ReceptionStatus {
	_, status := t.store.latest()
	return status
}

// WaitForNewStateSet blocks until a snapshot whose timestamp differs
// from *last is available, then writes that timestamp through last and
// returns true. On timeout it returns false and leaves *last
// untouched. A zero timeout polls without suspending. Waiting on a
// closed tracker returns false immediately. Concurrent waiters are
// each satisfied independently.
//
// Pass a timestamp initialized to gaze.NullTimestamp to wait for the
// first snapshot, then keep passing the same pointer to consume
// subsequent ones.
func (t *Tracker) WaitForNewStateSet(last *gaze.Timestamp, timeout time.Duration) bool {
	return t.store.waitForNew(last, timeout)
}

// RegisterListener adds a listener. It hears status changes and
// snapshots that happen after registration; there is no synthetic
// callback reporting the current status.
func (t *Tracker) RegisterListener(l Listener) (ListenerHandle, error) {
	if l == nil {
		return 0, ErrNilListener
	}
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return 0, ErrClosed
	}
	handle, ok := t.disp.register(l)
	if !ok {
		return 0, ErrClosed
	}
	return handle, nil
}

// UnregisterListener removes a listener. Invalid and stale handles
// are no-ops. The call does not return while a delivery to the
// listener is in flight, so the caller may tear down whatever the
// callbacks touch — except when called from inside one of the
// listener's own callbacks, where the removal is immediate instead of
// deadlocking.
func (t *Tracker) UnregisterListener(handle ListenerHandle) {
	t.disp.unregister(handle)
}

// AttemptStart asks the service to begin tracking. It is a no-op
// unless the status is StatusNotReceiving. The tracker moves to
// StatusAttemptingAutoStart, dials immediately, sends an attempt-start
// command once a session exists, and launches the configured local
// command if any. Without data within ten seconds the status decays
// back to StatusNotReceiving.
func (t *Tracker) AttemptStart() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return ErrClosed
	}
	t.mu.Unlock()

	if !t.store.transition(gaze.StatusNotReceiving, gaze.StatusAttemptingAutoStart) {
		return nil
	}
	t.log.Info("attempting auto-start")
	t.disp.enqueue(dispatchEvent{status: gaze.StatusAttemptingAutoStart})

	t.mu.Lock()
	if t.autoStartTimer != nil {
		t.autoStartTimer.Stop()
	}
	t.autoStartTimer = t.clk.AfterFunc(autoStartTimeout, t.autoStartExpired)
	t.mu.Unlock()

	if len(t.autoStartCommand) > 0 {
		t.launchAutoStartCommand()
	}
	t.sess.wake()
	t.sess.sendCommand(wire.OpAttemptStart, nil)
	return nil
}

func (t *Tracker) autoStartExpired() {
	if t.store.transition(gaze.StatusAttemptingAutoStart, gaze.StatusNotReceiving) {
		t.log.Info("auto-start timed out")
		t.disp.enqueue(dispatchEvent{status: gaze.StatusNotReceiving})
	}
}

func (t *Tracker) launchAutoStartCommand() {
	cmd := exec.Command(t.autoStartCommand[0], t.autoStartCommand[1:]...)
	if err := cmd.Start(); err != nil {
		t.log.Error("launching tracking service", "command", t.autoStartCommand[0], "error", err)
		return
	}
	t.log.Info("launched tracking service", "command", t.autoStartCommand[0], "pid", cmd.Process.Pid)
	go cmd.Wait()
}

// UpdateViewportGeometry replaces the viewport rectangle. The new
// geometry reaches the service as an update-viewport command when a
// session is live, and rides the hello on every later reconnect.
// Snapshots already received keep their old mapping.
func (t *Tracker) UpdateViewportGeometry(g gaze.ViewportGeometry) {
	t.mu.Lock()
	t.viewport = g
	t.mu.Unlock()
	t.sess.sendCommand(wire.OpUpdateViewport, &g)
}

// ViewportGeometry returns the current viewport rectangle.
func (t *Tracker) ViewportGeometry() gaze.ViewportGeometry {
	return t.currentViewport()
}

func (t *Tracker) currentViewport() gaze.ViewportGeometry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewport
}

// RecenterStart asks the service to begin a head-pose recenter
// gesture. It reports false when there is no live session or a
// recenter is already in progress.
func (t *Tracker) RecenterStart() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || t.recentering {
		return false
	}
	if !t.sess.sendCommand(wire.OpRecenterStart, nil) {
		return false
	}
	t.recentering = true
	return true
}

// RecenterEnd completes a recenter gesture. Without a matching
// RecenterStart it does nothing.
func (t *Tracker) RecenterEnd() {
	t.mu.Lock()
	started := t.recentering
	t.recentering = false
	t.mu.Unlock()
	if started {
		t.sess.sendCommand(wire.OpRecenterEnd, nil)
	}
}

// ServiceVersion returns the version the service reported in the most
// recent handshake, or the zero version before any session.
func (t *Tracker) ServiceVersion() gaze.Version {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.serviceVersion
}

// SessionID returns the service-assigned id of the most recent
// session.
func (t *Tracker) SessionID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sessionID
}

// SDKVersion returns this library's own version.
func SDKVersion() gaze.Version {
	var v gaze.Version
	fmt.Sscanf(version.Short(), "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)
	return v
}

// handleState runs on the session goroutine for every StateUpdate.
func (t *Tracker) handleState(state gaze.StateSet) {
	fresh, statusChanged := t.store.publishReceiving(state)
	if statusChanged {
		t.stopAutoStartTimer()
	}
	switch {
	case fresh:
		t.disp.enqueue(dispatchEvent{status: gaze.StatusReceiving, state: state, snapshot: true})
	case statusChanged:
		// Stored but stale-stamped: listeners still hear the status
		// change.
		t.disp.enqueue(dispatchEvent{status: gaze.StatusReceiving})
	}
}

// handleServiceStatus maps a service-reported status (paused or
// streaming) into the state machine.
func (t *Tracker) handleServiceStatus(status gaze.ReceptionStatus) {
	if status == gaze.StatusAttemptingAutoStart {
		// Client-side state; the service never drives it.
		return
	}
	if status == gaze.StatusReceiving {
		t.stopAutoStartTimer()
	}
	if t.store.applyServiceStatus(status) {
		t.disp.enqueue(dispatchEvent{status: status})
	}
}

func (t *Tracker) handleConnected(welcome wire.WelcomePayload) {
	t.mu.Lock()
	t.serviceVersion = welcome.ServiceVersion
	t.sessionID = welcome.SessionID
	t.mu.Unlock()

	if t.ReceptionStatus() == gaze.StatusAttemptingAutoStart {
		t.sess.sendCommand(wire.OpAttemptStart, nil)
	}
}

func (t *Tracker) handleDisconnected() {
	// An in-flight auto-start attempt survives the drop; its timebox
	// decides when to give up.
	if t.store.transition(gaze.StatusReceiving, gaze.StatusNotReceiving) {
		t.disp.enqueue(dispatchEvent{status: gaze.StatusNotReceiving})
	}
	t.mu.Lock()
	t.recentering = false
	t.mu.Unlock()
}

func (t *Tracker) stopAutoStartTimer() {
	t.mu.Lock()
	if t.autoStartTimer != nil {
		t.autoStartTimer.Stop()
		t.autoStartTimer = nil
	}
	t.mu.Unlock()
}
