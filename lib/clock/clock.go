// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source injected into everything in this module that
// waits, paces, or times out: the tracker's wait-for-new timeout, the
// session manager's reconnect backoff and keepalive, the simulator's
// frame pacing. Production code uses [Real]; tests use [Fake] and drive
// it with [FakeClock.Advance].
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Since returns the time elapsed since t, measured against Now.
	Since(t time.Time) time.Duration

	// After returns a channel that receives the fire time once d has
	// elapsed. A non-positive d delivers immediately.
	After(d time.Duration) <-chan time.Time

	// AfterFunc schedules f to run once d has elapsed. The returned
	// Timer has a nil C and can cancel the pending call via Stop.
	AfterFunc(d time.Duration, f func()) *Timer

	// NewTimer returns a Timer that delivers the fire time on C once d
	// has elapsed. A non-positive d delivers immediately.
	NewTimer(d time.Duration) *Timer

	// NewTicker returns a Ticker delivering on C every d. Panics if
	// d <= 0, matching time.NewTicker.
	NewTicker(d time.Duration) *Ticker

	// Sleep blocks the calling goroutine for at least d.
	Sleep(d time.Duration)
}

// Timer is a single-shot scheduled event. Timers from [Clock.NewTimer]
// deliver on C; timers from [Clock.AfterFunc] have a nil C and run
// their callback instead.
type Timer struct {
	// C delivers the fire time. Nil for AfterFunc timers.
	C <-chan time.Time

	stop  func() bool
	reset func(time.Duration) bool
}

// Stop cancels the timer. It reports whether the call prevented the
// timer from firing; false means it already fired or was stopped.
func (t *Timer) Stop() bool { return t.stop() }

// Reset re-arms the timer to fire after d. It reports whether the
// timer was still pending when Reset was called.
func (t *Timer) Reset(d time.Duration) bool { return t.reset(d) }

// Ticker delivers a tick on C every interval. C is buffered with
// capacity 1; a consumer that falls behind loses ticks rather than
// accumulating a backlog, matching time.Ticker.
type Ticker struct {
	// C delivers ticks.
	C <-chan time.Time

	stop  func()
	reset func(time.Duration)
}

// Stop turns the ticker off. C is not closed.
func (t *Ticker) Stop() { t.stop() }

// Reset changes the interval and restarts the tick cycle; the next
// tick arrives after the new interval elapses.
func (t *Ticker) Reset(d time.Duration) { t.reset(d) }
