// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"sync"
	"time"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/lib/clock"
)

// store holds the latest snapshot and the reception status behind one
// mutex, so readers always observe a consistent (snapshot, status)
// pair. A condition variable wakes blocked waiters when a snapshot
// with a new timestamp arrives.
type store struct {
	clk clock.Clock

	mu     sync.Mutex
	cond   *sync.Cond
	state  gaze.StateSet
	status gaze.ReceptionStatus
	closed bool
}

func newStore(clk clock.Clock) *store {
	s := &store{clk: clk, state: gaze.InvalidStateSet()}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// latest returns the (snapshot, status) pair.
func (s *store) latest() (gaze.StateSet, gaze.ReceptionStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.status
}

// publish stores a snapshot and reports whether its timestamp differs
// from the stored one. An equal-timestamp publish is still stored
// (fields may have moved) but counts as no new data: no waiter wakes.
func (s *store) publish(state gaze.StateSet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fresh := state.Timestamp != s.state.Timestamp
	s.state = state
	if fresh {
		s.cond.Broadcast()
	}
	return fresh
}

// publishReceiving stores a snapshot and moves the status to
// receiving in one critical section, so no reader observes the new
// snapshot paired with the old status.
func (s *store) publishReceiving(state gaze.StateSet) (fresh, statusChanged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	statusChanged = s.status != gaze.StatusReceiving
	s.status = gaze.StatusReceiving
	fresh = state.Timestamp != s.state.Timestamp
	s.state = state
	if fresh {
		s.cond.Broadcast()
	}
	return fresh, statusChanged
}

// transition swaps the status from one specific value to another,
// reporting whether the swap happened.
func (s *store) transition(from, to gaze.ReceptionStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != from {
		return false
	}
	s.status = to
	return true
}

// applyServiceStatus stores a service-reported reception status. A
// not-receiving report is ignored while an auto-start attempt is in
// flight: the attempt's timebox decides when to give up.
func (s *store) applyServiceStatus(status gaze.ReceptionStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == gaze.StatusNotReceiving && s.status == gaze.StatusAttemptingAutoStart {
		return false
	}
	if s.status == status {
		return false
	}
	s.status = status
	return true
}

// waitForNew blocks until the stored snapshot's timestamp differs from
// *last, the timeout elapses, or the store closes. On new data it
// writes the new timestamp through last and returns true; otherwise it
// returns false and leaves *last untouched. A zero or negative timeout
// is a pure poll. Timestamps are compared for inequality, not order:
// an epoch restart that rewinds time is still new data.
func (s *store) waitForNew(last *gaze.Timestamp, timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if s.state.Timestamp != *last {
		*last = s.state.Timestamp
		return true
	}
	if timeout <= 0 {
		return false
	}

	expired := false
	timer := s.clk.AfterFunc(timeout, func() {
		s.mu.Lock()
		expired = true
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	for s.state.Timestamp == *last && !expired && !s.closed {
		s.cond.Wait()
	}
	if !s.closed && s.state.Timestamp != *last {
		*last = s.state.Timestamp
		return true
	}
	return false
}

// close wakes every waiter; subsequent and in-flight waits return
// false.
func (s *store) close() {
	s.mu.Lock()
	s.closed = true
	s.cond.Broadcast()
	s.mu.Unlock()
}
