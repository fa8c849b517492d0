// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package tracker

import (
	"runtime"
	"sync"

	"github.com/gazewire/gazewire/gaze"
)

// Listener receives tracker events on the dispatch goroutine. Both
// callbacks for a given listener are serialized: no two deliveries to
// the same listener ever overlap.
type Listener interface {
	// OnStatusChanged fires when the reception status differs from
	// the last value this listener observed.
	OnStatusChanged(status gaze.ReceptionStatus)

	// OnStateSet fires for every snapshot with a new timestamp.
	OnStateSet(state gaze.StateSet, timestamp gaze.Timestamp)
}

// ListenerHandle identifies a registered listener. The zero handle is
// never issued and unregisters as a no-op, as do stale handles from
// already-removed listeners.
type ListenerHandle uint64

func handleFor(index, generation uint32) ListenerHandle {
	return ListenerHandle(uint64(generation)<<32 | uint64(index))
}

// listenerSlot is one entry in the generation-checked slot map. The
// generation increments on each reuse so a stale handle can never
// reach a later occupant of the same slot.
type listenerSlot struct {
	listener   Listener // nil when free
	generation uint32
	lastStatus gaze.ReceptionStatus
}

// dispatchEvent is one unit of fan-out work. Every event carries the
// reception status current at enqueue time; snapshot events
// additionally carry the new snapshot.
type dispatchEvent struct {
	status   gaze.ReceptionStatus
	state    gaze.StateSet
	snapshot bool
}

// dispatcher fans events out to listeners from a single worker
// goroutine, in registration order. The session loop enqueues and
// never blocks on a slow listener; a slow listener delays other
// listeners but never the wire.
type dispatcher struct {
	mu         sync.Mutex
	cond       *sync.Cond
	queue      []dispatchEvent
	slots      []listenerSlot
	order      []uint32 // live slot indices, registration order
	free       []uint32
	tailStatus gaze.ReceptionStatus
	delivering int64 // slot index of the in-flight delivery, -1 none
	runPC      uintptr
	closed     bool

	done chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{delivering: -1, done: make(chan struct{})}
	d.cond = sync.NewCond(&d.mu)
	go d.run()
	return d
}

// register adds a listener. Its baseline status is the status of the
// newest enqueued event, so it hears only changes that happen after
// registration — there is no synthetic initial status callback.
func (d *dispatcher) register(l Listener) (ListenerHandle, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return 0, false
	}

	var index uint32
	if n := len(d.free); n > 0 {
		index = d.free[n-1]
		d.free = d.free[:n-1]
	} else {
		index = uint32(len(d.slots))
		d.slots = append(d.slots, listenerSlot{})
	}
	slot := &d.slots[index]
	slot.generation++
	slot.listener = l
	slot.lastStatus = d.tailStatus
	d.order = append(d.order, index)
	return handleFor(index, slot.generation), true
}

// unregister removes a listener. Invalid, stale, and already-removed
// handles are no-ops. When a delivery to the listener is in flight the
// call blocks until it finishes, so the caller can free resources the
// callback touches — unless the caller IS that callback (the listener
// unregistering itself on the dispatch goroutine), where blocking
// would deadlock; then the removal is immediate.
func (d *dispatcher) unregister(h ListenerHandle) {
	index := uint32(h)
	generation := uint32(h >> 32)
	if generation == 0 {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if int(index) >= len(d.slots) {
		return
	}
	slot := &d.slots[index]
	if slot.listener == nil || slot.generation != generation {
		return
	}
	slot.listener = nil
	for i, live := range d.order {
		if live == index {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.free = append(d.free, index)

	if d.delivering != int64(index) || onDispatchStack(d.runPC) {
		return
	}
	for d.delivering == int64(index) && !d.closed {
		d.cond.Wait()
	}
}

// enqueue appends an event for the worker. Events enqueued after close
// are dropped.
func (d *dispatcher) enqueue(ev dispatchEvent) {
	d.mu.Lock()
	if !d.closed {
		d.queue = append(d.queue, ev)
		d.tailStatus = ev.status
		d.cond.Broadcast()
	}
	d.mu.Unlock()
}

// close drains the queue, waits for the in-flight delivery, and joins
// the worker. No callback fires after close returns.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.cond.Broadcast()
	d.mu.Unlock()
	<-d.done
}

func (d *dispatcher) run() {
	defer close(d.done)

	// Record this function's entry PC so unregister can recognize
	// calls made from inside a listener callback.
	pc, _, _, _ := runtime.Caller(0)
	d.mu.Lock()
	d.runPC = runtime.FuncForPC(pc).Entry()
	d.mu.Unlock()

	type target struct {
		index      uint32
		generation uint32
		listener   Listener
	}
	var targets []target

	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.cond.Wait()
		}
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		ev := d.queue[0]
		d.queue = d.queue[1:]

		targets = targets[:0]
		for _, index := range d.order {
			slot := d.slots[index]
			targets = append(targets, target{index, slot.generation, slot.listener})
		}
		d.mu.Unlock()

		for _, t := range targets {
			d.mu.Lock()
			slot := &d.slots[t.index]
			if slot.listener == nil || slot.generation != t.generation {
				// Unregistered mid-event.
				d.mu.Unlock()
				continue
			}
			notifyStatus := slot.lastStatus != ev.status
			if notifyStatus {
				slot.lastStatus = ev.status
			}
			d.delivering = int64(t.index)
			d.mu.Unlock()

			if notifyStatus {
				t.listener.OnStatusChanged(ev.status)
			}
			if ev.snapshot {
				t.listener.OnStateSet(ev.state, ev.state.Timestamp)
			}

			d.mu.Lock()
			d.delivering = -1
			d.cond.Broadcast()
			d.mu.Unlock()
		}
	}
}

// onDispatchStack reports whether the calling goroutine is inside
// dispatcher.run, i.e. inside a listener callback.
func onDispatchStack(runPC uintptr) bool {
	var pcs [64]uintptr
	n := runtime.Callers(2, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if frame.Entry == runPC {
			return true
		}
		if !more {
			return false
		}
	}
}
