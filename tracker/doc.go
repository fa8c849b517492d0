// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package tracker is the GazeWire client SDK: a background session to
// the eye tracking service plus three ways to consume its snapshots.
//
// A [Tracker] maintains the connection itself — dialing, handshaking,
// reconnecting with backoff — and exposes the data three ways:
//
//   - [Tracker.LatestStateSet] / [Tracker.Latest]: non-blocking
//     copy-out of the most recent snapshot, for per-frame game loops.
//   - [Tracker.WaitForNewStateSet]: block until a snapshot with a new
//     timestamp arrives, for dedicated consumer threads.
//   - [Tracker.RegisterListener]: callbacks on a dispatch goroutine,
//     for event-driven consumers.
//
// Availability is a [gaze.ReceptionStatus], never an error: when the
// service is unreachable the tracker reports StatusNotReceiving and
// data access returns stale or invalid-marked snapshots. Timestamps
// are compared for inequality rather than order, so a service restart
// that rewinds the epoch still counts as new data.
//
// Timing — wait timeouts, reconnect backoff, keepalive, the auto-start
// timebox — runs on an injected [clock.Clock], so tests drive all of
// it deterministically with a fake.
package tracker
