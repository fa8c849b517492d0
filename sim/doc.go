// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package sim implements a synthetic tracking service: a stand-in for
// real tracking hardware that speaks the full wire protocol and
// streams a deterministic, seed-derived signal.
//
// [Generator] synthesizes the signal itself; [Service] serves it over
// a listener, handling the handshake, compression negotiation, pacing,
// and control commands. [Service.ServeRecording] replays a captured
// session instead of generating one.
//
// The sim exists for development and testing: anything built against
// the tracker works unchanged against it, with no cameras, consent
// prompts, or timing flakiness involved.
package sim
