// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package wire implements the framed binary protocol spoken between a
// GazeWire client and a tracking service over any stream transport.
//
// Every message on the stream is a frame:
//
//	[1 byte type] [1 byte flags] [4 bytes payload length, big-endian] [payload]
//
// The conversation opens with a JSON handshake — the client sends
// [FrameHello] carrying a [HelloPayload], the service answers
// [FrameWelcome] carrying a [WelcomePayload] — and then switches to
// CBOR payloads for the steady state: [FrameStateUpdate] snapshots
// flowing service to client, [FrameCommand]/[FrameCommandAck] control
// flowing the other way, [FrameStatus] for service-driven reception
// changes, and [FramePing]/[FramePong] keepalives.
//
// Handshake frames are always uncompressed. After the handshake has
// negotiated it, either side may set [FlagCompressed] on a frame to
// LZ4-block-compress its payload; [Frame.Data] transparently restores
// the plain bytes.
//
// Faults on the stream are reported as [*ProtocolError] values so the
// session layer can log the failing operation and reconnect without
// surfacing an error to data-access callers.
package wire
