// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides GazeWire's standard CBOR encoding configuration.
//
// GazeWire uses two serialization formats with a clear boundary:
//
//   - JSON for human-facing surfaces: the wire handshake (hello and
//     welcome frames), YAML/JSONC configuration, and CLI output.
//   - CBOR for the steady state: state-update, status, and command
//     frame payloads, and session recording streams.
//
// This package provides the shared CBOR encoding and decoding modes so
// that every GazeWire package encodes identically without duplicating
// configuration. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. Same logical data always produces identical
// bytes — which is what lets a recording's integrity digest be computed
// over re-encoded records.
//
// For buffer-oriented operations (frame payloads):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (recording files):
//
//	encoder := codec.NewEncoder(w)
//	decoder := codec.NewDecoder(r)
//
// # Struct Tag Rules
//
// The struct tag on a type documents its serialization format:
//
//   - `cbor` tag: this type is ONLY ever serialized as CBOR. Examples:
//     command and status frame payloads, recording records.
//   - `json` tag: this type may be serialized as BOTH JSON and CBOR.
//     fxamacker/cbor v2 reads `json` tags as fallback when `cbor`
//     tags are absent, so a single `json` tag controls field naming
//     and omitempty for both formats. Examples: handshake payload
//     types, viewport geometry (handshake JSON and command CBOR).
//
// Never use both `cbor` and `json` tags on the same field. The tag
// choice documents the contract — doubling up is noise that obscures
// whether a type participates in JSON serialization.
package codec
