// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/gazewire/gazewire/gaze"
)

// ProtocolVersion is the current wire protocol version. A service
// refuses hellos carrying a different version.
const ProtocolVersion uint32 = 1

// MaxClientNameBytes bounds the client name in a hello. The limit is
// enforced on both sides: the client fails construction before
// dialing, the service rejects the hello.
const MaxClientNameBytes = 200

// CompressionLZ4 is the name under which LZ4 block compression is
// offered and selected during the handshake.
const CompressionLZ4 = "lz4"

// CompressionNone is the implicit fallback when no offered compression
// is acceptable.
const CompressionNone = "none"

// HelloPayload is the JSON payload of a [FrameHello]. The handshake is
// JSON rather than CBOR so a captured stream opens with something a
// human can read when debugging version mismatches.
type HelloPayload struct {
	// Protocol is the client's wire protocol version.
	Protocol uint32 `json:"protocol"`

	// ClientName identifies the consuming process to the service, for
	// display in its consent and status UI. UTF-8, at most
	// MaxClientNameBytes bytes.
	ClientName string `json:"client_name"`

	// Viewport is the client's initial viewport geometry. The service
	// maps viewport gaze against it until an update-viewport command
	// replaces it.
	Viewport gaze.ViewportGeometry `json:"viewport"`

	// Compression lists the payload compressions the client can
	// decode, in preference order. Absent or empty means plain frames
	// only.
	Compression []string `json:"compression,omitempty"`
}

// WelcomePayload is the JSON payload of a [FrameWelcome].
type WelcomePayload struct {
	// Protocol echoes the version the service will speak.
	Protocol uint32 `json:"protocol"`

	// ServiceVersion is the tracking service's own version.
	ServiceVersion gaze.Version `json:"service_version"`

	// Compression is the payload compression the service chose from
	// the hello's offer, or "none".
	Compression string `json:"compression"`

	// SessionID identifies this session in service-side logs.
	SessionID string `json:"session_id"`

	// Reject, when non-empty, is the reason the service refuses the
	// hello. The service closes the connection after sending a
	// rejecting welcome.
	Reject string `json:"reject,omitempty"`
}

// ValidateClientName checks the identity string a client presents in
// its hello: non-empty, valid UTF-8, at most MaxClientNameBytes bytes.
func ValidateClientName(name string) error {
	if name == "" {
		return fmt.Errorf("client name is empty")
	}
	if len(name) > MaxClientNameBytes {
		return fmt.Errorf("client name is %d bytes, maximum is %d", len(name), MaxClientNameBytes)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("client name is not valid UTF-8")
	}
	return nil
}

// NewHelloFrame creates a hello frame. The payload is validated before
// encoding.
func NewHelloFrame(payload HelloPayload) (Frame, error) {
	if err := ValidateClientName(payload.ClientName); err != nil {
		return Frame{}, &ProtocolError{Op: "handshake", Detail: "invalid hello", Err: err}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, &ProtocolError{Op: "handshake", Detail: "encoding hello", Err: err}
	}
	return Frame{Type: FrameHello, Payload: data}, nil
}

// ParseHelloPayload decodes and validates a hello frame. Compressed
// handshake frames are rejected: compression is only negotiable by the
// handshake itself.
func ParseHelloPayload(frame Frame) (HelloPayload, error) {
	if frame.Type != FrameHello {
		return HelloPayload{}, &ProtocolError{Op: "handshake", Detail: fmt.Sprintf("expected hello frame, got type %d", frame.Type)}
	}
	if frame.Flags&FlagCompressed != 0 {
		return HelloPayload{}, &ProtocolError{Op: "handshake", Detail: "hello frame must not be compressed"}
	}
	var payload HelloPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		return HelloPayload{}, &ProtocolError{Op: "handshake", Detail: "decoding hello", Err: err}
	}
	if err := ValidateClientName(payload.ClientName); err != nil {
		return HelloPayload{}, &ProtocolError{Op: "handshake", Detail: "invalid hello", Err: err}
	}
	return payload, nil
}

// NewWelcomeFrame creates a welcome frame.
func NewWelcomeFrame(payload WelcomePayload) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, &ProtocolError{Op: "handshake", Detail: "encoding welcome", Err: err}
	}
	return Frame{Type: FrameWelcome, Payload: data}, nil
}

// ParseWelcomePayload decodes a welcome frame.
func ParseWelcomePayload(frame Frame) (WelcomePayload, error) {
	if frame.Type != FrameWelcome {
		return WelcomePayload{}, &ProtocolError{Op: "handshake", Detail: fmt.Sprintf("expected welcome frame, got type %d", frame.Type)}
	}
	if frame.Flags&FlagCompressed != 0 {
		return WelcomePayload{}, &ProtocolError{Op: "handshake", Detail: "welcome frame must not be compressed"}
	}
	var payload WelcomePayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		return WelcomePayload{}, &ProtocolError{Op: "handshake", Detail: "decoding welcome", Err: err}
	}
	return payload, nil
}
