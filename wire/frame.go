// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// Frame type constants. These values are protocol constants — changing
// them breaks wire compatibility.
const (
	// FrameHello opens the conversation. Client to service, exactly
	// once, JSON payload ([HelloPayload]). Never compressed.
	FrameHello byte = 1

	// FrameWelcome answers a hello. Service to client, exactly once,
	// JSON payload ([WelcomePayload]). Never compressed.
	FrameWelcome byte = 2

	// FrameStateUpdate carries one tracking snapshot as CBOR. Service
	// to client, continuous.
	FrameStateUpdate byte = 3

	// FrameStatus carries a service-driven reception status change as
	// CBOR ([StatusPayload]). Service to client.
	FrameStatus byte = 4

	// FrameCommand carries a control command as CBOR ([Command]).
	// Client to service.
	FrameCommand byte = 5

	// FrameCommandAck acknowledges a command as CBOR ([CommandAck]).
	// Service to client.
	FrameCommandAck byte = 6

	// FramePing and FramePong are empty keepalives. Either side pings;
	// the peer echoes a pong.
	FramePing byte = 7
	FramePong byte = 8
)

// FlagCompressed marks a payload as LZ4-block-compressed, prefixed
// with the uncompressed size as a uvarint. Only valid after the
// handshake has negotiated "lz4" compression; the handshake frames
// themselves are always plain.
const FlagCompressed byte = 0x01

// frameHeaderLength is the fixed size of a frame header: 1 byte type +
// 1 byte flags + 4 bytes payload length.
const frameHeaderLength = 6

// MaxPayloadLength is the maximum allowed payload size. A StateSet is
// a few hundred bytes; 1 MiB leaves room for protocol growth while
// bounding a malicious or corrupt length field.
const MaxPayloadLength = 1 << 20

// Frame is a single protocol frame. Payload holds the on-wire bytes:
// if FlagCompressed is set they are LZ4-compressed, and [Frame.Data]
// returns the plain form.
type Frame struct {
	Type    byte
	Flags   byte
	Payload []byte
}

// WriteFrame writes a framed message to w.
func WriteFrame(w io.Writer, frame Frame) error {
	if len(frame.Payload) > MaxPayloadLength {
		return &ProtocolError{Op: "write", Detail: fmt.Sprintf("payload length %d exceeds maximum %d", len(frame.Payload), MaxPayloadLength)}
	}
	var header [frameHeaderLength]byte
	header[0] = frame.Type
	header[1] = frame.Flags
	binary.BigEndian.PutUint32(header[2:6], uint32(len(frame.Payload)))
	if _, err := w.Write(header[:]); err != nil {
		return &ProtocolError{Op: "write", Detail: "frame header", Err: err}
	}
	if len(frame.Payload) > 0 {
		if _, err := w.Write(frame.Payload); err != nil {
			return &ProtocolError{Op: "write", Detail: "frame payload", Err: err}
		}
	}
	return nil
}

// ReadFrame reads one framed message from r. Returns a *ProtocolError
// if the stream is malformed or the payload exceeds MaxPayloadLength.
// An io.EOF from the underlying reader at a frame boundary is returned
// unwrapped so callers can distinguish clean close from corruption.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [frameHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		if err == io.EOF {
			return Frame{}, io.EOF
		}
		return Frame{}, &ProtocolError{Op: "read", Detail: "frame header", Err: err}
	}
	payloadLength := binary.BigEndian.Uint32(header[2:6])
	if payloadLength > MaxPayloadLength {
		return Frame{}, &ProtocolError{Op: "read", Detail: fmt.Sprintf("payload length %d exceeds maximum %d", payloadLength, MaxPayloadLength)}
	}
	frame := Frame{Type: header[0], Flags: header[1]}
	if payloadLength > 0 {
		frame.Payload = make([]byte, payloadLength)
		if _, err := io.ReadFull(r, frame.Payload); err != nil {
			return Frame{}, &ProtocolError{Op: "read", Detail: "frame payload", Err: err}
		}
	}
	return frame, nil
}

// Data returns the plain payload bytes, decompressing if
// FlagCompressed is set.
func (f Frame) Data() ([]byte, error) {
	if f.Flags&FlagCompressed == 0 {
		return f.Payload, nil
	}

	uncompressedSize, prefixLength := binary.Uvarint(f.Payload)
	if prefixLength <= 0 {
		return nil, &ProtocolError{Op: "decompress", Detail: "missing uncompressed size prefix"}
	}
	if uncompressedSize > MaxPayloadLength {
		return nil, &ProtocolError{Op: "decompress", Detail: fmt.Sprintf("uncompressed size %d exceeds maximum %d", uncompressedSize, MaxPayloadLength)}
	}

	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(f.Payload[prefixLength:], destination)
	if err != nil {
		return nil, &ProtocolError{Op: "decompress", Detail: "lz4 block", Err: err}
	}
	if read != int(uncompressedSize) {
		return nil, &ProtocolError{Op: "decompress", Detail: fmt.Sprintf("got %d bytes, expected %d", read, uncompressedSize)}
	}
	return destination, nil
}

// Compress returns a copy of the frame with its payload
// LZ4-block-compressed and FlagCompressed set. If the payload does not
// shrink (or is already compressed), the frame is returned unchanged —
// compression is an optimization, never a requirement.
func (f Frame) Compress() Frame {
	if f.Flags&FlagCompressed != 0 || len(f.Payload) == 0 {
		return f
	}

	prefix := binary.AppendUvarint(nil, uint64(len(f.Payload)))
	destination := make([]byte, len(prefix)+lz4.CompressBlockBound(len(f.Payload)))
	copy(destination, prefix)

	written, err := lz4.CompressBlock(f.Payload, destination[len(prefix):], nil)
	// CompressBlock returns 0 for incompressible data. Keep the plain
	// frame when compression buys nothing.
	if err != nil || written == 0 || len(prefix)+written >= len(f.Payload) {
		return f
	}

	return Frame{
		Type:    f.Type,
		Flags:   f.Flags | FlagCompressed,
		Payload: destination[:len(prefix)+written],
	}
}

// NewPingFrame creates an empty keepalive frame.
func NewPingFrame() Frame { return Frame{Type: FramePing} }

// NewPongFrame creates the echo for a ping.
func NewPongFrame() Frame { return Frame{Type: FramePong} }
