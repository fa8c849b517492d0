// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"fmt"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/lib/codec"
)

// Command operations a client may send after the handshake.
const (
	// OpAttemptStart asks the service to begin tracking (webcam
	// activation, consent prompt — opaque to the client).
	OpAttemptStart = "attempt-start"

	// OpUpdateViewport replaces the viewport geometry the service maps
	// viewport gaze against. Carries Command.Viewport.
	OpUpdateViewport = "update-viewport"

	// OpRecenterStart and OpRecenterEnd bracket a recentering gesture:
	// the service rebases the sim camera components' zero point to the
	// user's pose while the bracket is open.
	OpRecenterStart = "recenter-start"
	OpRecenterEnd   = "recenter-end"
)

// Command is the CBOR payload of a [FrameCommand].
type Command struct {
	// Op is one of the Op* constants.
	Op string `cbor:"op"`

	// Viewport accompanies OpUpdateViewport and is nil otherwise.
	Viewport *gaze.ViewportGeometry `cbor:"viewport,omitempty"`
}

// CommandAck is the CBOR payload of a [FrameCommandAck].
type CommandAck struct {
	// Op names the command being acknowledged.
	Op string `cbor:"op"`

	// OK reports whether the service accepted the command.
	OK bool `cbor:"ok"`

	// Detail explains a refusal. Empty on success.
	Detail string `cbor:"detail,omitempty"`
}

// StatusPayload is the CBOR payload of a [FrameStatus]: the reception
// status the service believes applies (for example paused versus
// streaming).
type StatusPayload struct {
	Status gaze.ReceptionStatus `cbor:"status"`
}

// NewStateUpdateFrame encodes a snapshot as a state-update frame.
// When compress is true the payload is LZ4-compressed if that makes it
// smaller.
func NewStateUpdateFrame(state gaze.StateSet, compress bool) (Frame, error) {
	data, err := codec.Marshal(state)
	if err != nil {
		return Frame{}, &ProtocolError{Op: "encode", Detail: "state update", Err: err}
	}
	frame := Frame{Type: FrameStateUpdate, Payload: data}
	if compress {
		frame = frame.Compress()
	}
	return frame, nil
}

// ParseStateUpdatePayload decodes a state-update frame, decompressing
// if needed.
func ParseStateUpdatePayload(frame Frame) (gaze.StateSet, error) {
	if frame.Type != FrameStateUpdate {
		return gaze.StateSet{}, &ProtocolError{Op: "decode", Detail: fmt.Sprintf("expected state-update frame, got type %d", frame.Type)}
	}
	data, err := frame.Data()
	if err != nil {
		return gaze.StateSet{}, err
	}
	var state gaze.StateSet
	if err := codec.Unmarshal(data, &state); err != nil {
		return gaze.StateSet{}, &ProtocolError{Op: "decode", Detail: "state update", Err: err}
	}
	return state, nil
}

// NewStatusFrame encodes a reception status change.
func NewStatusFrame(status gaze.ReceptionStatus) (Frame, error) {
	data, err := codec.Marshal(StatusPayload{Status: status})
	if err != nil {
		return Frame{}, &ProtocolError{Op: "encode", Detail: "status", Err: err}
	}
	return Frame{Type: FrameStatus, Payload: data}, nil
}

// ParseStatusPayload decodes a status frame.
func ParseStatusPayload(frame Frame) (StatusPayload, error) {
	if frame.Type != FrameStatus {
		return StatusPayload{}, &ProtocolError{Op: "decode", Detail: fmt.Sprintf("expected status frame, got type %d", frame.Type)}
	}
	data, err := frame.Data()
	if err != nil {
		return StatusPayload{}, err
	}
	var payload StatusPayload
	if err := codec.Unmarshal(data, &payload); err != nil {
		return StatusPayload{}, &ProtocolError{Op: "decode", Detail: "status", Err: err}
	}
	return payload, nil
}

// NewCommandFrame encodes a control command.
func NewCommandFrame(command Command) (Frame, error) {
	data, err := codec.Marshal(command)
	if err != nil {
		return Frame{}, &ProtocolError{Op: "encode", Detail: "command", Err: err}
	}
	return Frame{Type: FrameCommand, Payload: data}, nil
}

// ParseCommandPayload decodes a command frame.
func ParseCommandPayload(frame Frame) (Command, error) {
	if frame.Type != FrameCommand {
		return Command{}, &ProtocolError{Op: "decode", Detail: fmt.Sprintf("expected command frame, got type %d", frame.Type)}
	}
	data, err := frame.Data()
	if err != nil {
		return Command{}, err
	}
	var command Command
	if err := codec.Unmarshal(data, &command); err != nil {
		return Command{}, &ProtocolError{Op: "decode", Detail: "command", Err: err}
	}
	return command, nil
}

// NewCommandAckFrame encodes a command acknowledgement.
func NewCommandAckFrame(ack CommandAck) (Frame, error) {
	data, err := codec.Marshal(ack)
	if err != nil {
		return Frame{}, &ProtocolError{Op: "encode", Detail: "command ack", Err: err}
	}
	return Frame{Type: FrameCommandAck, Payload: data}, nil
}

// ParseCommandAckPayload decodes a command acknowledgement frame.
func ParseCommandAckPayload(frame Frame) (CommandAck, error) {
	if frame.Type != FrameCommandAck {
		return CommandAck{}, &ProtocolError{Op: "decode", Detail: fmt.Sprintf("expected command-ack frame, got type %d", frame.Type)}
	}
	data, err := frame.Data()
	if err != nil {
		return CommandAck{}, err
	}
	var ack CommandAck
	if err := codec.Unmarshal(data, &ack); err != nil {
		return CommandAck{}, &ProtocolError{Op: "decode", Detail: "command ack", Err: err}
	}
	return ack, nil
}
