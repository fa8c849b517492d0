// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/gazewire/gazewire/gaze"
)

func TestWriteReadFrameRoundTrip(t *testing.T) {
	t.Parallel()
	frames := []Frame{
		{Type: FrameHello, Payload: []byte(`{"protocol":1}`)},
		{Type: FrameStateUpdate, Payload: []byte{0xa1, 0x61, 0x78, 0x01}},
		NewPingFrame(),
		NewPongFrame(),
	}

	var buffer bytes.Buffer
	for _, frame := range frames {
		if err := WriteFrame(&buffer, frame); err != nil {
			t.Fatalf("WriteFrame: %v", err)
		}
	}

	for index, want := range frames {
		got, err := ReadFrame(&buffer)
		if err != nil {
			t.Fatalf("ReadFrame[%d]: %v", index, err)
		}
		if got.Type != want.Type || got.Flags != want.Flags || !bytes.Equal(got.Payload, want.Payload) {
			t.Errorf("frame[%d]: got %+v, want %+v", index, got, want)
		}
	}

	if _, err := ReadFrame(&buffer); err != io.EOF {
		t.Errorf("read past last frame: got %v, want io.EOF", err)
	}
}

func TestReadFrameOversizedPayload(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	// Header claiming 1 MiB + 1 payload bytes.
	buffer.Write([]byte{FrameStateUpdate, 0, 0x00, 0x10, 0x00, 0x01})

	_, err := ReadFrame(&buffer)
	if err == nil {
		t.Fatal("expected error for oversized payload")
	}
	if !IsProtocolError(err) {
		t.Errorf("got %T, want *ProtocolError", err)
	}
}

func TestReadFrameTruncatedPayload(t *testing.T) {
	t.Parallel()
	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, Frame{Type: FrameStatus, Payload: []byte("abcdef")}); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	truncated := bytes.NewReader(buffer.Bytes()[:buffer.Len()-2])

	_, err := ReadFrame(truncated)
	if !IsProtocolError(err) {
		t.Errorf("truncated payload: got %v, want *ProtocolError", err)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	t.Parallel()
	plain := Frame{Type: FrameStateUpdate, Payload: []byte(strings.Repeat("tracking state bytes ", 64))}

	compressed := plain.Compress()
	if compressed.Flags&FlagCompressed == 0 {
		t.Fatal("repetitive payload did not compress")
	}
	if len(compressed.Payload) >= len(plain.Payload) {
		t.Fatalf("compressed payload is %d bytes, plain is %d", len(compressed.Payload), len(plain.Payload))
	}

	data, err := compressed.Data()
	if err != nil {
		t.Fatalf("Data: %v", err)
	}
	if !bytes.Equal(data, plain.Payload) {
		t.Error("decompressed payload differs from original")
	}
}

func TestCompressIncompressiblePayloadStaysPlain(t *testing.T) {
	t.Parallel()
	// High-entropy bytes: LZ4 cannot shrink them.
	payload := make([]byte, 256)
	seed := uint32(0x9e3779b9)
	for index := range payload {
		seed = seed*1664525 + 1013904223
		payload[index] = byte(seed >> 24)
	}

	frame := Frame{Type: FrameStateUpdate, Payload: payload}
	compressed := frame.Compress()
	if compressed.Flags&FlagCompressed != 0 {
		t.Error("incompressible payload was marked compressed")
	}
	if !bytes.Equal(compressed.Payload, payload) {
		t.Error("incompressible payload was modified")
	}
}

func TestDataCorruptSizePrefix(t *testing.T) {
	t.Parallel()
	frame := Frame{Type: FrameStateUpdate, Payload: []byte(strings.Repeat("x", 512))}.Compress()
	if frame.Flags&FlagCompressed == 0 {
		t.Fatal("payload did not compress")
	}

	// Overwrite the uvarint prefix with a continuation byte run so the
	// decoded size is garbage.
	frame.Payload[0] = 0xff
	frame.Payload[1] = 0xff
	if _, err := frame.Data(); err == nil {
		t.Fatal("expected error for corrupt size prefix")
	}
}

func TestStateUpdateFrameCompressedRoundTrip(t *testing.T) {
	t.Parallel()
	state := gaze.InvalidStateSet()
	state.Timestamp = 42.5
	state.User.Timestamp = 42.5
	state.User.ScreenGaze = gaze.ScreenGaze{
		Confidence:             gaze.ConfidenceHigh,
		PointOfRegard:          gaze.Point{X: 960, Y: 540},
		UnboundedPointOfRegard: gaze.Point{X: 960, Y: 540},
	}

	frame, err := NewStateUpdateFrame(state, true)
	if err != nil {
		t.Fatalf("NewStateUpdateFrame: %v", err)
	}

	var buffer bytes.Buffer
	if err := WriteFrame(&buffer, frame); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	read, err := ReadFrame(&buffer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	got, err := ParseStateUpdatePayload(read)
	if err != nil {
		t.Fatalf("ParseStateUpdatePayload: %v", err)
	}
	if got != state {
		t.Errorf("state round trip: got %+v, want %+v", got, state)
	}
}
