// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/lib/codec"
)

func testInfo() Info {
	return Info{
		ID:             "3f1d6cd2-4f2a-4a88-9c1e-6f2dd1a2b345",
		Client:         "capture-test",
		ServiceVersion: gaze.Version{Major: 1, Minor: 2, Patch: 3, Build: 4},
		StartedAt:      time.UnixMilli(1700000000000).UTC(),
	}
}

func sampleState(ts gaze.Timestamp) gaze.StateSet {
	state := gaze.InvalidStateSet()
	state.Timestamp = ts
	state.User.Timestamp = ts
	state.User.ScreenGaze.PointOfRegard = gaze.Point{X: 960, Y: 540}
	return state
}

func TestRecordingRoundTrip(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer

	writer, err := NewWriter(&buf, testInfo())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.WriteStatus(0, gaze.StatusReceiving); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}
	for i := range 10 {
		if err := writer.WriteState(sampleState(gaze.Timestamp(i) + 0.5)); err != nil {
			t.Fatalf("WriteState: %v", err)
		}
	}
	if err := writer.WriteStatus(11, gaze.StatusNotReceiving); err != nil {
		t.Fatalf("WriteStatus: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reader, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	if got := reader.Info(); got != testInfo() {
		t.Errorf("Info = %+v, want %+v", got, testInfo())
	}

	var events []Event
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		events = append(events, event)
	}
	if len(events) != 12 {
		t.Fatalf("read %d events, want 12", len(events))
	}
	if events[0].Kind != EventStatus || events[0].Status != gaze.StatusReceiving {
		t.Errorf("first event = %+v, want receiving status", events[0])
	}
	if events[5].Kind != EventState || events[5].State.Timestamp != 4.5 {
		t.Errorf("event 5 = %+v, want state at 4.5", events[5])
	}
	if events[11].Kind != EventStatus || events[11].Status != gaze.StatusNotReceiving {
		t.Errorf("last event = %+v, want not-receiving status", events[11])
	}
}

func TestRecordingEncrypted(t *testing.T) {
	t.Parallel()
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		t.Fatalf("generating identity: %v", err)
	}

	var buf bytes.Buffer
	writer, err := NewWriter(&buf, testInfo(), WithRecipients(identity.Recipient()))
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.WriteState(sampleState(1.0)); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Without the identity the stream is opaque.
	if _, err := NewReader(bytes.NewReader(buf.Bytes())); err == nil {
		t.Fatal("reading an encrypted recording without identities succeeded")
	}

	reader, err := NewReader(bytes.NewReader(buf.Bytes()), WithIdentities(identity))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	event, err := reader.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if event.Kind != EventState || event.State.Timestamp != 1.0 {
		t.Errorf("event = %+v, want state at 1.0", event)
	}
	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("after last event: %v, want io.EOF", err)
	}
}

func TestRecordingTruncated(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	writer, err := NewWriter(&buf, testInfo())
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}
	if err := writer.WriteState(sampleState(1.0)); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	// Flush the compressor but skip Close: no trailer is written.
	if err := writer.zstd.Close(); err != nil {
		t.Fatalf("flushing zstd: %v", err)
	}

	reader, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer reader.Close()

	if _, err := reader.Next(); err != nil {
		t.Fatalf("Next: %v", err)
	}
	_, err = reader.Next()
	if err == nil || errors.Is(err, io.EOF) {
		t.Errorf("truncated recording ended with %v, want explicit error", err)
	}
}

// tamperedRecording writes a stream whose trailer lies about its
// contents.
func tamperedRecording(t *testing.T, breakCount bool) []byte {
	t.Helper()
	var buf bytes.Buffer
	encoder, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("zstd writer: %v", err)
	}
	write := func(record any) {
		data, err := codec.Marshal(record)
		if err != nil {
			t.Fatalf("encoding: %v", err)
		}
		if _, err := encoder.Write(data); err != nil {
			t.Fatalf("writing: %v", err)
		}
	}

	info := testInfo()
	write(headerRecord{
		Kind:           kindHeader,
		Magic:          Magic,
		Version:        FormatVersion,
		ID:             info.ID,
		Client:         info.Client,
		ServiceVersion: info.ServiceVersion,
		StartedAtMilli: info.StartedAt.UnixMilli(),
	})
	state := sampleState(1.0)
	write(eventRecord{Kind: string(EventState), Timestamp: 1.0, State: &state})

	count := uint64(1)
	if breakCount {
		count = 2
	}
	write(trailerRecord{
		Kind:   kindTrailer,
		Events: count,
		Digest: "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff",
	})
	if err := encoder.Close(); err != nil {
		t.Fatalf("closing zstd: %v", err)
	}
	return buf.Bytes()
}

func TestRecordingDigestMismatch(t *testing.T) {
	t.Parallel()
	for _, breakCount := range []bool{false, true} {
		reader, err := NewReader(bytes.NewReader(tamperedRecording(t, breakCount)))
		if err != nil {
			t.Fatalf("NewReader: %v", err)
		}
		if _, err := reader.Next(); err != nil {
			t.Fatalf("Next: %v", err)
		}
		if _, err := reader.Next(); !errors.Is(err, ErrDigestMismatch) {
			t.Errorf("trailer verification: %v, want ErrDigestMismatch", err)
		}
		reader.Close()
	}
}
