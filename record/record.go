// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"errors"
	"time"

	"github.com/gazewire/gazewire/gaze"
)

// Magic identifies a GazeWire recording stream, format version 1.
const Magic = "GWR1"

// FormatVersion is the current record format version.
const FormatVersion uint32 = 1

// ErrDigestMismatch is returned by [Reader.Next] when the trailer
// digest does not match the records actually read.
var ErrDigestMismatch = errors.New("recording digest mismatch")

// EventKind distinguishes the two captured event types.
type EventKind string

const (
	// EventState is a tracking snapshot.
	EventState EventKind = "state"

	// EventStatus is a reception status change.
	EventStatus EventKind = "status"
)

// Event is one captured moment of a session.
type Event struct {
	Kind EventKind

	// Timestamp is the snapshot timestamp for state events, or the
	// capture-relative time for status events.
	Timestamp gaze.Timestamp

	// State is set for EventState.
	State gaze.StateSet

	// Status is set for EventStatus.
	Status gaze.ReceptionStatus
}

// Info describes a recording, from its header record.
type Info struct {
	// ID is the recording's UUID.
	ID string

	// Client is the client name the recorded session presented.
	Client string

	// ServiceVersion is the version of the service that produced the
	// data.
	ServiceVersion gaze.Version

	// StartedAt is the wall time capture began.
	StartedAt time.Time
}

// On-disk record shapes. Every record carries a kind so a reader can
// dispatch without counting.
const (
	kindHeader  = "header"
	kindTrailer = "trailer"
)

type headerRecord struct {
	Kind           string       `cbor:"kind"`
	Magic          string       `cbor:"magic"`
	Version        uint32       `cbor:"version"`
	ID             string       `cbor:"id"`
	Client         string       `cbor:"client"`
	ServiceVersion gaze.Version `cbor:"service_version"`
	StartedAtMilli int64        `cbor:"started_at"`
}

type eventRecord struct {
	Kind      string                `cbor:"kind"`
	Timestamp gaze.Timestamp        `cbor:"timestamp"`
	State     *gaze.StateSet        `cbor:"state,omitempty"`
	Status    *gaze.ReceptionStatus `cbor:"status,omitempty"`
}

type trailerRecord struct {
	Kind   string `cbor:"kind"`
	Events uint64 `cbor:"events"`
	Digest string `cbor:"digest"`
}

// kindProbe decodes just enough of a record to dispatch on its kind.
type kindProbe struct {
	Kind string `cbor:"kind"`
}
