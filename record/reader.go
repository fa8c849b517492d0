// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/gazewire/gazewire/lib/codec"
)

// ReaderOption configures a Reader.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	identities []age.Identity
}

// WithIdentities supplies age identities for reading an encrypted
// recording.
func WithIdentities(identities ...age.Identity) ReaderOption {
	return func(cfg *readerConfig) {
		cfg.identities = append(cfg.identities, identities...)
	}
}

// Reader reads one recording stream, verifying the trailer digest at
// end of stream.
type Reader struct {
	zstd    *zstd.Decoder
	decoder *codec.Decoder
	hash    *blake3.Hasher
	info    Info
	events  uint64
	done    bool
}

// NewReader opens a recording on r and reads its header.
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	var cfg readerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	source := r
	if len(cfg.identities) > 0 {
		decrypted, err := age.Decrypt(r, cfg.identities...)
		if err != nil {
			return nil, fmt.Errorf("opening age stream: %w", err)
		}
		source = decrypted
	}

	decoder, err := zstd.NewReader(source)
	if err != nil {
		return nil, fmt.Errorf("opening zstd stream: %w", err)
	}

	reader := &Reader{
		zstd:    decoder,
		decoder: codec.NewDecoder(decoder),
		hash:    blake3.New(),
	}

	var raw codec.RawMessage
	if err := reader.decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	reader.hash.Write(raw)

	var header headerRecord
	if err := codec.Unmarshal(raw, &header); err != nil {
		return nil, fmt.Errorf("decoding header: %w", err)
	}
	if header.Kind != kindHeader || header.Magic != Magic {
		return nil, fmt.Errorf("not a GazeWire recording (magic %q)", header.Magic)
	}
	if header.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported recording format version %d", header.Version)
	}
	reader.info = Info{
		ID:             header.ID,
		Client:         header.Client,
		ServiceVersion: header.ServiceVersion,
		StartedAt:      time.UnixMilli(header.StartedAtMilli).UTC(),
	}
	return reader, nil
}

// Info returns the header of the recording.
func (r *Reader) Info() Info { return r.info }

// Next returns the next event. It returns io.EOF after the trailer
// has been read and verified, and ErrDigestMismatch when the trailer
// disagrees with the records actually read.
func (r *Reader) Next() (Event, error) {
	if r.done {
		return Event{}, io.EOF
	}

	var raw codec.RawMessage
	if err := r.decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return Event{}, fmt.Errorf("recording truncated: no trailer")
		}
		return Event{}, fmt.Errorf("reading record: %w", err)
	}

	var probe kindProbe
	if err := codec.Unmarshal(raw, &probe); err != nil {
		return Event{}, fmt.Errorf("decoding record: %w", err)
	}

	if probe.Kind == kindTrailer {
		r.done = true
		var trailer trailerRecord
		if err := codec.Unmarshal(raw, &trailer); err != nil {
			return Event{}, fmt.Errorf("decoding trailer: %w", err)
		}
		digest := hex.EncodeToString(r.hash.Sum(nil))
		if trailer.Events != r.events || trailer.Digest != digest {
			return Event{}, ErrDigestMismatch
		}
		return Event{}, io.EOF
	}

	r.hash.Write(raw)
	r.events++

	var rec eventRecord
	if err := codec.Unmarshal(raw, &rec); err != nil {
		return Event{}, fmt.Errorf("decoding event: %w", err)
	}
	event := Event{Kind: EventKind(rec.Kind), Timestamp: rec.Timestamp}
	switch event.Kind {
	case EventState:
		if rec.State == nil {
			return Event{}, fmt.Errorf("state event without snapshot")
		}
		event.State = *rec.State
	case EventStatus:
		if rec.Status == nil {
			return Event{}, fmt.Errorf("status event without status")
		}
		event.Status = *rec.Status
	default:
		return Event{}, fmt.Errorf("unknown event kind %q", rec.Kind)
	}
	return event, nil
}

// Close releases the decompressor. It does not close the underlying
// reader.
func (r *Reader) Close() {
	r.zstd.Close()
}
