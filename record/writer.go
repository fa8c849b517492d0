// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/hex"
	"fmt"
	"io"

	"filippo.io/age"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/lib/codec"
)

// WriterOption configures a Writer.
type WriterOption func(*writerConfig)

type writerConfig struct {
	recipients []age.Recipient
}

// WithRecipients encrypts the recording to the given age recipients.
// Reading it back requires a matching identity via [WithIdentities].
func WithRecipients(recipients ...age.Recipient) WriterOption {
	return func(cfg *writerConfig) {
		cfg.recipients = append(cfg.recipients, recipients...)
	}
}

// Writer writes one recording stream. Not safe for concurrent use;
// capture loops are single-goroutine by construction.
type Writer struct {
	ageWriter io.WriteCloser // nil when unencrypted
	zstd      *zstd.Encoder
	hash      *blake3.Hasher
	encoder   *codec.Encoder
	events    uint64
	closed    bool
	digest    string
}

// NewWriter starts a recording on w, writing the header immediately.
// The caller owns w and closes it after [Writer.Close].
func NewWriter(w io.Writer, info Info, opts ...WriterOption) (*Writer, error) {
	var cfg writerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	sink := w
	var ageWriter io.WriteCloser
	if len(cfg.recipients) > 0 {
		var err error
		ageWriter, err = age.Encrypt(w, cfg.recipients...)
		if err != nil {
			return nil, fmt.Errorf("starting age encryption: %w", err)
		}
		sink = ageWriter
	}

	encoder, err := zstd.NewWriter(sink)
	if err != nil {
		return nil, fmt.Errorf("starting zstd stream: %w", err)
	}

	writer := &Writer{
		ageWriter: ageWriter,
		zstd:      encoder,
		hash:      blake3.New(),
	}
	writer.encoder = codec.NewEncoder(io.MultiWriter(writer.hash, writer.zstd))
	err = writer.writeRecord(headerRecord{
		Kind:           kindHeader,
		Magic:          Magic,
		Version:        FormatVersion,
		ID:             info.ID,
		Client:         info.Client,
		ServiceVersion: info.ServiceVersion,
		StartedAtMilli: info.StartedAt.UnixMilli(),
	})
	if err != nil {
		return nil, err
	}
	return writer, nil
}

// WriteState appends a snapshot event.
func (w *Writer) WriteState(state gaze.StateSet) error {
	if w.closed {
		return fmt.Errorf("recording already closed")
	}
	if err := w.writeRecord(eventRecord{
		Kind:      string(EventState),
		Timestamp: state.Timestamp,
		State:     &state,
	}); err != nil {
		return err
	}
	w.events++
	return nil
}

// WriteStatus appends a reception status change at the given
// capture-relative time.
func (w *Writer) WriteStatus(timestamp gaze.Timestamp, status gaze.ReceptionStatus) error {
	if w.closed {
		return fmt.Errorf("recording already closed")
	}
	if err := w.writeRecord(eventRecord{
		Kind:      string(EventStatus),
		Timestamp: timestamp,
		Status:    &status,
	}); err != nil {
		return err
	}
	w.events++
	return nil
}

// Events returns the number of events written so far.
func (w *Writer) Events() uint64 { return w.events }

// Digest returns the recording's integrity digest. Empty until Close.
func (w *Writer) Digest() string { return w.digest }

// Close writes the trailer and flushes the compression and encryption
// layers. The underlying writer is left open for the caller.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	w.digest = hex.EncodeToString(w.hash.Sum(nil))
	trailer := trailerRecord{
		Kind:   kindTrailer,
		Events: w.events,
		Digest: w.digest,
	}
	// The trailer goes straight to the compressor: it carries the
	// digest and cannot cover its own bytes.
	data, err := codec.Marshal(trailer)
	if err != nil {
		return fmt.Errorf("encoding trailer: %w", err)
	}
	if _, err := w.zstd.Write(data); err != nil {
		return fmt.Errorf("writing trailer: %w", err)
	}
	if err := w.zstd.Close(); err != nil {
		return fmt.Errorf("closing zstd stream: %w", err)
	}
	if w.ageWriter != nil {
		if err := w.ageWriter.Close(); err != nil {
			return fmt.Errorf("closing age stream: %w", err)
		}
	}
	return nil
}

// writeRecord streams one record through the digest and the
// compressor. The digest covers uncompressed record bytes, so it
// survives recompression and catches corruption the zstd checksum
// window misses.
func (w *Writer) writeRecord(record any) error {
	if err := w.encoder.Encode(record); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	return nil
}
