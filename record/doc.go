// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package record reads and writes GazeWire session recordings.
//
// A recording is a zstd-compressed stream of deterministic CBOR
// records: a header identifying the recording, one record per captured
// event (a snapshot or a reception status change), and a trailer
// carrying the event count and a BLAKE3 digest of every preceding
// record's uncompressed bytes. The [Writer] computes the digest as it
// goes; the [Reader] verifies it at end of stream and fails with
// [ErrDigestMismatch] on corruption.
//
// Recordings can be encrypted at rest with age: pass
// [WithRecipients] when writing and [WithIdentities] when reading.
//
// [Catalog] indexes recordings in a SQLite database so tools can list
// and prune them without re-reading every file. The catalog is a
// cache: the recording files remain the source of truth.
package record
