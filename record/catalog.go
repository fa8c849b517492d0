// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/gazewire/gazewire/lib/sqlitepool"
)

// Entry is one catalog row describing a recording on disk.
type Entry struct {
	// ID is the recording UUID from its header.
	ID string

	// Path is where the recording file lives.
	Path string

	// Client is the recorded session's client name.
	Client string

	// StartedAt is when capture began.
	StartedAt time.Time

	// Duration is the captured span.
	Duration time.Duration

	// Events is the event count from the trailer.
	Events int64

	// Bytes is the on-disk file size.
	Bytes int64

	// Digest is the trailer's BLAKE3 hex digest.
	Digest string
}

// Catalog is a SQLite index of recordings. It is a cache over the
// recording files: rebuildable, never the source of truth.
type Catalog struct {
	pool *sqlitepool.Pool
}

// OpenCatalog opens (creating if needed) the catalog database at path.
func OpenCatalog(path string, logger *slog.Logger) (*Catalog, error) {
	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     path,
		PoolSize: 1,
		Logger:   logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, `
				CREATE TABLE IF NOT EXISTS recordings (
					id          TEXT PRIMARY KEY,
					path        TEXT NOT NULL,
					client      TEXT NOT NULL,
					started_at  INTEGER NOT NULL,
					duration_ms INTEGER NOT NULL,
					events      INTEGER NOT NULL,
					bytes       INTEGER NOT NULL,
					digest      TEXT NOT NULL
				);
			`, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return &Catalog{pool: pool}, nil
}

// Add inserts or replaces an entry.
func (c *Catalog) Add(ctx context.Context, entry Entry) error {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer c.pool.Put(conn)

	return sqlitex.Execute(conn, `
		INSERT OR REPLACE INTO recordings
			(id, path, client, started_at, duration_ms, events, bytes, digest)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{
			Args: []any{
				entry.ID,
				entry.Path,
				entry.Client,
				entry.StartedAt.UnixMilli(),
				entry.Duration.Milliseconds(),
				entry.Events,
				entry.Bytes,
				entry.Digest,
			},
		})
}

// List returns all entries, newest first.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return nil, err
	}
	defer c.pool.Put(conn)

	var entries []Entry
	err = sqlitex.Execute(conn, `
		SELECT id, path, client, started_at, duration_ms, events, bytes, digest
		FROM recordings ORDER BY started_at DESC`,
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, Entry{
					ID:        stmt.ColumnText(0),
					Path:      stmt.ColumnText(1),
					Client:    stmt.ColumnText(2),
					StartedAt: time.UnixMilli(stmt.ColumnInt64(3)).UTC(),
					Duration:  time.Duration(stmt.ColumnInt64(4)) * time.Millisecond,
					Events:    stmt.ColumnInt64(5),
					Bytes:     stmt.ColumnInt64(6),
					Digest:    stmt.ColumnText(7),
				})
				return nil
			},
		})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Remove deletes an entry by id. Removing an absent id is a no-op.
func (c *Catalog) Remove(ctx context.Context, id string) error {
	conn, err := c.pool.Take(ctx)
	if err != nil {
		return err
	}
	defer c.pool.Put(conn)

	return sqlitex.Execute(conn, `DELETE FROM recordings WHERE id = ?`,
		&sqlitex.ExecOptions{Args: []any{id}})
}

// Close releases the database.
func (c *Catalog) Close() error {
	return c.pool.Close()
}
