// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package record

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testEntry(id string, started time.Time) Entry {
	return Entry{
		ID:        id,
		Path:      "/recordings/" + id + ".gwr",
		Client:    "capture-test",
		StartedAt: started,
		Duration:  90 * time.Second,
		Events:    5400,
		Bytes:     262144,
		Digest:    "aabbccdd",
	}
}

func TestCatalog(t *testing.T) {
	t.Parallel()
	catalog, err := OpenCatalog(filepath.Join(t.TempDir(), "catalog.db"), nil)
	if err != nil {
		t.Fatalf("OpenCatalog: %v", err)
	}
	defer catalog.Close()

	ctx := context.Background()
	older := time.UnixMilli(1700000000000).UTC()
	newer := older.Add(time.Hour)

	if err := catalog.Add(ctx, testEntry("rec-1", older)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := catalog.Add(ctx, testEntry("rec-2", newer)); err != nil {
		t.Fatalf("Add: %v", err)
	}

	entries, err := catalog.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	// Newest first.
	if entries[0].ID != "rec-2" || entries[1].ID != "rec-1" {
		t.Errorf("order = [%s %s], want [rec-2 rec-1]", entries[0].ID, entries[1].ID)
	}
	if entries[1] != testEntry("rec-1", older) {
		t.Errorf("entry = %+v, want %+v", entries[1], testEntry("rec-1", older))
	}

	// Re-adding the same id replaces, not duplicates.
	updated := testEntry("rec-2", newer)
	updated.Events = 9999
	if err := catalog.Add(ctx, updated); err != nil {
		t.Fatalf("Add (replace): %v", err)
	}
	entries, err = catalog.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 || entries[0].Events != 9999 {
		t.Errorf("replace produced %d entries, first events = %d", len(entries), entries[0].Events)
	}

	if err := catalog.Remove(ctx, "rec-1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := catalog.Remove(ctx, "rec-absent"); err != nil {
		t.Fatalf("Remove absent: %v", err)
	}
	entries, err = catalog.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "rec-2" {
		t.Errorf("after remove: %+v", entries)
	}
}
