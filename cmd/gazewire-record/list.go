// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/gazewire/gazewire/record"
)

// listRecordings prints the catalog, newest first.
func listRecordings(ctx context.Context, dir string) error {
	catalog, err := record.OpenCatalog(catalogPath(dir), slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer catalog.Close()

	entries, err := catalog.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("no recordings")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCLIENT\tSTARTED\tDURATION\tEVENTS\tSIZE")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			e.ID, e.Client,
			humanize.Time(e.StartedAt),
			e.Duration.Round(100*time.Millisecond),
			e.Events,
			humanize.Bytes(uint64(e.Bytes)))
	}
	return w.Flush()
}

// verifyRecording reads a recording end to end, which re-hashes every
// record and checks the trailer digest and event count.
func verifyRecording(path, identityPath string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening recording: %w", err)
	}
	defer f.Close()

	var opts []record.ReaderOption
	if identityPath != "" {
		identities, err := record.LoadIdentities(identityPath)
		if err != nil {
			return err
		}
		opts = append(opts, record.WithIdentities(identities...))
	}
	reader, err := record.NewReader(f, opts...)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	defer reader.Close()

	info := reader.Info()
	states, statuses := 0, 0
	for {
		ev, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("verifying %s: %w", path, err)
		}
		switch ev.Kind {
		case record.EventState:
			states++
		case record.EventStatus:
			statuses++
		}
	}

	fmt.Printf("recording %s verified\n", info.ID)
	fmt.Printf("  client:  %s\n", info.Client)
	fmt.Printf("  started: %s\n", info.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Printf("  events:  %d snapshots, %d status changes\n", states, statuses)
	return nil
}

// removeRecording drops a catalog entry. The recording file itself is
// left in place.
func removeRecording(ctx context.Context, dir, id string) error {
	catalog, err := record.OpenCatalog(catalogPath(dir), slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer catalog.Close()
	if err := catalog.Remove(ctx, id); err != nil {
		return err
	}
	fmt.Printf("removed %s from the catalog\n", id)
	return nil
}
