// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/record"
	"github.com/gazewire/gazewire/tracker"
	"github.com/gazewire/gazewire/transport"
)

// capture connects as a tracker listener and writes every event to a
// new recording file until the context is cancelled or the configured
// duration elapses. The finished recording is added to the catalog.
func capture(ctx context.Context, opts options) error {
	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	if opts.endpoint != "" {
		cfg.Endpoint = opts.endpoint
	}
	logger, err := newLogger(opts.logLevel)
	if err != nil {
		return err
	}

	var writerOpts []record.WriterOption
	if len(opts.encryptTo) > 0 {
		recipients, err := record.ParseRecipients(opts.encryptTo)
		if err != nil {
			return err
		}
		writerOpts = append(writerOpts, record.WithRecipients(recipients...))
	}

	if err := os.MkdirAll(opts.dir, 0o755); err != nil {
		return fmt.Errorf("creating recordings directory: %w", err)
	}

	info := record.Info{
		ID:        uuid.NewString(),
		Client:    opts.clientName,
		StartedAt: time.Now(),
	}
	path := filepath.Join(opts.dir, info.ID+".gwr")
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating recording file: %w", err)
	}
	defer file.Close()

	tr, err := tracker.New(opts.clientName, cfg.Viewport.Geometry(),
		tracker.WithDialer(&transport.TCPDialer{Address: cfg.Endpoint}),
		tracker.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating tracker: %w", err)
	}
	defer tr.Close()

	// The service version is only known once a session is
	// established, which is after the header was written; the catalog
	// entry records everything else.
	writer, err := record.NewWriter(file, info, writerOpts...)
	if err != nil {
		return err
	}

	capt := &capturer{writer: writer}
	handle, err := tr.RegisterListener(capt)
	if err != nil {
		return fmt.Errorf("registering listener: %w", err)
	}

	if opts.autoStart {
		if err := tr.AttemptStart(); err != nil {
			return fmt.Errorf("attempt start: %w", err)
		}
	}

	fmt.Fprintf(os.Stderr, "recording %s to %s (interrupt to stop)\n", info.ID, path)
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}
	<-ctx.Done()

	tr.UnregisterListener(handle)
	if err := capt.err(); err != nil {
		return fmt.Errorf("writing events: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finishing recording: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("closing recording file: %w", err)
	}

	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	entry := record.Entry{
		ID:        info.ID,
		Path:      path,
		Client:    info.Client,
		StartedAt: info.StartedAt,
		Duration:  time.Since(info.StartedAt),
		Events:    int64(writer.Events()),
		Bytes:     stat.Size(),
		Digest:    writer.Digest(),
	}

	catalog, err := record.OpenCatalog(catalogPath(opts.dir), logger)
	if err != nil {
		return err
	}
	defer catalog.Close()
	if err := catalog.Add(context.Background(), entry); err != nil {
		return fmt.Errorf("cataloging recording: %w", err)
	}

	fmt.Fprintf(os.Stderr, "recorded %d events (%d bytes)\n", entry.Events, entry.Bytes)
	return nil
}

// capturer is the tracker listener that feeds the recording writer.
// Callbacks arrive on the dispatcher goroutine; the mutex guards
// against the final error read racing a late delivery.
type capturer struct {
	mu      sync.Mutex
	writer  *record.Writer
	lastTS  gaze.Timestamp
	failure error
}

func (c *capturer) OnStateSet(state gaze.StateSet, timestamp gaze.Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure != nil {
		return
	}
	c.lastTS = timestamp
	c.failure = c.writer.WriteState(state)
}

func (c *capturer) OnStatusChanged(status gaze.ReceptionStatus) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure != nil {
		return
	}
	c.failure = c.writer.WriteStatus(c.lastTS, status)
}

func (c *capturer) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}
