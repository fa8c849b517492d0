// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Gazewire-sim is a synthetic tracking service daemon. It speaks the
// full GazeWire wire protocol, streaming a deterministic seed-derived
// signal (or a replayed recording) to every client, so trackers and
// tools can be developed and tested without tracking hardware.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/gazewire/gazewire/lib/process"
	"github.com/gazewire/gazewire/lib/version"
	"github.com/gazewire/gazewire/record"
	"github.com/gazewire/gazewire/sim"
	"github.com/gazewire/gazewire/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		listen      string
		rate        float64
		paused      bool
		replayPath  string
		identity    string
		seed        int64
		logLevel    string
		showVersion bool
	)
	flag.StringVar(&listen, "listen", transport.DefaultAddress, "address to listen on")
	flag.Float64Var(&rate, "rate", sim.DefaultRate, "snapshot rate in updates per second")
	flag.BoolVar(&paused, "paused", false, "start sessions paused until an attempt-start command")
	flag.StringVar(&replayPath, "replay", "", "replay a recorded session file instead of generating")
	flag.StringVar(&identity, "identity", "", "age identity file for an encrypted replay recording")
	flag.Int64Var(&seed, "seed", 1, "generator seed")
	flag.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	flag.BoolVar(&showVersion, "version", false, "print version information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println("gazewire-sim", version.Info())
		return nil
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", listen, err)
	}
	logger.Info("listening", "address", ln.Addr().String(), "rate", rate, "paused", paused)

	svc := sim.New(sim.Config{
		Rate:        rate,
		StartPaused: paused,
		Seed:        seed,
		Logger:      logger,
	})

	if replayPath != "" {
		reader, err := openRecording(replayPath, identity)
		if err != nil {
			return err
		}
		defer reader.Close()
		logger.Info("replaying recording", "path", replayPath, "client", reader.Info().Client)
		return svc.ServeRecording(ctx, ln, reader)
	}
	return svc.Serve(ctx, ln)
}

func openRecording(path, identityPath string) (*record.Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening recording: %w", err)
	}
	var opts []record.ReaderOption
	if identityPath != "" {
		identities, err := record.LoadIdentities(identityPath)
		if err != nil {
			f.Close()
			return nil, err
		}
		opts = append(opts, record.WithIdentities(identities...))
	}
	reader, err := record.NewReader(f, opts...)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return reader, nil
}
