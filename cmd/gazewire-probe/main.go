// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Gazewire-probe is a command-line client for poking at a tracking
// service. It connects as a tracker and prints gaze and head lines
// using one of the three access patterns: a blocking wait loop, a
// timeout-zero poll loop, or registered listener callbacks.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/lib/config"
	"github.com/gazewire/gazewire/lib/process"
	"github.com/gazewire/gazewire/lib/version"
	"github.com/gazewire/gazewire/tracker"
	"github.com/gazewire/gazewire/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		mode        string
		configPath  string
		endpoint    string
		clientName  string
		autoStart   bool
		logLevel    string
		showVersion bool
	)
	flags := pflag.NewFlagSet("gazewire-probe", pflag.ContinueOnError)
	flags.StringVar(&mode, "mode", "wait", "access pattern: wait, poll, or listen")
	flags.StringVar(&configPath, "config", "", "config file (default: $GAZEWIRE_CONFIG)")
	flags.StringVar(&endpoint, "endpoint", "", "service address (overrides config)")
	flags.StringVar(&clientName, "client", "gazewire-probe", "client name presented to the service")
	flags.BoolVar(&autoStart, "auto-start", false, "ask the service to start tracking and report transitions")
	flags.StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println("gazewire-probe", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("parsing log level: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	opts := []tracker.Option{
		tracker.WithDialer(&transport.TCPDialer{Address: cfg.Endpoint}),
		tracker.WithLogger(logger),
	}
	if len(cfg.AutoStartCommand) > 0 {
		opts = append(opts, tracker.WithAutoStartCommand(cfg.AutoStartCommand))
	}
	tr, err := tracker.New(clientName, cfg.Viewport.Geometry(), opts...)
	if err != nil {
		return fmt.Errorf("creating tracker: %w", err)
	}
	defer tr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	restore, err := watchKeys(cancel)
	if err != nil {
		return err
	}
	defer restore()

	printf("probing %s as %q (mode %s, q or esc quits)", cfg.Endpoint, clientName, mode)

	if autoStart {
		if err := attemptStart(ctx, tr); err != nil {
			return err
		}
	}

	switch mode {
	case "wait":
		return waitLoop(ctx, tr)
	case "poll":
		return pollLoop(ctx, tr)
	case "listen":
		return listenLoop(ctx, tr)
	default:
		return fmt.Errorf("unknown mode %q (want wait, poll, or listen)", mode)
	}
}

// loadConfig resolves the effective config: an explicit or
// GAZEWIRE_CONFIG file when available, built-in defaults otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path == "" && os.Getenv("GAZEWIRE_CONFIG") == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// attemptStart invokes AttemptStart and reports status transitions
// until tracking starts or the attempt decays.
func attemptStart(ctx context.Context, tr *tracker.Tracker) error {
	if err := tr.AttemptStart(); err != nil {
		return fmt.Errorf("attempt start: %w", err)
	}
	last := tr.ReceptionStatus()
	printf("status: %v", last)
	for last == gaze.StatusAttemptingAutoStart {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(100 * time.Millisecond):
		}
		if status := tr.ReceptionStatus(); status != last {
			last = status
			printf("status: %v", last)
		}
	}
	if last == gaze.StatusNotReceiving {
		printf("auto-start gave up; continuing to watch for data")
	}
	return nil
}

// waitLoop blocks on WaitForNewStateSet and prints each fresh state.
func waitLoop(ctx context.Context, tr *tracker.Tracker) error {
	last := gaze.NullTimestamp
	for ctx.Err() == nil {
		if tr.WaitForNewStateSet(&last, tracker.DefaultWaitTimeout) {
			printState(tr.LatestStateSet())
		} else {
			printf("status: %v (no new data)", tr.ReceptionStatus())
		}
	}
	return nil
}

// pollLoop samples with a zero timeout and sleeps between polls.
func pollLoop(ctx context.Context, tr *tracker.Tracker) error {
	last := gaze.NullTimestamp
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(100 * time.Millisecond):
		}
		if tr.WaitForNewStateSet(&last, 0) {
			printState(tr.LatestStateSet())
		}
	}
}

// listenLoop registers a listener and prints from its callbacks.
func listenLoop(ctx context.Context, tr *tracker.Tracker) error {
	handle, err := tr.RegisterListener(probeListener{})
	if err != nil {
		return fmt.Errorf("registering listener: %w", err)
	}
	defer tr.UnregisterListener(handle)
	<-ctx.Done()
	return nil
}

type probeListener struct{}

func (probeListener) OnStatusChanged(status gaze.ReceptionStatus) {
	printf("status: %v", status)
}

func (probeListener) OnStateSet(state gaze.StateSet, _ gaze.Timestamp) {
	printState(state)
}

func printState(state gaze.StateSet) {
	u := state.User
	printf("t=%8.3f gaze=(%4d,%4d) %-6v viewport=(%+.3f,%+.3f) head=(%+.3f,%+.3f,%+.3f) track=%d",
		float64(state.Timestamp),
		u.ScreenGaze.PointOfRegard.X, u.ScreenGaze.PointOfRegard.Y,
		u.ScreenGaze.Confidence,
		u.ViewportGaze.NormalizedPointOfRegard.X, u.ViewportGaze.NormalizedPointOfRegard.Y,
		u.HeadPose.Translation.X, u.HeadPose.Translation.Y, u.HeadPose.Translation.Z,
		u.HeadPose.TrackSessionID)
}

// printf writes a line with an explicit carriage return: the terminal
// is in raw mode, so "\n" alone does not return to column zero.
func printf(format string, args ...any) {
	fmt.Fprintf(os.Stdout, format+"\r\n", args...)
}
