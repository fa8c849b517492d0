// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Gazewire-record captures tracking sessions to GWR1 recording files,
// lists the recording catalog, and verifies recording integrity.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/gazewire/gazewire/lib/config"
	"github.com/gazewire/gazewire/lib/process"
	"github.com/gazewire/gazewire/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

type options struct {
	configPath string
	endpoint   string
	clientName string
	dir        string
	duration   time.Duration
	autoStart  bool
	encryptTo  []string
	identity   string
	logLevel   string
}

func run() error {
	var (
		opts        options
		list        bool
		verifyPath  string
		removeID    string
		showVersion bool
	)
	flags := pflag.NewFlagSet("gazewire-record", pflag.ContinueOnError)
	flags.StringVar(&opts.configPath, "config", "", "config file (default: $GAZEWIRE_CONFIG)")
	flags.StringVar(&opts.endpoint, "endpoint", "", "service address (overrides config)")
	flags.StringVar(&opts.clientName, "client", "gazewire-record", "client name presented to the service")
	flags.StringVar(&opts.dir, "dir", ".", "recordings directory (holds catalog.db)")
	flags.DurationVar(&opts.duration, "duration", 0, "stop capturing after this long (0 = until interrupted)")
	flags.BoolVar(&opts.autoStart, "auto-start", false, "ask the service to start tracking before capturing")
	flags.StringSliceVar(&opts.encryptTo, "encrypt-to", nil, "age recipient public keys to encrypt the recording to")
	flags.StringVar(&opts.identity, "identity", "", "age identity file for reading encrypted recordings")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	flags.BoolVar(&list, "list", false, "list the recording catalog")
	flags.StringVar(&verifyPath, "verify", "", "verify a recording file's integrity digest")
	flags.StringVar(&removeID, "remove", "", "remove a recording from the catalog by id")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println("gazewire-record", version.Info())
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch {
	case list:
		return listRecordings(ctx, opts.dir)
	case verifyPath != "":
		return verifyRecording(verifyPath, opts.identity)
	case removeID != "":
		return removeRecording(ctx, opts.dir, removeID)
	default:
		return capture(ctx, opts)
	}
}

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

func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}

func catalogPath(dir string) string {
	return filepath.Join(dir, "catalog.db")
}
