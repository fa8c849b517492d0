// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Gazewire-monitor is a live terminal dashboard for a tracking
// service: reception status, gaze position, per-signal confidence,
// head pose, HUD likelihoods, and foveation, updating as snapshots
// arrive.
package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
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
		configPath  string
		endpoint    string
		clientName  string
		autoStart   bool
		showVersion bool
	)
	flags := pflag.NewFlagSet("gazewire-monitor", pflag.ContinueOnError)
	flags.StringVar(&configPath, "config", "", "config file (default: $GAZEWIRE_CONFIG)")
	flags.StringVar(&endpoint, "endpoint", "", "service address (overrides config)")
	flags.StringVar(&clientName, "client", "gazewire-monitor", "client name presented to the service")
	flags.BoolVar(&autoStart, "auto-start", false, "ask the service to start tracking on launch")
	flags.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println("gazewire-monitor", version.Info())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if endpoint != "" {
		cfg.Endpoint = endpoint
	}

	tr, err := tracker.New(clientName, cfg.Viewport.Geometry(),
		tracker.WithDialer(&transport.TCPDialer{Address: cfg.Endpoint}),
		tracker.WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		return fmt.Errorf("creating tracker: %w", err)
	}
	defer tr.Close()

	if autoStart {
		if err := tr.AttemptStart(); err != nil {
			return fmt.Errorf("attempt start: %w", err)
		}
	}

	model := newModel(tr, cfg.Endpoint)
	program := tea.NewProgram(model, tea.WithAltScreen())

	handle, err := tr.RegisterListener(&bridge{program: program})
	if err != nil {
		return fmt.Errorf("registering listener: %w", err)
	}
	defer tr.UnregisterListener(handle)

	_, err = program.Run()
	return err
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

// bridge forwards tracker callbacks into the bubbletea program as
// messages. Callbacks arrive on the dispatcher goroutine; Send is
// safe from any goroutine.
type bridge struct {
	program *tea.Program
}

func (b *bridge) OnStatusChanged(status gaze.ReceptionStatus) {
	b.program.Send(statusMsg{status: status})
}

func (b *bridge) OnStateSet(state gaze.StateSet, _ gaze.Timestamp) {
	b.program.Send(stateMsg{state: state})
}
