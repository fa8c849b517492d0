// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/gazewire/gazewire/gaze"
	"github.com/gazewire/gazewire/transport"
)

// Config is the master configuration for GazeWire tools.
type Config struct {
	// Endpoint is the host:port of the tracking service.
	// Default: transport.DefaultAddress.
	Endpoint string `yaml:"endpoint"`

	// ClientName identifies this client to the service. Sent verbatim
	// in the handshake; the service rejects names longer than 200
	// bytes or containing invalid UTF-8.
	ClientName string `yaml:"client_name"`

	// Viewport is the application viewport in desktop pixel
	// coordinates. Both corners are inclusive.
	Viewport ViewportConfig `yaml:"viewport"`

	// WeightsProfile is the path to a JSONC camera-weights document.
	// Empty means the built-in default weights.
	WeightsProfile string `yaml:"weights_profile"`

	// AutoStartCommand is the command (argv) run when the service is
	// not reachable and the client requests auto-start. Empty disables
	// auto-start.
	AutoStartCommand []string `yaml:"auto_start_command"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// ViewportConfig is the YAML shape of a viewport geometry.
type ViewportConfig struct {
	Point00 PointConfig `yaml:"point00"`
	Point11 PointConfig `yaml:"point11"`
}

// PointConfig is a pixel coordinate pair.
type PointConfig struct {
	X int32 `yaml:"x"`
	Y int32 `yaml:"y"`
}

// Geometry converts the YAML viewport to the wire representation.
func (v ViewportConfig) Geometry() gaze.ViewportGeometry {
	return gaze.ViewportGeometry{
		Point00: gaze.Point{X: v.Point00.X, Y: v.Point00.Y},
		Point11: gaze.Point{X: v.Point11.X, Y: v.Point11.Y},
	}
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file, so every field has a
// sensible value even when the file only sets a subset.
func Default() *Config {
	return &Config{
		Endpoint: transport.DefaultAddress,
		Viewport: ViewportConfig{
			Point00: PointConfig{X: 0, Y: 0},
			Point11: PointConfig{X: 1919, Y: 1079},
		},
		LogLevel: "info",
	}
}

// Load loads configuration from the given path. If path is empty, the
// GAZEWIRE_CONFIG environment variable names the file instead.
//
// There is no ~/.config discovery and no automatic file search. The
// config file is the single source of truth; environment variables do
// not override config values. The only expansion performed is ${VAR}
// and ${VAR:-default} in path fields, for portability.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("GAZEWIRE_CONFIG")
	}
	if path == "" {
		return nil, fmt.Errorf("no config file: pass a path or set GAZEWIRE_CONFIG")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// and endpoint fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Endpoint = expandVars(c.Endpoint, vars)
	c.WeightsProfile = expandVars(c.WeightsProfile, vars)
	for i, arg := range c.AutoStartCommand {
		c.AutoStartCommand[i] = expandVars(arg, vars)
	}
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Endpoint == "" {
		errs = append(errs, fmt.Errorf("endpoint is required"))
	} else if _, _, err := net.SplitHostPort(c.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("endpoint must be host:port: %w", err))
	}

	if c.ClientName == "" {
		errs = append(errs, fmt.Errorf("client_name is required"))
	} else if len(c.ClientName) > 200 {
		errs = append(errs, fmt.Errorf("client_name exceeds 200 bytes"))
	}

	if c.WeightsProfile != "" {
		if _, err := os.Stat(c.WeightsProfile); err != nil {
			errs = append(errs, fmt.Errorf("weights_profile: %w", err))
		}
	}

	levels := []string{"debug", "info", "warn", "error"}
	if !contains(levels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("log_level must be one of: %v", levels))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
