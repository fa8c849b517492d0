// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

// Package gaze defines the tracking data model shared by every layer of
// GazeWire: the client core (package tracker), the wire protocol
// (package wire), the synthetic service (package sim), and session
// recordings (package record).
//
// The central type is [StateSet], an immutable bundle of the four
// tracking sub-states at one instant:
//
//   - [UserState]: head pose and gaze, in unified screen and viewport
//     coordinates.
//   - [SimCameraState]: the eye- and head-derived 6-DOF camera
//     transform components.
//   - [HUDState]: looking-at likelihoods for eight screen regions.
//   - [FoveationState]: foveated rendering center and radii.
//
// Each sub-state carries its own [Timestamp] and may update at a
// different cadence within the same StateSet. [NullTimestamp] marks a
// sub-state as entirely invalid: none of its other fields may be read.
// Timestamps are seconds since the service's tracking epoch and are NOT
// globally monotonic — a tracking restart resets the epoch — so "new
// data" comparisons must use inequality, never greater-than.
//
// The package also provides the two pure computations of the system:
// viewport coordinate mapping ([ViewportGeometry.Normalize], unclamped
// and inverted-axis capable) and weighted camera-transform blending
// ([ComputeSimCameraTransform]).
package gaze
