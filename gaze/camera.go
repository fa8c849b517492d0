// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package gaze

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tidwall/jsonc"
)

// CameraWeights scales each axis of the eye and head components before
// they are summed into the simulation camera transform. A weight of 1
// passes the component through unchanged; 0 eliminates it.
type CameraWeights struct {
	Eye  CameraTransform
	Head CameraTransform
}

// UniformCameraWeights fills every axis of the eye and head weights
// with the two given values.
func UniformCameraWeights(eye, head float32) CameraWeights {
	return CameraWeights{
		Eye:  CameraTransform{Roll: eye, Pitch: eye, Yaw: eye, X: eye, Y: eye, Z: eye},
		Head: CameraTransform{Roll: head, Pitch: head, Yaw: head, X: head, Y: head, Z: head},
	}
}

// DefaultCameraWeights passes both components through at full
// strength.
func DefaultCameraWeights() CameraWeights {
	return UniformCameraWeights(1, 1)
}

// ComputeSimCameraTransform blends the eye and head components of
// state into a single transform by per-axis weighted sum:
//
//	out.axis = weights.Eye.axis*state.Eye.axis + weights.Head.axis*state.Head.axis
//
// Pure function: no side effects, no I/O. The recenter handshake that
// rebases a component's zero point lives on the tracker, not here.
func ComputeSimCameraTransform(state SimCameraState, weights CameraWeights) CameraTransform {
	return CameraTransform{
		Roll:  weights.Eye.Roll*state.Eye.Roll + weights.Head.Roll*state.Head.Roll,
		Pitch: weights.Eye.Pitch*state.Eye.Pitch + weights.Head.Pitch*state.Head.Pitch,
		Yaw:   weights.Eye.Yaw*state.Eye.Yaw + weights.Head.Yaw*state.Head.Yaw,
		X:     weights.Eye.X*state.Eye.X + weights.Head.X*state.Head.X,
		Y:     weights.Eye.Y*state.Eye.Y + weights.Head.Y*state.Head.Y,
		Z:     weights.Eye.Z*state.Eye.Z + weights.Head.Z*state.Head.Z,
	}
}

// weightsDocument is the on-disk shape of a camera weight profile.
// Pointer fields distinguish "absent" (defaults to 1) from an explicit
// zero.
type weightsDocument struct {
	Eye  *axisWeights `json:"eye"`
	Head *axisWeights `json:"head"`
}

type axisWeights struct {
	Roll  *float32 `json:"roll"`
	Pitch *float32 `json:"pitch"`
	Yaw   *float32 `json:"yaw"`
	X     *float32 `json:"x"`
	Y     *float32 `json:"y"`
	Z     *float32 `json:"z"`
}

func (w *axisWeights) apply(target *CameraTransform) {
	if w == nil {
		return
	}
	assign := func(dst *float32, src *float32) {
		if src != nil {
			*dst = *src
		}
	}
	assign(&target.Roll, w.Roll)
	assign(&target.Pitch, w.Pitch)
	assign(&target.Yaw, w.Yaw)
	assign(&target.X, w.X)
	assign(&target.Y, w.Y)
	assign(&target.Z, w.Z)
}

// ParseCameraWeights parses a camera weight profile authored as JSONC
// (JSON extended with // line comments, /* block comments */, and
// trailing commas). The document has optional "eye" and "head" objects
// with per-axis fields; absent axes default to 1.
func ParseCameraWeights(data []byte) (CameraWeights, error) {
	stripped := jsonc.ToJSON(data)

	var document weightsDocument
	if err := json.Unmarshal(stripped, &document); err != nil {
		return CameraWeights{}, fmt.Errorf("parsing camera weights: %w", err)
	}

	weights := DefaultCameraWeights()
	document.Eye.apply(&weights.Eye)
	document.Head.apply(&weights.Head)
	return weights, nil
}

// LoadCameraWeights reads a JSONC weight profile from disk.
func LoadCameraWeights(path string) (CameraWeights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CameraWeights{}, fmt.Errorf("reading %s: %w", path, err)
	}

	weights, err := ParseCameraWeights(data)
	if err != nil {
		return CameraWeights{}, fmt.Errorf("%s: %w", path, err)
	}
	return weights, nil
}
