// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package gaze

import "testing"

var sampleCameraState = SimCameraState{
	Timestamp: 12.5,
	Eye:       CameraTransform{Roll: 0.1, Pitch: -0.2, Yaw: 0.3, X: 0.01, Y: 0.02, Z: -0.03},
	Head:      CameraTransform{Roll: 0.4, Pitch: 0.5, Yaw: -0.6, X: 0.04, Y: -0.05, Z: 0.06},
}

func TestComputeSimCameraTransformUnitWeights(t *testing.T) {
	t.Parallel()
	got := ComputeSimCameraTransform(sampleCameraState, DefaultCameraWeights())
	want := CameraTransform{
		Roll:  sampleCameraState.Eye.Roll + sampleCameraState.Head.Roll,
		Pitch: sampleCameraState.Eye.Pitch + sampleCameraState.Head.Pitch,
		Yaw:   sampleCameraState.Eye.Yaw + sampleCameraState.Head.Yaw,
		X:     sampleCameraState.Eye.X + sampleCameraState.Head.X,
		Y:     sampleCameraState.Eye.Y + sampleCameraState.Head.Y,
		Z:     sampleCameraState.Eye.Z + sampleCameraState.Head.Z,
	}
	if got != want {
		t.Errorf("unit weights: got %+v, want elementwise sum %+v", got, want)
	}
}

func TestComputeSimCameraTransformZeroWeightEliminatesComponent(t *testing.T) {
	t.Parallel()
	headOnly := ComputeSimCameraTransform(sampleCameraState, UniformCameraWeights(0, 1))
	if headOnly != sampleCameraState.Head {
		t.Errorf("eye weight 0: got %+v, want head component %+v", headOnly, sampleCameraState.Head)
	}

	eyeOnly := ComputeSimCameraTransform(sampleCameraState, UniformCameraWeights(1, 0))
	if eyeOnly != sampleCameraState.Eye {
		t.Errorf("head weight 0: got %+v, want eye component %+v", eyeOnly, sampleCameraState.Eye)
	}
}

func TestComputeSimCameraTransformPerAxisWeights(t *testing.T) {
	t.Parallel()
	weights := DefaultCameraWeights()
	weights.Head.Yaw = 0
	weights.Eye.Z = 2

	got := ComputeSimCameraTransform(sampleCameraState, weights)
	if got.Yaw != sampleCameraState.Eye.Yaw {
		t.Errorf("head yaw weight 0: yaw = %v, want %v", got.Yaw, sampleCameraState.Eye.Yaw)
	}
	wantZ := 2*sampleCameraState.Eye.Z + sampleCameraState.Head.Z
	if got.Z != wantZ {
		t.Errorf("eye z weight 2: z = %v, want %v", got.Z, wantZ)
	}
}

func TestParseCameraWeights(t *testing.T) {
	t.Parallel()
	document := []byte(`{
		// Flight-sim profile: head translation damped, eye rotation full.
		"eye": {
			"yaw": 1.5,
			"pitch": 1.5,
		},
		"head": {
			/* keep the cockpit stable */
			"x": 0.25,
			"y": 0.25,
			"z": 0,
		},
	}`)

	weights, err := ParseCameraWeights(document)
	if err != nil {
		t.Fatalf("ParseCameraWeights: %v", err)
	}

	if weights.Eye.Yaw != 1.5 || weights.Eye.Pitch != 1.5 {
		t.Errorf("eye yaw/pitch: got %v/%v, want 1.5/1.5", weights.Eye.Yaw, weights.Eye.Pitch)
	}
	if weights.Eye.Roll != 1 || weights.Eye.X != 1 {
		t.Errorf("absent eye axes must default to 1: roll=%v x=%v", weights.Eye.Roll, weights.Eye.X)
	}
	if weights.Head.X != 0.25 || weights.Head.Z != 0 {
		t.Errorf("head x/z: got %v/%v, want 0.25/0", weights.Head.X, weights.Head.Z)
	}
	if weights.Head.Roll != 1 {
		t.Errorf("absent head roll must default to 1, got %v", weights.Head.Roll)
	}
}

func TestParseCameraWeightsEmptyDocument(t *testing.T) {
	t.Parallel()
	weights, err := ParseCameraWeights([]byte(`{}`))
	if err != nil {
		t.Fatalf("ParseCameraWeights: %v", err)
	}
	if weights != DefaultCameraWeights() {
		t.Errorf("empty document: got %+v, want defaults", weights)
	}
}

func TestParseCameraWeightsMalformed(t *testing.T) {
	t.Parallel()
	if _, err := ParseCameraWeights([]byte(`{"eye": [1, 2]}`)); err == nil {
		t.Fatal("expected error for malformed document")
	}
}

func TestTimestampValidity(t *testing.T) {
	t.Parallel()
	if NullTimestamp.Valid() {
		t.Error("NullTimestamp.Valid() = true")
	}
	if !Timestamp(0).Valid() {
		t.Error("Timestamp(0).Valid() = false, want true (epoch instant is valid)")
	}
	if !Timestamp(120.25).Valid() {
		t.Error("Timestamp(120.25).Valid() = false")
	}
}

func TestInvalidStateSet(t *testing.T) {
	t.Parallel()
	s := InvalidStateSet()
	if s.Timestamp.Valid() || s.User.Timestamp.Valid() || s.SimCamera.Timestamp.Valid() ||
		s.HUD.Timestamp.Valid() || s.Foveation.Timestamp.Valid() {
		t.Errorf("InvalidStateSet carries a valid timestamp: %+v", s)
	}
}
