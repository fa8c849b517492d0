// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package sim

import (
	"math"
	"sync"
	"time"

	"github.com/gazewire/gazewire/gaze"
)

// lossPeriod is the tracking-loss schedule: once per period the
// synthetic user "leaves" for lossWindow seconds, dropping confidence
// to lost and bumping the track session id on return.
const (
	lossPeriod = 45.0
	lossWindow = 1.5
)

// Generator produces a deterministic synthetic tracking signal. The
// same seed yields the same sequence of snapshots for the same query
// times, which is what makes sim-backed tests reproducible.
//
// The gaze point sweeps the screen on a Lissajous path, the head sways
// with small sinusoidal rotations and translation, HUD likelihoods
// follow gaze proximity to the eight screen regions, and confidence
// periodically dips through low to lost.
type Generator struct {
	screen gaze.ViewportGeometry

	// Phases derived from the seed decorrelate the oscillators, so
	// different seeds produce visibly different sessions.
	phaseX, phaseY, phaseHead float64

	mu    sync.Mutex
	last  time.Duration
	epoch time.Duration
}

// NewGenerator creates a generator mapping its gaze onto the given
// screen bounds.
func NewGenerator(seed int64, screen gaze.ViewportGeometry) *Generator {
	// Cheap integer hash to spread nearby seeds apart.
	h := uint64(seed)
	h ^= h >> 33
	h *= 0xff51afd7ed558ccd
	h ^= h >> 33
	return &Generator{
		screen:    screen,
		phaseX:    float64(h%360) * math.Pi / 180,
		phaseY:    float64((h>>16)%360) * math.Pi / 180,
		phaseHead: float64((h>>32)%360) * math.Pi / 180,
	}
}

// RestartEpoch rewinds the timestamp base to the most recent query
// time: the next snapshot starts again near zero, the way a restarted
// service's timestamps do.
func (g *Generator) RestartEpoch() {
	g.mu.Lock()
	g.epoch = g.last
	g.mu.Unlock()
}

// Last returns the snapshot for the most recent query time.
func (g *Generator) Last() gaze.StateSet {
	g.mu.Lock()
	last := g.last
	g.mu.Unlock()
	return g.At(last)
}

// At returns the snapshot for the given time since the generator
// started. Calls with the same elapsed time return the same snapshot.
func (g *Generator) At(elapsed time.Duration) gaze.StateSet {
	g.mu.Lock()
	g.last = elapsed
	t := (elapsed - g.epoch).Seconds()
	g.mu.Unlock()

	ts := gaze.Timestamp(t)
	confidence, trackSession := g.confidence(t)

	nx := 0.5 + 0.45*math.Sin(0.9*t+g.phaseX)
	ny := 0.5 + 0.45*math.Sin(1.3*t+g.phaseY)
	screenPoint := g.screen.Denormalize(gaze.PointF{X: float32(nx), Y: float32(ny)})

	roll := 0.04 * math.Sin(0.7*t+g.phaseHead)
	pitch := 0.06 * math.Sin(0.5*t+g.phaseHead*0.5)
	yaw := 0.09 * math.Sin(0.4*t+g.phaseHead*0.25)

	state := gaze.StateSet{
		Timestamp: ts,
		User: gaze.UserState{
			Timestamp: ts,
			HeadPose: gaze.HeadPose{
				Confidence: confidence,
				Rotation:   rotationMatrix(roll, pitch, yaw),
				Translation: gaze.Vector3{
					X: float32(0.02 * math.Sin(0.3*t+g.phaseHead)),
					Y: float32(0.35 + 0.01*math.Sin(0.45*t)),
					Z: float32(0.60 + 0.03*math.Sin(0.25*t+g.phaseHead)),
				},
				TrackSessionID: trackSession,
			},
			ScreenGaze: gaze.ScreenGaze{
				Confidence:             confidence,
				PointOfRegard:          screenPoint,
				UnboundedPointOfRegard: screenPoint,
			},
			ViewportGaze: gaze.ViewportGaze{
				Confidence:              confidence,
				NormalizedPointOfRegard: gaze.PointF{X: float32(nx), Y: float32(ny)},
			},
		},
		SimCamera: gaze.SimCameraState{
			Timestamp: ts,
			Eye: gaze.CameraTransform{
				Yaw:   float32(0.4 * (nx - 0.5)),
				Pitch: float32(-0.3 * (ny - 0.5)),
			},
			Head: gaze.CameraTransform{
				Roll:  float32(roll),
				Pitch: float32(pitch),
				Yaw:   float32(yaw),
				X:     float32(0.02 * math.Sin(0.3*t+g.phaseHead)),
				Z:     float32(0.03 * math.Sin(0.25*t+g.phaseHead)),
			},
		},
		HUD: gaze.HUDState{
			Timestamp:    ts,
			TopLeft:      regionLikelihood(nx, ny, 0.0, 0.0),
			TopMiddle:    regionLikelihood(nx, ny, 0.5, 0.0),
			TopRight:     regionLikelihood(nx, ny, 1.0, 0.0),
			Left:         regionLikelihood(nx, ny, 0.0, 0.5),
			Right:        regionLikelihood(nx, ny, 1.0, 0.5),
			BottomLeft:   regionLikelihood(nx, ny, 0.0, 1.0),
			BottomMiddle: regionLikelihood(nx, ny, 0.5, 1.0),
			BottomRight:  regionLikelihood(nx, ny, 1.0, 1.0),
		},
		Foveation: gaze.FoveationState{
			Timestamp: ts,
			Center:    gaze.PointF{X: float32(nx), Y: float32(ny)},
			Radii: [4]float32{
				float32(0.08 + 0.01*math.Sin(2*t)),
				float32(0.15 + 0.015*math.Sin(2*t)),
				0.25,
				0.40,
			},
		},
	}

	if confidence == gaze.ConfidenceLost {
		// During a loss window only the timestamps and the lost
		// grading are meaningful.
		state.User.HeadPose = gaze.HeadPose{Confidence: gaze.ConfidenceLost, TrackSessionID: trackSession}
		state.User.ScreenGaze = gaze.ScreenGaze{Confidence: gaze.ConfidenceLost}
		state.User.ViewportGaze = gaze.ViewportGaze{Confidence: gaze.ConfidenceLost}
	}
	return state
}

// confidence grades the signal at time t and numbers the track
// session. Each loss period ends with a short lost window preceded by
// a low-confidence rampdown; re-acquisition increments the session id.
func (g *Generator) confidence(t float64) (gaze.Confidence, uint32) {
	session := uint32(t/lossPeriod) + 1
	cycle := math.Mod(t, lossPeriod)
	switch {
	case cycle > lossPeriod-lossWindow:
		return gaze.ConfidenceLost, session
	case cycle > lossPeriod-2*lossWindow:
		return gaze.ConfidenceLow, session
	case cycle > lossPeriod-4*lossWindow:
		return gaze.ConfidenceMedium, session
	default:
		return gaze.ConfidenceHigh, session
	}
}

// regionLikelihood scores gaze proximity to a HUD region anchored at
// (cx, cy) in normalized screen coordinates.
func regionLikelihood(nx, ny, cx, cy float64) float32 {
	d := math.Hypot(nx-cx, ny-cy)
	if d >= 0.5 {
		return 0
	}
	return float32(1 - d/0.5)
}

// rotationMatrix composes intrinsic roll (Z), pitch (X), and yaw (Y)
// rotations into one matrix.
func rotationMatrix(roll, pitch, yaw float64) gaze.Matrix3 {
	sr, cr := math.Sincos(roll)
	sp, cp := math.Sincos(pitch)
	sy, cy := math.Sincos(yaw)

	// R = Ry(yaw) * Rx(pitch) * Rz(roll)
	return gaze.Matrix3{
		{
			float32(cy*cr + sy*sp*sr),
			float32(-cy*sr + sy*sp*cr),
			float32(sy * cp),
		},
		{
			float32(cp * sr),
			float32(cp * cr),
			float32(-sp),
		},
		{
			float32(-sy*cr + cy*sp*sr),
			float32(sy*sr + cy*sp*cr),
			float32(cy * cp),
		},
	}
}
