// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package gaze

import "fmt"

// Timestamp is a point on the tracking service's clock, in seconds
// since the service's tracking epoch. The epoch resets when tracking
// restarts, so timestamps are not globally monotonic: code deciding
// whether a value is "new" must compare with !=, never >.
type Timestamp float64

// NullTimestamp marks a sub-state as entirely invalid. A sub-state
// carrying NullTimestamp has no meaningful data in any of its other
// fields.
const NullTimestamp Timestamp = -1

// Valid reports whether the timestamp carries data. Invalid sub-states
// must be skipped, not zero-interpreted.
func (t Timestamp) Valid() bool { return t != NullTimestamp }

// Confidence grades the reliability of a tracked signal. The ordering
// is meaningful: higher values are more reliable. ConfidenceLost means
// the accompanying payload must be discarded entirely.
type Confidence uint8

// Confidence grades, lowest to highest. The numeric values are wire
// constants.
const (
	ConfidenceLost Confidence = iota
	ConfidenceLow
	ConfidenceMedium
	ConfidenceHigh
)

// String returns the lowercase name of the confidence grade.
func (c Confidence) String() string {
	switch c {
	case ConfidenceLost:
		return "lost"
	case ConfidenceLow:
		return "low"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceHigh:
		return "high"
	default:
		return fmt.Sprintf("confidence(%d)", uint8(c))
	}
}

// ReceptionStatus reports whether the client is currently receiving
// snapshot updates from the tracking service. It is orthogonal to
// snapshot validity: StatusReceiving does not imply the user is
// tracked, and during StatusNotReceiving every data-access operation
// remains callable (returning stale or invalid-marked data).
type ReceptionStatus uint8

// Reception states. The numeric values are wire constants.
const (
	// StatusNotReceiving is the initial state: no session with the
	// tracking service, or the session was lost.
	StatusNotReceiving ReceptionStatus = 0

	// StatusReceiving means snapshot updates are arriving.
	StatusReceiving ReceptionStatus = 1

	// StatusAttemptingAutoStart means an AttemptStart is in progress:
	// the client asked the service (possibly launching it) to begin
	// tracking and is waiting for data or a timeout.
	StatusAttemptingAutoStart ReceptionStatus = 2
)

// String returns the lowercase name of the reception status.
func (s ReceptionStatus) String() string {
	switch s {
	case StatusNotReceiving:
		return "not-receiving"
	case StatusReceiving:
		return "receiving"
	case StatusAttemptingAutoStart:
		return "attempting-auto-start"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Point is a position in unified screen coordinates: the integer
// coordinate system spanning all physical displays as one virtual
// surface.
type Point struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// PointF is a position in normalized floating-point coordinates.
// Values outside [0,1] are valid and meaningful (gaze beyond the
// viewport edge).
type PointF struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Vector3 is a translation in meters.
type Vector3 struct {
	X float32 `cbor:"x"`
	Y float32 `cbor:"y"`
	Z float32 `cbor:"z"`
}

// Matrix3 is a row-major 3x3 rotation matrix.
type Matrix3 [3][3]float32

// Identity3 returns the identity rotation.
func Identity3() Matrix3 {
	return Matrix3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// HeadPose is the tracked position and orientation of the user's head.
type HeadPose struct {
	// Confidence grades the pose. ConfidenceLost invalidates every
	// other field.
	Confidence Confidence `cbor:"confidence"`

	// Rotation is the head orientation as a rotation matrix.
	Rotation Matrix3 `cbor:"rotation"`

	// Translation is the head position in meters, relative to the
	// service's tracking origin.
	Translation Vector3 `cbor:"translation"`

	// TrackSessionID increments each time tracking of the user is
	// re-acquired after being lost. A consumer that caches per-user
	// calibration can use it to detect re-detection.
	TrackSessionID uint32 `cbor:"track_session_id"`
}

// ScreenGaze is the gaze point in unified screen coordinates.
type ScreenGaze struct {
	Confidence Confidence `cbor:"confidence"`

	// PointOfRegard is the gaze point clamped to the screen bounds.
	PointOfRegard Point `cbor:"point_of_regard"`

	// UnboundedPointOfRegard is the gaze point without clamping; it
	// may fall outside every display.
	UnboundedPointOfRegard Point `cbor:"unbounded_point_of_regard"`
}

// ViewportGaze is the gaze point normalized to the configured viewport
// rectangle. The point is not clamped to [0,1].
type ViewportGaze struct {
	Confidence              Confidence `cbor:"confidence"`
	NormalizedPointOfRegard PointF     `cbor:"normalized_point_of_regard"`
}

// UserState bundles the head pose and gaze signals.
type UserState struct {
	// Timestamp of this sub-state. NullTimestamp invalidates the
	// whole struct.
	Timestamp Timestamp `cbor:"timestamp"`

	HeadPose     HeadPose     `cbor:"head_pose"`
	ScreenGaze   ScreenGaze   `cbor:"screen_gaze"`
	ViewportGaze ViewportGaze `cbor:"viewport_gaze"`
}

// CameraTransform is a 6-DOF pose: rotations in radians, translations
// in meters.
type CameraTransform struct {
	Roll  float32 `cbor:"roll"`
	Pitch float32 `cbor:"pitch"`
	Yaw   float32 `cbor:"yaw"`
	X     float32 `cbor:"x"`
	Y     float32 `cbor:"y"`
	Z     float32 `cbor:"z"`
}

// SimCameraState carries the two components a game blends into its
// simulation camera: one derived from eye tracking, one from head
// tracking. See [ComputeSimCameraTransform].
type SimCameraState struct {
	Timestamp Timestamp       `cbor:"timestamp"`
	Eye       CameraTransform `cbor:"eye"`
	Head      CameraTransform `cbor:"head"`
}

// HUDState carries, for each of eight screen regions, the likelihood
// that the user is looking at it. Values are nominally in [0,1] but
// not strictly clamped.
type HUDState struct {
	Timestamp Timestamp `cbor:"timestamp"`

	TopLeft      float32 `cbor:"top_left"`
	TopMiddle    float32 `cbor:"top_middle"`
	TopRight     float32 `cbor:"top_right"`
	Left         float32 `cbor:"left"`
	Right        float32 `cbor:"right"`
	BottomLeft   float32 `cbor:"bottom_left"`
	BottomMiddle float32 `cbor:"bottom_middle"`
	BottomRight  float32 `cbor:"bottom_right"`
}

// FoveationState carries the foveated rendering center in normalized
// viewport coordinates and four nested radii, innermost first.
type FoveationState struct {
	Timestamp Timestamp  `cbor:"timestamp"`
	Center    PointF     `cbor:"center"`
	Radii     [4]float32 `cbor:"radii"`
}

// StateSet is the snapshot: an immutable bundle of all tracking
// sub-states at one instant. The top-level Timestamp is the
// publication instant used by wait-for-new; each sub-state carries its
// own timestamp and may update at a different cadence. A sub-state
// that did not update keeps its previous timestamp; one that is
// invalid carries NullTimestamp.
//
// StateSet is a plain value type: reads hand out copies that later
// updates never mutate.
type StateSet struct {
	Timestamp Timestamp      `cbor:"timestamp"`
	User      UserState      `cbor:"user"`
	SimCamera SimCameraState `cbor:"sim_camera"`
	HUD       HUDState       `cbor:"hud"`
	Foveation FoveationState `cbor:"foveation"`
}

// InvalidStateSet returns a StateSet with every timestamp set to
// NullTimestamp. This is what data access returns before the first
// snapshot arrives.
func InvalidStateSet() StateSet {
	return StateSet{
		Timestamp: NullTimestamp,
		User:      UserState{Timestamp: NullTimestamp},
		SimCamera: SimCameraState{Timestamp: NullTimestamp},
		HUD:       HUDState{Timestamp: NullTimestamp},
		Foveation: FoveationState{Timestamp: NullTimestamp},
	}
}

// Version is a four-component version number.
type Version struct {
	Major uint32 `json:"major"`
	Minor uint32 `json:"minor"`
	Patch uint32 `json:"patch"`
	Build uint32 `json:"build"`
}

// String formats the version as "major.minor.patch.build".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Build)
}
