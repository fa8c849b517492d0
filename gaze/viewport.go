// Copyright 2026 The GazeWire Authors
// SPDX-License-Identifier: Apache-2.0

package gaze

// ViewportGeometry is the rectangle, in unified screen coordinates,
// defining the normalized [0,1]x[0,1] mapping region. Point00 is the
// screen point that maps to normalized (0,0) and Point11 the point
// that maps to (1,1). Both corners are inclusive, so a 1920x1080
// viewport at the screen origin is {Point00: (0,0), Point11:
// (1919,1079)}.
//
// An axis may be inverted — Point11's coordinate numerically less than
// Point00's — to represent a viewport whose horizontal or vertical
// origin is flipped relative to the screen. A Unity viewport on the
// middle of three 1920x1080 monitors, with Y growing upward, is
// {Point00: (1920,1079), Point11: (3839,0)}.
type ViewportGeometry struct {
	Point00 Point `json:"point_00"`
	Point11 Point `json:"point_11"`
}

// SpanX returns the signed horizontal extent in screen cells. Inclusive
// corners make a non-inverted span Point11.X - Point00.X + 1; an
// inverted axis yields a negative span of the same magnitude.
func (g ViewportGeometry) SpanX() int32 {
	if g.Point11.X >= g.Point00.X {
		return g.Point11.X - g.Point00.X + 1
	}
	return g.Point11.X - g.Point00.X - 1
}

// SpanY returns the signed vertical extent in screen cells.
func (g ViewportGeometry) SpanY() int32 {
	if g.Point11.Y >= g.Point00.Y {
		return g.Point11.Y - g.Point00.Y + 1
	}
	return g.Point11.Y - g.Point00.Y - 1
}

// Normalize maps a unified-screen point into the viewport's normalized
// coordinate system. The result is not clamped: values outside [0,1]
// are valid and mean the point lies beyond the viewport edge. Division
// is by the signed span, so inverted axes map correctly.
func (g ViewportGeometry) Normalize(p Point) PointF {
	return PointF{
		X: float32(p.X-g.Point00.X) / float32(g.SpanX()),
		Y: float32(p.Y-g.Point00.Y) / float32(g.SpanY()),
	}
}

// Denormalize maps a normalized point back to unified screen
// coordinates, rounding to the nearest screen cell. It is the inverse
// of Normalize up to that rounding.
func (g ViewportGeometry) Denormalize(n PointF) Point {
	return Point{
		X: g.Point00.X + roundToCell(n.X*float32(g.SpanX())),
		Y: g.Point00.Y + roundToCell(n.Y*float32(g.SpanY())),
	}
}

// roundToCell rounds a screen offset to the nearest integer cell,
// rounding halves away from zero.
func roundToCell(v float32) int32 {
	if v >= 0 {
		return int32(v + 0.5)
	}
	return int32(v - 0.5)
}
