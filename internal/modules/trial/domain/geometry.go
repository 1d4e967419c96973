package domain

import "math"

// BaselineY is the vertical offset of the annotation baseline inside the
// prompt container.
const BaselineY = 50.0

type Point struct {
	X float64
	Y float64
}

// Line is a segment expressed the way it is drawn: an origin, a length and a
// rotation in degrees.
type Line struct {
	Origin Point
	Length float64
	Angle  float64
}

// Segment normalizes a and b so the line always runs left to right, then
// derives its length and rotation. Positive angles rotate counter-clockwise
// in screen space, which is why the atan result is negated.
func Segment(a, b Point) Line {
	if a.X > b.X {
		a, b = b, a
	}
	length := math.Hypot(b.X-a.X, b.Y-a.Y)
	var angle float64
	switch {
	case a == b:
		angle = 0
	case a.X == b.X:
		if a.Y > b.Y {
			angle = -90
		} else {
			angle = 90
		}
	default:
		angle = -math.Atan((a.Y-b.Y)/(b.X-a.X)) * 180 / math.Pi
	}
	if angle == 0 {
		angle = 0 // drop negative zero
	}
	return Line{Origin: a, Length: length, Angle: angle}
}

// Baseline is the horizontal timeline drawn under the stimulus.
func Baseline(width float64) Line {
	return Segment(Point{X: 0, Y: BaselineY}, Point{X: width, Y: BaselineY})
}

// MarkerX places a response proportionally along a baseline that represents
// spanMS milliseconds.
func MarkerX(width, rtMS, spanMS float64) float64 {
	if spanMS <= 0 {
		return 0
	}
	return width * (rtMS / spanMS)
}
