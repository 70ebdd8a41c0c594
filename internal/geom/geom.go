// Package geom provides the small set of 2D vector primitives used by the
// mesh generator and the deformer. Vector arithmetic delegates to gg.Vec2;
// interpolation and normalization are kept local because the deformer needs
// exact endpoints and a finite-length check.
package geom

import (
	"math"

	"github.com/gogpu/gg"
)

// normalizeEpsilon is the length below which a vector is treated as zero.
const normalizeEpsilon = 1e-9

// Vec2 is a 2D point or direction. It converts freely to and from gg.Vec2.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) toGG() gg.Vec2 { return gg.Vec2(v) }

// V is shorthand for Vec2{X: x, Y: y}.
func V(x, y float64) Vec2 {
	return Vec2{X: x, Y: y}
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2(v.toGG().Add(o.toGG()))
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2(v.toGG().Sub(o.toGG()))
}

// Scale returns v * s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2(v.toGG().Mul(s))
}

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 {
	return v.toGG().Dot(o.toGG())
}

// Len returns the Euclidean length of v.
func (v Vec2) Len() float64 {
	return v.toGG().Length()
}

// Perp returns v rotated by +90 degrees in a Y-down screen frame,
// i.e. (0,1) (down) becomes (1,0) (right). gg's Perp turns the other way.
func (v Vec2) Perp() Vec2 {
	return Vec2(v.toGG().Perp().Neg())
}

// Normalize returns the unit vector in the direction of v.
// The boolean is false, and the zero vector is returned, when v is too
// short (or not finite) to have a direction.
func (v Vec2) Normalize() (Vec2, bool) {
	l := v.Len()
	if l < normalizeEpsilon || math.IsInf(l, 0) || math.IsNaN(l) {
		return Vec2{}, false
	}
	return Vec2{X: v.X / l, Y: v.Y / l}, true
}

// IsFinite reports whether both components are neither NaN nor infinite.
func (v Vec2) IsFinite() bool {
	return IsFinite(v.X) && IsFinite(v.Y)
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// Dist returns the Euclidean distance between a and b.
func Dist(a, b Vec2) float64 {
	return a.Sub(b).Len()
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Vec2) Vec2 {
	return Vec2{X: (a.X + b.X) * 0.5, Y: (a.Y + b.Y) * 0.5}
}

// Lerp linearly interpolates between a and b. The endpoints are exact:
// Lerp(a, b, 0) == a and Lerp(a, b, 1) == b, which gg's a+(b-a)*t is not.
func Lerp(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

// LerpVec linearly interpolates between the points a and b.
func LerpVec(a, b Vec2, t float64) Vec2 {
	return Vec2{X: Lerp(a.X, b.X, t), Y: Lerp(a.Y, b.Y, t)}
}

// Clamp limits x to the closed range [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Smoothstep performs Hermite interpolation between 0 and 1 as x moves
// from e0 to e1. When e0 == e1 it degrades to a step at e0.
func Smoothstep(e0, e1, x float64) float64 {
	if e0 == e1 {
		if x < e0 {
			return 0
		}
		return 1
	}
	t := Clamp((x-e0)/(e1-e0), 0, 1)
	return t * t * (3 - 2*t)
}

// Rotate rotates v by angle radians. In a Y-down screen frame a positive
// angle turns clockwise as seen on screen.
func Rotate(v Vec2, angle float64) Vec2 {
	return Vec2(v.toGG().Rotate(angle))
}

// Angle returns the direction of v in radians, measured from +X.
func Angle(v Vec2) float64 {
	return v.toGG().Atan2()
}
