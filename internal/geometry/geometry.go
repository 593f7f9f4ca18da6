// Package geometry provides the 3D vector and point types shared by the
// tracing packages, built on top of mgl64.
package geometry

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is a double-precision 3-component vector.
type Vec3 = mgl64.Vec3

// Point3 is a position in 3D space.
type Point3 = mgl64.Vec3

// Axis indices into Vec3/Point3 components.
const (
	X = 0
	Y = 1
	Z = 2
)

// NumAxes is the number of spatial dimensions.
const NumAxes = 3

// IsZero reports whether every component of v is exactly zero.
func IsZero(v Vec3) bool {
	return v[X] == 0 && v[Y] == 0 && v[Z] == 0
}

// Displacement returns the vector from one point to another.
func Displacement(from, to Point3) Vec3 {
	return to.Sub(from)
}

// Abs returns the component-wise absolute value of v.
func Abs(v Vec3) Vec3 {
	return Vec3{math.Abs(v[X]), math.Abs(v[Y]), math.Abs(v[Z])}
}

// Clamp limits num to the range [min, max].
func Clamp(num, min, max float64) float64 {
	if num < min {
		return min
	}
	return math.Min(num, max)
}
