// Package math provides the quaternion and matrix types used to place bones,
// sockets and actors in scene space.
package math

import "math"

// Radians converts an angle in degrees.
func Radians(deg float32) float32 {
	return deg * math.Pi / 180
}

// RadiansVec3 converts each component of a degree triple.
func RadiansVec3(deg [3]float32) [3]float32 {
	return [3]float32{Radians(deg[0]), Radians(deg[1]), Radians(deg[2])}
}
