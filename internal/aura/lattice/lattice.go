// Package lattice seeds particles on a sphere with a Fibonacci lattice and
// owns the structure-of-arrays particle store used by the scalar engine.
package lattice

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// GoldenAngle is π(3−√5), the azimuth step between consecutive lattice points.
var GoldenAngle = math.Pi * (3 - math.Sqrt(5))

// MinLength is the floor applied to vector lengths before normalising.
const MinLength = 1e-4

// Up is the world vertical axis.
var Up = r3.Vec{Y: 1}

// Point returns the i-th of n unit-sphere lattice points.
func Point(i, n int) r3.Vec {
	if n <= 0 {
		return r3.Vec{}
	}
	y := 1 - 2*(float64(i)+0.5)/float64(n)
	r := math.Sqrt(math.Max(0, 1-y*y))
	phi := float64(i) * GoldenAngle
	return r3.Vec{X: math.Cos(phi) * r, Y: y, Z: math.Sin(phi) * r}
}

// Seed returns n lattice points scaled to radius.
func Seed(n int, radius float64) []r3.Vec {
	if n <= 0 {
		return nil
	}
	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = r3.Scale(radius, Point(i, n))
	}
	return out
}

// SafeUnit normalises v, flooring its length at MinLength so a zero vector
// stays finite.
func SafeUnit(v r3.Vec) r3.Vec {
	l := math.Max(r3.Norm(v), MinLength)
	return r3.Scale(1/l, v)
}

// TangentFrame returns two unit vectors orthogonal to dir and to each other.
// The reference axis switches from Up to +X near the poles.
func TangentFrame(dir r3.Vec) (t1, t2 r3.Vec) {
	ref := Up
	if math.Abs(dir.Y) >= 0.999 {
		ref = r3.Vec{X: 1}
	}
	t1 = SafeUnit(r3.Cross(ref, dir))
	t2 = SafeUnit(r3.Cross(dir, t1))
	return t1, t2
}

// RotateY rotates v about the vertical axis by angle radians.
func RotateY(v r3.Vec, angle float64) r3.Vec {
	s, c := math.Sincos(angle)
	return r3.Vec{
		X: v.X*c + v.Z*s,
		Y: v.Y,
		Z: -v.X*s + v.Z*c,
	}
}

// Mul returns the component-wise product of a and b.
func Mul(a, b r3.Vec) r3.Vec {
	return r3.Vec{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

// Lerp returns a + (b-a)*f.
func Lerp(a, b r3.Vec, f float64) r3.Vec {
	return r3.Add(a, r3.Scale(f, r3.Sub(b, a)))
}

// Finite reports whether every component of v is a finite number.
func Finite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
