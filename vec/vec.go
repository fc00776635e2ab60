// SPDX-License-Identifier: GPL-2.0-or-later

// Package vec provides the float32 vector, quaternion and transform types
// shared by every stage of the model decoder.
package vec

import (
	"github.com/chewxy/math32"
)

// Vec2 is a two component float32 vector, used for UV coordinates.
type Vec2 struct {
	X, Y float32
}

// Vec3 is a three component float32 vector.
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 is a four component float32 vector, used for the eye-material iris
// basis (§4.3) which is carried as a plain 4-vector rather than a quaternion.
type Vec4 struct {
	X, Y, Z, W float32
}

func VFromA(a [3]float32) Vec3 {
	return Vec3{a[0], a[1], a[2]}
}

func (v Vec3) Array() [3]float32 {
	return [3]float32{v.X, v.Y, v.Z}
}

func (v Vec3) Idx(i int) float32 {
	switch i {
	default:
		return v.X
	case 1:
		return v.Y
	case 2:
		return v.Z
	}
}

// Length returns the length of the vector.
func (v Vec3) Length() float32 {
	return math32.Sqrt(Dot(v, v))
}

// Add returns a + b.
func Add(a, b Vec3) Vec3 {
	return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

// Sub returns a - b.
func Sub(a, b Vec3) Vec3 {
	return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

// Scale returns the vector multiplied by the scalar s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Normalize returns the normalized vector, or the zero vector if v has zero length.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// Dot returns a dot b.
func Dot(a, b Vec3) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

// Cross returns a cross b.
func Cross(a, b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Lerp computes a weighted average between two points.
func Lerp(a, b Vec3, frac float32) Vec3 {
	fi := 1 - frac
	return Vec3{
		fi*a.X + frac*b.X,
		fi*a.Y + frac*b.Y,
		fi*a.Z + frac*b.Z,
	}
}

// Equal returns a == b.
func Equal(a, b Vec3) bool {
	return a.X == b.X && a.Y == b.Y && a.Z == b.Z
}

func minmax(a, b float32) (float32, float32) {
	if a < b {
		return a, b
	}
	return b, a
}

// MinMax returns the componentwise (min, max) of a and b.
func MinMax(a, b Vec3) (Vec3, Vec3) {
	var r, s Vec3
	r.X, s.X = minmax(a.X, b.X)
	r.Y, s.Y = minmax(a.Y, b.Y)
	r.Z, s.Z = minmax(a.Z, b.Z)
	return r, s
}

// Bounds is an axis aligned bounding box over emitted geometry (spec §3 Mesh.bounds).
type Bounds struct {
	Min Vec3
	Max Vec3
}

// EmptyBounds returns an inverted bounds ready to be grown with Extend.
func EmptyBounds() Bounds {
	big := float32(3.402823e+38)
	return Bounds{
		Min: Vec3{big, big, big},
		Max: Vec3{-big, -big, -big},
	}
}

// Extend grows b to include p.
func (b Bounds) Extend(p Vec3) Bounds {
	mn, _ := MinMax(b.Min, p)
	_, mx := MinMax(b.Max, p)
	return Bounds{Min: mn, Max: mx}
}

// Size returns Max - Min componentwise.
func (b Bounds) Size() Vec3 {
	return Sub(b.Max, b.Min)
}
