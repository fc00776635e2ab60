// SPDX-License-Identifier: GPL-2.0-or-later

package vec

import "github.com/chewxy/math32"

// Quat is a unit quaternion, X/Y/Z/W in Source's convention.
type Quat struct {
	X, Y, Z, W float32
}

// Identity is the no-rotation quaternion.
func Identity() Quat {
	return Quat{0, 0, 0, 1}
}

// Normalize returns q scaled to unit length, or Identity if q is degenerate.
func (q Quat) Normalize() Quat {
	l := math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if l == 0 {
		return Identity()
	}
	inv := 1 / l
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// Mul returns a composed with b, applying b first then a (a ∘ b).
func Mul(a, b Quat) Quat {
	return Quat{
		X: a.W*b.X + a.X*b.W + a.Y*b.Z - a.Z*b.Y,
		Y: a.W*b.Y - a.X*b.Z + a.Y*b.W + a.Z*b.X,
		Z: a.W*b.Z + a.X*b.Y - a.Y*b.X + a.Z*b.W,
		W: a.W*b.W - a.X*b.X - a.Y*b.Y - a.Z*b.Z,
	}
}

// RotateVec3 rotates v by q.
func RotateVec3(q Quat, v Vec3) Vec3 {
	qv := Vec3{q.X, q.Y, q.Z}
	uv := Cross(qv, v)
	uuv := Cross(qv, uv)
	return Add(v, Add(uv.Scale(2*q.W), uuv.Scale(2)))
}

// FromEulerXYZ builds a quaternion from Euler angles (radians) applied in
// the order X (roll), Y (pitch), Z (yaw) using the half-angle formula
// Source's studio model compiler uses for AnimRot reconstruction.
func FromEulerXYZ(e Vec3) Quat {
	sx, cx := math32.Sincos(e.X * 0.5)
	sy, cy := math32.Sincos(e.Y * 0.5)
	sz, cz := math32.Sincos(e.Z * 0.5)

	return Quat{
		X: sx*cy*cz - cx*sy*sz,
		Y: cx*sy*cz + sx*cy*sz,
		Z: cx*cy*sz - sx*sy*cz,
		W: cx*cy*cz + sx*sy*sz,
	}
}

// Inverse returns the inverse (conjugate, since q is assumed unit length) of q.
func (q Quat) Inverse() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// Transform is a rigid local-space transform: position + rotation.
type Transform struct {
	Position Vec3
	Rotation Quat
}

// IdentityTransform is the no-op transform.
func IdentityTransform() Transform {
	return Transform{Rotation: Identity()}
}

// Compose returns parent ∘ child: child expressed in parent's space,
// transformed into the space parent itself lives in.
func Compose(parent, child Transform) Transform {
	return Transform{
		Position: Add(parent.Position, RotateVec3(parent.Rotation, child.Position)),
		Rotation: Mul(parent.Rotation, child.Rotation).Normalize(),
	}
}

// Invert returns t⁻¹, such that Compose(t, t.Invert()) == Identity.
func (t Transform) Invert() Transform {
	inv := t.Rotation.Inverse()
	return Transform{
		Position: RotateVec3(inv, t.Position.Scale(-1)),
		Rotation: inv,
	}
}
