// SPDX-License-Identifier: GPL-2.0-or-later

package vec

import "math"

// HalfToFloat32 decodes an IEEE-754 binary16 value. Used by the animation
// decoder for RawPos payloads (spec §4.5), which store three half-floats
// per vector. No library in the example corpus offers a
// half-float decoder; this mirrors the bit-twiddling shape seen in
// other_examples/AzPepoze-linux-wallpaperengine's ad-hoc Float16 helper,
// written out in full (normals, subnormals, inf/nan) rather than the
// truncated "treat exp==0/31 as zero" version that helper used.
func HalfToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h&0x7c00) >> 10
	mant := uint32(h & 0x03ff)

	switch exp {
	case 0:
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		// subnormal half -> normalize into a normal float32
		e := uint32(127 - 15 + 1)
		for mant&0x0400 == 0 {
			mant <<= 1
			e--
		}
		mant &= 0x03ff
		return math.Float32frombits(sign | (e << 23) | (mant << 13))
	case 0x1f:
		// Inf/NaN
		return math.Float32frombits(sign | 0x7f800000 | (mant << 13))
	default:
		e := exp - 15 + 127
		return math.Float32frombits(sign | (e << 23) | (mant << 13))
	}
}
