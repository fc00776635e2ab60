// SPDX-License-Identifier: GPL-2.0-or-later

// Package anim decodes per-sequence animation frames from the MDL's local
// anim-descriptor tables and, for non-zero anim blocks, the companion ANI
// side-file (spec §4.5). The per-bone record chain walk generalizes the
// teacher's progs table-offset-relative reads to a linked chain instead
// of a flat array.
package anim

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"

	"sourcemodel/mdl"
	"sourcemodel/model"
	"sourcemodel/vec"
)

// Bone record flag bits (spec §4.5 step 4).
const (
	flagRawPos  = 0x01
	flagRawRot  = 0x02
	flagAnimPos = 0x04
	flagAnimRot = 0x08
	flagRawRot2 = 0x20
)

// BasePose is one bone's reference pose, needed to reconstruct non-delta
// animation values (spec §4.5 step 3-4).
type BasePose struct {
	Position  vec.Vec3
	Rotation  vec.Quat
	Euler     vec.Vec3
	PosScale  vec.Vec3
	RotScale  vec.Vec3
}

// Decode produces one model.Animation per sequence with a resolvable
// first animation descriptor (spec §4.5). boneRemap maps a local bone
// index (as seen in this MDL's own bone-record chains) to a destination
// bone index in the main skeleton; pass nil for the main model itself
// (identity remap). aniBuf may be nil if no .ani side-file was found.
func Decode(r *mdl.Reader, aniBuf []byte, basePose []BasePose, destBoneCount int, boneRemap []int) ([]model.Animation, error) {
	var out []model.Animation
	for i := 0; i < r.NumSequences(); i++ {
		seq, err := r.Sequence(i)
		if err != nil {
			return nil, errors.Wrapf(err, "sequence %d", i)
		}
		if seq.FirstAnimDesc < 0 {
			continue
		}
		ad, err := r.AnimDesc(seq.FirstAnimDesc)
		if err != nil {
			return nil, errors.Wrapf(err, "sequence %q anim desc", seq.Name)
		}
		if ad.NumFrames <= 0 {
			continue
		}

		frames := make([]model.AnimationFrame, 0, ad.NumFrames)
		for k := 0; k < ad.NumFrames; k++ {
			frame, ok := decodeFrame(r, aniBuf, ad, k, basePose, destBoneCount, boneRemap)
			if !ok {
				continue // skip unresolvable frame (spec §4.5 step 1)
			}
			frames = append(frames, frame)
		}

		out = append(out, model.Animation{
			Name:    seq.Name,
			Fps:     ad.Fps,
			Looping: seq.Looping,
			Delta:   ad.Delta,
			Frames:  frames,
		})
	}
	return out, nil
}

// resolveFrameData implements spec §4.5 step 1: locate the (buf, offset)
// for frame k's bone-record chain, and the frame-relative index to feed
// ExtractAnimValue and the section-table's k-special-case.
func resolveFrameData(r *mdl.Reader, aniBuf []byte, ad mdl.AnimDesc, k int) (buf []byte, offset int, relFrame int, ok bool) {
	if ad.SectionFrames != 0 {
		tableOffset, has := ad.SectionTableOffset()
		if !has {
			return nil, 0, 0, false
		}
		var sectionIdx, rel int
		if k == ad.NumFrames-1 {
			sectionIdx = ad.NumFrames/ad.SectionFrames + 1
			rel = 0
		} else {
			sectionIdx = k / ad.SectionFrames
			rel = k % ad.SectionFrames
		}
		block, index, err := r.SectionEntry(tableOffset, sectionIdx)
		if err != nil {
			return nil, 0, 0, false
		}
		buf, offset, ok = resolveBlock(r, aniBuf, block, index, ad)
		return buf, offset, rel, ok
	}

	block, index := ad.DefaultBlockIndex()
	buf, offset, ok = resolveBlock(r, aniBuf, block, index, ad)
	return buf, offset, k, ok
}

func resolveBlock(r *mdl.Reader, aniBuf []byte, block int, index int32, ad mdl.AnimDesc) ([]byte, int, bool) {
	if block == 0 {
		return r.Buf(), ad.ResolveLocalOffset(index), true
	}
	if aniBuf == nil {
		return nil, 0, false
	}
	start, err := r.AnimBlockDataStart(block)
	if err != nil {
		return nil, 0, false
	}
	return aniBuf, start + int(index), true
}

func decodeFrame(r *mdl.Reader, aniBuf []byte, ad mdl.AnimDesc, k int, basePose []BasePose, destBoneCount int, boneRemap []int) (model.AnimationFrame, bool) {
	buf, offset, relFrame, ok := resolveFrameData(r, aniBuf, ad, k)
	if !ok {
		return model.AnimationFrame{}, false
	}

	transforms := make([]vec.Transform, destBoneCount)
	for b := 0; b < destBoneCount; b++ {
		if ad.Delta {
			transforms[b] = vec.IdentityTransform()
		} else if b < len(basePose) {
			transforms[b] = vec.Transform{Position: basePose[b].Position, Rotation: basePose[b].Rotation}
		} else {
			transforms[b] = vec.IdentityTransform()
		}
	}

	cur := offset
	for {
		rec, err := mdl.BoneRecord(buf, cur)
		if err != nil {
			break
		}

		destBone := rec.Bone
		if boneRemap != nil {
			if rec.Bone >= len(boneRemap) {
				destBone = -1
			} else {
				destBone = boneRemap[rec.Bone]
			}
		}

		if destBone >= 0 && destBone < destBoneCount && rec.Bone < len(basePose) {
			transforms[destBone] = decodeBone(buf, rec, basePose[rec.Bone], ad.Delta, relFrame)
		}

		if rec.Next == 0 {
			break
		}
		cur = rec.Next
	}

	return model.AnimationFrame{Transforms: transforms}, true
}

func decodeBone(buf []byte, rec mdl.BoneRecordHeader, base BasePose, delta bool, k int) vec.Transform {
	payload := rec.Payload
	rotation, havRot := decodeRotation(buf, rec.Flags, payload, base, delta, k)

	posPayload := payload
	switch {
	case rec.Flags&flagRawRot != 0:
		posPayload += 6
	case rec.Flags&flagRawRot2 != 0:
		posPayload += 8
	case rec.Flags&flagAnimRot != 0:
		posPayload += 6
	}
	position, havPos := decodePosition(buf, rec.Flags, posPayload, base, delta, k)

	if !havRot {
		if delta {
			rotation = vec.Identity()
		} else {
			rotation = base.Rotation
		}
	}
	if !havPos {
		if delta {
			position = vec.Vec3{}
		} else {
			position = base.Position
		}
	}

	return vec.Transform{Position: position, Rotation: rotation}
}

func decodeRotation(buf []byte, flags byte, payload int, base BasePose, delta bool, k int) (vec.Quat, bool) {
	switch {
	case flags&flagRawRot != 0:
		return decodeQuat48(buf, payload), true
	case flags&flagRawRot2 != 0:
		return decodeQuat64(buf, payload), true
	case flags&flagAnimRot != 0:
		euler := decodeCompressedVec3(buf, payload, base.RotScale, k)
		if !delta {
			euler = vec.Add(euler, base.Euler)
		}
		return vec.FromEulerXYZ(euler), true
	}
	return vec.Quat{}, false
}

func decodePosition(buf []byte, flags byte, payload int, base BasePose, delta bool, k int) (vec.Vec3, bool) {
	switch {
	case flags&flagRawPos != 0:
		return decodeVecHalf(buf, payload), true
	case flags&flagAnimPos != 0:
		pos := decodeCompressedVec3(buf, payload, base.PosScale, k)
		if !delta {
			pos = vec.Add(pos, base.Position)
		}
		return pos, true
	}
	return vec.Vec3{}, false
}

func fits(buf []byte, off, n int) bool {
	return off >= 0 && n >= 0 && off+n <= len(buf)
}

func u16le(buf []byte, off int) uint16 {
	if !fits(buf, off, 2) {
		return 0
	}
	return uint16(buf[off]) | uint16(buf[off+1])<<8
}

func i16le(buf []byte, off int) int16 {
	return int16(u16le(buf, off))
}

// decodeVecHalf decodes three half-floats (spec §4.5 "Vector half").
func decodeVecHalf(buf []byte, off int) vec.Vec3 {
	return vec.Vec3{
		X: vec.HalfToFloat32(u16le(buf, off)),
		Y: vec.HalfToFloat32(u16le(buf, off+2)),
		Z: vec.HalfToFloat32(u16le(buf, off+4)),
	}
}

// decodeQuat48 decodes a compressed quaternion48 (spec §4.5).
func decodeQuat48(buf []byte, off int) vec.Quat {
	if !fits(buf, off, 6) {
		return vec.Identity()
	}
	xRaw := u16le(buf, off)
	yRaw := u16le(buf, off+2)
	zRaw := u16le(buf, off+4)

	x := (float32(xRaw) - 32768) / 32768
	y := (float32(yRaw) - 32768) / 32768
	z := (float32(zRaw&0x7fff) - 16384) / 16384

	w := math32.Sqrt(math32.Max(0, 1-x*x-y*y-z*z))
	if zRaw&0x8000 != 0 {
		w = -w
	}
	return vec.Quat{X: x, Y: y, Z: z, W: w}
}

// decodeQuat64 decodes a compressed quaternion64 (spec §4.5): three
// 21-bit fields packed low-to-high in a little-endian u64, sign of w
// from bit 63.
func decodeQuat64(buf []byte, off int) vec.Quat {
	if !fits(buf, off, 8) {
		return vec.Identity()
	}
	var raw uint64
	for i := 0; i < 8; i++ {
		raw |= uint64(buf[off+i]) << (8 * i)
	}

	const mask21 = (1 << 21) - 1
	xRaw := raw & mask21
	yRaw := (raw >> 21) & mask21
	zRaw := (raw >> 42) & mask21
	wNeg := raw&(1<<63) != 0

	x := (float32(xRaw) - 1048576) / 1048576.5
	y := (float32(yRaw) - 1048576) / 1048576.5
	z := (float32(zRaw) - 1048576) / 1048576.5

	w := math32.Sqrt(math32.Max(0, 1-x*x-y*y-z*z))
	if wNeg {
		w = -w
	}
	return vec.Quat{X: x, Y: y, Z: z, W: w}
}

// decodeCompressedVec3 decodes an AnimPos/AnimRot payload: three i16
// sub-offsets, each either 0 (axis value 0) or the relative offset of an
// ExtractAnimValue RLE stream anchored at payload+subOffset, scaled by the
// corresponding scale component (spec §4.5).
func decodeCompressedVec3(buf []byte, payload int, scale vec.Vec3, k int) vec.Vec3 {
	subX := i16le(buf, payload)
	subY := i16le(buf, payload+2)
	subZ := i16le(buf, payload+4)

	return vec.Vec3{
		X: extractScaled(buf, payload, subX, scale.X, k),
		Y: extractScaled(buf, payload, subY, scale.Y, k),
		Z: extractScaled(buf, payload, subZ, scale.Z, k),
	}
}

func extractScaled(buf []byte, payload int, subOffset int16, scale float32, k int) float32 {
	if subOffset <= 0 {
		return 0
	}
	return float32(ExtractAnimValue(buf, payload+int(subOffset), k)) * scale
}

// ExtractAnimValue walks a run-length-encoded (valid, total) stream
// starting at off and returns the value for frame k (spec §4.5 step 5).
// Each run is a 2-byte header (valid, total) followed by valid i16
// values. Returns 0 on buffer overrun.
func ExtractAnimValue(buf []byte, off int, k int) int16 {
	for {
		if off+2 > len(buf) {
			return 0
		}
		valid := int(buf[off])
		total := int(buf[off+1])
		if total == 0 {
			return 0
		}
		if k < total {
			idx := k
			if idx >= valid {
				idx = valid - 1
			}
			if idx < 0 {
				return 0
			}
			valOff := off + 2 + idx*2
			if valOff+2 > len(buf) {
				return 0
			}
			return i16le(buf, valOff)
		}
		k -= total
		off += 2 + valid*2
	}
}
