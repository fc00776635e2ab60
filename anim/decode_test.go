// SPDX-License-Identifier: GPL-2.0-or-later

package anim

import (
	"encoding/binary"
	"testing"

	"sourcemodel/mdl"
	"sourcemodel/vec"
)

func mdlBoneRecordStub(bone int, flags byte) mdl.BoneRecordHeader {
	return mdl.BoneRecordHeader{Bone: bone, Flags: flags}
}

func TestExtractAnimValueHoldsLastValid(t *testing.T) {
	// One run: valid=2, total=5, values {10, 20}. Frames 0,1 read directly;
	// frames 2..4 hold the last valid value (spec §4.5 step 5).
	buf := []byte{2, 5, 0, 0, 0, 0}
	binary.LittleEndian.PutUint16(buf[2:], uint16(int16(10)))
	binary.LittleEndian.PutUint16(buf[4:], uint16(int16(20)))

	cases := []struct {
		k    int
		want int16
	}{
		{0, 10}, {1, 20}, {2, 20}, {3, 20}, {4, 20},
	}
	for _, c := range cases {
		if got := ExtractAnimValue(buf, 0, c.k); got != c.want {
			t.Errorf("ExtractAnimValue(k=%d) = %d, want %d", c.k, got, c.want)
		}
	}
}

func TestExtractAnimValueAdvancesAcrossRuns(t *testing.T) {
	// Run 1: valid=1,total=2, value {1}. Run 2: valid=1,total=1, value {99}.
	buf := []byte{1, 2, 0, 0, 1, 1, 0, 0}
	binary.LittleEndian.PutUint16(buf[2:], uint16(int16(1)))
	binary.LittleEndian.PutUint16(buf[6:], uint16(int16(99)))

	if got := ExtractAnimValue(buf, 0, 2); got != 99 {
		t.Errorf("ExtractAnimValue(k=2) = %d, want 99 (second run)", got)
	}
}

func TestExtractAnimValueOverrun(t *testing.T) {
	if got := ExtractAnimValue([]byte{}, 0, 0); got != 0 {
		t.Errorf("ExtractAnimValue on empty buffer = %d, want 0", got)
	}
}

func TestDecodeQuat48SignFlip(t *testing.T) {
	// Property 9: flipping bit 0x8000 of zRaw negates only w.
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[0:], 32768) // x = 0
	binary.LittleEndian.PutUint16(buf[2:], 32768) // y = 0
	binary.LittleEndian.PutUint16(buf[4:], 16384)  // z = 0, sign bit clear

	qPos := decodeQuat48(buf, 0)
	binary.LittleEndian.PutUint16(buf[4:], 16384|0x8000)
	qNeg := decodeQuat48(buf, 0)

	if qPos.X != qNeg.X || qPos.Y != qNeg.Y || qPos.Z != qNeg.Z {
		t.Fatalf("sign flip changed x/y/z: %v vs %v", qPos, qNeg)
	}
	if qPos.W != -qNeg.W {
		t.Errorf("sign flip did not negate w: %v vs %v", qPos.W, qNeg.W)
	}
}

func TestDecodeQuat48Bounds(t *testing.T) {
	if got := decodeQuat48([]byte{1, 2, 3}, 0); got != vec.Identity() {
		t.Errorf("decodeQuat48 with short buffer = %v, want identity", got)
	}
}

func TestDecodeVecHalf(t *testing.T) {
	buf := make([]byte, 6)
	binary.LittleEndian.PutUint16(buf[0:], 0x3c00) // 1.0
	binary.LittleEndian.PutUint16(buf[2:], 0x4000) // 2.0
	binary.LittleEndian.PutUint16(buf[4:], 0xbc00) // -1.0

	got := decodeVecHalf(buf, 0)
	want := vec.Vec3{X: 1, Y: 2, Z: -1}
	if got != want {
		t.Errorf("decodeVecHalf() = %v, want %v", got, want)
	}
}

func TestDecodeBoneNonDeltaNoFlagsIsBasePose(t *testing.T) {
	// Property 10: a bone record with no position/rotation flags set leaves
	// a non-delta animation at the base pose.
	base := BasePose{
		Position: vec.Vec3{X: 1, Y: 2, Z: 3},
		Rotation: vec.Quat{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9},
	}
	rec := mdlBoneRecordStub(0, 0)
	got := decodeBone(nil, rec, base, false, 0)
	if got.Position != base.Position || got.Rotation != base.Rotation {
		t.Errorf("decodeBone() = %+v, want base pose %+v", got, base)
	}
}

func TestDecodeBoneDeltaNoFlagsIsIdentity(t *testing.T) {
	base := BasePose{Position: vec.Vec3{X: 1, Y: 2, Z: 3}, Rotation: vec.Quat{W: 1}}
	rec := mdlBoneRecordStub(0, 0)
	got := decodeBone(nil, rec, base, true, 0)
	if got.Position != (vec.Vec3{}) {
		t.Errorf("delta decodeBone() position = %v, want zero", got.Position)
	}
	if got.Rotation != vec.Identity() {
		t.Errorf("delta decodeBone() rotation = %v, want identity", got.Rotation)
	}
}
