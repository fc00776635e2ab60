// SPDX-License-Identifier: GPL-2.0-or-later

package mdl

import (
	"strings"

	"github.com/pkg/errors"

	"sourcemodel/internal/binreader"
	"sourcemodel/vec"
)

// ErrNotAStudioModel is returned for magic mismatch / unsupported version.
var ErrNotAStudioModel = errors.New("not a studio model")

// ErrMalformed is returned when a required offset or count fails bounds
// validation (spec §7).
var ErrMalformed = errors.New("malformed mdl")

// Reader is a lightweight, allocation-light view over an MDL buffer.
type Reader struct {
	buf []byte
	hdr header
}

// New validates the MDL magic and version (spec §4.1) and returns a Reader.
func New(buf []byte) (*Reader, error) {
	if len(buf) < HeaderSize {
		return nil, errors.Wrapf(ErrMalformed, "mdl buffer too small: %d bytes", len(buf))
	}
	var hdr header
	if err := binreader.ReadAt(buf, 0, &hdr); err != nil {
		return nil, errors.Wrap(err, "mdl header")
	}
	if hdr.ID != Magic {
		return nil, errors.Wrapf(ErrNotAStudioModel, "bad magic %#x", uint32(hdr.ID))
	}
	if hdr.Version < MinVersion || hdr.Version > MaxVersion {
		return nil, errors.Wrapf(ErrNotAStudioModel, "unsupported version %d", hdr.Version)
	}
	return &Reader{buf: buf, hdr: hdr}, nil
}

// Checksum is studiohdr_t.checksum, compared against VVD/VTX (spec §7).
func (r *Reader) Checksum() int32 { return r.hdr.Checksum }

// RootLOD is the LOD this decoder emits (spec §4.1, glossary "LOD").
func (r *Reader) RootLOD() int { return int(r.hdr.RootLOD) }

// Bone is the decoded view of one mstudiobone_t (spec §3 Bone).
type Bone struct {
	Name          string
	Parent        int // -1 for root
	Local         vec.Transform
	Euler         vec.Vec3
	PositionScale vec.Vec3
	RotationScale vec.Vec3
}

// NumBones is studiohdr_t.numbones.
func (r *Reader) NumBones() int { return int(r.hdr.NumBones) }

// Bone reads bone table entry i.
func (r *Reader) Bone(i int) (Bone, error) {
	if i < 0 || i >= int(r.hdr.NumBones) {
		return Bone{}, errors.Wrapf(ErrMalformed, "bone index %d out of range", i)
	}
	off := int(r.hdr.BoneIndex) + i*boneDescSize
	var d boneDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return Bone{}, errors.Wrapf(err, "bone %d", i)
	}
	name, err := binreader.CString(r.buf, off+int(d.NameIndex))
	if err != nil {
		return Bone{}, errors.Wrapf(err, "bone %d name", i)
	}
	q := vec.Quat{X: d.Quat[0], Y: d.Quat[1], Z: d.Quat[2], W: d.Quat[3]}
	return Bone{
		Name:   name,
		Parent: int(d.Parent),
		Local: vec.Transform{
			Position: vec.VFromA(d.Position),
			Rotation: q.Normalize(),
		},
		Euler:         vec.VFromA(d.Rotation),
		PositionScale: vec.VFromA(d.PositionScale),
		RotationScale: vec.VFromA(d.RotationScale),
	}, nil
}

// NumBodyParts is studiohdr_t.numbodyparts.
func (r *Reader) NumBodyParts() int { return int(r.hdr.NumBodyParts) }

// BodyPart is one mstudiobodyparts_t entry's metadata.
type BodyPart struct {
	Name      string
	NumModels int
	modelBase int // absolute offset of this body part's model table
}

// BodyPart reads body-part table entry i.
func (r *Reader) BodyPart(i int) (BodyPart, error) {
	if i < 0 || i >= int(r.hdr.NumBodyParts) {
		return BodyPart{}, errors.Wrapf(ErrMalformed, "bodypart index %d out of range", i)
	}
	off := int(r.hdr.BodyPartIndex) + i*bodyPartDescSize
	var d bodyPartDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return BodyPart{}, errors.Wrapf(err, "bodypart %d", i)
	}
	name, err := binreader.CString(r.buf, off+int(d.NameIndex))
	if err != nil {
		return BodyPart{}, errors.Wrapf(err, "bodypart %d name", i)
	}
	return BodyPart{
		Name:      name,
		NumModels: int(d.NumModels),
		modelBase: off + int(d.ModelIndex),
	}, nil
}

// Eyeball is the decoded view of one mstudioeyeball_t (spec §4.3 step 3).
type Eyeball struct {
	Origin    vec.Vec3
	Forward   vec.Vec3
	Up        vec.Vec3
	Texture   int
	IrisScale float32
	Radius    float32
}

// SubModel is one mstudiomodel_t entry's metadata.
type SubModel struct {
	Name        string
	NumMeshes   int
	meshBase    int
	NumVertices int
	VertexIndex int32 // byte offset into the VVD vertex stream
	NumEyeballs int
	eyeballBase int
}

// SubModel reads sub-model modelIdx of body part bp.
func (r *Reader) SubModel(bp BodyPart, modelIdx int) (SubModel, error) {
	if modelIdx < 0 || modelIdx >= bp.NumModels {
		return SubModel{}, errors.Wrapf(ErrMalformed, "submodel index %d out of range", modelIdx)
	}
	off := bp.modelBase + modelIdx*modelDescSize
	var d modelDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return SubModel{}, errors.Wrapf(err, "submodel %d", modelIdx)
	}
	name := strings.TrimRight(string(d.Name[:]), "\x00")
	return SubModel{
		Name:        name,
		NumMeshes:   int(d.NumMeshes),
		meshBase:    off + int(d.MeshIndex),
		NumVertices: int(d.NumVertices),
		VertexIndex: d.VertexIndex,
		NumEyeballs: int(d.NumEyeballs),
		eyeballBase: off + int(d.EyeballIndex),
	}, nil
}

// Eyeball reads eyeball entry i of sub-model sm.
func (r *Reader) Eyeball(sm SubModel, i int) (Eyeball, error) {
	if i < 0 || i >= sm.NumEyeballs {
		return Eyeball{}, errors.Wrapf(ErrMalformed, "eyeball index %d out of range", i)
	}
	off := sm.eyeballBase + i*eyeballDescSize
	var d eyeballDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return Eyeball{}, errors.Wrapf(err, "eyeball %d", i)
	}
	return Eyeball{
		Origin:    vec.VFromA(d.Origin),
		Forward:   vec.VFromA(d.Forward),
		Up:        vec.VFromA(d.Up),
		Texture:   int(d.Texture),
		IrisScale: d.IrisScale,
		Radius:    d.Radius,
	}, nil
}

// Mesh is one mstudiomesh_t entry's metadata.
type Mesh struct {
	Material     int
	NumVertices  int
	VertexOffset int // in vertices, relative to the sub-model's vertex range
}

// Mesh reads mesh entry i of sub-model sm.
func (r *Reader) Mesh(sm SubModel, i int) (Mesh, error) {
	if i < 0 || i >= sm.NumMeshes {
		return Mesh{}, errors.Wrapf(ErrMalformed, "mesh index %d out of range", i)
	}
	off := sm.meshBase + i*meshDescSize
	var d meshDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return Mesh{}, errors.Wrapf(err, "mesh %d", i)
	}
	return Mesh{
		Material:     int(d.Material),
		NumVertices:  int(d.NumVertices),
		VertexOffset: int(d.VertexOffset),
	}, nil
}

// NumTextures is studiohdr_t.numtextures.
func (r *Reader) NumTextures() int { return int(r.hdr.NumTextures) }

// TextureName returns the (un-normalized) name of texture-table entry i.
func (r *Reader) TextureName(i int) (string, error) {
	if i < 0 || i >= int(r.hdr.NumTextures) {
		return "", errors.Wrapf(ErrMalformed, "texture index %d out of range", i)
	}
	off := int(r.hdr.TextureIndex) + i*textureDescSize
	var d textureDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return "", errors.Wrapf(err, "texture %d", i)
	}
	return binreader.CString(r.buf, off+int(d.NameIndex))
}

// NumCDTextures is studiohdr_t.numcdtextures.
func (r *Reader) NumCDTextures() int { return int(r.hdr.NumCDTextures) }

// CDTexturePath returns CD-texture search path entry i (spec §4.6).
func (r *Reader) CDTexturePath(i int) (string, error) {
	if i < 0 || i >= int(r.hdr.NumCDTextures) {
		return "", errors.Wrapf(ErrMalformed, "cdtexture index %d out of range", i)
	}
	offsets, err := binreader.Int32Array(r.buf, int(r.hdr.CDTextureIndex), int(r.hdr.NumCDTextures))
	if err != nil {
		return "", errors.Wrap(err, "cdtexture offsets")
	}
	return binreader.CString(r.buf, int(offsets[i]))
}

// NumIncludeModels is studiohdr_t.numincludemodels (spec §4.5 Include models).
func (r *Reader) NumIncludeModels() int { return int(r.hdr.NumIncludeModels) }

// IncludeModelPath returns the logical path of include-model entry i.
func (r *Reader) IncludeModelPath(i int) (string, error) {
	if i < 0 || i >= int(r.hdr.NumIncludeModels) {
		return "", errors.Wrapf(ErrMalformed, "include model index %d out of range", i)
	}
	off := int(r.hdr.IncludeModelIndex) + i*includeModelDescSize
	var d includeModelDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return "", errors.Wrapf(err, "include model %d", i)
	}
	return binreader.CString(r.buf, off+int(d.NameIndex))
}

// NumAnimBlocks is studiohdr_t.numanimblocks.
func (r *Reader) NumAnimBlocks() int { return int(r.hdr.NumAnimBlocks) }

// AnimBlockDataStart returns the absolute offset of anim-block i within the
// ANI side-file (spec §4.1: "block 0 always lives in the MDL buffer").
func (r *Reader) AnimBlockDataStart(i int) (int, error) {
	if i <= 0 || i >= int(r.hdr.NumAnimBlocks) {
		return 0, errors.Wrapf(ErrMalformed, "anim block index %d out of range", i)
	}
	off := int(r.hdr.AnimBlockIndex) + i*animBlockDescSize
	var d animBlockDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return 0, errors.Wrapf(err, "anim block %d", i)
	}
	return int(d.DataStart), nil
}

// NumSequences is studiohdr_t.numlocalseq.
func (r *Reader) NumSequences() int { return int(r.hdr.NumLocalSeq) }

// seqFlagLooping mirrors mstudioseqdesc_t's STUDIO_LOOPING bit.
const seqFlagLooping = 0x0001

// Sequence is one mstudioseqdesc_t entry's decoder-relevant metadata.
type Sequence struct {
	Name          string
	Looping       bool
	FirstAnimDesc int // index into the local anim-descriptor table, or -1
}

// Sequence reads sequence descriptor i and resolves the blend-(0,0) anim
// index (spec §4.5: "index (0, 0) is used").
func (r *Reader) Sequence(i int) (Sequence, error) {
	if i < 0 || i >= int(r.hdr.NumLocalSeq) {
		return Sequence{}, errors.Wrapf(ErrMalformed, "sequence index %d out of range", i)
	}
	off := int(r.hdr.LocalSeqIndex) + i*seqDescSize
	var d seqDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return Sequence{}, errors.Wrapf(err, "sequence %d", i)
	}
	name, err := binreader.CString(r.buf, off+int(d.LabelIndex))
	if err != nil {
		return Sequence{}, errors.Wrapf(err, "sequence %d name", i)
	}
	looping := d.Flags&seqFlagLooping != 0
	if d.NumBlends <= 0 {
		return Sequence{Name: name, Looping: looping, FirstAnimDesc: -1}, nil
	}
	idx, err := binreader.Int32Array(r.buf, off+int(d.AnimIndexIndex), 1)
	if err != nil {
		return Sequence{Name: name, Looping: looping, FirstAnimDesc: -1}, nil //nolint:nilerr // non-fatal per spec §7
	}
	return Sequence{Name: name, Looping: looping, FirstAnimDesc: int(idx[0])}, nil
}

// AnimDesc is one mstudioanimdesc_t entry's decoder-relevant metadata
// (spec §4.5 Per-animation metadata).
type AnimDesc struct {
	NumFrames     int
	Fps           float32
	Delta         bool
	AnimBlock     int
	// selfOffset is this descriptor's absolute position in the MDL buffer;
	// for block 0, animIndex (or a section-table index) is added to it to
	// get the absolute offset of the frame data.
	selfOffset    int
	animIndex     int32
	SectionFrames int
	sectionIndex  int32
}

// animFlagDelta mirrors mstudioanimdesc_t's delta bit (spec §4.5).
const animFlagDelta = 0x04

// NumLocalAnims is studiohdr_t.numlocalanim.
func (r *Reader) NumLocalAnims() int { return int(r.hdr.NumLocalAnim) }

// AnimDesc reads local anim-descriptor table entry i.
func (r *Reader) AnimDesc(i int) (AnimDesc, error) {
	if i < 0 || i >= int(r.hdr.NumLocalAnim) {
		return AnimDesc{}, errors.Wrapf(ErrMalformed, "anim desc index %d out of range", i)
	}
	off := int(r.hdr.LocalAnimIndex) + i*animDescSize
	var d animDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return AnimDesc{}, errors.Wrapf(err, "anim desc %d", i)
	}
	return AnimDesc{
		NumFrames:     int(d.NumFrames),
		Fps:           d.Fps,
		Delta:         d.Flags&animFlagDelta != 0,
		AnimBlock:     int(d.AnimBlock),
		selfOffset:    off,
		animIndex:     d.AnimIndex,
		SectionFrames: int(d.SectionFrames),
		sectionIndex:  d.SectionIndex,
	}, nil
}

// FrameDataOffset resolves the absolute MDL-buffer offset of this anim's
// bone-record chain for block 0 (spec §4.5 step 1). Callers must add the
// ANI block's DataStart themselves for AnimBlock != 0.
func (a AnimDesc) FrameDataOffset() int {
	return a.selfOffset + int(a.animIndex)
}

// DefaultBlockIndex returns the (block, index) pair this anim uses absent
// segmented storage (spec §4.5 step 1's "Otherwise use (AnimBlock, AnimIndex)").
func (a AnimDesc) DefaultBlockIndex() (block int, index int32) {
	return a.AnimBlock, a.animIndex
}

// ResolveLocalOffset computes the absolute MDL-buffer offset for a
// block-0 (block, index) pair, whether index came from AnimIndex directly
// or from a section-table entry (spec §4.5 step 1: "Block 0 resolves
// within the MDL buffer at animDesc_offset + index").
func (a AnimDesc) ResolveLocalOffset(index int32) int {
	return a.selfOffset + int(index)
}

// Buf exposes the raw MDL buffer for block-0 frame-data reads.
func (r *Reader) Buf() []byte { return r.buf }

// SectionTableOffset resolves the absolute offset of the (block, index)
// section table, or 0, false if this anim has no segmented storage.
func (a AnimDesc) SectionTableOffset() (int, bool) {
	if a.SectionFrames == 0 {
		return 0, false
	}
	return a.selfOffset + int(a.sectionIndex), true
}

// SectionEntry reads {block, index} pair sectionIdx from the section table
// at tableOffset.
func (r *Reader) SectionEntry(tableOffset, sectionIdx int) (block int, index int32, err error) {
	vals, err := binreader.Int32Array(r.buf, tableOffset+sectionIdx*8, 2)
	if err != nil {
		return 0, 0, err
	}
	return int(vals[0]), vals[1], nil
}

// BoneRecordHeader is one {bone, flags, next_offset} triple from a frame's
// per-bone record chain (spec §4.5 step 2).
type BoneRecordHeader struct {
	Bone    int
	Flags   byte
	Payload int // absolute offset of this record's payload (record + 4)
	Next    int // absolute offset of the next record, or 0 if terminal
}

// BoneRecord reads the 4-byte record header at offset (absolute, within
// whichever buffer block/section resolution selected).
func BoneRecord(buf []byte, offset int) (BoneRecordHeader, error) {
	if err := binreader.CheckBounds(buf, offset, 4); err != nil {
		return BoneRecordHeader{}, err
	}
	bone := buf[offset]
	flags := buf[offset+1]
	next := int(int16(uint16(buf[offset+2]) | uint16(buf[offset+3])<<8))
	rec := BoneRecordHeader{Bone: int(bone), Flags: flags, Payload: offset + 4}
	if next != 0 {
		rec.Next = offset + next
	}
	return rec, nil
}
