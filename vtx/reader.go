// SPDX-License-Identifier: GPL-2.0-or-later

// Package vtx is a structured reader over the VTX (OptimizedModel) buffer:
// the nested body-part/model/LOD/mesh/strip-group/strip topology tables
// (spec §4.1). The nested directory-of-tables idiom generalizes the
// teacher's bsp lump directory (a flat offset/size table) to the deeper
// VTX hierarchy, where each table row is itself the base offset for a
// child table.
package vtx

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"sourcemodel/internal/binreader"
)

// Table row strides, computed from the struct layouts rather than hand
// counted (see mdl/types.go for why).
var (
	bodyPartDescSize  = binary.Size(bodyPartDesc{})
	modelDescSize     = binary.Size(modelDesc{})
	lodDescSize       = binary.Size(lodDesc{})
	meshDescSize      = binary.Size(meshDesc{})
	stripGroupDescSize = binary.Size(stripGroupDesc{})
	stripDescSize     = binary.Size(stripDesc{})
	vertexDescSize    = binary.Size(vertexDesc{})
)

const (
	Version = 7

	// StripFlagTriList and StripFlagTriStrip are strip_t.flags bits (spec §4.1).
	StripFlagTriList  = 0x01
	StripFlagTriStrip = 0x02
)

// ErrMissingRequiredSibling is returned for a version mismatch.
var ErrMissingRequiredSibling = errors.New("vtx: missing or invalid required sibling")

// ErrMalformed is returned when an offset or count fails bounds validation.
var ErrMalformed = errors.New("vtx: malformed")

// header mirrors OptimizedModel::FileHeader_t's essential fields.
type header struct {
	Version int32

	VertCacheSize        int32
	MaxBonesPerStrip     uint16
	MaxBonesPerTri       uint16
	MaxBonesPerVert      int32

	Checksum int32

	NumLODs int32

	MaterialReplacementListIndex int32

	NumBodyParts  int32
	BodyPartIndex int32
}

var headerSize = binary.Size(header{})

// bodyPartDesc mirrors BodyPartHeader_t.
type bodyPartDesc struct {
	NumModels  int32
	ModelIndex int32
}

// modelDesc mirrors ModelHeader_t.
type modelDesc struct {
	NumLODs  int32
	LODIndex int32
}

// lodDesc mirrors ModelLODHeader_t.
type lodDesc struct {
	NumMeshes  int32
	MeshIndex  int32
	SwitchPoint float32
}

// meshDesc mirrors MeshHeader_t.
type meshDesc struct {
	NumStripGroups  int32
	StripGroupIndex int32
	Flags           byte
}

// stripGroupDesc mirrors StripGroupHeader_t.
type stripGroupDesc struct {
	NumVerts  int32
	VertIndex int32

	NumIndices  int32
	IndexIndex  int32

	NumStrips  int32
	StripIndex int32

	Flags byte
}

// stripDesc mirrors StripHeader_t's essential fields.
type stripDesc struct {
	NumIndices  int32
	IndexOffset int32

	NumVerts  int32
	VertOffset int32

	NumBones int16

	Flags byte

	NumBoneStateChanges int32
	BoneStateChangeIndex int32
}

// vertexDesc mirrors Vertex_t (the strip-group vertex record).
type vertexDesc struct {
	BoneWeightIndex [3]byte
	NumBones        byte

	OrigMeshVertID uint16

	BoneID [3]byte
}

// Reader is a lightweight view over a VTX buffer.
type Reader struct {
	buf []byte
	hdr header
}

// New validates the VTX version (spec §4.1) and returns a Reader.
func New(buf []byte) (*Reader, error) {
	if len(buf) < headerSize {
		return nil, errors.Wrapf(ErrMalformed, "vtx buffer too small: %d bytes", len(buf))
	}
	var hdr header
	if err := binreader.ReadAt(buf, 0, &hdr); err != nil {
		return nil, errors.Wrap(err, "vtx header")
	}
	if hdr.Version != Version {
		return nil, errors.Wrapf(ErrMissingRequiredSibling, "unsupported vtx version %d", hdr.Version)
	}
	return &Reader{buf: buf, hdr: hdr}, nil
}

// Checksum is FileHeader_t.checkSum, compared against the MDL (spec §7).
func (r *Reader) Checksum() int32 { return r.hdr.Checksum }

// NumBodyParts is the top-level body-part count; expected to match the MDL's.
func (r *Reader) NumBodyParts() int { return int(r.hdr.NumBodyParts) }

func (r *Reader) bodyPartAt(i int) (bodyPartDesc, int, error) {
	if i < 0 || i >= int(r.hdr.NumBodyParts) {
		return bodyPartDesc{}, 0, errors.Wrapf(ErrMalformed, "vtx body part %d out of range (have %d)", i, r.hdr.NumBodyParts)
	}
	off := int(r.hdr.BodyPartIndex) + i*bodyPartDescSize
	var d bodyPartDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return bodyPartDesc{}, 0, errors.Wrapf(err, "vtx body part %d", i)
	}
	return d, off, nil
}

// NumModels returns bodyPart bp's model count.
func (r *Reader) NumModels(bp int) (int, error) {
	d, _, err := r.bodyPartAt(bp)
	if err != nil {
		return 0, err
	}
	return int(d.NumModels), nil
}

func (r *Reader) modelAt(bp, model int) (modelDesc, int, error) {
	bpDesc, bpOff, err := r.bodyPartAt(bp)
	if err != nil {
		return modelDesc{}, 0, err
	}
	if model < 0 || model >= int(bpDesc.NumModels) {
		return modelDesc{}, 0, errors.Wrapf(ErrMalformed, "vtx model %d out of range (body part %d has %d)", model, bp, bpDesc.NumModels)
	}
	off := bpOff + int(bpDesc.ModelIndex) + model*modelDescSize
	var d modelDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return modelDesc{}, 0, errors.Wrapf(err, "vtx model (%d,%d)", bp, model)
	}
	return d, off, nil
}

// NumLODs returns the LOD count for the given (bodyPart, model).
func (r *Reader) NumLODs(bp, model int) (int, error) {
	d, _, err := r.modelAt(bp, model)
	if err != nil {
		return 0, err
	}
	return int(d.NumLODs), nil
}

func (r *Reader) lodAt(bp, model, lod int) (lodDesc, int, error) {
	mDesc, mOff, err := r.modelAt(bp, model)
	if err != nil {
		return lodDesc{}, 0, err
	}
	if lod < 0 || lod >= int(mDesc.NumLODs) {
		return lodDesc{}, 0, errors.Wrapf(ErrMalformed, "vtx lod %d out of range", lod)
	}
	off := mOff + int(mDesc.LODIndex) + lod*lodDescSize
	var d lodDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return lodDesc{}, 0, errors.Wrapf(err, "vtx lod (%d,%d,%d)", bp, model, lod)
	}
	return d, off, nil
}

// NumMeshes returns the mesh count for the given (bodyPart, model, lod).
func (r *Reader) NumMeshes(bp, model, lod int) (int, error) {
	d, _, err := r.lodAt(bp, model, lod)
	if err != nil {
		return 0, err
	}
	return int(d.NumMeshes), nil
}

func (r *Reader) meshAt(bp, model, lod, mesh int) (meshDesc, int, error) {
	lDesc, lOff, err := r.lodAt(bp, model, lod)
	if err != nil {
		return meshDesc{}, 0, err
	}
	if mesh < 0 || mesh >= int(lDesc.NumMeshes) {
		return meshDesc{}, 0, errors.Wrapf(ErrMalformed, "vtx mesh %d out of range", mesh)
	}
	off := lOff + int(lDesc.MeshIndex) + mesh*meshDescSize
	var d meshDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return meshDesc{}, 0, errors.Wrapf(err, "vtx mesh (%d,%d,%d,%d)", bp, model, lod, mesh)
	}
	return d, off, nil
}

// NumStripGroups returns the strip-group count for the given mesh location.
func (r *Reader) NumStripGroups(bp, model, lod, mesh int) (int, error) {
	d, _, err := r.meshAt(bp, model, lod, mesh)
	if err != nil {
		return 0, err
	}
	return int(d.NumStripGroups), nil
}

func (r *Reader) stripGroupAt(bp, model, lod, mesh, sg int) (stripGroupDesc, int, error) {
	mDesc, mOff, err := r.meshAt(bp, model, lod, mesh)
	if err != nil {
		return stripGroupDesc{}, 0, err
	}
	if sg < 0 || sg >= int(mDesc.NumStripGroups) {
		return stripGroupDesc{}, 0, errors.Wrapf(ErrMalformed, "vtx strip group %d out of range", sg)
	}
	off := mOff + int(mDesc.StripGroupIndex) + sg*stripGroupDescSize
	var d stripGroupDesc
	if err := binreader.ReadAt(r.buf, off, &d); err != nil {
		return stripGroupDesc{}, 0, errors.Wrapf(err, "vtx strip group (%d,%d,%d,%d,%d)", bp, model, lod, mesh, sg)
	}
	return d, off, nil
}

// Strip is a decoded strip_t: an index-buffer run plus its primitive kind.
type Strip struct {
	IndexOffset int
	NumIndices  int
	TriList     bool
	TriStrip    bool
}

// StripGroup is a strip-group's decoded vertex-ref table, index buffer, and
// strips, ready for the mesh assembler (spec §4.3 step 4).
type StripGroup struct {
	// OrigMeshVertID[i] is the strip-group-local vertex i's original mesh
	// vertex id (spec §4.1): add meshVertexOffset to get the global VVD index.
	OrigMeshVertID []uint16
	// Indices are into OrigMeshVertID, not directly into the VVD stream.
	Indices []uint16
	Strips  []Strip
}

// StripGroup reads and decodes one strip-group's vertex/index/strip tables.
func (r *Reader) StripGroup(bp, model, lod, mesh, sg int) (StripGroup, error) {
	d, off, err := r.stripGroupAt(bp, model, lod, mesh, sg)
	if err != nil {
		return StripGroup{}, err
	}

	verts := make([]uint16, d.NumVerts)
	for i := 0; i < int(d.NumVerts); i++ {
		vOff := off + int(d.VertIndex) + i*vertexDescSize
		var vd vertexDesc
		if err := binreader.ReadAt(r.buf, vOff, &vd); err != nil {
			return StripGroup{}, errors.Wrapf(err, "vtx strip group vertex %d", i)
		}
		verts[i] = vd.OrigMeshVertID
	}

	indices := make([]uint16, d.NumIndices)
	idxBase := off + int(d.IndexIndex)
	if err := binreader.CheckBounds(r.buf, idxBase, int(d.NumIndices)*2); err != nil {
		return StripGroup{}, errors.Wrap(err, "vtx strip group index buffer")
	}
	for i := 0; i < int(d.NumIndices); i++ {
		indices[i] = uint16(r.buf[idxBase+i*2]) | uint16(r.buf[idxBase+i*2+1])<<8
	}

	strips := make([]Strip, d.NumStrips)
	for i := 0; i < int(d.NumStrips); i++ {
		sOff := off + int(d.StripIndex) + i*stripDescSize
		var sd stripDesc
		if err := binreader.ReadAt(r.buf, sOff, &sd); err != nil {
			return StripGroup{}, errors.Wrapf(err, "vtx strip %d", i)
		}
		strips[i] = Strip{
			IndexOffset: int(sd.IndexOffset),
			NumIndices:  int(sd.NumIndices),
			TriList:     sd.Flags&StripFlagTriList != 0,
			TriStrip:    sd.Flags&StripFlagTriStrip != 0,
		}
	}

	return StripGroup{OrigMeshVertID: verts, Indices: indices, Strips: strips}, nil
}
