// SPDX-License-Identifier: GPL-2.0-or-later

// Package vvd is a structured reader over the VVD (vertexFileHeader_t)
// buffer: the fixed-layout vertex stream plus its LOD fixup table, and the
// parallel tangent stream (spec §4.1).
package vvd

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"sourcemodel/internal/binreader"
	"sourcemodel/vec"
)

const (
	// Magic is vertexFileHeader_t.id, ASCII "IDSV" read little-endian.
	Magic   = 'I' | 'D'<<8 | 'S'<<16 | 'V'<<24
	Version = 4

	// VertexSize is the fixed per-vertex record size (spec §4.1).
	VertexSize = 48
	// TangentSize is the fixed per-vertex tangent record size.
	TangentSize = 16
)

// ErrMissingRequiredSibling is returned for magic/version mismatches.
var ErrMissingRequiredSibling = errors.New("vvd: missing or invalid required sibling")

// ErrMalformed is returned when an offset or count fails bounds validation.
var ErrMalformed = errors.New("vvd: malformed")

type header struct {
	ID       int32
	Version  int32
	Checksum int32

	NumLODs    int32
	NumVerticesPerLOD [8]int32

	NumFixups  int32
	FixupTableIndex int32
	VertexDataIndex int32
	TangentDataIndex int32
}

var headerSize = binary.Size(header{})

// fixup mirrors vertexFileFixup_t.
type fixup struct {
	FixupLOD     int32
	SourceVertexID int32
	NumVertices    int32
}

var fixupSize = binary.Size(fixup{})

// rawVertex mirrors mstudiovertex_t, exactly 48 bytes (spec §4.1).
type rawVertex struct {
	Weight    [3]float32
	Bone      [3]byte
	NumBones  byte
	Position  [3]float32
	Normal    [3]float32
	UV        [2]float32
}

// Vertex is the decoded view of one VVD vertex, paired with its tangent.
type Vertex struct {
	Position vec.Vec3
	Normal   vec.Vec3
	UV       vec.Vec2
	BoneIDs  [3]int
	Weights  [3]float32
	NumBones int
	Tangent  vec.Vec4
}

// Reader is a lightweight view over a VVD buffer.
type Reader struct {
	buf []byte
	hdr header
}

// New validates the VVD magic/version (spec §4.1) and returns a Reader.
func New(buf []byte) (*Reader, error) {
	if len(buf) < headerSize {
		return nil, errors.Wrapf(ErrMalformed, "vvd buffer too small: %d bytes", len(buf))
	}
	var hdr header
	if err := binreader.ReadAt(buf, 0, &hdr); err != nil {
		return nil, errors.Wrap(err, "vvd header")
	}
	if hdr.ID != Magic {
		return nil, errors.Wrapf(ErrMissingRequiredSibling, "bad vvd magic %#x", uint32(hdr.ID))
	}
	if hdr.Version != Version {
		return nil, errors.Wrapf(ErrMissingRequiredSibling, "unsupported vvd version %d", hdr.Version)
	}
	return &Reader{buf: buf, hdr: hdr}, nil
}

// Checksum is vertexFileHeader_t.checksum, compared against the MDL (spec §7).
func (r *Reader) Checksum() int32 { return r.hdr.Checksum }

func (r *Reader) rawVertexAt(globalIdx int) (rawVertex, error) {
	off := int(r.hdr.VertexDataIndex) + globalIdx*VertexSize
	var v rawVertex
	if err := binreader.ReadAt(r.buf, off, &v); err != nil {
		return rawVertex{}, errors.Wrapf(err, "vertex %d", globalIdx)
	}
	return v, nil
}

func (r *Reader) tangentAt(globalIdx int) (vec.Vec4, error) {
	if r.hdr.TangentDataIndex == 0 {
		return vec.Vec4{0, 0, 0, 1}, nil
	}
	off := int(r.hdr.TangentDataIndex) + globalIdx*TangentSize
	var t [4]float32
	if err := binreader.ReadAt(r.buf, off, &t); err != nil {
		return vec.Vec4{}, errors.Wrapf(err, "tangent %d", globalIdx)
	}
	return vec.Vec4{X: t[0], Y: t[1], Z: t[2], W: t[3]}, nil
}

func (r *Reader) vertexAt(globalIdx int) (Vertex, error) {
	raw, err := r.rawVertexAt(globalIdx)
	if err != nil {
		return Vertex{}, err
	}
	tan, err := r.tangentAt(globalIdx)
	if err != nil {
		return Vertex{}, err
	}
	nb := int(raw.NumBones)
	if nb > 3 {
		nb = 3
	}
	v := Vertex{
		Position: vec.VFromA(raw.Position),
		Normal:   vec.VFromA(raw.Normal),
		UV:       vec.Vec2{X: raw.UV[0], Y: raw.UV[1]},
		NumBones: nb,
		Tangent:  tan,
	}
	for i := 0; i < nb; i++ {
		v.BoneIDs[i] = int(raw.Bone[i])
		v.Weights[i] = raw.Weight[i]
	}
	return v, nil
}

// VerticesForLOD returns the decoded vertex stream for rootLOD, applying
// the fixup table when present (spec §4.1, §4.3 step 2, spec §8 property 7
// "Fixup equivalence"). The "global VVD index" VTX vertex refs name (spec
// §4.1) is exactly the position of a vertex within this returned slice: the
// fixup table remaps which source vertices appear there, but downstream
// consumers always address by position, never by raw file offset.
func (r *Reader) VerticesForLOD(rootLOD int) ([]Vertex, error) {
	if r.hdr.NumFixups == 0 {
		total := int(r.hdr.NumVerticesPerLOD[0])
		vertices := make([]Vertex, 0, total)
		for i := 0; i < total; i++ {
			v, err := r.vertexAt(i)
			if err != nil {
				return nil, err
			}
			vertices = append(vertices, v)
		}
		return vertices, nil
	}

	fixups := make([]fixup, r.hdr.NumFixups)
	for i := range fixups {
		off := int(r.hdr.FixupTableIndex) + i*fixupSize
		if err := binreader.ReadAt(r.buf, off, &fixups[i]); err != nil {
			return nil, errors.Wrapf(err, "fixup %d", i)
		}
	}

	var vertices []Vertex
	for _, f := range fixups {
		if int(f.FixupLOD) < rootLOD {
			continue
		}
		for j := 0; j < int(f.NumVertices); j++ {
			src := int(f.SourceVertexID) + j
			v, err := r.vertexAt(src)
			if err != nil {
				return nil, err
			}
			vertices = append(vertices, v)
		}
	}
	return vertices, nil
}
