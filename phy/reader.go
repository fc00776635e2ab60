// SPDX-License-Identifier: GPL-2.0-or-later

// Package phy is a structured reader over the PHY buffer: the per-solid
// file header, each solid's IVP compact-surface ledge tree, and the
// trailing KeyValues ragdoll description (spec §4.1, §4.4). Collision-tree
// walking is grounded on the teacher's wad two-level offset-table reader,
// generalized from a flat lump table to an explicit-stack tree walk.
package phy

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"sourcemodel/internal/binreader"
	"sourcemodel/vec"
)

const (
	// FileHeaderSize is the leading PHY file header size (spec §4.1).
	FileHeaderSize = 16

	MinSolidCount = 1
	MaxSolidCount = 128

	// MagicVPHY is collideheader_t.vphysicsID, ASCII "VPHY".
	MagicVPHY = 'V' | 'P'<<8 | 'H'<<16 | 'Y'<<24

	// Legacy raw compact-surface magics checked at blob offset 44.
	legacyMagicZero = 0
	legacyMagicIVPS = 'I' | 'V'<<8 | 'P'<<16 | 'S'<<24
	legacyMagicSPVI = 'S' | 'P'<<8 | 'V'<<16 | 'I'<<24

	// compactSurfaceBodyOffset is where the compact surface body begins
	// inside a VPHY-prefixed blob: collideheader_t (8) + compactsurfaceheader_t (20).
	compactSurfaceBodyOffset = 28

	// ledgeTreeRootOffsetOffset is the compact surface's byte 32: a
	// relative offset (from the start of the compact surface) to the
	// ledge-tree root node.
	ledgeTreeRootOffsetOffset = 32

	minCompactSurfaceSize = 48

	ledgeNodeSize   = 28
	compactLedgeSize = 16
	compactTriangleSize = 16
	polyPointSize   = 16

)

// DefaultScale is the spec's IVP meters-to-inches conversion factor
// (spec §4.4), used when the root decoder isn't given WithIVPScale.
const DefaultScale = 39.3701

// ErrMalformed is returned when an offset or count fails bounds validation,
// or a required magic/model-type check fails.
var ErrMalformed = errors.New("phy: malformed")

// FileHeader mirrors phyheader_t.
type FileHeader struct {
	HeaderSize  int32
	ID          int32
	SolidCount  int32
	Checksum    int32
}

var fileHeaderSize = binary.Size(FileHeader{})

// ReadFileHeader validates and decodes the leading PHY file header.
func ReadFileHeader(buf []byte) (FileHeader, error) {
	if len(buf) < fileHeaderSize {
		return FileHeader{}, errors.Wrapf(ErrMalformed, "phy buffer too small: %d bytes", len(buf))
	}
	var hdr FileHeader
	if err := binreader.ReadAt(buf, 0, &hdr); err != nil {
		return FileHeader{}, errors.Wrap(err, "phy file header")
	}
	if hdr.HeaderSize != FileHeaderSize {
		return FileHeader{}, errors.Wrapf(ErrMalformed, "phy headerSize %d != %d", hdr.HeaderSize, FileHeaderSize)
	}
	if hdr.SolidCount < MinSolidCount || hdr.SolidCount > MaxSolidCount {
		return FileHeader{}, errors.Wrapf(ErrMalformed, "phy solidCount %d out of [%d,%d]", hdr.SolidCount, MinSolidCount, MaxSolidCount)
	}
	return hdr, nil
}

// ledgeNode mirrors ivpcompactledgenode_t's essential fields.
type ledgeNode struct {
	OffsetRightNode    int32
	OffsetCompactLedge int32
	_                  [20]byte // padding to 28 bytes
}

// compactLedge mirrors ivpcompactledge_t's essential fields.
type compactLedge struct {
	CPointOffset int32
	_            [8]byte
	NumTriangles int16 // byte 12
	_            [2]byte
}

// compactTriangle mirrors ivpcompacttriangle_t: a 4-byte header plus three
// 4-byte packed edges (low 16 bits: start_point_index).
type compactTriangle struct {
	_     int32
	Edges [3]uint32
}

// polyPoint mirrors ivpcompactpovpoint: position in IVP space plus hesse.
type polyPoint struct {
	X, Y, Z, Hesse float32
}

// SolidBlobs splits the PHY buffer into its solidCount length-prefixed
// solid blobs and returns the byte offset immediately after the last one
// (where the trailing KeyValues block begins).
func SolidBlobs(buf []byte, solidCount int) (blobs [][]byte, kvOffset int, err error) {
	offset := FileHeaderSize
	for i := 0; i < solidCount; i++ {
		if err := binreader.CheckBounds(buf, offset, 4); err != nil {
			return nil, 0, errors.Wrapf(err, "phy solid %d size prefix", i)
		}
		size := int(int32(binary.LittleEndian.Uint32(buf[offset:])))
		offset += 4
		if err := binreader.CheckBounds(buf, offset, size); err != nil {
			return nil, 0, errors.Wrapf(err, "phy solid %d body (size %d)", i, size)
		}
		blobs = append(blobs, buf[offset:offset+size])
		offset += size
	}
	return blobs, offset, nil
}

// CompactSurfaceBody locates the compact-surface body within a solid blob,
// validating the VPHY header or the legacy raw-compact-surface magic
// (spec §4.4 "Collision trees").
func CompactSurfaceBody(blob []byte) ([]byte, error) {
	if len(blob) >= 8 && int32(binary.LittleEndian.Uint32(blob[0:])) == MagicVPHY {
		modelType := blob[6]
		if modelType != 0 {
			return nil, errors.Wrapf(ErrMalformed, "unsupported phy modelType %d", modelType)
		}
		if err := binreader.CheckBounds(blob, compactSurfaceBodyOffset, minCompactSurfaceSize); err != nil {
			return nil, errors.Wrap(err, "phy compact surface (VPHY)")
		}
		return blob[compactSurfaceBodyOffset:], nil
	}

	if err := binreader.CheckBounds(blob, 44, 4); err != nil {
		return nil, errors.Wrap(err, "phy legacy magic")
	}
	magic := int32(binary.LittleEndian.Uint32(blob[44:]))
	switch magic {
	case legacyMagicZero, legacyMagicIVPS, legacyMagicSPVI:
	default:
		return nil, errors.Wrapf(ErrMalformed, "unrecognized legacy phy magic %#x", uint32(magic))
	}
	if len(blob) < minCompactSurfaceSize {
		return nil, errors.Wrapf(ErrMalformed, "legacy phy compact surface too small: %d bytes", len(blob))
	}
	return blob, nil
}

// Ledge is a decoded compact ledge: the distinct IVP-space points its
// triangles reference, already converted to Source coordinates.
type Ledge struct {
	Points []vec.Vec3
}

// ivpToSource converts an IVP-space point (meters) to Source-space inches
// (spec §4.4: "(x, z, -y) x 39.3701"). scale is configurable via the root
// decoder's WithIVPScale option; DefaultScale matches the spec's constant.
func ivpToSource(x, y, z, scale float32) vec.Vec3 {
	return vec.Vec3{
		X: x * scale,
		Y: z * scale,
		Z: -y * scale,
	}
}

// WalkLedgeTree performs the iterative, explicit-stack ledge-tree walk
// described in spec §4.4 and returns every ledge with >= 4 distinct
// points converted to Source coordinates.
func WalkLedgeTree(surface []byte, scale float32) ([]Ledge, error) {
	if err := binreader.CheckBounds(surface, ledgeTreeRootOffsetOffset, 4); err != nil {
		return nil, errors.Wrap(err, "phy ledge tree root offset")
	}
	rootOffset := int(int32(binary.LittleEndian.Uint32(surface[ledgeTreeRootOffsetOffset:])))

	var ledges []Ledge
	stack := []int{rootOffset}
	for len(stack) > 0 {
		nodeOffset := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var node ledgeNode
		if err := binreader.ReadAt(surface, nodeOffset, &node); err != nil {
			return nil, errors.Wrapf(err, "phy ledge node at %d", nodeOffset)
		}

		if node.OffsetCompactLedge != 0 {
			ledge, err := decodeLedge(surface, nodeOffset+int(node.OffsetCompactLedge), scale)
			if err != nil {
				return nil, err
			}
			if len(ledge.Points) >= 4 {
				ledges = append(ledges, ledge)
			}
		}

		if node.OffsetRightNode != 0 {
			stack = append(stack, nodeOffset+int(node.OffsetRightNode))
			stack = append(stack, nodeOffset+ledgeNodeSize)
		}
	}
	return ledges, nil
}

func decodeLedge(surface []byte, ledgeOffset int, scale float32) (Ledge, error) {
	var cl compactLedge
	if err := binreader.ReadAt(surface, ledgeOffset, &cl); err != nil {
		return Ledge{}, errors.Wrapf(err, "phy compact ledge at %d", ledgeOffset)
	}
	pointsBase := ledgeOffset + int(cl.CPointOffset)

	seen := make(map[uint32]bool)
	var order []uint32
	triBase := ledgeOffset + compactLedgeSize
	for t := 0; t < int(cl.NumTriangles); t++ {
		var tri compactTriangle
		if err := binreader.ReadAt(surface, triBase+t*compactTriangleSize, &tri); err != nil {
			return Ledge{}, errors.Wrapf(err, "phy compact triangle %d at ledge %d", t, ledgeOffset)
		}
		for _, e := range tri.Edges {
			idx := e & 0xFFFF
			if !seen[idx] {
				seen[idx] = true
				order = append(order, idx)
			}
		}
	}

	points := make([]vec.Vec3, 0, len(order))
	for _, idx := range order {
		off := pointsBase + int(idx)*polyPointSize
		var p polyPoint
		if err := binreader.ReadAt(surface, off, &p); err != nil {
			return Ledge{}, errors.Wrapf(err, "phy poly point %d at ledge %d", idx, ledgeOffset)
		}
		points = append(points, ivpToSource(p.X, p.Y, p.Z, scale))
	}
	return Ledge{Points: points}, nil
}
