// SPDX-License-Identifier: GPL-2.0-or-later

// Package meshbuild joins VTX topology with VVD vertex data to emit
// deduplicated triangle lists per (body part, sub-model, mesh), tagged
// with a resolved material (spec §4.3). The per-sub-mesh vertex
// deduplication map mirrors the teacher's bsp surface/edge join, which
// keys shared vertices by index into a parallel vertex array.
package meshbuild

import (
	"github.com/pkg/errors"

	"sourcemodel/model"
	"sourcemodel/vec"
	"sourcemodel/vtx"
	"sourcemodel/vvd"
)

// ErrMalformed is returned when a strip-group vertex ref resolves outside
// the VVD vertex stream.
var ErrMalformed = errors.New("meshbuild: malformed")

// Assemble builds one model.Mesh from all of a mesh's strip groups and the
// shared VVD vertex stream (spec §4.3 steps 4-6). Deduplication spans
// every strip group belonging to the mesh, not each strip group
// individually (spec §4.3 step 5: "per sub-mesh").
//
// meshVertexOffset is the mesh's global VVD base index: sub-model
// VertexIndex/48 plus the mesh's own VertexOffset (spec §4.1, §4.3 step 2).
func Assemble(stripGroups []vtx.StripGroup, vvdVerts []vvd.Vertex, meshVertexOffset int, bodyPart string, subModelIndex int, material model.MaterialHandle, eyeMaterial *model.EyeMaterial) (model.Mesh, error) {
	mesh := model.Mesh{
		BodyPart:      bodyPart,
		SubModelIndex: subModelIndex,
		Material:      material,
		EyeMaterial:   eyeMaterial,
	}

	dedup := make(map[int]uint32)

	for _, sg := range stripGroups {
		resolve := func(localIdx uint16) (uint32, error) {
			if int(localIdx) >= len(sg.OrigMeshVertID) {
				return 0, errors.Wrapf(ErrMalformed, "strip-group local index %d out of range", localIdx)
			}
			global := meshVertexOffset + int(sg.OrigMeshVertID[localIdx])
			if global < 0 || global >= len(vvdVerts) {
				return 0, errors.Wrapf(ErrMalformed, "global vvd index %d out of range (have %d vertices)", global, len(vvdVerts))
			}
			if out, ok := dedup[global]; ok {
				return out, nil
			}
			out := uint32(len(mesh.Vertices))
			mesh.Vertices = append(mesh.Vertices, buildVertex(vvdVerts[global]))
			dedup[global] = out
			return out, nil
		}
		emit := func(ia, ib, ic uint16) error {
			a, err := resolve(ia)
			if err != nil {
				return err
			}
			b, err := resolve(ib)
			if err != nil {
				return err
			}
			c, err := resolve(ic)
			if err != nil {
				return err
			}
			if a == b || b == c || a == c {
				return nil // degenerate (spec §4.3 step 4)
			}
			// Reverse winding to convert Source's left-handed convention to
			// the output's right-handed one (spec §4.3 step 4: emit 0, 2, 1).
			mesh.Indices = append(mesh.Indices, a, c, b)
			return nil
		}

		for _, strip := range sg.Strips {
			idx := sg.Indices[strip.IndexOffset : strip.IndexOffset+strip.NumIndices]
			switch {
			case strip.TriList:
				for i := 0; i+2 < len(idx); i += 3 {
					if err := emit(idx[i], idx[i+1], idx[i+2]); err != nil {
						return model.Mesh{}, err
					}
				}
			case strip.TriStrip:
				for i := 0; i+2 < len(idx); i++ {
					a, b, c := idx[i], idx[i+1], idx[i+2]
					if i%2 == 1 {
						a, b = b, a
					}
					if err := emit(a, b, c); err != nil {
						return model.Mesh{}, err
					}
				}
			}
		}
	}

	return mesh, nil
}

// FinalizeBounds computes the union of every vertex position across
// meshes and assigns that shared bounds to each of them (spec §4.3 step 7:
// "compute a shared bounds over the union of emitted vertex positions and
// assign it to every mesh"). meshes should be the full set of sub-meshes
// built for one (body-part, sub-model).
func FinalizeBounds(meshes []model.Mesh) {
	bounds := vec.EmptyBounds()
	for _, m := range meshes {
		for _, v := range m.Vertices {
			bounds = bounds.Extend(v.Position)
		}
	}
	for i := range meshes {
		meshes[i].Bounds = bounds
	}
}

// buildVertex converts a VVD vertex into the output Vertex, normalizing
// weights to 8-bit fixed point (spec §4.3 steps 5-6).
func buildVertex(v vvd.Vertex) model.Vertex {
	out := model.Vertex{
		Position: v.Position,
		Normal:   v.Normal,
		Tangent:  v.Tangent,
		UV:       v.UV,
		NumBones: v.NumBones,
	}
	for i := 0; i < v.NumBones; i++ {
		out.BoneIndices[i] = v.BoneIDs[i]
	}
	copy(out.BoneWeights[:v.NumBones], normalizeWeights(v.Weights[:v.NumBones]))
	return out
}

// normalizeWeights rounds each weight to 8-bit fixed point and distributes
// the rounding residual onto the largest weight, preferring the first when
// tied (spec §4.3 step 6).
func normalizeWeights(weights []float32) []uint8 {
	if len(weights) == 0 {
		return nil
	}
	out := make([]uint8, len(weights))
	sum := 0
	for i, w := range weights {
		q := int(w*255 + 0.5)
		if q < 0 {
			q = 0
		}
		if q > 255 {
			q = 255
		}
		out[i] = uint8(q)
		sum += q
	}
	residual := 255 - sum
	largest := 0
	for i := 1; i < len(out); i++ {
		if out[i] > out[largest] {
			largest = i
		}
	}
	adjusted := int(out[largest]) + residual
	if adjusted < 0 {
		adjusted = 0
	}
	if adjusted > 255 {
		adjusted = 255
	}
	out[largest] = uint8(adjusted)
	return out
}
