// SPDX-License-Identifier: GPL-2.0-or-later

package meshbuild

import (
	"testing"

	"sourcemodel/model"
	"sourcemodel/vec"
	"sourcemodel/vtx"
	"sourcemodel/vvd"
)

func quadVVD() []vvd.Vertex {
	return []vvd.Vertex{
		{Position: vec.Vec3{X: 0, Y: 0, Z: 0}, NumBones: 1, BoneIDs: [3]int{0}, Weights: [3]float32{1}},
		{Position: vec.Vec3{X: 1, Y: 0, Z: 0}, NumBones: 1, BoneIDs: [3]int{0}, Weights: [3]float32{1}},
		{Position: vec.Vec3{X: 1, Y: 1, Z: 0}, NumBones: 1, BoneIDs: [3]int{0}, Weights: [3]float32{1}},
		{Position: vec.Vec3{X: 0, Y: 1, Z: 0}, NumBones: 1, BoneIDs: [3]int{0}, Weights: [3]float32{1}},
	}
}

func TestAssembleSingleQuadDedupsAcrossStripGroups(t *testing.T) {
	// Two strip groups sharing the mesh's vertex range, each contributing one
	// triangle of a quad; vertex 0 and 1 are referenced by both groups and
	// must dedup to the same output index.
	sg1 := vtx.StripGroup{
		OrigMeshVertID: []uint16{0, 1, 2},
		Indices:        []uint16{0, 1, 2},
		Strips:         []vtx.Strip{{IndexOffset: 0, NumIndices: 3, TriList: true}},
	}
	sg2 := vtx.StripGroup{
		OrigMeshVertID: []uint16{0, 2, 3},
		Indices:        []uint16{0, 1, 2},
		Strips:         []vtx.Strip{{IndexOffset: 0, NumIndices: 3, TriList: true}},
	}

	mesh, err := Assemble([]vtx.StripGroup{sg1, sg2}, quadVVD(), 0, "body", 0, model.MaterialHandle("mat"), nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(mesh.Vertices) != 4 {
		t.Fatalf("len(Vertices) = %d, want 4 (deduped)", len(mesh.Vertices))
	}
	if len(mesh.Indices) != 6 {
		t.Fatalf("len(Indices) = %d, want 6 (two triangles)", len(mesh.Indices))
	}
	// Winding reversal: source order (0,1,2) emits as (a,c,b).
	if mesh.Indices[0] != 0 || mesh.Indices[1] != 2 || mesh.Indices[2] != 1 {
		t.Errorf("first triangle = %v, want [0 2 1] (reversed winding)", mesh.Indices[:3])
	}
}

func TestAssembleDiscardsDegenerateTriangles(t *testing.T) {
	sg := vtx.StripGroup{
		OrigMeshVertID: []uint16{0, 1},
		Indices:        []uint16{0, 0, 1},
		Strips:         []vtx.Strip{{IndexOffset: 0, NumIndices: 3, TriList: true}},
	}
	mesh, err := Assemble([]vtx.StripGroup{sg}, quadVVD(), 0, "body", 0, model.MaterialHandle("mat"), nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(mesh.Indices) != 0 {
		t.Errorf("len(Indices) = %d, want 0 (degenerate discarded)", len(mesh.Indices))
	}
}

func TestAssembleTriStripAlternatesWinding(t *testing.T) {
	sg := vtx.StripGroup{
		OrigMeshVertID: []uint16{0, 1, 2, 3},
		Indices:        []uint16{0, 1, 2, 3},
		Strips:         []vtx.Strip{{IndexOffset: 0, NumIndices: 4, TriStrip: true}},
	}
	mesh, err := Assemble([]vtx.StripGroup{sg}, quadVVD(), 0, "body", 0, model.MaterialHandle("mat"), nil)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if len(mesh.Indices) != 6 {
		t.Fatalf("len(Indices) = %d, want 6 (two triangles from a 4-vertex strip)", len(mesh.Indices))
	}
}

func TestAssembleOutOfRangeVertexRef(t *testing.T) {
	sg := vtx.StripGroup{
		OrigMeshVertID: []uint16{99},
		Indices:        []uint16{0, 0, 0},
		Strips:         []vtx.Strip{{IndexOffset: 0, NumIndices: 3, TriList: true}},
	}
	if _, err := Assemble([]vtx.StripGroup{sg}, quadVVD(), 0, "body", 0, model.MaterialHandle("mat"), nil); err == nil {
		t.Error("Assemble() with out-of-range vertex ref = nil error, want error")
	}
}

func TestNormalizeWeightsSumsTo255(t *testing.T) {
	out := normalizeWeights([]float32{0.5, 0.5})
	sum := int(out[0]) + int(out[1])
	if sum != 255 {
		t.Errorf("sum(normalizeWeights) = %d, want 255", sum)
	}
}

func TestNormalizeWeightsSingleBoneIsFull(t *testing.T) {
	out := normalizeWeights([]float32{1})
	if out[0] != 255 {
		t.Errorf("normalizeWeights([1]) = %v, want [255]", out)
	}
}

func TestFinalizeBoundsUnionsAcrossMeshes(t *testing.T) {
	meshes := []model.Mesh{
		{Vertices: []model.Vertex{{Position: vec.Vec3{X: -1, Y: 0, Z: 0}}}},
		{Vertices: []model.Vertex{{Position: vec.Vec3{X: 1, Y: 2, Z: 0}}}},
	}
	FinalizeBounds(meshes)
	for i, m := range meshes {
		if m.Bounds.Min.X != -1 || m.Bounds.Max.X != 1 || m.Bounds.Max.Y != 2 {
			t.Errorf("mesh %d bounds = %+v, want union [-1,0,0]-[1,2,0]", i, m.Bounds)
		}
	}
}
