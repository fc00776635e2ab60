// SPDX-License-Identifier: GPL-2.0-or-later

package sourcemodel

import (
	"bytes"
	"encoding/binary"
	"testing"

	"sourcemodel/mdl"
	"sourcemodel/vec"
	"sourcemodel/vtx"
	"sourcemodel/vvd"
)

// The mirror structs below reproduce mdl/vvd/vtx's private header (and, for
// scenario S3, body-part/model/mesh/texture) layouts field-for-field, so
// this black-box test can synthesize buffers using only each package's
// public New()/accessor surface, exactly the way an external caller must.

type mdlHeaderMirror struct {
	ID         int32
	Version    int32
	Checksum   int32
	Name       [64]byte
	DataLength int32

	EyePosition   [3]float32
	IllumPosition [3]float32
	HullMin       [3]float32
	HullMax       [3]float32
	ViewBBMin     [3]float32
	ViewBBMax     [3]float32

	Flags int32

	NumBones  int32
	BoneIndex int32

	NumBoneControllers  int32
	BoneControllerIndex int32

	NumHitboxSets  int32
	HitboxSetIndex int32

	NumLocalAnim   int32
	LocalAnimIndex int32

	NumLocalSeq   int32
	LocalSeqIndex int32

	ActivityListVersion int32
	EventsIndexed       int32

	NumTextures  int32
	TextureIndex int32

	NumCDTextures  int32
	CDTextureIndex int32

	NumSkinRef      int32
	NumSkinFamilies int32
	SkinIndex       int32

	NumBodyParts  int32
	BodyPartIndex int32

	NumLocalAttachments  int32
	LocalAttachmentIndex int32

	NumLocalNodes      int32
	LocalNodeIndex     int32
	LocalNodeNameIndex int32

	NumFlexDesc   int32
	FlexDescIndex int32

	NumFlexControllers  int32
	FlexControllerIndex int32

	NumFlexRules  int32
	FlexRuleIndex int32

	NumIKChains  int32
	IKChainIndex int32

	NumMouths  int32
	MouthIndex int32

	NumLocalPoseParameters  int32
	LocalPoseParameterIndex int32

	SurfacePropIndex int32

	KeyValueIndex int32
	KeyValueSize  int32

	NumLocalIKAutoplayLocks  int32
	LocalIKAutoplayLockIndex int32

	Mass     float32
	Contents int32

	NumIncludeModels  int32
	IncludeModelIndex int32

	SZAnimBlockNameIndex int32
	NumAnimBlocks        int32
	AnimBlockIndex       int32

	BoneTableByNameIndex int32

	VertexBase int32
	OffsetBase int32

	DirectionalDotProduct byte
	RootLOD               byte
	NumAllowedRootLODs    byte
	Unused1               byte

	Unused2         int32
	StudioHdr2Index int32
	Unused3         int32

	Padding [6]int32
}

type mdlBoneDescMirror struct {
	NameIndex int32
	Parent    int32

	BoneController [6]int32

	Position [3]float32
	Quat     [4]float32
	Rotation [3]float32

	PositionScale [3]float32
	RotationScale [3]float32

	PoseToBone [12]float32
	QAlignment [4]float32

	Flags          int32
	ProcType       int32
	ProcIndex      int32
	PhysicsBone    int32
	SurfacePropIdx int32
	Contents       int32

	Unused [7]int32
}

type mdlBodyPartDescMirror struct {
	NameIndex  int32
	NumModels  int32
	Base       int32
	ModelIndex int32
}

type mdlModelDescMirror struct {
	Name [64]byte

	Type int32

	BoundingRadius float32

	NumMeshes int32
	MeshIndex int32

	NumVertices   int32
	VertexIndex   int32
	TangentsIndex int32

	NumAttachments  int32
	AttachmentIndex int32

	NumEyeballs  int32
	EyeballIndex int32

	Unused [10]int32
}

type mdlMeshDescMirror struct {
	Material int32

	ModelIndex int32

	NumVertices  int32
	VertexOffset int32

	Unused [8]int32
}

type mdlTextureDescMirror struct {
	NameIndex int32
	Flags     int32
	Used      int32
	Unused    [10]int32
}

type vvdHeaderMirror struct {
	ID       int32
	Version  int32
	Checksum int32

	NumLODs           int32
	NumVerticesPerLOD [8]int32

	NumFixups        int32
	FixupTableIndex  int32
	VertexDataIndex  int32
	TangentDataIndex int32
}

type vvdRawVertexMirror struct {
	Weight   [3]float32
	Bone     [3]byte
	NumBones byte
	Position [3]float32
	Normal   [3]float32
	UV       [2]float32
}

type vtxHeaderMirror struct {
	Version int32

	VertCacheSize    int32
	MaxBonesPerStrip uint16
	MaxBonesPerTri   uint16
	MaxBonesPerVert  int32

	Checksum int32

	NumLODs int32

	MaterialReplacementListIndex int32

	NumBodyParts  int32
	BodyPartIndex int32
}

type vtxBodyPartDescMirror struct {
	NumModels  int32
	ModelIndex int32
}

type vtxModelDescMirror struct {
	NumLODs  int32
	LODIndex int32
}

type vtxLODDescMirror struct {
	NumMeshes   int32
	MeshIndex   int32
	SwitchPoint float32
}

type vtxMeshDescMirror struct {
	NumStripGroups  int32
	StripGroupIndex int32
	Flags           byte
}

type vtxStripGroupDescMirror struct {
	NumVerts  int32
	VertIndex int32

	NumIndices int32
	IndexIndex int32

	NumStrips  int32
	StripIndex int32

	Flags byte
}

type vtxStripDescMirror struct {
	NumIndices  int32
	IndexOffset int32

	NumVerts   int32
	VertOffset int32

	NumBones int16

	Flags byte

	NumBoneStateChanges  int32
	BoneStateChangeIndex int32
}

type vtxVertexDescMirror struct {
	BoneWeightIndex [3]byte
	NumBones        byte

	OrigMeshVertID uint16

	BoneID [3]byte
}

func mustWrite(t *testing.T, buf *bytes.Buffer, v interface{}) {
	t.Helper()
	if err := binary.Write(buf, binary.LittleEndian, v); err != nil {
		t.Fatalf("binary.Write %T: %v", v, err)
	}
}

// buildMinimumMDL synthesizes the S1 MDL: one bone named "root", no other
// tables.
func buildMinimumMDL(t *testing.T, checksum int32) []byte {
	t.Helper()
	headerSize := binary.Size(mdlHeaderMirror{})
	boneDescSize := binary.Size(mdlBoneDescMirror{})

	h := mdlHeaderMirror{
		ID:        mdl.Magic,
		Version:   46,
		Checksum:  checksum,
		NumBones:  1,
		BoneIndex: int32(headerSize),
	}
	d := mdlBoneDescMirror{
		NameIndex: int32(boneDescSize),
		Parent:    -1,
		Quat:      [4]float32{0, 0, 0, 1},
	}

	var buf bytes.Buffer
	mustWrite(t, &buf, h)
	mustWrite(t, &buf, d)
	buf.WriteString("root")
	buf.WriteByte(0)
	return buf.Bytes()
}

func buildMinimumVVD(t *testing.T, checksum int32) []byte {
	t.Helper()
	h := vvdHeaderMirror{ID: vvd.Magic, Version: vvd.Version, Checksum: checksum}
	var buf bytes.Buffer
	mustWrite(t, &buf, h)
	return buf.Bytes()
}

func buildMinimumVTX(t *testing.T, checksum int32) []byte {
	t.Helper()
	h := vtxHeaderMirror{Version: vtx.Version, Checksum: checksum}
	var buf bytes.Buffer
	mustWrite(t, &buf, h)
	return buf.Bytes()
}

func TestDecodeMinimumModel(t *testing.T) {
	mdlBuf := buildMinimumMDL(t, 0xABCD)
	vvdBuf := buildMinimumVVD(t, 0xABCD)
	vtxBuf := buildMinimumVTX(t, 0xABCD)

	m, err := Decode(mdlBuf, vvdBuf, vtxBuf, nil, nil, nil)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(m.Bones) != 1 {
		t.Fatalf("len(Bones) = %d, want 1", len(m.Bones))
	}
	if m.Bones[0].Name != "root" || m.Bones[0].Parent != -1 {
		t.Errorf("Bones[0] = %+v, want root/-1", m.Bones[0])
	}
	if m.Bones[0].World.Position != (vec.Vec3{}) {
		t.Errorf("Bones[0].World.Position = %v, want zero", m.Bones[0].World.Position)
	}
	if m.Bones[0].World.Rotation != vec.Identity() {
		t.Errorf("Bones[0].World.Rotation = %v, want identity", m.Bones[0].World.Rotation)
	}
	if len(m.Meshes) != 0 {
		t.Errorf("len(Meshes) = %d, want 0", len(m.Meshes))
	}
	if len(m.Animations) != 0 {
		t.Errorf("len(Animations) = %d, want 0", len(m.Animations))
	}
}

func TestDecodeChecksumMismatch(t *testing.T) {
	mdlBuf := buildMinimumMDL(t, 0xABCD)
	vvdBuf := buildMinimumVVD(t, 0xABCE) // deliberately mismatched
	vtxBuf := buildMinimumVTX(t, 0xABCD)

	_, err := Decode(mdlBuf, vvdBuf, vtxBuf, nil, nil, nil)
	if err == nil {
		t.Fatal("Decode() error = nil, want ChecksumMismatch")
	}
	if !IsKind(err, ChecksumMismatch) {
		t.Errorf("IsKind(ChecksumMismatch) = false for error %v", err)
	}
}

type noopResolver struct{}

func (noopResolver) Exists(string) bool          { return false }
func (noopResolver) Read(string) ([]byte, bool) { return nil, false }

// buildSingleQuadMDL synthesizes the S3 MDL: one body part, one sub-model,
// one mesh, referencing texture 0.
func buildSingleQuadMDL(t *testing.T, checksum int32) []byte {
	t.Helper()
	headerSize := binary.Size(mdlHeaderMirror{})
	bpDescSize := binary.Size(mdlBodyPartDescMirror{})
	modelDescSize := binary.Size(mdlModelDescMirror{})
	meshDescSize := binary.Size(mdlMeshDescMirror{})
	texDescSize := binary.Size(mdlTextureDescMirror{})

	bpOff := headerSize
	modelOff := bpOff + bpDescSize
	meshOff := modelOff + modelDescSize
	texOff := meshOff + meshDescSize
	bpNameOff := texOff + texDescSize
	texNameOff := bpNameOff + len("body") + 1

	h := mdlHeaderMirror{
		ID:           mdl.Magic,
		Version:      46,
		Checksum:     checksum,
		NumBodyParts: 1,
		BodyPartIndex: int32(bpOff),
		NumTextures:  1,
		TextureIndex: int32(texOff),
	}
	bp := mdlBodyPartDescMirror{
		NameIndex:  int32(bpNameOff - bpOff),
		NumModels:  1,
		ModelIndex: int32(modelOff - bpOff),
	}
	sm := mdlModelDescMirror{
		NumMeshes:   1,
		MeshIndex:   int32(meshOff - modelOff),
		NumVertices: 4,
		VertexIndex: 0,
	}
	mesh := mdlMeshDescMirror{
		Material:     0,
		NumVertices:  4,
		VertexOffset: 0,
	}
	tex := mdlTextureDescMirror{
		NameIndex: int32(texNameOff - texOff),
	}

	var buf bytes.Buffer
	mustWrite(t, &buf, h)
	mustWrite(t, &buf, bp)
	mustWrite(t, &buf, sm)
	mustWrite(t, &buf, mesh)
	mustWrite(t, &buf, tex)
	buf.WriteString("body")
	buf.WriteByte(0)
	buf.WriteString("quad_material")
	buf.WriteByte(0)
	return buf.Bytes()
}

func buildQuadVVD(t *testing.T, checksum int32) []byte {
	t.Helper()
	headerSize := binary.Size(vvdHeaderMirror{})
	h := vvdHeaderMirror{
		ID:                vvd.Magic,
		Version:           vvd.Version,
		Checksum:          checksum,
		NumVerticesPerLOD: [8]int32{4},
		VertexDataIndex:   int32(headerSize),
	}
	corners := [4][3]float32{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}}

	var buf bytes.Buffer
	mustWrite(t, &buf, h)
	for _, c := range corners {
		mustWrite(t, &buf, vvdRawVertexMirror{Position: c})
	}
	return buf.Bytes()
}

func buildQuadVTX(t *testing.T, checksum int32) []byte {
	t.Helper()
	headerSize := binary.Size(vtxHeaderMirror{})
	bpDescSize := binary.Size(vtxBodyPartDescMirror{})
	modelDescSize := binary.Size(vtxModelDescMirror{})
	lodDescSize := binary.Size(vtxLODDescMirror{})
	meshDescSize := binary.Size(vtxMeshDescMirror{})
	sgDescSize := binary.Size(vtxStripGroupDescMirror{})
	vertDescSize := binary.Size(vtxVertexDescMirror{})

	bpOff := headerSize
	modelOff := bpOff + bpDescSize
	lodOff := modelOff + modelDescSize
	meshOff := lodOff + lodDescSize
	sgOff := meshOff + meshDescSize
	vertsOff := sgOff + sgDescSize
	const numVerts = 4
	const numIndices = 6
	indexOff := vertsOff + numVerts*vertDescSize
	stripOff := indexOff + numIndices*2

	h := vtxHeaderMirror{
		Version:       vtx.Version,
		Checksum:      checksum,
		NumBodyParts:  1,
		BodyPartIndex: int32(bpOff),
	}
	bp := vtxBodyPartDescMirror{NumModels: 1, ModelIndex: int32(modelOff - bpOff)}
	m := vtxModelDescMirror{NumLODs: 1, LODIndex: int32(lodOff - modelOff)}
	l := vtxLODDescMirror{NumMeshes: 1, MeshIndex: int32(meshOff - lodOff)}
	mesh := vtxMeshDescMirror{NumStripGroups: 1, StripGroupIndex: int32(sgOff - meshOff)}
	sg := vtxStripGroupDescMirror{
		NumVerts:   numVerts,
		VertIndex:  int32(vertsOff - sgOff),
		NumIndices: numIndices,
		IndexIndex: int32(indexOff - sgOff),
		NumStrips:  1,
		StripIndex: int32(stripOff - sgOff),
	}

	var buf bytes.Buffer
	mustWrite(t, &buf, h)
	mustWrite(t, &buf, bp)
	mustWrite(t, &buf, m)
	mustWrite(t, &buf, l)
	mustWrite(t, &buf, mesh)
	mustWrite(t, &buf, sg)
	for i := uint16(0); i < numVerts; i++ {
		mustWrite(t, &buf, vtxVertexDescMirror{OrigMeshVertID: i})
	}
	indices := []uint16{0, 1, 2, 0, 2, 3}
	for _, idx := range indices {
		mustWrite(t, &buf, idx)
	}
	mustWrite(t, &buf, vtxStripDescMirror{NumIndices: numIndices, Flags: vtx.StripFlagTriList})
	return buf.Bytes()
}

func TestDecodeSingleQuadMesh(t *testing.T) {
	const checksum = 0x1234
	mdlBuf := buildSingleQuadMDL(t, checksum)
	vvdBuf := buildQuadVVD(t, checksum)
	vtxBuf := buildQuadVTX(t, checksum)

	m, err := Decode(mdlBuf, vvdBuf, vtxBuf, nil, nil, noopResolver{})
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(m.Meshes) != 1 {
		t.Fatalf("len(Meshes) = %d, want 1", len(m.Meshes))
	}
	mesh := m.Meshes[0]
	if len(mesh.Vertices) != 4 {
		t.Errorf("len(Vertices) = %d, want 4 (deduped)", len(mesh.Vertices))
	}
	if len(mesh.Indices) != 6 {
		t.Errorf("len(Indices) = %d, want 6", len(mesh.Indices))
	}
	if mesh.Bounds.Min != (vec.Vec3{0, 0, 0}) || mesh.Bounds.Max != (vec.Vec3{1, 1, 0}) {
		t.Errorf("Bounds = %+v, want [0,0,0]-[1,1,0]", mesh.Bounds)
	}
}
