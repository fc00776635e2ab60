// SPDX-License-Identifier: GPL-2.0-or-later

// Package mdl is a structured, allocation-light reader over the MDL
// (studiohdr_t) buffer: the skeleton, body-part, texture, sequence and
// include-model tables (spec §4.1). Like the teacher's mdl/types.go
// header-struct-plus-accessor idiom, every table row is read on demand by
// offset arithmetic rather than parsed up front.
package mdl

import "encoding/binary"

// Table row strides, derived from the struct layouts below rather than
// hand-counted, so a field added to one of these structs can never silently
// desync from the stride used to walk its table.
var (
	boneDescSize         = binary.Size(boneDesc{})
	bodyPartDescSize     = binary.Size(bodyPartDesc{})
	modelDescSize        = binary.Size(modelDesc{})
	meshDescSize         = binary.Size(meshDesc{})
	eyeballDescSize      = binary.Size(eyeballDesc{})
	textureDescSize      = binary.Size(textureDesc{})
	includeModelDescSize = binary.Size(includeModelDesc{})
	animBlockDescSize    = binary.Size(animBlockDesc{})
	seqDescSize          = binary.Size(seqDesc{})
	animDescSize         = binary.Size(animDesc{})
)

const (
	// Magic is studiohdr_t.id, ASCII "IDST" read little-endian.
	Magic = 'I' | 'D'<<8 | 'S'<<16 | 'T'<<24

	MinVersion = 44
	MaxVersion = 49

	HeaderSize = 408
)

// header mirrors studiohdr_t exactly up to 408 bytes; every int32 here is
// either a count or a byte offset relative to the start of the MDL buffer.
type header struct {
	ID       int32
	Version  int32
	Checksum int32
	Name     [64]byte
	DataLength int32

	EyePosition [3]float32
	IllumPosition [3]float32
	HullMin [3]float32
	HullMax [3]float32
	ViewBBMin [3]float32
	ViewBBMax [3]float32

	Flags int32

	NumBones  int32
	BoneIndex int32

	NumBoneControllers  int32
	BoneControllerIndex int32

	NumHitboxSets  int32
	HitboxSetIndex int32

	NumLocalAnim  int32
	LocalAnimIndex int32

	NumLocalSeq  int32
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

	NumFlexDesc  int32
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

	Unused2          int32
	StudioHdr2Index  int32
	Unused3          int32

	Padding [6]int32
}

// boneDesc mirrors mstudiobone_t's essential fields (spec §3 Bone).
type boneDesc struct {
	NameIndex int32
	Parent    int32

	BoneController [6]int32

	Position [3]float32
	Quat     [4]float32
	Rotation [3]float32 // Euler, radians

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

// bodyPartDesc mirrors mstudiobodyparts_t.
type bodyPartDesc struct {
	NameIndex   int32
	NumModels   int32
	Base        int32
	ModelIndex int32
}

// modelDesc mirrors mstudiomodel_t.
type modelDesc struct {
	Name [64]byte

	Type int32

	BoundingRadius float32

	NumMeshes  int32
	MeshIndex  int32

	NumVertices int32
	// VertexIndex is a BYTE offset into the VVD vertex stream (spec §4.1,
	// §9 Open Question 2: must be divisible by 48).
	VertexIndex int32
	TangentsIndex int32

	NumAttachments  int32
	AttachmentIndex int32

	NumEyeballs  int32
	EyeballIndex int32

	Unused [10]int32
}

// meshDesc mirrors mstudiomesh_t.
type meshDesc struct {
	Material int32

	ModelIndex int32

	NumVertices  int32
	// VertexOffset is in VERTICES (not bytes), relative to the owning
	// sub-model's vertex range (spec §4.1 VTX section).
	VertexOffset int32

	Unused [8]int32
}

// eyeballDesc mirrors mstudioeyeball_t (spec §4.3 step 3).
type eyeballDesc struct {
	NameIndex int32

	Bone int32

	Origin  [3]float32
	Forward [3]float32
	Up      [3]float32

	Texture int32

	IrisScale float32
	Radius    float32

	Unused [8]int32
}

// textureDesc mirrors mstudiotexture_t.
type textureDesc struct {
	NameIndex int32
	Flags     int32
	Used      int32
	Unused    [10]int32
}

// includeModelDesc mirrors mstudiomodelgroup_t (spec §4.5 Include models).
type includeModelDesc struct {
	LabelIndex int32
	NameIndex  int32
}

// animBlockDesc mirrors mstudioanimblock_t (spec §4.1 ANI).
type animBlockDesc struct {
	DataStart int32
	DataEnd   int32
}

// seqDesc mirrors the fields of mstudioseqdesc_t this decoder needs.
type seqDesc struct {
	BaseHeaderIndex int32

	LabelIndex int32
	ActivityNameIndex int32

	Flags int32

	Activity     int32
	ActWeight    int32

	NumEvents  int32
	EventIndex int32

	BBMin [3]float32
	BBMax [3]float32

	NumBlends int32
	// AnimIndexIndex points at a NumBlends (really groupsize[0]*groupsize[1])
	// shaped table of int32 anim-descriptor indices (spec §4.5).
	AnimIndexIndex int32

	MovementIndex int32

	GroupSize [2]int32
	ParamIndex [2]int32
	ParamStart [2]float32
	ParamEnd   [2]float32
	ParamParent int32

	FadeInTime  float32
	FadeOutTime float32

	LocalEntryNodeIndex int32
	LocalExitNodeIndex  int32
	NodeFlags           int32

	EntryPhase float32
	ExitPhase  float32

	LastFrame float32

	NextSeq      int32
	Pose         int32
	NumIKRules   int32
	NumAutoLayers int32
	AutoLayerIndex int32

	WeightListIndex int32

	PoseKeyIndex int32

	NumIKLocks  int32
	IKLockIndex int32

	KeyValueIndex int32
	KeyValueSize  int32

	CycleposeIndex int32

	Unused [7]int32
}

// animDesc mirrors the fields of mstudioanimdesc_t this decoder needs
// (spec §4.5 Per-animation metadata).
type animDesc struct {
	BaseHeaderIndex int32

	NameIndex int32

	Fps float32

	Flags int32

	NumFrames int32

	NumMovements  int32
	MovementIndex int32

	Unused1 [6]int32

	AnimBlock int32
	AnimIndex int32

	NumIKRules  int32
	IKRuleIndex int32
	AnimBlockIKRuleIndex int32

	NumLocalHierarchy  int32
	LocalHierarchyIndex int32

	SectionIndex int32
	SectionFrames int32

	Unused2 [4]int32
}
