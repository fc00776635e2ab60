// SPDX-License-Identifier: GPL-2.0-or-later

// Package model holds the decoded-model data produced by the decoder:
// skeleton, skinned mesh geometry, ragdoll physics, and per-sequence
// animation frames (spec §3). Entities are flat, index-referenced arrays,
// never pointer graphs (spec §9), so ownership after Decode returns is
// unambiguous.
package model

import "sourcemodel/vec"

// Bone is one skeleton joint (spec §3 Bone).
type Bone struct {
	Name string
	// Parent is the index into Model.Bones, or -1 for a root bone.
	Parent int

	LocalPosition vec.Vec3
	LocalRotation vec.Quat
	LocalEuler    vec.Vec3
	PositionScale vec.Vec3
	RotationScale vec.Vec3

	// World is the composed world-space transform (spec §4.2).
	World vec.Transform
}

// MaterialHandle is an opaque handle returned by the material loader
// collaborator (spec §1); the zero value means "no material".
type MaterialHandle interface{}

// EyeMaterial augments a MaterialHandle with the iris basis the renderer
// needs for eyeball shading (spec §4.3 step 3).
type EyeMaterial struct {
	Handle MaterialHandle
	IrisU  vec.Vec4
	IrisV  vec.Vec4
}

// Vertex is one deduplicated skinned vertex (spec §3 Vertex).
type Vertex struct {
	Position vec.Vec3
	Normal   vec.Vec3
	Tangent  vec.Vec4
	UV       vec.Vec2

	// BoneIndices/BoneWeights are parallel, up to 3 entries, weights are
	// 8-bit fixed point summing to exactly 255 (spec §4.3 step 6).
	BoneIndices [3]int
	BoneWeights [3]uint8
	NumBones    int
}

// Mesh is one (body part, sub-model, sub-mesh) render batch (spec §3 Mesh).
type Mesh struct {
	BodyPart      string
	SubModelIndex int

	Material    MaterialHandle
	EyeMaterial *EyeMaterial

	Vertices []Vertex
	// Indices are CCW triangles, three per triangle.
	Indices []uint32

	Bounds vec.Bounds
}

// BodyPart mirrors the input body-part hierarchy (spec §3 BodyPart).
type BodyPart struct {
	Name       string
	SubModels  []int // indices into Model.Meshes belonging to this body part, ordered
}

// JointKind classifies a ragdoll constraint (spec §4.4 step 2).
type JointKind int

const (
	JointFixed JointKind = iota
	JointHinge
	JointBall
)

// PhysicsHull is one convex collision ledge (spec §3 PhysicsHull).
type PhysicsHull struct {
	// Points is in Source inches, already IVP->Source converted (spec §4.4).
	Points []vec.Vec3
}

// PhysicsBody is one ragdoll solid (spec §3 PhysicsBody).
type PhysicsBody struct {
	Mass         float32
	Surface      string
	BoneName     string
	Hulls        []PhysicsHull
}

// Joint is one ragdoll constraint (spec §3 Joint).
type Joint struct {
	Kind               JointKind
	ParentBody         int
	ChildBody          int
	Frame1, Frame2     vec.Transform
	TwistMin, TwistMax float32
	SwingLimit         float32
}

// AnimationFrame holds one frame's bone-space transforms, indexed by
// destination (main-model) bone index (spec §3 AnimationFrame).
type AnimationFrame struct {
	Transforms []vec.Transform
}

// Animation is one decoded sequence (spec §3 Animation).
type Animation struct {
	Name    string
	Fps     float32
	Looping bool
	Delta   bool
	Frames  []AnimationFrame
}

// Model is the complete decoded output of one Decode call.
type Model struct {
	Bones      []Bone
	BodyParts  []BodyPart
	Meshes     []Mesh
	Bodies     []PhysicsBody
	Joints     []Joint
	Animations []Animation
}

// BoneIndexByName returns the index of the bone named n, case-sensitively,
// or -1 if no such bone exists.
func (m *Model) BoneIndexByName(n string) int {
	for i, b := range m.Bones {
		if b.Name == n {
			return i
		}
	}
	return -1
}
