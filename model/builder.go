// SPDX-License-Identifier: GPL-2.0-or-later

package model

import "sourcemodel/vec"

// Builder is the default in-memory Sink the decoder populates. Spec §6
// describes the sink as a fluent builder (add_body(...).add_hull(...));
// idiomatic Go favors plain methods taking complete arguments over method
// chaining, so BodyHandle here is a lightweight index wrapper rather than a
// chainable object.
type Builder struct {
	model Model

	// boneNameIndex speeds up AddBone's parent lookup; bones are added in
	// topological order (spec §3 invariant: parents precede children).
	boneNameIndex map[string]int
}

// NewBuilder returns an empty Builder ready to receive decoded data.
func NewBuilder() *Builder {
	return &Builder{boneNameIndex: make(map[string]int)}
}

// Model returns the populated model. Call only after decoding completes.
func (b *Builder) Model() *Model {
	return &b.model
}

// AddBone appends a bone. parentName is ignored when hasParent is false.
func (b *Builder) AddBone(name string, local vec.Transform, localEuler, posScale, rotScale vec.Vec3, parentName string, hasParent bool) int {
	parent := -1
	if hasParent {
		if idx, ok := b.boneNameIndex[parentName]; ok {
			parent = idx
		}
	}

	world := local
	if parent >= 0 {
		world = vec.Compose(b.model.Bones[parent].World, local)
	}

	bone := Bone{
		Name:          name,
		Parent:        parent,
		LocalPosition: local.Position,
		LocalRotation: local.Rotation,
		LocalEuler:    localEuler,
		PositionScale: posScale,
		RotationScale: rotScale,
		World:         world,
	}
	idx := len(b.model.Bones)
	b.model.Bones = append(b.model.Bones, bone)
	b.boneNameIndex[name] = idx
	return idx
}

// AddMesh appends a fully assembled mesh, registering it under bodyPart.
func (b *Builder) AddMesh(mesh Mesh) {
	idx := len(b.model.Meshes)
	b.model.Meshes = append(b.model.Meshes, mesh)

	for i := range b.model.BodyParts {
		if b.model.BodyParts[i].Name == mesh.BodyPart {
			b.model.BodyParts[i].SubModels = append(b.model.BodyParts[i].SubModels, idx)
			return
		}
	}
	b.model.BodyParts = append(b.model.BodyParts, BodyPart{
		Name:      mesh.BodyPart,
		SubModels: []int{idx},
	})
}

// BodyHandle identifies a body added via AddBody, for subsequent AddHull calls.
type BodyHandle int

// AddBody appends a physics body and returns a handle for AddHull.
func (b *Builder) AddBody(mass float32, surface, boneName string) BodyHandle {
	idx := len(b.model.Bodies)
	b.model.Bodies = append(b.model.Bodies, PhysicsBody{
		Mass:     mass,
		Surface:  surface,
		BoneName: boneName,
	})
	return BodyHandle(idx)
}

// AddHull attaches a convex hull to the body identified by h.
func (b *Builder) AddHull(h BodyHandle, points []vec.Vec3) {
	b.model.Bodies[h].Hulls = append(b.model.Bodies[h].Hulls, PhysicsHull{Points: points})
}

// AddFixedJoint appends a 0-DOF ragdoll constraint.
func (b *Builder) AddFixedJoint(parentBody, childBody int, frame1, frame2 vec.Transform) {
	b.model.Joints = append(b.model.Joints, Joint{
		Kind: JointFixed, ParentBody: parentBody, ChildBody: childBody,
		Frame1: frame1, Frame2: frame2,
	})
}

// AddHingeJoint appends a 1-DOF ragdoll constraint with a twist limit.
func (b *Builder) AddHingeJoint(parentBody, childBody int, frame1, frame2 vec.Transform, twistMin, twistMax float32) {
	b.model.Joints = append(b.model.Joints, Joint{
		Kind: JointHinge, ParentBody: parentBody, ChildBody: childBody,
		Frame1: frame1, Frame2: frame2, TwistMin: twistMin, TwistMax: twistMax,
	})
}

// AddBallJoint appends a >=2-DOF ragdoll constraint with swing and twist limits.
func (b *Builder) AddBallJoint(parentBody, childBody int, frame1, frame2 vec.Transform, swingLimit, twistMin, twistMax float32) {
	b.model.Joints = append(b.model.Joints, Joint{
		Kind: JointBall, ParentBody: parentBody, ChildBody: childBody,
		Frame1: frame1, Frame2: frame2, SwingLimit: swingLimit, TwistMin: twistMin, TwistMax: twistMax,
	})
}

// AddAnimation appends a fully decoded animation sequence.
func (b *Builder) AddAnimation(a Animation) {
	b.model.Animations = append(b.model.Animations, a)
}
