// SPDX-License-Identifier: GPL-2.0-or-later

// Package physics turns decoded PHY collision trees and their trailing
// ragdoll KeyValues into model.PhysicsBody/Joint entries (spec §4.4). It
// has no direct teacher analogue (Quake ships no ragdoll physics); written
// in the teacher's terse error-return style, reusing the phy/keyvalues
// packages' decoded shapes rather than re-parsing anything itself.
package physics

import (
	"strconv"
	"strings"

	"github.com/chewxy/math32"

	"sourcemodel/keyvalues"
	"sourcemodel/model"
	"sourcemodel/phy"
	"sourcemodel/vec"
)

// DefaultHingeThresholdDegrees is the default DOF classification threshold
// (spec §4.4 step 2). It is a constant; the root decoder's
// WithHingeThresholdDegrees option overrides it per call by passing its own
// threshold to Emit.
const DefaultHingeThresholdDegrees = 5.0

// SolidInfo is one parsed "solid { ... }" KeyValues block (spec §4.4
// "Ragdoll KeyValues").
type SolidInfo struct {
	Index       int
	Name        string
	Parent      int
	Mass        float32
	SurfaceProp string
}

// Constraint is one parsed "ragdollconstraint { ... }" block.
type Constraint struct {
	Parent, Child                      int
	XMin, XMax, YMin, YMax, ZMin, ZMax float32
	XFriction, YFriction, ZFriction    float32
}

// ParseRagdoll decodes the trailing KeyValues block into solids and
// constraints (spec §4.4 "Ragdoll KeyValues").
func ParseRagdoll(buf []byte) ([]SolidInfo, []Constraint, error) {
	root, err := keyvalues.Parse(buf)
	if err != nil {
		return nil, nil, err
	}

	var solids []SolidInfo
	for _, n := range root.FindAll("solid") {
		solids = append(solids, SolidInfo{
			Index:       atoiOr(findOr(n, "index", "0"), 0),
			Name:        findOr(n, "name", ""),
			Parent:      atoiOr(findOr(n, "parent", "-1"), -1),
			Mass:        atofOr(findOr(n, "mass", "1"), 1),
			SurfaceProp: findOr(n, "surfaceprop", ""),
		})
	}

	var constraints []Constraint
	for _, n := range root.FindAll("ragdollconstraint") {
		constraints = append(constraints, Constraint{
			Parent:      atoiOr(findOr(n, "parent", "-1"), -1),
			Child:       atoiOr(findOr(n, "child", "-1"), -1),
			XMin:        atofOr(findOr(n, "xmin", "0"), 0),
			XMax:        atofOr(findOr(n, "xmax", "0"), 0),
			YMin:        atofOr(findOr(n, "ymin", "0"), 0),
			YMax:        atofOr(findOr(n, "ymax", "0"), 0),
			ZMin:        atofOr(findOr(n, "zmin", "0"), 0),
			ZMax:        atofOr(findOr(n, "zmax", "0"), 0),
			XFriction:   atofOr(findOr(n, "xfriction", "0"), 0),
			YFriction:   atofOr(findOr(n, "yfriction", "0"), 0),
			ZFriction:   atofOr(findOr(n, "zfriction", "0"), 0),
		})
	}
	return solids, constraints, nil
}

func findOr(n keyvalues.Node, key, def string) string {
	if v, ok := n.Find(key); ok {
		return v
	}
	return def
}

func atoiOr(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

func atofOr(s string, def float32) float32 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 32)
	if err != nil {
		return def
	}
	return float32(v)
}

// Hull returns the axis-aligned bounds of a decoded ledge's points. Per
// spec §4.4, a ledge only contributes a hull if it has >= 4 distinct
// points (phy.WalkLedgeTree already enforces this).
func Hull(l phy.Ledge) vec.Bounds {
	b := vec.EmptyBounds()
	for _, p := range l.Points {
		b = b.Extend(p)
	}
	return b
}

// nonDegenerate reports whether bounds b spans more than 0.01 units on
// every axis (spec §4.4 "Emission": "hull size in all three axes must
// exceed 0.01").
func nonDegenerate(b vec.Bounds) bool {
	size := b.Size()
	return size.X > 0.01 && size.Y > 0.01 && size.Z > 0.01
}

// FilterHulls keeps only the ledges whose bounds are non-degenerate.
func FilterHulls(ledges []phy.Ledge) []phy.Ledge {
	var out []phy.Ledge
	for _, l := range ledges {
		if nonDegenerate(Hull(l)) {
			out = append(out, l)
		}
	}
	return out
}

// classification bits (spec §4.4 step 2).
const (
	dofTwist  = 1 << 0
	dofSwingY = 1 << 1
	dofSwingZ = 1 << 2
)

// classify buckets a constraint's axis ranges into DOF bits using
// thresholdDegrees (spec §4.4 step 2).
func classify(c Constraint, thresholdDegrees float32) int {
	bits := 0
	if math32.Abs(c.XMax-c.XMin) > thresholdDegrees {
		bits |= dofTwist
	}
	if math32.Abs(c.YMax-c.YMin) > thresholdDegrees {
		bits |= dofSwingY
	}
	if math32.Abs(c.ZMax-c.ZMin) > thresholdDegrees {
		bits |= dofSwingZ
	}
	return bits
}

// EmittedJoint is a fully classified constraint, ready to hand to
// model.Builder's AddFixedJoint/AddHingeJoint/AddBallJoint.
type EmittedJoint struct {
	Kind               model.JointKind
	TwistMin, TwistMax float32
	SwingLimit         float32
}

// Emit classifies constraint c and computes its limits (spec §4.4 step 3).
func Emit(c Constraint, thresholdDegrees float32) EmittedJoint {
	bits := classify(c, thresholdDegrees)
	switch bitCount(bits) {
	case 0:
		return EmittedJoint{Kind: model.JointFixed}
	case 1:
		min, max := axisLimits(c, bits)
		return EmittedJoint{Kind: model.JointHinge, TwistMin: min, TwistMax: max}
	default:
		swing := math32.Max(math32.Max(math32.Abs(c.YMin), math32.Abs(c.YMax)), math32.Max(math32.Abs(c.ZMin), math32.Abs(c.ZMax)))
		return EmittedJoint{
			Kind:       model.JointBall,
			SwingLimit: swing,
			TwistMin:   c.XMin,
			TwistMax:   c.XMax,
		}
	}
}

func bitCount(bits int) int {
	n := 0
	for bits != 0 {
		n += bits & 1
		bits >>= 1
	}
	return n
}

// axisLimits returns the min/max of whichever single axis bits identifies
// (spec §4.4 step 3: "hinge about whichever axis is free").
func axisLimits(c Constraint, bits int) (float32, float32) {
	switch bits {
	case dofTwist:
		return c.XMin, c.XMax
	case dofSwingY:
		return c.YMin, c.YMax
	default:
		return c.ZMin, c.ZMax
	}
}

// JointFrames computes frame1/frame2 for a constraint whose parent/child
// solids both resolve to bones (spec §4.4 step 1): frame1 expresses the
// child's world transform in the parent's local space, frame2 is identity.
// When either side has no bone, both frames are identity.
func JointFrames(parentWorld, childWorld vec.Transform, haveBones bool) (frame1, frame2 vec.Transform) {
	if !haveBones {
		return vec.IdentityTransform(), vec.IdentityTransform()
	}
	return vec.Compose(parentWorld.Invert(), childWorld), vec.IdentityTransform()
}
