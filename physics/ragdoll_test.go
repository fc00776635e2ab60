// SPDX-License-Identifier: GPL-2.0-or-later

package physics

import (
	"testing"

	"sourcemodel/model"
	"sourcemodel/vec"
)

func TestParseRagdollSolidsAndConstraints(t *testing.T) {
	src := `
solid { "index" "0" "name" "pelvis" "parent" "-1" "mass" "10" "surfaceprop" "flesh" }
solid { "index" "1" "name" "spine" "parent" "0" "mass" "5" "surfaceprop" "flesh" }
ragdollconstraint {
	"parent" "0" "child" "1"
	"xmin" "-10" "xmax" "10"
	"ymin" "0" "ymax" "0"
	"zmin" "0" "zmax" "0"
}
`
	solids, constraints, err := ParseRagdoll([]byte(src))
	if err != nil {
		t.Fatalf("ParseRagdoll() error = %v", err)
	}
	if len(solids) != 2 {
		t.Fatalf("len(solids) = %d, want 2", len(solids))
	}
	if solids[0].Name != "pelvis" || solids[0].Mass != 10 || solids[0].SurfaceProp != "flesh" {
		t.Errorf("solids[0] = %+v", solids[0])
	}
	if solids[1].Parent != 0 {
		t.Errorf("solids[1].Parent = %d, want 0", solids[1].Parent)
	}
	if len(constraints) != 1 {
		t.Fatalf("len(constraints) = %d, want 1", len(constraints))
	}
	if constraints[0].XMin != -10 || constraints[0].XMax != 10 {
		t.Errorf("constraints[0] X range = [%v,%v], want [-10,10]", constraints[0].XMin, constraints[0].XMax)
	}
}

func TestClassifyAndEmitFixedJoint(t *testing.T) {
	c := Constraint{} // all axes zero range
	j := Emit(c, DefaultHingeThresholdDegrees)
	if j.Kind != model.JointFixed {
		t.Errorf("Emit() kind = %v, want JointFixed", j.Kind)
	}
}

func TestClassifyAndEmitHingeJoint(t *testing.T) {
	c := Constraint{XMin: -45, XMax: 45}
	j := Emit(c, DefaultHingeThresholdDegrees)
	if j.Kind != model.JointHinge {
		t.Fatalf("Emit() kind = %v, want JointHinge", j.Kind)
	}
	if j.TwistMin >= j.TwistMax {
		t.Errorf("TwistMin=%v TwistMax=%v, want Min < Max", j.TwistMin, j.TwistMax)
	}
	// Limits pass through in the source KeyValues' own units (degrees),
	// unconverted (spec §8 scenario S4).
	if j.TwistMin != -45 || j.TwistMax != 45 {
		t.Errorf("TwistMin=%v TwistMax=%v, want -45, 45 (raw degrees, unconverted)", j.TwistMin, j.TwistMax)
	}
}

func TestClassifyAndEmitBallJoint(t *testing.T) {
	c := Constraint{XMin: -45, XMax: 45, YMin: -30, YMax: 30}
	j := Emit(c, DefaultHingeThresholdDegrees)
	if j.Kind != model.JointBall {
		t.Errorf("Emit() kind = %v, want JointBall", j.Kind)
	}
}

func TestClassifyBelowThresholdIsFixed(t *testing.T) {
	// A 2 degree range is below the default 5 degree hinge threshold.
	c := Constraint{XMin: -1, XMax: 1}
	j := Emit(c, DefaultHingeThresholdDegrees)
	if j.Kind != model.JointFixed {
		t.Errorf("Emit() kind = %v, want JointFixed (below threshold)", j.Kind)
	}
}

func TestJointFramesNoBonesIsIdentity(t *testing.T) {
	f1, f2 := JointFrames(vec.IdentityTransform(), vec.IdentityTransform(), false)
	if f1 != vec.IdentityTransform() || f2 != vec.IdentityTransform() {
		t.Errorf("JointFrames(haveBones=false) = %v, %v, want identity, identity", f1, f2)
	}
}

func TestJointFramesWithBonesComposesRelativeTransform(t *testing.T) {
	parent := vec.Transform{Position: vec.Vec3{X: 1, Y: 0, Z: 0}, Rotation: vec.Identity()}
	child := vec.Transform{Position: vec.Vec3{X: 3, Y: 0, Z: 0}, Rotation: vec.Identity()}
	f1, f2 := JointFrames(parent, child, true)
	if f1.Position.X != 2 {
		t.Errorf("frame1.Position.X = %v, want 2 (child relative to parent)", f1.Position.X)
	}
	if f2 != vec.IdentityTransform() {
		t.Errorf("frame2 = %v, want identity", f2)
	}
}
