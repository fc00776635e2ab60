// SPDX-License-Identifier: GPL-2.0-or-later

// Package skeleton walks an MDL bone table once and feeds it to a
// model.Builder, producing the skeleton's world transforms and a
// name-indexed lookup the physics and animation decoders need (spec §4.2).
package skeleton

import (
	"github.com/pkg/errors"

	"sourcemodel/mdl"
	"sourcemodel/vec"
)

// Sink is the subset of model.Builder the skeleton builder writes to.
type Sink interface {
	AddBone(name string, local vec.Transform, localEuler, posScale, rotScale vec.Vec3, parentName string, hasParent bool) int
}

// Result carries the skeleton's world transforms and name index, needed by
// the physics decoder to resolve solid-info names to bones (spec §4.4).
type Result struct {
	// WorldByName maps a bone name to its world transform.
	WorldByName map[string]vec.Transform
	// IndexByName maps a bone name to its index in skeleton order.
	IndexByName map[string]int
}

// Build reads every bone from r in order and appends it to sink. Bones
// must already be stored parent-before-child (spec §3 invariant); sink
// relies on that ordering to compose world transforms.
func Build(r *mdl.Reader, sink Sink) (Result, error) {
	res := Result{
		WorldByName: make(map[string]vec.Transform),
		IndexByName: make(map[string]int),
	}

	n := r.NumBones()
	names := make([]string, n)
	worlds := make([]vec.Transform, n)

	for i := 0; i < n; i++ {
		b, err := r.Bone(i)
		if err != nil {
			return Result{}, errors.Wrapf(err, "skeleton bone %d", i)
		}

		hasParent := b.Parent >= 0
		var parentName string
		if hasParent {
			if b.Parent >= i {
				return Result{}, errors.Errorf("skeleton: bone %d parent %d violates parent-before-child order", i, b.Parent)
			}
			parentName = names[b.Parent]
		}

		idx := sink.AddBone(b.Name, b.Local, b.Euler, b.PositionScale, b.RotationScale, parentName, hasParent)

		world := b.Local
		if hasParent {
			world = vec.Compose(worlds[b.Parent], b.Local)
		}

		names[i] = b.Name
		worlds[i] = world
		res.WorldByName[b.Name] = world
		res.IndexByName[b.Name] = idx
	}

	return res, nil
}
