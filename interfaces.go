// SPDX-License-Identifier: GPL-2.0-or-later

package sourcemodel

import (
	"sourcemodel/model"
	"sourcemodel/physics"
	"sourcemodel/skeleton"
	"sourcemodel/vec"
)

// Resolver is the decoder's only I/O collaborator (spec §6): it answers
// whether a mount-relative path exists and returns its bytes. Paths are
// forward-slashed, lowercase, relative to a mount root. Implementations
// must be safe for concurrent use, since include-model decoding reentrantly
// consults the resolver (spec §5).
type Resolver interface {
	Exists(path string) bool
	Read(path string) ([]byte, bool)
}

// Sink is the builder the decoder writes decoded data into (spec §6).
// model.Builder is the default in-memory implementation Decode uses
// internally; DecodeInto accepts any Sink.
type Sink interface {
	skeleton.Sink
	physics.Sink

	AddMesh(mesh model.Mesh)

	AddFixedJoint(parentBody, childBody int, frame1, frame2 vec.Transform)
	AddHingeJoint(parentBody, childBody int, frame1, frame2 vec.Transform, twistMin, twistMax float32)
	AddBallJoint(parentBody, childBody int, frame1, frame2 vec.Transform, swingLimit, twistMin, twistMax float32)

	AddAnimation(a model.Animation)
}
