// SPDX-License-Identifier: GPL-2.0-or-later

package physics

import (
	"sourcemodel/model"
	"sourcemodel/phy"
	"sourcemodel/vec"
)

// Sink is the subset of model.Builder the physics decoder writes bodies
// and hulls to.
type Sink interface {
	AddBody(mass float32, surface, boneName string) model.BodyHandle
	AddHull(h model.BodyHandle, points []vec.Vec3)
}

// Solid pairs a decoded collision blob's surviving hulls with the
// KeyValues-described identity of the same-indexed solid, when present.
type Solid struct {
	BlobIndex int
	Info      *SolidInfo // nil if this blob has no matching "solid" entry
	Hulls     []phy.Ledge
}

// DecodeSolids walks every solid blob's compact surface into its ledges,
// discards degenerate ones, and pairs the survivors with parsed solid
// metadata by index (spec §4.4 "Collision trees" + "Emission"). A
// malformed or out-of-bounds blob is non-fatal and local (spec §7): it
// contributes a Solid with zero hulls rather than aborting the batch, so
// one bad blob never costs the rest of the file its physics.
func DecodeSolids(blobs [][]byte, solidInfos []SolidInfo, ivpScale float32) []Solid {
	infoByIndex := make(map[int]SolidInfo, len(solidInfos))
	for _, si := range solidInfos {
		infoByIndex[si.Index] = si
	}

	solids := make([]Solid, 0, len(blobs))
	for i, blob := range blobs {
		var ledges []phy.Ledge
		if body, err := phy.CompactSurfaceBody(blob); err == nil {
			if walked, err := phy.WalkLedgeTree(body, ivpScale); err == nil {
				ledges = FilterHulls(walked)
			}
		}

		s := Solid{BlobIndex: i, Hulls: ledges}
		if info, ok := infoByIndex[i]; ok {
			infoCopy := info
			s.Info = &infoCopy
		}
		solids = append(solids, s)
	}
	return solids
}

// EmitBodies adds a model.PhysicsBody for every solid with at least one
// surviving hull, and returns the solid-blob-index -> body-index mapping
// spec §4.4 "Emission" requires for constraint resolution. boneNameFor
// looks up the bone-attachment name for a solid, by blob index.
func EmitBodies(sink Sink, solids []Solid, boneNameFor func(solidIndex int) string) map[int]model.BodyHandle {
	bodyBySolid := make(map[int]model.BodyHandle)
	for _, s := range solids {
		if len(s.Hulls) == 0 {
			continue
		}

		mass := float32(1.0)
		surface := ""
		if s.Info != nil {
			mass = s.Info.Mass
			surface = s.Info.SurfaceProp
		}

		h := sink.AddBody(mass, surface, boneNameFor(s.BlobIndex))
		for _, l := range s.Hulls {
			sink.AddHull(h, l.Points)
		}
		bodyBySolid[s.BlobIndex] = h
	}
	return bodyBySolid
}
