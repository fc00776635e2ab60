// SPDX-License-Identifier: GPL-2.0-or-later

// Package material resolves an MDL texture-table index to a material
// handle via CD-texture search paths, and computes the eyeball iris basis
// substitution (spec §4.3 step 3, §4.6). The search-path-ordered lookup
// is grounded on the teacher's bsp/texture.go texture table.
package material

import (
	"strings"

	"sourcemodel/model"
	"sourcemodel/vec"
)

// Resolver reports whether a path exists in the asset tree (spec §4.6);
// it is the material-resolution half of the root decoder's Resolver.
type Resolver interface {
	Exists(path string) bool
}

// Handle is the default MaterialHandle: a mount-scheme material path.
type Handle string

// MaterialExt is the loaded-material file extension spec §4.6 builds
// (".vmt" -> ".<material-ext>"); fixed by the format.
const MaterialExt = "vmt"

func normalizeTexture(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, `\`, `/`))
}

func normalizeSearchPath(p string) string {
	p = strings.ToLower(strings.ReplaceAll(p, `\`, `/`))
	return strings.TrimSuffix(p, "/")
}

// Resolve implements spec §4.6: normalize the texture name and each search
// path, try each in order, and return the first material path that exists.
// mountIdent is the root decoder's WithMountIdent value.
func Resolve(resolver Resolver, textureName string, searchPaths []string, mountIdent string) (Handle, bool) {
	tex := normalizeTexture(textureName)
	for _, sp := range searchPaths {
		search := normalizeSearchPath(sp)
		vmt := "materials/" + search + "/" + tex + ".vmt"
		if resolver.Exists(vmt) {
			url := "mount://" + mountIdent + "/materials/" + search + "/" + tex + "." + MaterialExt
			return Handle(url), true
		}
	}
	return "", false
}

// EyeballSource is the subset of an MDL eyeball record the iris basis needs.
type EyeballSource struct {
	Origin    vec.Vec3
	Forward   vec.Vec3
	Up        vec.Vec3
	Radius    float32
	IrisScale float32
}

// EyeMaterial computes g_vIrisU/g_vIrisV (spec §4.3 step 3): the iris
// basis vector is `right = forward x up` (normalized); U/V axes are
// `{axis.xyz * (0.5/irisRadius), 0.5 - axis.origin * (0.5/irisRadius)}`.
func EyeMaterial(handle model.MaterialHandle, eye EyeballSource) model.EyeMaterial {
	irisRadius := eye.Radius * eye.IrisScale
	scale := float32(0.5) / irisRadius

	right := vec.Cross(eye.Forward, eye.Up).Normalize()
	up := eye.Up.Normalize()

	u := vec.Vec4{
		X: right.X * scale,
		Y: right.Y * scale,
		Z: right.Z * scale,
		W: 0.5 - vec.Dot(right, eye.Origin)*scale,
	}
	v := vec.Vec4{
		X: up.X * scale,
		Y: up.Y * scale,
		Z: up.Z * scale,
		W: 0.5 - vec.Dot(up, eye.Origin)*scale,
	}

	return model.EyeMaterial{Handle: handle, IrisU: u, IrisV: v}
}
